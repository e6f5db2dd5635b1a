package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeDepther struct {
	depth int
	err   error
}

func (f *fakeDepther) Depth(string) (int, error) { return f.depth, f.err }

func TestHealthz(t *testing.T) {
	s := NewOpsServer("0", &fakeDepther{}, nil, "video-transcode", "libx264")
	rec := httptest.NewRecorder()

	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestStatusReportsDepthAndCodec(t *testing.T) {
	s := NewOpsServer("0", &fakeDepther{depth: 4}, nil, "video-transcode", "h264_nvenc")
	rec := httptest.NewRecorder()

	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var body struct {
		QueueDepth int    `json:"queue_depth"`
		Codec      string `json:"codec"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.QueueDepth != 4 || body.Codec != "h264_nvenc" {
		t.Fatalf("body = %+v", body)
	}
}

func TestStatusSurvivesBrokerError(t *testing.T) {
	s := NewOpsServer("0", &fakeDepther{err: errors.New("not initialized")}, nil, "video-transcode", "libx264")
	rec := httptest.NewRecorder()

	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with queue_error in body", rec.Code)
	}
	var body struct {
		QueueError string `json:"queue_error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.QueueError == "" {
		t.Fatal("queue_error missing from body")
	}
}
