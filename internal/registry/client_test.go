package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"transcode-pipeline/internal/config"
	"transcode-pipeline/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.Config{RegistryURL: srv.URL})
}

func TestFetchPending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/pendingList" {
			t.Errorf("path = %s, want /pendingList", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		json.NewEncoder(w).Encode([]models.Task{
			{ID: "t1", SourcePath: "a.mp4"},
			{ID: "t2", SourcePath: "b.mp4"},
		})
	})

	tasks, err := c.FetchPending(context.Background(), 5)
	if err != nil {
		t.Fatalf("fetch pending: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "t1" {
		t.Fatalf("tasks = %+v, want t1 and t2", tasks)
	}
}

func TestUpdateTask(t *testing.T) {
	var got models.TaskUpdatePayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if r.URL.Path != "/update/t1" {
			t.Errorf("path = %s, want /update/t1", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	})

	payload := models.TaskUpdatePayload{Status: models.StatusProcessing, StartTime: "2026-08-24T10:00:00Z"}
	if err := c.UpdateTask(context.Background(), "t1", payload); err != nil {
		t.Fatalf("update task: %v", err)
	}
	if got.Status != models.StatusProcessing || got.StartTime == "" {
		t.Fatalf("server saw %+v", got)
	}
}

func TestCreateVideo(t *testing.T) {
	var got models.VideoCreatePayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/videos/create" {
			t.Errorf("got %s %s, want POST /videos/create", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	})

	payload := models.VideoCreatePayload{QueuedTaskID: "t1", VideoURL: "media/t1/master.m3u8"}
	if err := c.CreateVideo(context.Background(), payload); err != nil {
		t.Fatalf("create video: %v", err)
	}
	if got.VideoURL != payload.VideoURL {
		t.Fatalf("server saw %+v", got)
	}
}

func TestPatchStatus(t *testing.T) {
	var got models.StatusPatchPayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/updateStatus/t9" {
			t.Errorf("got %s %s, want PATCH /updateStatus/t9", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
	})

	payload := models.StatusPatchPayload{Status: models.StatusError, ErrorMessage: "publish failed"}
	if err := c.PatchStatus(context.Background(), "t9", payload); err != nil {
		t.Fatalf("patch status: %v", err)
	}
	if got.ErrorMessage != "publish failed" {
		t.Fatalf("server saw %+v", got)
	}
}

func TestErrorStatusSurfaces(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad task", http.StatusNotFound)
	})

	if err := c.PatchStatus(context.Background(), "missing", models.StatusPatchPayload{Status: models.StatusError}); err == nil {
		t.Fatal("expected a 404 to surface as an error")
	}
}
