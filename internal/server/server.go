package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"transcode-pipeline/internal/monitor"
)

// Depther reads the broker-side message count. Implemented by the
// queue transport.
type Depther interface {
	Depth(queueName string) (int, error)
}

// OpsServer exposes liveness and a small status snapshot for operators.
type OpsServer struct {
	port      string
	broker    Depther
	monitor   *monitor.Monitor
	queueName string
	codec     string
}

func NewOpsServer(port string, broker Depther, mon *monitor.Monitor, queueName, codec string) *OpsServer {
	return &OpsServer{
		port:      port,
		broker:    broker,
		monitor:   mon,
		queueName: queueName,
		codec:     codec,
	}
}

// Routes builds the handler; split out so tests can hit it directly.
func (s *OpsServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Start opens the ops port. Blocks; run it in its own goroutine.
func (s *OpsServer) Start() {
	log.Printf("Ops endpoint listening on port %s", s.port)
	if err := http.ListenAndServe(":"+s.port, s.Routes()); err != nil {
		log.Printf("Ops endpoint failed: %v", err)
	}
}

func (s *OpsServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *OpsServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	type statusBody struct {
		QueueDepth int            `json:"queue_depth"`
		QueueError string         `json:"queue_error,omitempty"`
		Host       *monitor.Stats `json:"host,omitempty"`
		Codec      string         `json:"codec"`
	}

	body := statusBody{Codec: s.codec}

	depth, err := s.broker.Depth(s.queueName)
	if err != nil {
		body.QueueError = err.Error()
	} else {
		body.QueueDepth = depth
	}

	if s.monitor != nil {
		if stats, err := s.monitor.Snapshot(context.Background()); err == nil {
			body.Host = &stats
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
