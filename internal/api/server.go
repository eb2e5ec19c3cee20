package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/AaronLay10/IntPhysDirector/internal/director"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
)

// ProgressSource reports the state of the generation run.
type ProgressSource interface {
	Progress() director.Progress
}

var (
	progressSource ProgressSource
	stopFunc       func(reason string)
)

// SetProgressSource sets the director served by /progress and /metrics.
func SetProgressSource(s ProgressSource) {
	progressSource = s
}

// SetStopFunc sets the function called by POST /control/stop.
func SetStopFunc(fn func(reason string)) {
	stopFunc = fn
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "intphys",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events.Snapshot())
}

func progressHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if progressSource == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(ControlResponse{OK: false, Error: "no run in progress"})
		return
	}
	_ = json.NewEncoder(w).Encode(progressSource.Progress())
}

type ControlRequest struct {
	Reason string `json:"reason"`
}

type ControlResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// controlStopHandler cancels the run. The current run of the current scene
// is discarded, every saved scene stays on disk.
func controlStopHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(ControlResponse{OK: false, Error: "method not allowed"})
		return
	}

	var req ControlRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(ControlResponse{OK: false, Error: "invalid JSON"})
			return
		}
	}

	if stopFunc == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(ControlResponse{OK: false, Error: "no run in progress"})
		return
	}

	events.Emit("info", "control.received", req.Reason, map[string]interface{}{
		"source":  "api",
		"command": "stop",
	})
	stopFunc(req.Reason)

	_ = json.NewEncoder(w).Encode(ControlResponse{OK: true})
}

// Handler returns the API routes.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", uiHandler)
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/metrics", metricsHandler)
	mux.HandleFunc("/events", RequireAnyRole(eventsHandler))
	mux.HandleFunc("/progress", RequireAnyRole(progressHandler))
	mux.HandleFunc("/ws/events", RequireAnyRole(wsEventsHandler))
	mux.HandleFunc("/control/stop", RequireAdmin(controlStopHandler))
	return mux
}

// ListenAndServe starts the API server on the given port, over TLS when
// configured. It blocks until the server exits.
func ListenAndServe(port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: Handler(),
	}
	if tlsCfg := LoadTLSConfig(); tlsCfg != nil {
		srv.TLSConfig = tlsCfg
		log.Printf("API listening on %s (TLS)\n", srv.Addr)
		return srv.ListenAndServeTLS("", "")
	}
	log.Printf("API listening on %s\n", srv.Addr)
	return srv.ListenAndServe()
}

// Start starts the API server in a goroutine.
// Errors are logged but do not stop the caller.
func Start(port int) {
	go func() {
		if err := ListenAndServe(port); err != nil {
			log.Printf("api server error: %v", err)
		}
	}()
}
