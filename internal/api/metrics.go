package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AaronLay10/IntPhysDirector/internal/events"
	"github.com/AaronLay10/IntPhysDirector/internal/version"
)

var metricsState = &MetricsState{startTime: time.Now()}

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu        sync.RWMutex
	startTime time.Time
	dataset   string
}

// InitMetrics resets the uptime clock. Must be called at startup.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
}

// SetDataset sets the dataset label, the output directory of the run.
func SetDataset(name string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.dataset = name
}

// GetDataset returns the dataset label.
func GetDataset() string {
	metricsState.mu.RLock()
	defer metricsState.mu.RUnlock()
	return metricsState.dataset
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metricsState.mu.RLock()
	startTime := metricsState.startTime
	dataset := metricsState.dataset
	metricsState.mu.RUnlock()

	readiness.mu.RLock()
	mqttConnected := readiness.mqttConnected
	postgresConnected := readiness.postgresConnected
	readiness.mu.RUnlock()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	}

	labels := fmt.Sprintf(`dataset="%s",instance="%s",version="%s"`, dataset, hostname, version.Version)

	writeMetric("intphys_uptime_seconds", "gauge",
		"Number of seconds since the generator started", time.Since(startTime).Seconds(), labels)
	writeMetric("intphys_events_total", "counter",
		"Total number of events emitted since startup", events.TotalCount(), labels)
	writeMetric("intphys_ws_clients", "gauge",
		"Number of active WebSocket client connections", events.SubscriberCount(), labels)
	writeMetric("intphys_mqtt_connected", "gauge",
		"Whether the MQTT broker is connected (1) or not (0)", boolGauge(mqttConnected), labels)
	writeMetric("intphys_postgres_connected", "gauge",
		"Whether PostgreSQL is connected (1) or not (0)", boolGauge(postgresConnected), labels)

	if progressSource == nil {
		return
	}
	p := progressSource.Progress()
	writeMetric("intphys_scenes_total", "gauge",
		"Number of scenes in the queue", p.Total, labels)
	writeMetric("intphys_scenes_done", "gauge",
		"Number of scenes rendered", p.Index, labels)
	writeMetric("intphys_captures_total", "counter",
		"Number of frames captured, regenerated runs included", p.Captures, labels)
	writeMetric("intphys_restarts_total", "counter",
		"Number of scene regenerations", p.Restarted, labels)
	writeMetric("intphys_paused", "gauge",
		"Whether the engine is paused (1) or not (0)", boolGauge(p.Paused), labels)
	writeMetric("intphys_done", "gauge",
		"Whether the generation is over (1) or not (0)", boolGauge(p.Done), labels)
}
