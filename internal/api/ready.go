package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

// readinessState tracks the director and the optional backends.
type readinessState struct {
	mu                sync.RWMutex
	directorReady     bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

// Both backends start optional and unused until the CLI says otherwise.
var readiness = &readinessState{
	mqttOptional:     true,
	postgresOptional: true,
}

// SetDirectorReady marks the scene queue as loaded and the director running.
func SetDirectorReady(ready bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.directorReady = ready
}

// SetMQTTState records the broker connection.
func SetMQTTState(connected, optional bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
}

// SetPostgresState records the ledger connection.
func SetPostgresState(connected, optional bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
}

type ReadinessCheck struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

type ReadinessResponse struct {
	Ready       bool                      `json:"ready"`
	Checks      map[string]ReadinessCheck `json:"checks"`
	NotReadyMsg string                    `json:"message,omitempty"`
}

func dependencyCheck(connected, optional bool) (ReadinessCheck, bool) {
	switch {
	case connected:
		return ReadinessCheck{Status: "ok", Optional: optional}, true
	case optional:
		return ReadinessCheck{Status: "unavailable", Optional: true}, true
	default:
		return ReadinessCheck{Status: "not_ready"}, false
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	directorReady := readiness.directorReady
	mqttConnected, mqttOptional := readiness.mqttConnected, readiness.mqttOptional
	postgresConnected, postgresOptional := readiness.postgresConnected, readiness.postgresOptional
	readiness.mu.RUnlock()

	resp := ReadinessResponse{Ready: true, Checks: map[string]ReadinessCheck{}}
	var reasons []string

	if directorReady {
		resp.Checks["director"] = ReadinessCheck{Status: "ok"}
	} else {
		resp.Checks["director"] = ReadinessCheck{Status: "not_ready"}
		reasons = append(reasons, "director not running")
	}

	check, ok := dependencyCheck(mqttConnected, mqttOptional)
	resp.Checks["mqtt"] = check
	if !ok {
		reasons = append(reasons, "mqtt not connected")
	}

	check, ok = dependencyCheck(postgresConnected, postgresOptional)
	resp.Checks["postgres"] = check
	if !ok {
		reasons = append(reasons, "postgres not connected")
	}

	w.Header().Set("Content-Type", "application/json")
	if len(reasons) > 0 {
		resp.Ready = false
		resp.NotReadyMsg = strings.Join(reasons, "; ")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
