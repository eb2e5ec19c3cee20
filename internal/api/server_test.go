package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AaronLay10/IntPhysDirector/internal/director"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
)

type fixedProgress struct {
	p director.Progress
}

func (f fixedProgress) Progress() director.Progress { return f.p }

func setReadiness(directorReady, mqttConnected, mqttOptional, postgresConnected, postgresOptional bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.directorReady = directorReady
	readiness.mqttConnected = mqttConnected
	readiness.mqttOptional = mqttOptional
	readiness.postgresConnected = postgresConnected
	readiness.postgresOptional = postgresOptional
}

func getReady(t *testing.T) (int, ReadinessResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	readyHandler(w, httptest.NewRequest("GET", "/ready", nil))

	var resp ReadinessResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return w.Code, resp
}

func TestHealthEndpoint(t *testing.T) {
	w := httptest.NewRecorder()
	healthHandler(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Service != "intphys" {
		t.Errorf("unexpected health: %+v", resp)
	}
}

func TestReadyEndpoint_AllReady(t *testing.T) {
	setReadiness(true, true, false, true, false)

	code, resp := getReady(t)
	if code != http.StatusOK || !resp.Ready {
		t.Errorf("expected ready, got %d %+v", code, resp)
	}
	for _, name := range []string{"director", "mqtt", "postgres"} {
		if resp.Checks[name].Status != "ok" {
			t.Errorf("%s: expected 'ok', got '%s'", name, resp.Checks[name].Status)
		}
	}
}

func TestReadyEndpoint_DirectorNotRunning(t *testing.T) {
	setReadiness(false, true, false, true, false)

	code, resp := getReady(t)
	if code != http.StatusServiceUnavailable || resp.Ready {
		t.Errorf("expected 503 not ready, got %d %+v", code, resp)
	}
	if resp.Checks["director"].Status != "not_ready" {
		t.Errorf("expected director 'not_ready', got '%s'", resp.Checks["director"].Status)
	}
	if resp.NotReadyMsg == "" {
		t.Error("expected non-empty message")
	}
}

func TestReadyEndpoint_OptionalBackendsUnavailable(t *testing.T) {
	setReadiness(true, false, true, false, true)

	code, resp := getReady(t)
	if code != http.StatusOK || !resp.Ready {
		t.Fatalf("optional backends must not block readiness: %d %+v", code, resp)
	}
	for _, name := range []string{"mqtt", "postgres"} {
		if c := resp.Checks[name]; c.Status != "unavailable" || !c.Optional {
			t.Errorf("%s: %+v", name, c)
		}
	}
}

func TestReadyEndpoint_RequiredMQTTNotConnected(t *testing.T) {
	setReadiness(false, false, false, true, false)

	code, resp := getReady(t)
	if code != http.StatusServiceUnavailable || resp.Ready {
		t.Errorf("expected 503 not ready, got %d", code)
	}
	if resp.Checks["mqtt"].Status != "not_ready" {
		t.Errorf("expected mqtt 'not_ready', got '%s'", resp.Checks["mqtt"].Status)
	}
	if !strings.Contains(resp.NotReadyMsg, "director") || !strings.Contains(resp.NotReadyMsg, "mqtt") {
		t.Errorf("expected both reasons, got %q", resp.NotReadyMsg)
	}
}

func TestSetReadinessState(t *testing.T) {
	SetDirectorReady(true)
	SetMQTTState(false, true)
	SetPostgresState(true, false)

	readiness.mu.RLock()
	defer readiness.mu.RUnlock()
	if !readiness.directorReady || readiness.mqttConnected || !readiness.mqttOptional ||
		!readiness.postgresConnected || readiness.postgresOptional {
		t.Errorf("setters did not apply: %+v", readiness)
	}
}

func TestProgressEndpoint(t *testing.T) {
	SetProgressSource(nil)
	w := httptest.NewRecorder()
	progressHandler(w, httptest.NewRequest("GET", "/progress", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a director, got %d", w.Code)
	}

	SetProgressSource(fixedProgress{director.Progress{Index: 2, Total: 8, Scene: "O2", Run: 3}})
	defer SetProgressSource(nil)

	w = httptest.NewRecorder()
	progressHandler(w, httptest.NewRequest("GET", "/progress", nil))
	var p director.Progress
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Index != 2 || p.Total != 8 || p.Scene != "O2" || p.Run != 3 {
		t.Errorf("progress: %+v", p)
	}
}

func TestControlStop(t *testing.T) {
	events.Clear()
	var reasons []string
	SetStopFunc(func(reason string) { reasons = append(reasons, reason) })
	defer SetStopFunc(nil)

	w := httptest.NewRecorder()
	controlStopHandler(w, httptest.NewRequest("GET", "/control/stop", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: expected 405, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	controlStopHandler(w, httptest.NewRequest("POST", "/control/stop", strings.NewReader("{")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON: expected 400, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	controlStopHandler(w, httptest.NewRequest("POST", "/control/stop", strings.NewReader(`{"reason": "disk full"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(reasons) != 1 || reasons[0] != "disk full" {
		t.Errorf("stop calls: %v", reasons)
	}

	found := false
	for _, e := range events.Snapshot() {
		if e.Name == "control.received" && e.Fields["source"] == "api" {
			found = true
		}
	}
	if !found {
		t.Error("control.received not emitted")
	}
}

func TestControlStopWithoutRun(t *testing.T) {
	SetStopFunc(nil)
	w := httptest.NewRecorder()
	controlStopHandler(w, httptest.NewRequest("POST", "/control/stop", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestHandlerRoutes(t *testing.T) {
	resetAuth()
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	for path, want := range map[string]int{
		"/":        http.StatusOK,
		"/health":  http.StatusOK,
		"/events":  http.StatusOK,
		"/metrics": http.StatusOK,
		"/missing": http.StatusNotFound,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("%s: expected %d, got %d", path, want, resp.StatusCode)
		}
	}
}
