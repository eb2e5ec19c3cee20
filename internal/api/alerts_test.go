package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AaronLay10/IntPhysDirector/internal/director"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
)

func TestOutageAlertsOnceThenRecovers(t *testing.T) {
	o := &outage{alert: AlertMQTTDisconnected, severity: SeverityWarning, label: "MQTT broker", known: true}
	t0 := time.Unix(1000, 0)

	if p := o.observe(false, t0, 30*time.Second); p != nil {
		t.Fatalf("alerted before the delay: %+v", p)
	}
	if p := o.observe(false, t0.Add(10*time.Second), 30*time.Second); p != nil {
		t.Fatalf("alerted before the delay: %+v", p)
	}
	p := o.observe(false, t0.Add(31*time.Second), 30*time.Second)
	if p == nil || p.Severity != SeverityWarning || p.Details["disconnected_seconds"] != 31 {
		t.Fatalf("expected a warning, got %+v", p)
	}
	if p := o.observe(false, t0.Add(60*time.Second), 30*time.Second); p != nil {
		t.Fatalf("alerted twice: %+v", p)
	}
	p = o.observe(true, t0.Add(61*time.Second), 30*time.Second)
	if p == nil || p.Severity != SeverityInfo {
		t.Fatalf("expected a recovery, got %+v", p)
	}
	if p := o.observe(true, t0.Add(62*time.Second), 30*time.Second); p != nil {
		t.Fatalf("recovered twice: %+v", p)
	}
}

func TestShortOutageIsSilent(t *testing.T) {
	o := &outage{alert: AlertPostgresUnavailable, severity: SeverityCritical, label: "PostgreSQL", known: true}
	t0 := time.Unix(1000, 0)
	o.observe(false, t0, 5*time.Second)
	if p := o.observe(true, t0.Add(time.Second), 5*time.Second); p != nil {
		t.Fatalf("recovery without alert: %+v", p)
	}
}

func TestAlertForEvent(t *testing.T) {
	done := alertForEvent(events.Event{Name: "director.completed", Fields: map[string]interface{}{"restarted_percent": 4.0}})
	if done == nil || done.Event != AlertRunCompleted || done.Severity != SeverityInfo {
		t.Errorf("completed: %+v", done)
	}
	failed := alertForEvent(events.Event{Name: "system.error", Message: "disk full"})
	if failed == nil || failed.Event != AlertSystemError || failed.Message != "disk full" {
		t.Errorf("failed: %+v", failed)
	}
	if p := alertForEvent(events.Event{Name: "scene.started"}); p != nil {
		t.Errorf("unexpected alert: %+v", p)
	}
}

func TestSendAlertPostsToWebhook(t *testing.T) {
	var mu sync.Mutex
	var got []AlertPayload
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p AlertPayload
		json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}))
	defer hook.Close()

	t.Setenv("INTPHYS_ALERT_WEBHOOK_URL", hook.URL)
	InitAlerts()
	defer func() {
		t.Setenv("INTPHYS_ALERT_WEBHOOK_URL", "")
		InitAlerts()
	}()
	SetDataset("/data/intphys")
	defer SetDataset("")

	SendAlert(AlertRunCompleted, SeverityInfo, "generation completed", nil)

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, "webhook call")

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 1 && (got[0].Dataset != "/data/intphys" || got[0].Event != AlertRunCompleted || got[0].Timestamp == "") {
		t.Errorf("payload: %+v", got[0])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	SetDataset("out")
	defer SetDataset("")
	SetProgressSource(fixedProgress{director.Progress{Index: 3, Total: 12, Captures: 300, Restarted: 2}})
	defer SetProgressSource(nil)

	w := httptest.NewRecorder()
	metricsHandler(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	for _, want := range []string{
		"# TYPE intphys_events_total counter",
		`intphys_scenes_total{dataset="out"`,
		"} 12\n",
		"intphys_captures_total{",
		"} 300\n",
		"intphys_restarts_total{",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}

	w = httptest.NewRecorder()
	metricsHandler(w, httptest.NewRequest("POST", "/metrics", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: expected 405, got %d", w.Code)
	}
}

func TestMetricsWithoutDirector(t *testing.T) {
	SetProgressSource(nil)
	w := httptest.NewRecorder()
	metricsHandler(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()
	if !strings.Contains(body, "intphys_uptime_seconds") || strings.Contains(body, "intphys_scenes_total") {
		t.Errorf("unexpected metrics:\n%s", body)
	}
}
