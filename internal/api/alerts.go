package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/AaronLay10/IntPhysDirector/internal/config"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
)

// Alert severity levels
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert event types
const (
	AlertMQTTDisconnected    = "mqtt_disconnected"
	AlertPostgresUnavailable = "postgres_unavailable"
	AlertRunCompleted        = "run_completed"
	AlertSystemError         = "system_error"
)

// AlertPayload is the JSON structure sent to the webhook.
type AlertPayload struct {
	Dataset   string                 `json:"dataset"`
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// AlertConfig holds alert configuration.
type AlertConfig struct {
	WebhookURL              string
	MQTTDisconnectDelay     time.Duration
	PostgresDisconnectDelay time.Duration
}

// outage tracks one backend going down and coming back.
type outage struct {
	alert    string
	severity string
	label    string

	known bool // last state was connected
	since time.Time
	sent  bool
}

// observe returns the alert to send, if any.
func (o *outage) observe(connected bool, now time.Time, delay time.Duration) *AlertPayload {
	if connected {
		recovered := !o.known && o.sent
		o.known, o.sent, o.since = true, false, time.Time{}
		if recovered {
			return &AlertPayload{Event: o.alert, Severity: SeverityInfo, Message: o.label + " connection restored",
				Details: map[string]interface{}{"recovered_at": now.UTC().Format(time.RFC3339)}}
		}
		return nil
	}

	if o.known {
		o.since = now
	}
	o.known = false
	if o.sent || o.since.IsZero() || now.Sub(o.since) < delay {
		return nil
	}
	o.sent = true
	return &AlertPayload{Event: o.alert, Severity: o.severity, Message: o.label + " unavailable",
		Details: map[string]interface{}{
			"disconnected_since":   o.since.UTC().Format(time.RFC3339),
			"disconnected_seconds": int(now.Sub(o.since).Seconds()),
		}}
}

var (
	alertConfig = &AlertConfig{
		MQTTDisconnectDelay:     30 * time.Second,
		PostgresDisconnectDelay: 5 * time.Second,
	}
	alertMu          sync.Mutex
	alertInitialized bool
	mqttOutage       = &outage{alert: AlertMQTTDisconnected, severity: SeverityWarning, label: "MQTT broker"}
	postgresOutage   = &outage{alert: AlertPostgresUnavailable, severity: SeverityCritical, label: "PostgreSQL"}
)

// InitAlerts reads INTPHYS_ALERT_WEBHOOK_URL and the optional
// INTPHYS_MQTT_ALERT_DELAY and INTPHYS_POSTGRES_ALERT_DELAY durations.
func InitAlerts() {
	alertMu.Lock()
	defer alertMu.Unlock()

	alertConfig.WebhookURL = config.Getenv("INTPHYS_ALERT_WEBHOOK_URL", "")
	if d, err := time.ParseDuration(config.Getenv("INTPHYS_MQTT_ALERT_DELAY", "")); err == nil {
		alertConfig.MQTTDisconnectDelay = d
	}
	if d, err := time.ParseDuration(config.Getenv("INTPHYS_POSTGRES_ALERT_DELAY", "")); err == nil {
		alertConfig.PostgresDisconnectDelay = d
	}

	if alertConfig.WebhookURL != "" {
		log.Printf("alerts enabled (mqtt_delay=%s, pg_delay=%s)",
			alertConfig.MQTTDisconnectDelay, alertConfig.PostgresDisconnectDelay)
	}

	mqttOutage.known, postgresOutage.known = true, true
	alertInitialized = true
}

// GetAlertWebhookURL returns the configured webhook URL.
func GetAlertWebhookURL() string {
	alertMu.Lock()
	defer alertMu.Unlock()
	return alertConfig.WebhookURL
}

// SendAlert posts an alert to the webhook, or logs it when none is
// configured. It does not block.
func SendAlert(event, severity, message string, details map[string]interface{}) {
	sendPayload(AlertPayload{Event: event, Severity: severity, Message: message, Details: details})
}

func sendPayload(p AlertPayload) {
	webhookURL := GetAlertWebhookURL()
	if webhookURL == "" {
		log.Printf("[ALERT] %s severity=%s msg=%q details=%v", p.Event, p.Severity, p.Message, p.Details)
		return
	}
	p.Dataset = GetDataset()
	if p.Dataset == "" {
		p.Dataset = "dry-run"
	}
	p.Timestamp = time.Now().UTC().Format(time.RFC3339)
	go sendWebhook(webhookURL, p)
}

func sendWebhook(url string, payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("alert: failed to marshal payload: %v", err)
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("alert: webhook POST failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("alert: webhook returned status %d", resp.StatusCode)
	}
}

// CheckAndAlertMQTT alerts once the broker has been down for the configured
// delay, and again when it comes back.
func CheckAndAlertMQTT(connected bool) {
	checkOutage(mqttOutage, connected, func(c *AlertConfig) time.Duration { return c.MQTTDisconnectDelay })
}

// CheckAndAlertPostgres is CheckAndAlertMQTT for the run ledger.
func CheckAndAlertPostgres(connected bool) {
	checkOutage(postgresOutage, connected, func(c *AlertConfig) time.Duration { return c.PostgresDisconnectDelay })
}

func checkOutage(o *outage, connected bool, delay func(*AlertConfig) time.Duration) {
	alertMu.Lock()
	if !alertInitialized {
		alertMu.Unlock()
		return
	}
	p := o.observe(connected, time.Now(), delay(alertConfig))
	alertMu.Unlock()

	if p != nil {
		sendPayload(*p)
	}
}

// alertForEvent maps the end of a generation run to an alert.
func alertForEvent(e events.Event) *AlertPayload {
	switch e.Name {
	case "director.completed":
		return &AlertPayload{Event: AlertRunCompleted, Severity: SeverityInfo, Message: "generation completed", Details: e.Fields}
	case "system.error":
		return &AlertPayload{Event: AlertSystemError, Severity: SeverityCritical, Message: e.Message, Details: e.Fields}
	}
	return nil
}

// Reachable reports whether a backend is reachable.
type Reachable func() bool

// StartAlertMonitor checks the configured backends every checkInterval,
// keeping /ready current, and alerts on outages and on the end of the run
// until stop is closed. A nil check means the backend is not used.
func StartAlertMonitor(checkInterval time.Duration, stop <-chan struct{}, mqtt, postgres Reachable) {
	sub := events.Subscribe()
	go func() {
		defer events.Unsubscribe(sub)
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case e, ok := <-sub:
				if !ok {
					return
				}
				if p := alertForEvent(e); p != nil {
					sendPayload(*p)
				}
			case <-ticker.C:
				if mqtt != nil {
					connected := mqtt()
					readiness.mu.Lock()
					readiness.mqttConnected = connected
					readiness.mu.Unlock()
					CheckAndAlertMQTT(connected)
				}
				if postgres != nil {
					connected := postgres()
					readiness.mu.Lock()
					readiness.postgresConnected = connected
					readiness.mu.Unlock()
					CheckAndAlertPostgres(connected)
				}
			}
		}
	}()
}
