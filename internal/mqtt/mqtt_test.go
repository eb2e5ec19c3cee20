package mqtt

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/IntPhysDirector/internal/director"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
)

type published struct {
	topic    string
	payload  []byte
	retained bool
}

// mockTransport records publications and subscriptions.
type mockTransport struct {
	mu            sync.Mutex
	messages      []published
	subscriptions map[string]paho.MessageHandler
	err           error
}

func newMockTransport() *mockTransport {
	return &mockTransport{subscriptions: make(map[string]paho.MessageHandler)}
}

func (m *mockTransport) Publish(topic string, payload []byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, published{topic: topic, payload: payload, retained: retained})
	return m.err
}

func (m *mockTransport) Subscribe(topic string, handler paho.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[topic] = handler
	return nil
}

func (m *mockTransport) on(topic string) []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []published
	for _, p := range m.messages {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockTransport) simulateMessage(topic string, payload []byte) {
	m.mu.Lock()
	handler, ok := m.subscriptions[topic]
	m.mu.Unlock()
	if ok {
		handler(nil, &mockMessage{topic: topic, payload: payload})
	}
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

type fixedProgress struct {
	p director.Progress
}

func (f fixedProgress) Progress() director.Progress { return f.p }

func TestBrokerURL(t *testing.T) {
	t.Setenv("MQTT_URL", "")
	if got := BrokerURL(""); got != defaultBroker {
		t.Errorf("default: %s", got)
	}
	t.Setenv("MQTT_URL", "tcp://broker:1883")
	if got := BrokerURL(""); got != "tcp://broker:1883" {
		t.Errorf("env: %s", got)
	}
	if got := BrokerURL("tcp://flag:1883"); got != "tcp://flag:1883" {
		t.Errorf("override: %s", got)
	}
}

func TestTopics(t *testing.T) {
	if EventsTopic("intphys") != "intphys/events" || ControlTopic("intphys") != "intphys/control" ||
		StatusTopic("intphys") != "intphys/status" || ProgressTopic("intphys") != "intphys" {
		t.Error("unexpected topic layout")
	}
}

func TestPublisherForwardsEventsAndProgress(t *testing.T) {
	events.Clear()
	mt := newMockTransport()
	src := fixedProgress{director.Progress{Index: 3, Total: 10, Scene: "O1"}}
	p := NewPublisher(mt, "intphys", src, time.Hour)
	p.Start()

	if _, err := events.Emit("info", "scene.started", "", map[string]interface{}{"index": 4}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(mt.on("intphys/events")) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	p.Stop()

	evs := mt.on("intphys/events")
	if len(evs) == 0 {
		t.Fatal("event not forwarded")
	}
	var e events.Event
	if err := json.Unmarshal(evs[0].payload, &e); err != nil || e.Name != "scene.started" {
		t.Errorf("forwarded event: %s (%v)", evs[0].payload, err)
	}

	progress := mt.on("intphys")
	if len(progress) != 1 || !progress[0].retained {
		t.Fatalf("expected one retained progress on stop, got %+v", progress)
	}
	var got director.Progress
	if err := json.Unmarshal(progress[0].payload, &got); err != nil || got.Index != 3 || got.Scene != "O1" {
		t.Errorf("progress: %s", progress[0].payload)
	}

	status := mt.on("intphys/status")
	if len(status) != 2 || string(status[0].payload) != "online" || string(status[1].payload) != "offline" {
		t.Errorf("status: %+v", status)
	}
}

func TestPublisherSurvivesBrokerErrors(t *testing.T) {
	mt := newMockTransport()
	mt.err = errors.New("not connected")
	p := NewPublisher(mt, "intphys", fixedProgress{}, time.Hour)
	p.Start()
	p.Stop()
	if !p.failed {
		t.Error("failure not recorded")
	}
}

func TestParseControl(t *testing.T) {
	tests := []struct {
		payload string
		want    ControlCommand
	}{
		{`{"command": "STOP", "reason": "maintenance"}`, ControlCommand{Command: "stop", Reason: "maintenance"}},
		{"stop\n", ControlCommand{Command: "stop"}},
		{`{"reason": "x"}`, ControlCommand{Command: `{"reason": "x"}`}},
	}
	for _, tt := range tests {
		if got := ParseControl([]byte(tt.payload)); got != tt.want {
			t.Errorf("%q: got %+v, want %+v", tt.payload, got, tt.want)
		}
	}
}

func TestControlDispatch(t *testing.T) {
	events.Clear()
	mt := newMockTransport()
	c := NewControl()
	var got []ControlCommand
	c.Handle("stop", func(cmd ControlCommand) { got = append(got, cmd) })
	if err := c.Listen(mt, "intphys"); err != nil {
		t.Fatal(err)
	}

	mt.simulateMessage("intphys/control", []byte(`{"command": "stop"}`))
	mt.simulateMessage("intphys/control", []byte("reboot"))

	if len(got) != 1 {
		t.Fatalf("expected 1 stop, got %d", len(got))
	}
	var received, rejected int
	for _, e := range events.Snapshot() {
		switch e.Name {
		case "control.received":
			received++
		case "control.rejected":
			rejected++
		}
	}
	if received != 1 || rejected != 1 {
		t.Errorf("received=%d rejected=%d", received, rejected)
	}
}

func TestClientStartFailsWithoutBroker(t *testing.T) {
	if os.Getenv("INTPHYS_MQTT_TESTS") == "" {
		t.Skip("set INTPHYS_MQTT_TESTS to run against a missing broker")
	}
	c := NewClient("tcp://127.0.0.1:1", "intphys-test", "")
	if c.Start() {
		t.Fatal("connected to a closed port")
	}
}
