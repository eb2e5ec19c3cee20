package mqtt

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/IntPhysDirector/internal/director"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
)

// Transport is the part of the client used by the publisher. *Client
// implements it.
type Transport interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, handler paho.MessageHandler) error
}

// ProgressSource is the director as seen by the publisher.
type ProgressSource interface {
	Progress() director.Progress
}

// Topics derived from the base topic.
func ProgressTopic(base string) string { return base }
func EventsTopic(base string) string   { return base + "/events" }
func StatusTopic(base string) string   { return base + "/status" }
func ControlTopic(base string) string  { return base + "/control" }

// Publisher forwards the emitted events and a periodic progress snapshot to
// the broker. Progress is retained so that late subscribers get the last
// state.
type Publisher struct {
	transport Transport
	base      string
	source    ProgressSource
	interval  time.Duration

	mu     sync.Mutex
	failed bool
	sub    events.Subscriber
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPublisher creates a publisher on the base topic.
func NewPublisher(t Transport, base string, source ProgressSource, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Publisher{
		transport: t,
		base:      base,
		source:    source,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start publishes "online" then forwards events and progress until Stop.
func (p *Publisher) Start() {
	p.publish(StatusTopic(p.base), []byte("online"), true)
	p.sub = events.Subscribe()

	p.wg.Add(2)
	go p.forwardEvents(p.sub)
	go p.reportProgress()
}

// Stop publishes the final progress and "offline", then waits for the
// forwarding goroutines.
func (p *Publisher) Stop() {
	close(p.stopCh)
	if p.sub != nil {
		events.Unsubscribe(p.sub)
	}
	p.wg.Wait()
	p.PublishProgress()
	p.publish(StatusTopic(p.base), []byte("offline"), true)
}

func (p *Publisher) forwardEvents(sub events.Subscriber) {
	defer p.wg.Done()
	for e := range sub {
		b, err := json.Marshal(e)
		if err != nil {
			continue
		}
		p.publish(EventsTopic(p.base), b, false)
	}
}

func (p *Publisher) reportProgress() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.PublishProgress()
		case <-p.stopCh:
			return
		}
	}
}

// PublishProgress publishes one progress snapshot.
func (p *Publisher) PublishProgress() {
	if p.source == nil {
		return
	}
	b, err := json.Marshal(p.source.Progress())
	if err != nil {
		return
	}
	p.publish(ProgressTopic(p.base), b, true)
}

// publish logs the first failure only, the broker being optional.
func (p *Publisher) publish(topic string, payload []byte, retained bool) {
	err := p.transport.Publish(topic, payload, retained)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		if !p.failed {
			log.Printf("mqtt: publish to %s failed: %v", topic, err)
		}
		p.failed = true
		return
	}
	p.failed = false
}
