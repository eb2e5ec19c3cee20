package mqtt

import (
	"encoding/json"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/IntPhysDirector/internal/events"
)

// ControlCommand is a message received on the control topic, either JSON
// {"command": "stop"} or the bare command.
type ControlCommand struct {
	Command string `json:"command"`
	Reason  string `json:"reason,omitempty"`
}

// ParseControl decodes a control payload.
func ParseControl(payload []byte) ControlCommand {
	var cmd ControlCommand
	if err := json.Unmarshal(payload, &cmd); err != nil || cmd.Command == "" {
		cmd = ControlCommand{Command: strings.TrimSpace(string(payload))}
	}
	cmd.Command = strings.ToLower(cmd.Command)
	return cmd
}

// Control runs the handlers registered per command when a message arrives
// on the control topic.
type Control struct {
	handlers map[string]func(ControlCommand)
}

func NewControl() *Control {
	return &Control{handlers: make(map[string]func(ControlCommand))}
}

// Handle registers fn for command.
func (c *Control) Handle(command string, fn func(ControlCommand)) {
	c.handlers[strings.ToLower(command)] = fn
}

// Listen subscribes to the control topic of base.
func (c *Control) Listen(t Transport, base string) error {
	return t.Subscribe(ControlTopic(base), c.handler())
}

func (c *Control) handler() paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		c.dispatch(msg.Topic(), msg.Payload())
	}
}

func (c *Control) dispatch(topic string, payload []byte) {
	cmd := ParseControl(payload)
	fn, ok := c.handlers[cmd.Command]
	if !ok {
		events.Emit("warn", "control.rejected", "unknown command", map[string]interface{}{
			"topic":   topic,
			"command": cmd.Command,
		})
		return
	}
	events.Emit("info", "control.received", cmd.Reason, map[string]interface{}{
		"topic":   topic,
		"command": cmd.Command,
	})
	fn(cmd)
}
