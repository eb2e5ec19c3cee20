package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// director
	"director.started":    {},
	"director.paused":     {},
	"director.completed":  {},
	"director.restarting": {},

	// scene
	"scene.started":  {},
	"scene.spawned":  {},
	"scene.invalid":  {},
	"scene.stopped":  {},
	"scene.finished": {},
	"scene.magic":    {},

	// run
	"run.saved":       {},
	"run.save_failed": {},
	"run.discarded":   {},

	// placement
	"placement.exhausted": {},

	// dataset
	"dataset.shuffled":       {},
	"dataset.shuffle_failed": {},
	"dataset.duplicated":     {},

	// config
	"config.loaded": {},
	"config.error":  {},

	// control
	"control.received": {},
	"control.rejected": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

// Validate reports an error for event names outside the allow-list.
func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
