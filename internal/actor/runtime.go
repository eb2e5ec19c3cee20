package actor

import (
	"fmt"

	"github.com/AaronLay10/IntPhysDirector/internal/geom"
)

// Runtime is the engine hosting the actors. It spawns one body per call.
type Runtime interface {
	Spawn(name string, p Params) (Handle, error)
}

// Handle is a spawned body inside a Runtime.
type Handle interface {
	Name() string
	Kind() Kind
	Location() geom.Vector
	Rotation() geom.Rotator
	Velocity() geom.Vector
	Mass() float64
	SetTransform(location geom.Vector, rotation geom.Rotator) error
	ApplyForce(force geom.Vector)
	SetHidden(hidden bool)
	Hidden() bool
	// Overlaps is the exact geometric overlap query of the runtime.
	Overlaps(other Handle) bool
	// OnOverlap registers a callback fired when another body starts
	// overlapping this one. The runtime calls it between two ticks.
	OnOverlap(fn func(other Handle))
	Destroy()
}

// SpawnError reports a body the runtime failed to create.
type SpawnError struct {
	Name string
	Kind Kind
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s (%s): %v", e.Name, e.Kind, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
