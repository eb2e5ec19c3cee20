// Package sim is a small deterministic physics backend implementing the actor
// runtime without a rendering engine. It integrates gravity and forces with a
// fixed step, bounces bodies on an infinite floor plane and reports exact
// box overlaps. Bodies do not collide with each other: overlaps are reported,
// never resolved.
package sim

import (
	"errors"
	"fmt"

	"github.com/AaronLay10/IntPhysDirector/internal/actor"
	"github.com/AaronLay10/IntPhysDirector/internal/geom"
)

// Config holds the integration constants.
type Config struct {
	// Gravity is the vertical acceleration in cm/s².
	Gravity float64 `yaml:"gravity" json:"gravity"`
	// StepSeconds is the duration of one tick.
	StepSeconds float64 `yaml:"step_seconds" json:"step_seconds"`
}

// DefaultConfig returns earth gravity stepped at 60Hz.
func DefaultConfig() Config {
	return Config{Gravity: -980, StepSeconds: 1.0 / 60}
}

const cameraHalfSize = 10

// World hosts the bodies of the current scene.
type World struct {
	cfg    Config
	bodies []*Body
	paused bool
	steps  int
}

// NewWorld creates an empty world.
func NewWorld(cfg Config) *World {
	if cfg.StepSeconds <= 0 {
		cfg.StepSeconds = DefaultConfig().StepSeconds
	}
	return &World{cfg: cfg}
}

// SetPaused freezes or resumes the simulation.
func (w *World) SetPaused(paused bool) {
	w.paused = paused
}

// Paused reports whether the world is frozen.
func (w *World) Paused() bool {
	return w.paused
}

// Steps returns the number of integrated (unpaused) steps.
func (w *World) Steps() int {
	return w.steps
}

// Bodies returns the number of live bodies.
func (w *World) Bodies() int {
	return len(w.bodies)
}

// Find returns the live body with the given name.
func (w *World) Find(name string) (*Body, bool) {
	for _, b := range w.bodies {
		if b.name == name {
			return b, true
		}
	}
	return nil, false
}

var errInvalidScale = errors.New("scale must be positive on every axis")

// Spawn creates a body from actor parameters.
func (w *World) Spawn(name string, p actor.Params) (actor.Handle, error) {
	if p == nil {
		return nil, &actor.SpawnError{Name: name, Err: errors.New("nil params")}
	}
	if _, dup := w.Find(name); dup {
		return nil, &actor.SpawnError{Name: name, Kind: p.Kind(), Err: fmt.Errorf("name already in use")}
	}

	b := &Body{world: w, name: name, kind: p.Kind(), mass: 1, solid: true}

	switch sp := p.(type) {
	case actor.CameraParams:
		b.setPose(sp.Location, sp.Rotation)
		b.half = geom.Uniform(cameraHalfSize)
	case actor.FloorParams:
		b.setPose(sp.Location, sp.Rotation)
		b.solid = false
	case actor.LightParams:
		b.setPose(sp.Location, sp.Rotation)
		b.solid = false
	case actor.WallParams:
		if !positive(sp.Scale) {
			return nil, &actor.SpawnError{Name: name, Kind: p.Kind(), Err: errInvalidScale}
		}
		b.setPose(sp.Location, sp.Rotation)
		b.half = sp.Scale.Scale(halfMesh)
	case actor.ObjectParams:
		if !positive(sp.Scale) {
			return nil, &actor.SpawnError{Name: name, Kind: p.Kind(), Err: errInvalidScale}
		}
		b.setPose(sp.Location, sp.Rotation)
		b.half = sp.Scale.Scale(halfMesh)
		b.dynamic = !sp.IsKinematic()
		b.mass = sp.Mass * sp.Mesh.MassFactor()
		if b.mass <= 0 {
			b.mass = sp.Mesh.MassFactor()
		}
		b.friction = sp.Friction
		b.restitution = sp.Restitution
	case actor.OccluderParams:
		if !positive(sp.Scale) {
			return nil, &actor.SpawnError{Name: name, Kind: p.Kind(), Err: errInvalidScale}
		}
		b.setPose(sp.Location, sp.Rotation)
		b.half = sp.Scale.Scale(halfMesh)
		b.swing = sp.Scale.Z * 2 * halfMesh
	default:
		return nil, &actor.SpawnError{Name: name, Kind: p.Kind(), Err: fmt.Errorf("unsupported params %T", p)}
	}

	w.bodies = append(w.bodies, b)
	return b, nil
}

func positive(v geom.Vector) bool {
	return v.X > 0 && v.Y > 0 && v.Z > 0
}

// Step advances the world by one tick then fires the overlap callbacks of
// the pairs of bodies that started overlapping. A paused world does not move.
func (w *World) Step() {
	if w.paused {
		return
	}
	w.steps++
	dt := w.cfg.StepSeconds
	for _, b := range w.bodies {
		if b.dynamic {
			b.integrate(dt, w.cfg.Gravity)
		}
	}
	w.detectOverlaps()
}

func (w *World) detectOverlaps() {
	type pair struct{ a, b *Body }
	var begun []pair
	for i, a := range w.bodies {
		if !a.solid {
			continue
		}
		for _, b := range w.bodies[i+1:] {
			if !b.solid {
				continue
			}
			now := overlap(a, b)
			was := a.touching.Has(b)
			switch {
			case now && !was:
				a.touching.Put(b)
				b.touching.Put(a)
				begun = append(begun, pair{a, b})
			case !now && was:
				a.touching.Remove(b)
				b.touching.Remove(a)
			}
		}
	}
	// callbacks run once the sweep is over, they may destroy bodies
	for _, p := range begun {
		if p.a.onOverlap != nil {
			p.a.onOverlap(p.b)
		}
		if p.b.onOverlap != nil {
			p.b.onOverlap(p.a)
		}
	}
}

func (w *World) remove(b *Body) {
	for i, other := range w.bodies {
		if other == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
	for _, other := range w.bodies {
		other.touching.Remove(b)
	}
}

// Clear destroys every body.
func (w *World) Clear() {
	for len(w.bodies) > 0 {
		w.bodies[0].Destroy()
	}
}
