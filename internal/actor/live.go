package actor

import (
	"fmt"

	"github.com/AaronLay10/IntPhysDirector/internal/geom"
)

// Actor is a spawned actor driven by a scene.
type Actor interface {
	Name() string
	Kind() Kind
	// IsValid turns false when the actor detects an illegal overlap.
	IsValid() bool
	// Handles returns the runtime bodies composing the actor.
	Handles() []Handle
	Status() map[string]interface{}
	SetHidden(hidden bool)
	Destroy()
}

// Movable actors are updated at every scene tick. Move fails when the
// runtime rejects the new transform.
type Movable interface {
	Actor
	Move() error
}

// Overlappable actors take part in the post-spawn overlap sweep.
type Overlappable interface {
	Actor
	Overlapping(other Actor) bool
}

// Overlapping reports whether one body of a overlaps one body of b.
func Overlapping(a, b Actor) bool {
	for _, ha := range a.Handles() {
		for _, hb := range b.Handles() {
			if ha == hb {
				continue
			}
			if ha.Overlaps(hb) {
				return true
			}
		}
	}
	return false
}

// base is the part shared by single-body actors.
type base struct {
	name   string
	kind   Kind
	handle Handle
	valid  bool
}

func newBase(name string, kind Kind, h Handle) base {
	return base{name: name, kind: kind, handle: h, valid: true}
}

func (b *base) Name() string  { return b.name }
func (b *base) Kind() Kind    { return b.kind }
func (b *base) IsValid() bool { return b.valid }

func (b *base) Handles() []Handle {
	if b.handle == nil {
		return nil
	}
	return []Handle{b.handle}
}

func (b *base) SetHidden(hidden bool) {
	if b.handle != nil {
		b.handle.SetHidden(hidden)
	}
}

// Hidden reports whether the actor is hidden from captures.
func (b *base) Hidden() bool {
	return b.handle != nil && b.handle.Hidden()
}

func (b *base) Destroy() {
	if b.handle != nil {
		b.handle.Destroy()
		b.handle = nil
	}
}

func (b *base) invalidateOn(match func(other Handle) bool) {
	b.handle.OnOverlap(func(other Handle) {
		if match(other) {
			b.valid = false
		}
	})
}

func (b *base) status() map[string]interface{} {
	s := map[string]interface{}{"name": b.name}
	if b.handle != nil {
		s["location"] = b.handle.Location().AsDict()
		s["rotation"] = b.handle.Rotation().AsDict()
	}
	return s
}

// Camera is owned by the director and set up again for every scene.
type Camera struct {
	base
	params CameraParams
}

// Setup moves the camera to p and clears any overlap recorded in a
// previous scene.
func (c *Camera) Setup(p CameraParams) error {
	c.params = p
	c.valid = true
	if err := c.handle.SetTransform(p.Location, p.Rotation); err != nil {
		return fmt.Errorf("setup camera: %w", err)
	}
	return nil
}

func (c *Camera) Overlapping(other Actor) bool { return Overlapping(c, other) }

// Params returns the current camera parameters.
func (c *Camera) Params() CameraParams {
	return c.params
}

func (c *Camera) Status() map[string]interface{} {
	s := c.status()
	s["field_of_view"] = c.params.FieldOfView
	s["aspect_ratio"] = c.params.AspectRatio
	s["projection_mode"] = c.params.ProjectionMode
	return s
}

// Static is a floor or a light: spawned once, never moved.
type Static struct {
	base
	extra map[string]interface{}
}

func (s *Static) Overlapping(other Actor) bool { return Overlapping(s, other) }

func (s *Static) Status() map[string]interface{} {
	st := s.status()
	for k, v := range s.extra {
		st[k] = v
	}
	return st
}

// Object is a physics-driven mesh, or a kinematic one when its params carry
// a velocity.
type Object struct {
	base
	params ObjectParams
}

func (o *Object) Overlapping(other Actor) bool { return Overlapping(o, other) }

// Params returns the object parameters as given at spawn.
func (o *Object) Params() ObjectParams {
	return o.params
}

// Location returns the current location of the object, or the spawn
// location once destroyed.
func (o *Object) Location() geom.Vector {
	if o.handle == nil {
		return o.params.Location
	}
	return o.handle.Location()
}

// Rotation returns the current rotation of the object.
func (o *Object) Rotation() geom.Rotator {
	if o.handle == nil {
		return o.params.Rotation
	}
	return o.handle.Rotation()
}

// ApplyInitialForce pushes the object once. The force is scaled by the mass
// so that every mesh gets the same acceleration.
func (o *Object) ApplyInitialForce() {
	if o.handle == nil || o.params.IsKinematic() || o.params.InitialForce.IsZero() {
		return
	}
	o.handle.ApplyForce(o.params.InitialForce.Scale(o.handle.Mass()))
}

// Move applies the persistent force, or translates a kinematic object.
func (o *Object) Move() error {
	if o.handle == nil {
		return nil
	}
	if o.params.IsKinematic() {
		loc := o.handle.Location().Add(o.params.Velocity)
		if err := o.handle.SetTransform(loc, o.handle.Rotation()); err != nil {
			return fmt.Errorf("move %s: %w", o.name, err)
		}
		return nil
	}
	if !o.params.Force.IsZero() {
		o.handle.ApplyForce(o.params.Force)
	}
	return nil
}

// SetLocation teleports the object, keeping its rotation.
func (o *Object) SetLocation(loc geom.Vector) error {
	if o.handle == nil {
		return fmt.Errorf("object %s is not spawned", o.name)
	}
	return o.handle.SetTransform(loc, o.handle.Rotation())
}

func (o *Object) Status() map[string]interface{} {
	s := o.status()
	s["material"] = o.params.Material
	s["shape"] = string(o.params.Mesh)
	s["scale"] = o.params.Scale.AsDict()
	s["friction"] = o.params.Friction
	s["restitution"] = o.params.Restitution
	s["initial_force"] = o.params.InitialForce.AsDict()
	if o.handle != nil {
		s["mass"] = o.handle.Mass()
		s["velocity"] = o.handle.Velocity().AsDict()
	}
	return s
}

// Walls is the composite of the front, left and right background walls.
type Walls struct {
	name     string
	params   WallsParams
	segments []Handle
}

func (w *Walls) Name() string      { return w.name }
func (w *Walls) Kind() Kind        { return KindWalls }
func (w *Walls) IsValid() bool     { return true }
func (w *Walls) Handles() []Handle { return w.segments }

func (w *Walls) SetHidden(hidden bool) {
	for _, s := range w.segments {
		s.SetHidden(hidden)
	}
}

func (w *Walls) Destroy() {
	for _, s := range w.segments {
		s.Destroy()
	}
	w.segments = nil
}

func (w *Walls) Overlapping(other Actor) bool {
	return Overlapping(w, other)
}

func (w *Walls) Status() map[string]interface{} {
	return map[string]interface{}{
		"material": w.params.Material,
		"depth":    w.params.Depth,
		"length":   w.params.Length,
		"height":   w.params.Height,
	}
}

// wallSegments returns the front, left and right segments of the walls. The
// scene is seen from the origin looking toward +X; the front wall stands at
// Depth and the side walls run from the camera plane to the front wall.
func wallSegments(p WallsParams) map[string]WallParams {
	thickness := 0.1
	z := meshHalfSize * p.Height
	return map[string]WallParams{
		"front": {
			Transform: Transform{
				Location: geom.Vec(p.Depth, 0, z),
				Rotation: geom.Rot(0, 0, 90),
				Scale:    geom.Vec(p.Length/meshSize, thickness, p.Height),
			},
			Material: p.Material,
		},
		"left": {
			Transform: Transform{
				Location: geom.Vec(p.Depth/2, -p.Length/2, z),
				Scale:    geom.Vec(p.Depth/meshSize, thickness, p.Height),
			},
			Material: p.Material,
		},
		"right": {
			Transform: Transform{
				Location: geom.Vec(p.Depth/2, p.Length/2, z),
				Scale:    geom.Vec(p.Depth/meshSize, thickness, p.Height),
			},
			Material: p.Material,
		},
	}
}

// wallSides fixes the spawn order of the segments.
var wallSides = []string{"front", "left", "right"}

const (
	meshSize     = 100
	meshHalfSize = 50
)
