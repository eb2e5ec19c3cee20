package actor

import (
	"fmt"

	"github.com/AaronLay10/IntPhysDirector/internal/geom"
	"github.com/zyedidia/generic/mapset"
)

// Occluder is a vertical plane that falls down and rises up around its base,
// following a schedule of moves. Roll 0 is standing, roll 90 is lying.
type Occluder struct {
	base
	params   OccluderParams
	moves    mapset.Set[int]
	rotation geom.Rotator
	moving   bool
	up       bool
	count    int
}

func newOccluder(name string, h Handle, p OccluderParams) *Occluder {
	o := &Occluder{
		base:   newBase(name, KindOccluder, h),
		params: p,
		moves:  mapset.New[int](),
	}
	for _, m := range p.Moves {
		o.moves.Put(m)
	}
	o.reset()
	// two occluders must never cross each other
	o.invalidateOn(func(other Handle) bool {
		return other.Kind() == KindOccluder
	})
	return o
}

func (o *Occluder) reset() {
	o.rotation = initialOccluderRotation(o.params)
	o.up = o.params.StartUp
	o.moving = false
	o.count = -1
}

func initialOccluderRotation(p OccluderParams) geom.Rotator {
	rot := p.Rotation
	if !p.StartUp {
		rot.Roll = 90
	}
	return rot
}

func (o *Occluder) Overlapping(other Actor) bool { return Overlapping(o, other) }

// Params returns the occluder parameters.
func (o *Occluder) Params() OccluderParams {
	return o.params
}

// Roll returns the current fall angle in degrees.
func (o *Occluder) Roll() float64 {
	return o.rotation.Roll
}

// IsMoving reports whether the occluder is falling or rising.
func (o *Occluder) IsMoving() bool {
	return o.moving
}

// Move advances the occluder by one tick. A scheduled move starts a movement
// when the occluder is still, and reverses it when it is already moving.
func (o *Occluder) Move() error {
	o.count++

	step := o.params.Speed
	if !o.up {
		step = -step
	}

	switch {
	case o.moves.Has(o.count) && !o.moving:
		o.rotation.Roll += step
		o.moving = true
	case o.moves.Has(o.count):
		o.rotation.Roll += step
		o.up = !o.up
	case o.moving:
		o.rotation.Roll += step
	default:
		return nil
	}

	if o.rotation.Roll >= 90 {
		o.rotation.Roll = 90
		o.up = false
		o.moving = false
	} else if o.rotation.Roll <= 0 {
		o.rotation.Roll = 0
		o.up = true
		o.moving = false
	}

	if o.handle == nil {
		return nil
	}
	if err := o.handle.SetTransform(o.handle.Location(), o.rotation); err != nil {
		return fmt.Errorf("move %s: %w", o.name, err)
	}
	return nil
}

func (o *Occluder) Status() map[string]interface{} {
	s := o.status()
	s["material"] = o.params.Material
	s["scale"] = o.params.Scale.AsDict()
	s["speed"] = o.params.Speed
	moves := make([]int, len(o.params.Moves))
	copy(moves, o.params.Moves)
	s["moves"] = moves
	return s
}

// AxisCylinder is a cylinder on a vertical shaft, translated laterally by
// Speed at every tick.
type AxisCylinder struct {
	name     string
	params   AxisCylinderParams
	cylinder Handle
	axis     Handle
	count    int
}

func (a *AxisCylinder) Name() string  { return a.name }
func (a *AxisCylinder) Kind() Kind    { return KindAxisCylinder }
func (a *AxisCylinder) IsValid() bool { return true }

func (a *AxisCylinder) Handles() []Handle {
	if a.cylinder == nil {
		return nil
	}
	return []Handle{a.cylinder, a.axis}
}

func (a *AxisCylinder) SetHidden(hidden bool) {
	for _, h := range a.Handles() {
		h.SetHidden(hidden)
	}
}

func (a *AxisCylinder) Destroy() {
	for _, h := range a.Handles() {
		h.Destroy()
	}
	a.cylinder, a.axis = nil, nil
}

func (a *AxisCylinder) Overlapping(other Actor) bool {
	return Overlapping(a, other)
}

func (a *AxisCylinder) Move() error {
	a.count++
	offset := geom.Vec(0, float64(a.count)*a.params.Speed, 0)
	for _, h := range a.Handles() {
		base := h.Location()
		target := a.params.Location.Add(offset)
		if err := h.SetTransform(geom.Vec(target.X, target.Y, base.Z), h.Rotation()); err != nil {
			return fmt.Errorf("move %s: %w", a.name, err)
		}
	}
	return nil
}

func (a *AxisCylinder) Status() map[string]interface{} {
	s := map[string]interface{}{
		"name":  a.name,
		"long":  a.params.Long,
		"speed": a.params.Speed,
	}
	if a.cylinder != nil {
		s["location"] = a.cylinder.Location().AsDict()
		s["rotation"] = a.cylinder.Rotation().AsDict()
	}
	return s
}

// axisCylinderParts returns the cylinder and shaft of an axis cylinder.
func axisCylinderParts(p AxisCylinderParams) (cylinder, axis ObjectParams) {
	x, y := p.Location.X, p.Location.Y
	cylinder = ObjectParams{
		Transform: Transform{Location: geom.Vec(x, y, 200), Rotation: p.Rotation, Scale: geom.Uniform(1)},
		Physics:   DefaultPhysics(),
		Mesh:      MeshCylinder,
		Material:  p.Material,
		Fixed:     true,
	}
	axis = ObjectParams{
		Transform: Transform{Location: geom.Vec(x, y, 300), Rotation: p.Rotation, Scale: geom.Vec(0.25, 0.25, 1)},
		Physics:   DefaultPhysics(),
		Mesh:      MeshCylinder,
		Material:  p.Material,
		Fixed:     true,
	}
	if p.Long {
		cylinder.Scale = geom.Vec(1, 1, 2)
		axis.Location.Z = 100
		axis.Scale = geom.Vec(0.25, 0.25, 4)
	}
	return cylinder, axis
}
