package scenario

import (
	"github.com/AaronLay10/IntPhysDirector/internal/actor"
	"github.com/AaronLay10/IntPhysDirector/internal/placement"
)

// Named is an actor name with its parameters.
type Named struct {
	Name   string
	Params actor.Params
}

// Static holds the actors that do not depend on the scene policy.
type Static struct {
	Camera actor.CameraParams
	Floor  actor.FloorParams
	Lights []actor.LightParams
}

// Moving holds the actors placed for one policy.
type Moving struct {
	Policy    Policy
	Walls     *actor.WallsParams
	Objects   []actor.ObjectParams
	Occluders []actor.OccluderParams
	// AxisCylinders are only spawned by the sandbox scene.
	AxisCylinders []actor.AxisCylinderParams
}

// Set is the full parameter set of a scene.
type Set struct {
	Static
	Moving
}

// StaticParams draws the camera, floor and lights of a scene.
func (b *Builder) StaticParams(train bool) Static {
	return Static{
		Camera: b.Camera(train),
		Floor:  b.Floor(),
		Lights: b.Lights(),
	}
}

// MovingParams draws a policy then the walls, objects and occluders. The
// placement zones are local to the call.
func (b *Builder) MovingParams(floorMaterial string) Moving {
	var zones []placement.Zone
	policy := b.ChoosePolicy()
	m := Moving{Policy: policy}
	m.Walls = b.Walls(policy, &zones)
	m.Objects = b.Objects(policy, &zones)
	m.Occluders = b.Occluders(b.randInt(0, b.cfg.MaxOccluders), floorMaterial, &zones)
	return m
}

// Build draws a complete train parameter set.
func (b *Builder) Build() Set {
	s := b.StaticParams(true)
	return Set{Static: s, Moving: b.MovingParams(s.Floor.Material)}
}

// Actors lists the actors of the static part, camera excluded: the camera
// belongs to the director.
func (s Static) Actors() []Named {
	out := []Named{{Name: string(actor.KindFloor), Params: s.Floor}}
	for i, l := range s.Lights {
		out = append(out, Named{Name: actor.Name(actor.KindLight, i+1), Params: l})
	}
	return out
}

// Actors lists the walls, objects, occluders then axis cylinders with their
// names.
func (m Moving) Actors() []Named {
	var out []Named
	if m.Walls != nil {
		out = append(out, Named{Name: string(actor.KindWalls), Params: *m.Walls})
	}
	for i, o := range m.Objects {
		out = append(out, Named{Name: actor.Name(actor.KindObject, i+1), Params: o})
	}
	for i, o := range m.Occluders {
		out = append(out, Named{Name: actor.Name(actor.KindOccluder, i+1), Params: o})
	}
	for i, a := range m.AxisCylinders {
		out = append(out, Named{Name: actor.Name(actor.KindAxisCylinder, i+1), Params: a})
	}
	return out
}

// Actors lists every actor of the set, camera excluded.
func (s Set) Actors() []Named {
	return append(s.Static.Actors(), s.Moving.Actors()...)
}

// Map returns the set as a name to params mapping, camera included.
func (s Set) Map() map[string]actor.Params {
	out := map[string]actor.Params{string(actor.KindCamera): s.Camera}
	for _, n := range s.Actors() {
		out[n.Name] = n.Params
	}
	return out
}
