package actor

import (
	"errors"
	"fmt"

	"github.com/AaronLay10/IntPhysDirector/internal/geom"
)

type spawnFunc func(rt Runtime, name string, p Params) (Actor, error)

// spawners maps every actor kind to its constructor. The table is checked
// against AllKinds at init so that a missing kind fails at startup.
var spawners = map[Kind]spawnFunc{
	KindCamera:       spawnCamera,
	KindFloor:        spawnStatic,
	KindLight:        spawnStatic,
	KindObject:       spawnObject,
	KindOccluder:     spawnOccluder,
	KindWalls:        spawnWalls,
	KindAxisCylinder: spawnAxisCylinder,
}

func init() {
	for _, k := range AllKinds {
		if _, ok := spawners[k]; !ok {
			panic(fmt.Sprintf("actor: no spawner registered for kind %q", k))
		}
	}
}

var errParamsMismatch = errors.New("params do not match the actor kind")

// Spawn creates the live actor described by p inside rt.
func Spawn(rt Runtime, name string, p Params) (Actor, error) {
	if p == nil {
		return nil, &SpawnError{Name: name, Err: errors.New("nil params")}
	}
	fn, ok := spawners[p.Kind()]
	if !ok {
		return nil, &SpawnError{Name: name, Kind: p.Kind(), Err: errors.New("no spawner for kind")}
	}
	return fn(rt, name, p)
}

// SpawnCamera creates the camera owned by the director.
func SpawnCamera(rt Runtime, p CameraParams) (*Camera, error) {
	a, err := spawnCamera(rt, string(KindCamera), p)
	if err != nil {
		return nil, err
	}
	return a.(*Camera), nil
}

func spawnHandle(rt Runtime, name string, p Params) (Handle, error) {
	h, err := rt.Spawn(name, p)
	if err != nil {
		var se *SpawnError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &SpawnError{Name: name, Kind: p.Kind(), Err: err}
	}
	return h, nil
}

func spawnCamera(rt Runtime, name string, p Params) (Actor, error) {
	cp, ok := p.(CameraParams)
	if !ok {
		return nil, &SpawnError{Name: name, Kind: KindCamera, Err: errParamsMismatch}
	}
	h, err := spawnHandle(rt, name, cp)
	if err != nil {
		return nil, err
	}
	c := &Camera{base: newBase(name, KindCamera, h), params: cp}
	// nothing may ever enter the camera
	c.invalidateOn(func(Handle) bool { return true })
	return c, nil
}

func spawnStatic(rt Runtime, name string, p Params) (Actor, error) {
	extra := map[string]interface{}{}
	switch sp := p.(type) {
	case FloorParams:
		extra["material"] = sp.Material
		extra["scale"] = sp.Scale.AsDict()
	case LightParams:
		extra["type"] = sp.Type
		if sp.Color != nil {
			extra["color"] = map[string]interface{}{
				"r": sp.Color.R, "g": sp.Color.G, "b": sp.Color.B, "a": sp.Color.A,
			}
		}
		extra["var_intensity"] = sp.VarIntensity
	default:
		return nil, &SpawnError{Name: name, Kind: p.Kind(), Err: errParamsMismatch}
	}
	h, err := spawnHandle(rt, name, p)
	if err != nil {
		return nil, err
	}
	return &Static{base: newBase(name, p.Kind(), h), extra: extra}, nil
}

func spawnObject(rt Runtime, name string, p Params) (Actor, error) {
	op, ok := p.(ObjectParams)
	if !ok {
		return nil, &SpawnError{Name: name, Kind: KindObject, Err: errParamsMismatch}
	}
	if op.Scale.IsZero() {
		op.Scale = geom.Uniform(1)
	}
	// the mesh pivot is at its center, lift it to stand on the floor
	spawned := op
	spawned.Location.Z += meshHalfSize * op.Scale.Z
	h, err := spawnHandle(rt, name, spawned)
	if err != nil {
		return nil, err
	}
	return &Object{base: newBase(name, KindObject, h), params: op}, nil
}

func spawnOccluder(rt Runtime, name string, p Params) (Actor, error) {
	op, ok := p.(OccluderParams)
	if !ok {
		return nil, &SpawnError{Name: name, Kind: KindOccluder, Err: errParamsMismatch}
	}
	spawned := op
	spawned.Rotation = initialOccluderRotation(op)
	h, err := spawnHandle(rt, name, spawned)
	if err != nil {
		return nil, err
	}
	return newOccluder(name, h, op), nil
}

func spawnWalls(rt Runtime, name string, p Params) (Actor, error) {
	wp, ok := p.(WallsParams)
	if !ok {
		return nil, &SpawnError{Name: name, Kind: KindWalls, Err: errParamsMismatch}
	}
	w := &Walls{name: name, params: wp}
	segments := wallSegments(wp)
	for _, side := range wallSides {
		h, err := spawnHandle(rt, name+"_"+side, segments[side])
		if err != nil {
			w.Destroy()
			return nil, err
		}
		w.segments = append(w.segments, h)
	}
	return w, nil
}

func spawnAxisCylinder(rt Runtime, name string, p Params) (Actor, error) {
	ap, ok := p.(AxisCylinderParams)
	if !ok {
		return nil, &SpawnError{Name: name, Kind: KindAxisCylinder, Err: errParamsMismatch}
	}
	cylinderParams, axisParams := axisCylinderParts(ap)
	cylinder, err := spawnHandle(rt, name+"_cylinder", cylinderParams)
	if err != nil {
		return nil, err
	}
	axis, err := spawnHandle(rt, name+"_axis", axisParams)
	if err != nil {
		cylinder.Destroy()
		return nil, err
	}
	return &AxisCylinder{name: name, params: ap, cylinder: cylinder, axis: axis}, nil
}
