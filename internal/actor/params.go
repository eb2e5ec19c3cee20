// Package actor defines the parameters of every actor kind, the contract of the
// Actor Runtime that spawns them and the live wrappers that drive spawned
// actors tick after tick.
package actor

import (
	"fmt"

	"github.com/AaronLay10/IntPhysDirector/internal/geom"
	"github.com/zyedidia/generic/mapset"
)

// Kind identifies an actor type.
type Kind string

const (
	KindCamera       Kind = "camera"
	KindFloor        Kind = "floor"
	KindLight        Kind = "light"
	KindObject       Kind = "object"
	KindOccluder     Kind = "occluder"
	KindWalls        Kind = "walls"
	KindWall         Kind = "wall"
	KindAxisCylinder Kind = "axiscylinder"
)

// AllKinds lists the kinds a scene can hold.
var AllKinds = []Kind{
	KindCamera, KindFloor, KindLight, KindObject,
	KindOccluder, KindWalls, KindAxisCylinder,
}

var movingKinds = newKindSet(KindObject, KindOccluder, KindAxisCylinder)

// IsMoving reports whether actors of this kind are driven every tick.
func (k Kind) IsMoving() bool {
	return movingKinds.Has(k)
}

func newKindSet(kinds ...Kind) mapset.Set[Kind] {
	s := mapset.New[Kind]()
	for _, k := range kinds {
		s.Put(k)
	}
	return s
}

// Mesh is the static mesh of an object.
type Mesh string

const (
	MeshSphere   Mesh = "Sphere"
	MeshCube     Mesh = "Cube"
	MeshCone     Mesh = "Cone"
	MeshCylinder Mesh = "Cylinder"
)

// ObjectMeshes are the meshes drawn for scene objects. Cylinders look like a
// cube or a sphere from some angles and are kept for axis cylinders only.
var ObjectMeshes = []Mesh{MeshSphere, MeshCube, MeshCone}

// massFactor normalizes the mass of each mesh to the mass of a unit sphere, so
// that a given force produces the same trajectory whatever the shape.
var massFactor = map[Mesh]float64{
	MeshSphere:   1.0,
	MeshCube:     0.6155297517867,
	MeshCone:     1.6962973279499,
	MeshCylinder: 1.0,
}

// MassFactor returns the mass normalization factor of the mesh.
func (m Mesh) MassFactor() float64 {
	if f, ok := massFactor[m]; ok {
		return f
	}
	return 1
}

// Transform places an actor in the world.
type Transform struct {
	Location geom.Vector  `json:"location"`
	Rotation geom.Rotator `json:"rotation"`
	Scale    geom.Vector  `json:"scale"`
}

// Physics holds the rigid body properties of a mesh.
type Physics struct {
	Mass        float64 `json:"mass"`
	Friction    float64 `json:"friction"`
	Restitution float64 `json:"restitution"`
}

// DefaultPhysics is used when a mesh does not override its properties.
func DefaultPhysics() Physics {
	return Physics{Mass: 1, Friction: 0.5, Restitution: 0.5}
}

// Params is the immutable configuration of one actor.
type Params interface {
	Kind() Kind
}

// Color is a linear RGBA color.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

type CameraParams struct {
	Transform
	FieldOfView    float64 `json:"field_of_view"`
	AspectRatio    float64 `json:"aspect_ratio"`
	ProjectionMode string  `json:"projection_mode"`
}

func (CameraParams) Kind() Kind { return KindCamera }

// DefaultCameraParams returns a perspective camera at the origin.
func DefaultCameraParams() CameraParams {
	return CameraParams{
		Transform:      Transform{Scale: geom.Uniform(1)},
		FieldOfView:    90,
		AspectRatio:    1,
		ProjectionMode: "perspective",
	}
}

type FloorParams struct {
	Transform
	Physics
	Material string `json:"material"`
}

func (FloorParams) Kind() Kind { return KindFloor }

type LightParams struct {
	Transform
	Type         string  `json:"type"`
	Color        *Color  `json:"color,omitempty"`
	VarIntensity float64 `json:"var_intensity"`
}

func (LightParams) Kind() Kind { return KindLight }

// WallsParams describes the three background walls (front, left, right)
// enclosing the scene. Height is a scale factor of the 100cm unit mesh.
type WallsParams struct {
	Material string  `json:"material"`
	Length   float64 `json:"length"`
	Depth    float64 `json:"depth"`
	Height   float64 `json:"height"`
}

func (WallsParams) Kind() Kind { return KindWalls }

// WallParams is a single wall segment, spawned by the walls actor.
type WallParams struct {
	Transform
	Material string `json:"material"`
}

func (WallParams) Kind() Kind { return KindWall }

type ObjectParams struct {
	Transform
	Physics
	Mesh     Mesh   `json:"mesh"`
	Material string `json:"material"`
	// Force is applied at every tick.
	Force geom.Vector `json:"force"`
	// InitialForce is applied once, right after spawn.
	InitialForce geom.Vector `json:"initial_force"`
	// Velocity makes the object kinematic: it is translated by Velocity at
	// every tick instead of being simulated.
	Velocity geom.Vector `json:"velocity"`
	// Fixed disables the physics simulation of the object.
	Fixed bool `json:"fixed,omitempty"`
}

func (ObjectParams) Kind() Kind { return KindObject }

// IsKinematic reports whether the object follows a scripted trajectory.
func (p ObjectParams) IsKinematic() bool {
	return p.Fixed || !p.Velocity.IsZero()
}

type OccluderParams struct {
	Transform
	Physics
	Material string `json:"material"`
	// Moves are the tick indices at which the occluder starts or reverses
	// its fall/rise movement.
	Moves []int `json:"moves"`
	// Speed is the rotation speed in degrees per tick.
	Speed float64 `json:"speed"`
	// StartUp spawns the occluder standing; otherwise it lies on the floor.
	StartUp bool `json:"start_up"`
}

func (OccluderParams) Kind() Kind { return KindOccluder }

type AxisCylinderParams struct {
	Transform
	Material string  `json:"material"`
	Long     bool    `json:"long"`
	Speed    float64 `json:"speed"`
}

func (AxisCylinderParams) Kind() Kind { return KindAxisCylinder }

// KindOf returns the kind encoded in an actor name such as "object_2".
func KindOf(name string) (Kind, error) {
	base := name
	for i, r := range name {
		if r == '_' {
			base = name[:i]
			break
		}
	}
	k := Kind(base)
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown actor kind in name %q", name)
}

// Name builds the conventional name of the n-th actor of a kind (1-based).
func Name(kind Kind, n int) string {
	return fmt.Sprintf("%s_%d", kind, n)
}
