package sim

import (
	"errors"
	"math"

	"github.com/AaronLay10/IntPhysDirector/internal/actor"
	"github.com/AaronLay10/IntPhysDirector/internal/geom"
	"github.com/zyedidia/generic/mapset"
)

const halfMesh = 50

var errDestroyed = errors.New("body destroyed")

// Body is a box in the world. It implements actor.Handle.
type Body struct {
	world *World
	name  string
	kind  actor.Kind

	location geom.Vector
	rotation geom.Rotator
	// half extents of the box
	half geom.Vector
	// swing is the height of an occluder panel falling around its base
	swing float64

	velocity    geom.Vector
	force       geom.Vector
	mass        float64
	friction    float64
	restitution float64

	dynamic   bool
	solid     bool
	hidden    bool
	destroyed bool

	onOverlap func(other actor.Handle)
	touching  mapset.Set[*Body]
}

func (b *Body) setPose(loc geom.Vector, rot geom.Rotator) {
	b.location = loc
	b.rotation = rot
	b.touching = mapset.New[*Body]()
}

func (b *Body) Name() string           { return b.name }
func (b *Body) Kind() actor.Kind       { return b.kind }
func (b *Body) Location() geom.Vector  { return b.location }
func (b *Body) Rotation() geom.Rotator { return b.rotation }
func (b *Body) Velocity() geom.Vector  { return b.velocity }
func (b *Body) Mass() float64          { return b.mass }
func (b *Body) Hidden() bool           { return b.hidden }

// Destroyed reports whether the body left the world.
func (b *Body) Destroyed() bool { return b.destroyed }

func (b *Body) SetTransform(location geom.Vector, rotation geom.Rotator) error {
	if b.destroyed {
		return errDestroyed
	}
	b.location = location
	b.rotation = rotation
	return nil
}

// ApplyForce adds a force applied during the next step only. Kinematic
// bodies ignore forces.
func (b *Body) ApplyForce(force geom.Vector) {
	if b.destroyed || !b.dynamic {
		return
	}
	b.force = b.force.Add(force)
}

func (b *Body) SetHidden(hidden bool) {
	b.hidden = hidden
}

func (b *Body) OnOverlap(fn func(other actor.Handle)) {
	b.onOverlap = fn
}

func (b *Body) Overlaps(other actor.Handle) bool {
	o, ok := other.(*Body)
	if !ok || o == b || b.destroyed || o.destroyed || !b.solid || !o.solid {
		return false
	}
	return overlap(b, o)
}

func (b *Body) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.world.remove(b)
}

func (b *Body) integrate(dt, gravity float64) {
	acc := b.force.Scale(1 / b.mass).Add(geom.Vec(0, 0, gravity))
	b.force = geom.Vector{}
	b.velocity = b.velocity.Add(acc.Scale(dt))
	b.location = b.location.Add(b.velocity.Scale(dt))

	// the floor is the z=0 plane
	if bottom := b.location.Z - b.half.Z; bottom < 0 {
		b.location.Z = b.half.Z
		if b.velocity.Z < 0 {
			b.velocity.Z = -b.velocity.Z * b.restitution
		}
		damp := math.Max(0, 1-b.friction*dt)
		b.velocity.X *= damp
		b.velocity.Y *= damp
	}
}

// box is the oriented ground footprint of a body plus its vertical extent.
type box struct {
	center     geom.Point2D
	hx, hy     float64
	yaw        float64
	zMin, zMax float64
}

func (b *Body) box() box {
	if b.kind == actor.KindOccluder {
		return b.occluderBox()
	}
	return box{
		center: b.location.Ground(),
		hx:     b.half.X,
		hy:     b.half.Y,
		yaw:    b.rotation.Yaw,
		zMin:   b.location.Z - b.half.Z,
		zMax:   b.location.Z + b.half.Z,
	}
}

// occluderBox bounds an occluder panel rotated by its roll around its base
// edge: the panel leans toward its local +Y as it falls.
func (b *Body) occluderBox() box {
	rad := b.rotation.Roll * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	reach := b.swing * sin
	offset := geom.Pt(0, reach/2).Rotate(b.rotation.Yaw)
	return box{
		center: b.location.Ground().Add(offset),
		hx:     b.half.X,
		hy:     b.half.Y + reach/2,
		yaw:    b.rotation.Yaw,
		zMin:   b.location.Z,
		zMax:   b.location.Z + b.swing*cos + 2*b.half.Y*sin,
	}
}

// overlap is the exact test between two oriented boxes: the vertical
// extents must intersect and no separating axis may exist in the ground
// plane. Touching boxes do not overlap.
func overlap(a, b *Body) bool {
	ba, bb := a.box(), b.box()
	if ba.zMax <= bb.zMin || bb.zMax <= ba.zMin {
		return false
	}
	axes := [4]geom.Point2D{
		geom.Pt(1, 0).Rotate(ba.yaw),
		geom.Pt(0, 1).Rotate(ba.yaw),
		geom.Pt(1, 0).Rotate(bb.yaw),
		geom.Pt(0, 1).Rotate(bb.yaw),
	}
	d := bb.center.Sub(ba.center)
	for _, axis := range axes {
		if math.Abs(d.Dot(axis)) >= ba.radius(axis)+bb.radius(axis) {
			return false
		}
	}
	return true
}

// radius is the half length of the projection of the box on axis.
func (bx box) radius(axis geom.Point2D) float64 {
	ux := geom.Pt(1, 0).Rotate(bx.yaw)
	uy := geom.Pt(0, 1).Rotate(bx.yaw)
	return bx.hx*math.Abs(axis.Dot(ux)) + bx.hy*math.Abs(axis.Dot(uy))
}
