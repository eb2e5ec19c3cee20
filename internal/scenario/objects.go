package scenario

import (
	"math"

	"github.com/AaronLay10/IntPhysDirector/internal/actor"
	"github.com/AaronLay10/IntPhysDirector/internal/geom"
	"github.com/AaronLay10/IntPhysDirector/internal/placement"
)

// ForceMode is the way a random object is thrown.
type ForceMode int

const (
	// ForceRandom draws each axis as sign*digit*10^exponent.
	ForceRandom ForceMode = iota
	// ForceDirected aims at a point in the camera field.
	ForceDirected
	// ForceNone leaves the object still.
	ForceNone
)

// aim describes a force pointing to a collision point.
type aim struct {
	target geom.Point2D
	// vertical digit and exponent ranges
	lift     [2]int
	exponent placement.Range
}

var horizontalExponent = placement.Range{Min: 1.5, Max: 1.8}

var forceDigits = []float64{-4, -3, -2, 2, 3, 4}

// RandomForce draws a force spanning several orders of magnitude on each
// axis. The vertical component always points up.
func (b *Builder) RandomForce() geom.Vector {
	axis := func() float64 {
		digit := forceDigits[b.rng.Intn(len(forceDigits))]
		return digit * math.Pow(10, b.uniform(3, 4))
	}
	x := axis()
	y := axis()
	z := math.Abs(axis())
	return geom.Vec(x, y, z)
}

// directedForce returns a force from location toward a.target, scaled by
// 10^[1.5,1.8] horizontally and thrown up by digit*10^exponent.
func (b *Builder) directedForce(location geom.Vector, a aim) geom.Vector {
	dx := a.target.X - location.X
	dy := a.target.Y - location.Y
	lift := float64(b.randInt(a.lift[0], a.lift[1]))
	return geom.Vec(
		dx*math.Pow(10, horizontalExponent.Sample(b.rng)),
		dy*math.Pow(10, horizontalExponent.Sample(b.rng)),
		lift*math.Pow(10, a.exponent.Sample(b.rng)),
	)
}

// CollisionPoint draws the point the objects of a collision scene aim at.
func (b *Builder) CollisionPoint() geom.Point2D {
	return geom.Pt(b.uniform(200, 700), b.uniform(-300, 300))
}

// WallJumpPoint draws a point behind jumpable walls.
func (b *Builder) WallJumpPoint() geom.Point2D {
	return geom.Pt(b.uniform(800, 1000), b.uniform(-300, 300))
}

func (b *Builder) cameraFieldPoint() geom.Point2D {
	return geom.Pt(b.uniform(300, 700), b.uniform(-200, 200))
}

func (b *Builder) object(pos placement.Position, force geom.Vector) actor.ObjectParams {
	return actor.ObjectParams{
		Transform: actor.Transform{
			Location: pos.Location,
			Rotation: pos.Rotation,
			Scale:    pos.Scale,
		},
		Physics:      actor.DefaultPhysics(),
		Mesh:         b.Mesh(),
		Material:     b.ObjectMaterial(),
		InitialForce: force,
	}
}

// RandomObjects places up to n objects, each thrown with a random force
// mode. Objects that cannot be placed are omitted.
func (b *Builder) RandomObjects(n int, zones *[]placement.Zone) []actor.ObjectParams {
	var out []actor.ObjectParams
	for i := 0; i < n; i++ {
		pos, ok := b.gen.FindPosition(placement.KindObject, zones)
		if !ok {
			continue
		}
		var force geom.Vector
		switch ForceMode(b.rng.Intn(3)) {
		case ForceRandom:
			force = b.RandomForce()
		case ForceDirected:
			force = b.directedForce(pos.Location, aim{
				target:   b.cameraFieldPoint(),
				lift:     [2]int{2, 4},
				exponent: placement.Range{Min: 3, Max: 4},
			})
		case ForceNone:
		}
		out = append(out, b.object(pos, force))
	}
	return out
}

// CollisionObjects places three objects thrown toward a shared point.
func (b *Builder) CollisionObjects(zones *[]placement.Zone) []actor.ObjectParams {
	target := b.CollisionPoint()
	return b.aimedObjects(3, zones, aim{
		target:   target,
		lift:     [2]int{2, 4},
		exponent: placement.Range{Min: 3, Max: 4},
	})
}

// WallObjects places n objects thrown over the background walls.
func (b *Builder) WallObjects(n int, zones *[]placement.Zone) []actor.ObjectParams {
	target := b.WallJumpPoint()
	return b.aimedObjects(n, zones, aim{
		target:   target,
		lift:     [2]int{3, 4},
		exponent: placement.Range{Min: 3.7, Max: 4},
	})
}

func (b *Builder) aimedObjects(n int, zones *[]placement.Zone, a aim) []actor.ObjectParams {
	var out []actor.ObjectParams
	for i := 0; i < n; i++ {
		pos, ok := b.gen.FindPosition(placement.KindObject, zones)
		if !ok {
			continue
		}
		out = append(out, b.object(pos, b.directedForce(pos.Location, a)))
	}
	return out
}

// Objects draws the objects of a policy. Random scenes get 1 to 3 objects;
// collision and wall scenes get 3, a random share of the wall scene objects
// being placed like random ones.
func (b *Builder) Objects(policy Policy, zones *[]placement.Zone) []actor.ObjectParams {
	switch policy {
	case PolicyCollision:
		return b.CollisionObjects(zones)
	case PolicyWall:
		nRandom := b.randInt(0, 2)
		objects := b.RandomObjects(nRandom, zones)
		return append(objects, b.WallObjects(3-nRandom, zones)...)
	default:
		return b.RandomObjects(b.randInt(1, 3), zones)
	}
}
