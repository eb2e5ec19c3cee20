// Package placement finds collision-free ground footprints for the actors of a
// scene being generated.
//
// Footprints ("zones") are rotated rectangles. Candidate zones are compared by
// the axis-aligned bounding boxes of the rotated rectangles, which is a
// conservative broad-phase test: it can reject placements that do not truly
// overlap, never the reverse. The exact test is left to the actor runtime at
// spawn time.
package placement

import (
	"math"

	"github.com/AaronLay10/IntPhysDirector/internal/geom"
)

// Kind selects the sampling ranges and footprint shape of an actor.
type Kind string

const (
	KindObject   Kind = "object"
	KindOccluder Kind = "occluder"
)

// meshHalfSize is half the side of the unit meshes (100x100x100 cm).
const meshHalfSize = 50

// Zone is the footprint of a placed actor: 4 ordered corners in the ground plane.
type Zone [4]geom.Point2D

// Bounds returns the axis-aligned bounding box of the zone.
func (z Zone) Bounds() (minX, maxX, minY, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range z {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, maxX, minY, maxY
}

// Overlaps reports whether the bounding boxes of a and b intersect.
// Touching edges do not count as an overlap.
func Overlaps(a, b Zone) bool {
	aMinX, aMaxX, aMinY, aMaxY := a.Bounds()
	bMinX, bMaxX, bMinY, bMaxY := b.Bounds()
	return bMinY < aMaxY && bMaxY > aMinY && bMaxX > aMinX && bMinX < aMaxX
}

// OverlapsAny reports whether z overlaps one of zones.
func OverlapsAny(z Zone, zones []Zone) bool {
	for _, other := range zones {
		if Overlaps(z, other) {
			return true
		}
	}
	return false
}

// CreateZone builds the footprint of an actor of the given kind.
//
// The base rectangle has half-extents 50*scale.X and 50*scale.Y around
// location. Occluders fall and rise around their base, so their footprint is
// extended on the +Y side by the swing length (OccluderSwing*scale.Z) and then
// grown by OccluderMargin on every side. The rectangle is then rotated by
// rotation.Yaw around location.
func (c Config) CreateZone(location, scale geom.Vector, rotation geom.Rotator, kind Kind) Zone {
	hx := meshHalfSize * scale.X
	hy := meshHalfSize * scale.Y
	x, y := location.X, location.Y

	zone := Zone{
		geom.Pt(x-hx, y-hy),
		geom.Pt(x+hx, y-hy),
		geom.Pt(x+hx, y+hy),
		geom.Pt(x-hx, y+hy),
	}

	if kind == KindOccluder {
		m := c.OccluderMargin
		near := y - hy - m
		far := y + hy + c.OccluderSwing*scale.Z + m
		zone = Zone{
			geom.Pt(x-hx-m, near),
			geom.Pt(x+hx+m, near),
			geom.Pt(x+hx+m, far),
			geom.Pt(x-hx-m, far),
		}
	}

	center := location.Ground()
	for i, p := range zone {
		zone[i] = p.RotateAround(center, rotation.Yaw)
	}
	return zone
}

// WallsZone is the footprint reserved by background walls standing at depth.
func (c Config) WallsZone(depth float64) Zone {
	return Zone{
		geom.Pt(depth, -c.WallsHalfWidth),
		geom.Pt(c.WallsFar, -c.WallsHalfWidth),
		geom.Pt(c.WallsFar, c.WallsHalfWidth),
		geom.Pt(depth, c.WallsHalfWidth),
	}
}
