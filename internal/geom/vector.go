// Package geom holds the small amount of 3D math shared by scene generation
// and the actor runtime. All lengths are engine centimeters, all angles degrees.
package geom

import "math"

// Vector is a point or direction in world space.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec is a shorthand constructor for Vector.
func Vec(x, y, z float64) Vector {
	return Vector{X: x, Y: y, Z: z}
}

// Uniform returns a vector with the same value on the three axes.
func Uniform(s float64) Vector {
	return Vector{X: s, Y: s, Z: s}
}

// Add returns v + o.
func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector {
	return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vector) Scale(s float64) Vector {
	return Vector{v.X * s, v.Y * s, v.Z * s}
}

// Length returns the Euclidean length of the vector.
func (v Vector) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// IsZero reports whether all components are zero.
func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// AsDict returns the vector in the layout used by status.json.
func (v Vector) AsDict() map[string]interface{} {
	return map[string]interface{}{"x": v.X, "y": v.Y, "z": v.Z}
}

// Rotator is an Euler rotation in degrees.
type Rotator struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Rot is a shorthand constructor for Rotator.
func Rot(roll, pitch, yaw float64) Rotator {
	return Rotator{Roll: roll, Pitch: pitch, Yaw: yaw}
}

// AsDict returns the rotation in the layout used by status.json.
func (r Rotator) AsDict() map[string]interface{} {
	return map[string]interface{}{"roll": r.Roll, "pitch": r.Pitch, "yaw": r.Yaw}
}

// Point2D is a point of the ground plane (x forward, y right).
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is a shorthand constructor for Point2D.
func Pt(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Ground projects v on the ground plane.
func (v Vector) Ground() Point2D {
	return Point2D{X: v.X, Y: v.Y}
}

// Add returns p + q.
func (p Point2D) Add(q Point2D) Point2D {
	return Point2D{p.X + q.X, p.Y + q.Y}
}

// Sub returns p - q.
func (p Point2D) Sub(q Point2D) Point2D {
	return Point2D{p.X - q.X, p.Y - q.Y}
}

// Dot returns the dot product of p and q.
func (p Point2D) Dot(q Point2D) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Rotate returns p rotated by deg degrees around the origin.
func (p Point2D) Rotate(deg float64) Point2D {
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return Point2D{
		X: p.X*c - p.Y*s,
		Y: p.X*s + p.Y*c,
	}
}

// RotateAround returns p rotated by deg degrees around center.
func (p Point2D) RotateAround(center Point2D, deg float64) Point2D {
	return p.Sub(center).Rotate(deg).Add(center)
}
