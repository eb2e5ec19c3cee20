// Package scenario builds the randomized actor parameters of a scene: camera,
// floor, lights, background walls, thrown objects and falling occluders.
//
// Every draw comes from the *rand.Rand given to the Builder, so a scene is
// fully determined by the seed and the order of the calls.
package scenario

import (
	"math"
	"math/rand"

	"github.com/AaronLay10/IntPhysDirector/internal/actor"
	"github.com/AaronLay10/IntPhysDirector/internal/geom"
	"github.com/AaronLay10/IntPhysDirector/internal/placement"
)

// Builder draws scene parameters.
type Builder struct {
	cfg       Config
	materials Materials
	rng       *rand.Rand
	gen       *placement.Generator
}

// NewBuilder creates a builder drawing from rng.
func NewBuilder(cfg Config, materials Materials, rng *rand.Rand) *Builder {
	return &Builder{
		cfg:       cfg,
		materials: materials,
		rng:       rng,
		gen:       placement.NewGenerator(cfg.Placement, rng),
	}
}

// Config returns the generation configuration.
func (b *Builder) Config() Config {
	return b.cfg
}

// Placement returns the placement generator sharing the builder RNG.
func (b *Builder) Placement() *placement.Generator {
	return b.gen
}

// Rand returns the builder RNG.
func (b *Builder) Rand() *rand.Rand {
	return b.rng
}

func (b *Builder) uniform(min, max float64) float64 {
	return placement.Range{Min: min, Max: max}.Sample(b.rng)
}

// randInt draws an integer in [min, max], bounds included.
func (b *Builder) randInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + b.rng.Intn(max-min+1)
}

// Camera draws the camera pose of a train or a test scene.
func (b *Builder) Camera(train bool) actor.CameraParams {
	r := b.cfg.TestCamera
	if train {
		r = b.cfg.TrainCamera
	}
	p := actor.DefaultCameraParams()
	p.Location = geom.Vec(0, 0, r.Height.Sample(b.rng))
	p.Rotation = geom.Rot(0, r.Pitch.Sample(b.rng), r.Yaw.Sample(b.rng))
	return p
}

// Floor draws the floor material.
func (b *Builder) Floor() actor.FloorParams {
	return actor.FloorParams{
		Transform: actor.Transform{Scale: geom.Vec(10, 20, 1)},
		Physics:   actor.DefaultPhysics(),
		Material:  b.pick(b.materials.Floor),
	}
}

// Lights returns the sky light plus a tinted one.
func (b *Builder) Lights() []actor.LightParams {
	sky := actor.LightParams{Type: "SkyLight"}
	color := b.Color(0.9, 1.0)
	tinted := actor.LightParams{
		Transform:    actor.Transform{Location: geom.Vec(0, 0, 30)},
		Type:         "SkyLight",
		Color:        &color,
		VarIntensity: b.uniform(-0.2, 0.9),
	}
	return []actor.LightParams{sky, tinted}
}

// Color draws a warm, low saturation light color.
func (b *Builder) Color(minValue, maxValue float64) actor.Color {
	h := b.uniform(0.05, 0.18)
	v := b.uniform(minValue, maxValue)
	r, g, bl := hsvToRGB(h, 0.3, v)
	return actor.Color{R: r, G: g, B: bl, A: 1}
}

// hsvToRGB converts a color with h, s and v in [0,1].
func hsvToRGB(h, s, v float64) (r, g, b float64) {
	if s == 0 {
		return v, v, v
	}
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

// ChoosePolicy draws a policy according to the configured weights.
func (b *Builder) ChoosePolicy() Policy {
	total := 0
	for _, p := range Policies {
		total += b.cfg.Weights[p]
	}
	if total <= 0 {
		return PolicyRandom
	}
	n := b.rng.Intn(total)
	for _, p := range Policies {
		n -= b.cfg.Weights[p]
		if n < 0 {
			return p
		}
	}
	return PolicyRandom
}

// Walls draws background walls. The wall policy always gets low, close
// walls the objects can jump over; other policies get walls with the
// configured probability. The walls footprint is appended to zones.
func (b *Builder) Walls(policy Policy, zones *[]placement.Zone) *actor.WallsParams {
	jumpable := policy == PolicyWall
	if !jumpable && b.rng.Float64() > b.cfg.WallsProbability {
		return nil
	}
	p := b.WallsParams(jumpable)
	*zones = append(*zones, b.gen.Config().WallsZone(p.Depth))
	return &p
}

// WallsParams draws the size and material of background walls. Jumpable
// walls are capped in height and depth.
func (b *Builder) WallsParams(jumpable bool) actor.WallsParams {
	r := b.cfg.Walls
	maxHeight, maxDepth := r.Height.Max, r.Depth.Max
	if jumpable {
		maxHeight, maxDepth = r.JumpableHeight, r.JumpableDepth
	}
	return actor.WallsParams{
		Material: b.pick(b.materials.Wall),
		Height:   b.uniform(r.Height.Min, maxHeight),
		Length:   r.Length.Sample(b.rng),
		Depth:    b.uniform(r.Depth.Min, maxDepth),
	}
}

// ObjectMaterial draws a material for an object.
func (b *Builder) ObjectMaterial() string {
	return b.pick(b.materials.Object)
}

// WallMaterial draws a wall material compatible with the floor.
func (b *Builder) WallMaterial(floor string) string {
	return b.pick(b.materials.allowedWalls(floor))
}

// Mesh draws an object mesh. Spheres are twice as likely as the others.
func (b *Builder) Mesh() actor.Mesh {
	meshes := append(append([]actor.Mesh{}, actor.ObjectMeshes...), actor.MeshSphere)
	return meshes[b.rng.Intn(len(meshes))]
}

func (b *Builder) pick(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[b.rng.Intn(len(values))]
}
