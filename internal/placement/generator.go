package placement

import (
	"math/rand"

	"github.com/AaronLay10/IntPhysDirector/internal/events"
	"github.com/AaronLay10/IntPhysDirector/internal/geom"
)

// Range is a closed interval sampled uniformly.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Sample draws a value uniformly in [Min, Max].
func (r Range) Sample(rng *rand.Rand) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// KindRanges are the sampling ranges of one actor kind.
type KindRanges struct {
	X      Range `yaml:"x"`
	Y      Range `yaml:"y"`
	Yaw    Range `yaml:"yaw"`
	ScaleX Range `yaml:"scale_x"`
	ScaleY Range `yaml:"scale_y"`
	ScaleZ Range `yaml:"scale_z"`
	// UniformScale draws ScaleX once and applies it to the three axes.
	UniformScale bool `yaml:"uniform_scale"`
}

// Config holds the placement ranges and the footprint constants.
type Config struct {
	Attempts       int        `yaml:"attempts"`
	Object         KindRanges `yaml:"object"`
	Occluder       KindRanges `yaml:"occluder"`
	OccluderSwing  float64    `yaml:"occluder_swing"`
	OccluderMargin float64    `yaml:"occluder_margin"`
	WallsHalfWidth float64    `yaml:"walls_half_width"`
	WallsFar       float64    `yaml:"walls_far"`
}

// DefaultConfig returns the ranges used by the train scenes.
func DefaultConfig() Config {
	return Config{
		Attempts: 100,
		Object: KindRanges{
			X:            Range{200, 800},
			Y:            Range{-800, 800},
			Yaw:          Range{-180, 180},
			ScaleX:       Range{0.8, 2.5},
			UniformScale: true,
		},
		Occluder: KindRanges{
			X:      Range{200, 700},
			Y:      Range{-500, 500},
			Yaw:    Range{-180, 180},
			ScaleX: Range{0.5, 1.5},
			ScaleY: Range{1, 1},
			ScaleZ: Range{0.5, 3},
		},
		OccluderSwing:  100,
		OccluderMargin: 10,
		WallsHalfWidth: 600,
		WallsFar:       3000,
	}
}

// Position is a sampled placement for an actor.
type Position struct {
	Location geom.Vector
	Rotation geom.Rotator
	Scale    geom.Vector
}

// Generator samples positions that avoid a running set of unsafe zones.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator creates a generator drawing from rng.
func NewGenerator(cfg Config, rng *rand.Rand) *Generator {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultConfig().Attempts
	}
	return &Generator{cfg: cfg, rng: rng}
}

// Config returns the generator configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// FindPosition samples up to Config.Attempts positions for an actor of the
// given kind and returns the first one whose zone does not overlap *zones.
// On success the new zone is appended to *zones. It returns false when the
// attempts are exhausted; *zones is then left untouched.
func (g *Generator) FindPosition(kind Kind, zones *[]Zone) (Position, bool) {
	for i := 0; i < g.cfg.Attempts; i++ {
		pos := g.sample(kind)
		zone := g.cfg.CreateZone(pos.Location, pos.Scale, pos.Rotation, kind)
		if OverlapsAny(zone, *zones) {
			continue
		}
		*zones = append(*zones, zone)
		return pos, true
	}
	events.Emit("warn", "placement.exhausted", "actor omitted", map[string]interface{}{
		"kind":     string(kind),
		"attempts": g.cfg.Attempts,
		"zones":    len(*zones),
	})
	return Position{}, false
}

func (g *Generator) sample(kind Kind) Position {
	r := g.cfg.Object
	if kind == KindOccluder {
		r = g.cfg.Occluder
	}

	var scale geom.Vector
	if r.UniformScale {
		scale = geom.Uniform(r.ScaleX.Sample(g.rng))
	} else {
		scale = geom.Vec(r.ScaleX.Sample(g.rng), r.ScaleY.Sample(g.rng), r.ScaleZ.Sample(g.rng))
	}
	location := geom.Vec(r.X.Sample(g.rng), r.Y.Sample(g.rng), 0)
	rotation := geom.Rot(0, 0, r.Yaw.Sample(g.rng))

	return Position{Location: location, Rotation: rotation, Scale: scale}
}
