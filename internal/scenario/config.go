package scenario

import (
	"errors"
	"fmt"

	"github.com/AaronLay10/IntPhysDirector/internal/placement"
	"github.com/zyedidia/generic/mapset"
)

// Policy is the strategy used to throw the objects of a train scene.
type Policy string

const (
	PolicyRandom    Policy = "random"
	PolicyCollision Policy = "collision"
	PolicyWall      Policy = "wall"
)

// Policies fixes the order in which weights are drawn.
var Policies = []Policy{PolicyRandom, PolicyCollision, PolicyWall}

// CameraRanges bounds the camera pose of a scene.
type CameraRanges struct {
	Height placement.Range `yaml:"height" json:"height"`
	Pitch  placement.Range `yaml:"pitch" json:"pitch"`
	Yaw    placement.Range `yaml:"yaw" json:"yaw"`
}

// WallsRanges bounds the size of the background walls.
type WallsRanges struct {
	Height placement.Range `yaml:"height" json:"height"`
	Length placement.Range `yaml:"length" json:"length"`
	Depth  placement.Range `yaml:"depth" json:"depth"`
	// Jumpable caps height and depth for the wall policy.
	JumpableHeight float64 `yaml:"jumpable_height" json:"jumpable_height"`
	JumpableDepth  float64 `yaml:"jumpable_depth" json:"jumpable_depth"`
}

// Config drives the parameter generation.
type Config struct {
	Weights          map[Policy]int `yaml:"weights" json:"weights"`
	WallsProbability float64        `yaml:"walls_probability" json:"walls_probability"`
	MaxOccluders     int            `yaml:"max_occluders" json:"max_occluders"`
	// MaxMoves bounds the length of an occluder schedule.
	MaxMoves int `yaml:"max_moves" json:"max_moves"`
	// OccluderMinGap is the minimum number of ticks between two moves.
	OccluderMinGap int             `yaml:"occluder_min_gap" json:"occluder_min_gap"`
	OccluderSpeed  placement.Range `yaml:"occluder_speed" json:"occluder_speed"`
	// SceneTicks is the last tick a move can be scheduled at.
	SceneTicks  int              `yaml:"scene_ticks" json:"scene_ticks"`
	TrainCamera CameraRanges     `yaml:"train_camera" json:"train_camera"`
	TestCamera  CameraRanges     `yaml:"test_camera" json:"test_camera"`
	Walls       WallsRanges      `yaml:"walls" json:"walls"`
	Placement   placement.Config `yaml:"placement" json:"placement"`
}

// DefaultConfig returns the generation constants of the train scenes.
func DefaultConfig() Config {
	return Config{
		Weights: map[Policy]int{
			PolicyRandom:    2,
			PolicyCollision: 2,
			PolicyWall:      1,
		},
		WallsProbability: 0.3,
		MaxOccluders:     2,
		MaxMoves:         3,
		OccluderMinGap:   10,
		OccluderSpeed:    placement.Range{Min: 1, Max: 5},
		SceneTicks:       200,
		TrainCamera: CameraRanges{
			Height: placement.Range{Min: 100, Max: 200},
			Pitch:  placement.Range{Min: -10, Max: 10},
			Yaw:    placement.Range{Min: -10, Max: 10},
		},
		TestCamera: CameraRanges{
			Height: placement.Range{Min: 150, Max: 150},
			Pitch:  placement.Range{Min: -5, Max: -5},
		},
		Walls: WallsRanges{
			Height:         placement.Range{Min: 0.3, Max: 4},
			Length:         placement.Range{Min: 1500, Max: 5000},
			Depth:          placement.Range{Min: 800, Max: 2000},
			JumpableHeight: 0.7,
			JumpableDepth:  900,
		},
		Placement: placement.DefaultConfig(),
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	total := 0
	for p, w := range c.Weights {
		if !isPolicy(p) {
			return fmt.Errorf("unknown policy %q in weights", p)
		}
		if w < 0 {
			return fmt.Errorf("negative weight for policy %q", p)
		}
		total += w
	}
	if total == 0 {
		return errors.New("policy weights must not all be zero")
	}
	if c.WallsProbability < 0 || c.WallsProbability > 1 {
		return fmt.Errorf("walls_probability must be in [0,1], got %f", c.WallsProbability)
	}
	if c.MaxOccluders < 0 || c.MaxMoves < 0 {
		return errors.New("max_occluders and max_moves must not be negative")
	}
	if c.OccluderMinGap < 1 {
		return fmt.Errorf("occluder_min_gap must be at least 1, got %d", c.OccluderMinGap)
	}
	if c.SceneTicks < 1 {
		return fmt.Errorf("scene_ticks must be positive, got %d", c.SceneTicks)
	}
	if c.Placement.Attempts < 1 {
		return fmt.Errorf("placement attempts must be positive, got %d", c.Placement.Attempts)
	}
	return nil
}

func isPolicy(p Policy) bool {
	for _, known := range Policies {
		if p == known {
			return true
		}
	}
	return false
}

// Materials lists the material assets per surface category.
type Materials struct {
	Floor  []string `yaml:"floor" json:"floor"`
	Object []string `yaml:"object" json:"object"`
	Wall   []string `yaml:"wall" json:"wall"`
	// Forbidden maps a floor material to the wall materials that must not
	// be drawn with it.
	Forbidden map[string][]string `yaml:"forbidden" json:"forbidden"`
}

// DefaultMaterials returns the stock material catalog.
func DefaultMaterials() Materials {
	return Materials{
		Floor: []string{
			"/Game/Materials/Floor/M_FloorTile_01",
			"/Game/Materials/Floor/M_FloorTile_02",
			"/Game/Materials/Floor/M_Wood_Floor",
			"/Game/Materials/Floor/M_Concrete_Poured",
		},
		Object: []string{
			"/Game/Materials/Object/M_Metal_Chrome",
			"/Game/Materials/Object/M_Plastic_Red",
			"/Game/Materials/Object/M_Wood_Oak",
			"/Game/Materials/Object/M_Rubber_Black",
		},
		Wall: []string{
			"/Game/Materials/Wall/M_Metal_Rust",
			"/Game/Materials/Wall/M_Brick_Clay",
			"/Game/Materials/Wall/M_Plaster",
			"/Game/Materials/Wall/M_Tile_Hex",
		},
		Forbidden: map[string][]string{
			"/Game/Materials/Floor/M_FloorTile_02": {"/Game/Materials/Wall/M_Metal_Rust"},
		},
	}
}

// Validate checks every category has at least one usable material.
func (m Materials) Validate() error {
	if len(m.Floor) == 0 || len(m.Object) == 0 || len(m.Wall) == 0 {
		return errors.New("materials: floor, object and wall lists must not be empty")
	}
	for floor, walls := range m.Forbidden {
		if len(m.allowedWalls(floor)) == 0 {
			return fmt.Errorf("materials: floor %s forbids every wall material (%d)", floor, len(walls))
		}
	}
	return nil
}

func (m Materials) allowedWalls(floor string) []string {
	forbidden := m.Forbidden[floor]
	if len(forbidden) == 0 {
		return m.Wall
	}
	excluded := mapset.New[string]()
	for _, f := range forbidden {
		excluded.Put(f)
	}
	out := make([]string, 0, len(m.Wall))
	for _, w := range m.Wall {
		if !excluded.Has(w) {
			out = append(out, w)
		}
	}
	return out
}
