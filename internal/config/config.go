package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AaronLay10/IntPhysDirector/internal/scenario"
	"github.com/AaronLay10/IntPhysDirector/internal/sim"
	"gopkg.in/yaml.v3"
)

// Resolution is the size of the rendered images, written "<w>x<h>".
type Resolution struct {
	Width  int
	Height int
}

// ParseResolution parses "<width>x<height>".
func ParseResolution(s string) (Resolution, error) {
	parts := strings.Split(strings.TrimSpace(s), "x")
	if len(parts) != 2 {
		return Resolution{}, fmt.Errorf("resolution is not in <width>x<height> format (e.g. \"800x600\"): %q", s)
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return Resolution{}, fmt.Errorf("resolution is not in <width>x<height> format (e.g. \"800x600\"): %q", s)
	}
	return Resolution{Width: w, Height: h}, nil
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r *Resolution) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseResolution(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Resolution) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

type DirectorConfig struct {
	FramesPerScene int        `yaml:"frames_per_scene"`
	PauseDuration  int        `yaml:"pause_duration"`
	WarmupTicks    int        `yaml:"warmup_ticks"`
	Resolution     Resolution `yaml:"resolution"`
}

type NetworkConfig struct {
	// APIPort of the status server, 0 disables it.
	APIPort    int    `yaml:"api_port"`
	MQTTBroker string `yaml:"mqtt_broker"`
	MQTTTopic  string `yaml:"mqtt_topic"`
}

// GeneratorConfig is the content of the generator YAML file.
type GeneratorConfig struct {
	Version   int                `yaml:"version"`
	Director  DirectorConfig     `yaml:"director"`
	Scenarios scenario.Config    `yaml:"scenarios"`
	Materials scenario.Materials `yaml:"materials"`
	Sim       sim.Config         `yaml:"sim"`
	Network   NetworkConfig      `yaml:"network"`
}

// DefaultGeneratorConfig returns the configuration used when no file is
// given, and the base a file is merged into.
func DefaultGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{
		Version: 1,
		Director: DirectorConfig{
			FramesPerScene: 100,
			PauseDuration:  50,
			WarmupTicks:    9,
			Resolution:     Resolution{Width: 288, Height: 288},
		},
		Scenarios: scenario.DefaultConfig(),
		Materials: scenario.DefaultMaterials(),
		Sim:       sim.DefaultConfig(),
		Network: NetworkConfig{
			MQTTTopic: "intphys/progress",
		},
	}
}

// Validate checks every section.
func (c *GeneratorConfig) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported generator config version: %d", c.Version)
	}
	if c.Director.FramesPerScene < 1 {
		return fmt.Errorf("frames_per_scene must be positive, got %d", c.Director.FramesPerScene)
	}
	if c.Director.PauseDuration < 0 || c.Director.WarmupTicks < 0 {
		return fmt.Errorf("pause_duration and warmup_ticks must not be negative")
	}
	// magic ticks and occluder moves are drawn over the ticks of a scene
	if want := c.SceneTicks(); c.Scenarios.SceneTicks != want {
		return fmt.Errorf("scenarios.scene_ticks is %d but a scene of %d frames lasts %d ticks",
			c.Scenarios.SceneTicks, c.Director.FramesPerScene, want)
	}
	if err := c.Scenarios.Validate(); err != nil {
		return fmt.Errorf("scenarios: %w", err)
	}
	if err := c.Materials.Validate(); err != nil {
		return err
	}
	if c.Network.APIPort < 0 || c.Network.APIPort > 65535 {
		return fmt.Errorf("api_port out of range: %d", c.Network.APIPort)
	}
	return nil
}

// SceneTicks is the number of ticks a scene lasts: one capture every other
// tick.
func (c *GeneratorConfig) SceneTicks() int {
	return 2 * c.Director.FramesPerScene
}

// LoadGeneratorConfig reads a generator YAML file over the defaults.
// scenarios.scene_ticks follows director.frames_per_scene unless given.
func LoadGeneratorConfig(path string) (*GeneratorConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultGeneratorConfig()
	cfg.Version = 0
	cfg.Scenarios.SceneTicks = 0
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Scenarios.SceneTicks == 0 {
		cfg.Scenarios.SceneTicks = cfg.SceneTicks()
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported generator config version: %d", cfg.Version)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// RunConfig holds the per-run settings, from the environment then the
// command line.
type RunConfig struct {
	Scenes     string
	OutputDir  string
	Seed       int64
	HasSeed    bool
	Resolution *Resolution
	// PauseDuration is negative when unset.
	PauseDuration int
	ConfigPath    string
}

// FromEnv reads the INTPHYS_* variables.
func FromEnv() (RunConfig, error) {
	rc := RunConfig{
		Scenes:        os.Getenv("INTPHYS_SCENES"),
		OutputDir:     os.Getenv("INTPHYS_OUTPUTDIR"),
		ConfigPath:    os.Getenv("INTPHYS_CONFIG"),
		PauseDuration: -1,
	}
	if v := os.Getenv("INTPHYS_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return rc, fmt.Errorf("INTPHYS_SEED: %w", err)
		}
		rc.Seed, rc.HasSeed = seed, true
	}
	if v := os.Getenv("INTPHYS_RESOLUTION"); v != "" {
		res, err := ParseResolution(v)
		if err != nil {
			return rc, fmt.Errorf("INTPHYS_RESOLUTION: %w", err)
		}
		rc.Resolution = &res
	}
	if v := os.Getenv("INTPHYS_PAUSEDURATION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return rc, fmt.Errorf("INTPHYS_PAUSEDURATION: not a non-negative integer: %q", v)
		}
		rc.PauseDuration = n
	}
	return rc, nil
}

// Apply overrides the director section with the run settings that are set.
func (rc RunConfig) Apply(cfg *GeneratorConfig) {
	if rc.Resolution != nil {
		cfg.Director.Resolution = *rc.Resolution
	}
	if rc.PauseDuration >= 0 {
		cfg.Director.PauseDuration = rc.PauseDuration
	}
}
