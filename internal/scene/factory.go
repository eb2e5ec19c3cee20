package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ConfigError is a fatal problem in the scene specification.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scene spec: %s: %v", e.Msg, e.Err)
	}
	return "scene spec: " + e.Msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

type constructor func(env Env, desc Descriptor) Scene

func testScene(magic Magic) constructor {
	return func(env Env, desc Descriptor) Scene {
		return NewTest(env, desc, magic)
	}
}

// registry maps every scenario name to its constructor. The table is checked
// against Scenarios at init so that a missing scenario fails at startup.
var registry = map[string]constructor{
	string(CategoryTrain):   func(env Env, _ Descriptor) Scene { return NewTrain(env) },
	string(CategorySandbox): func(env Env, _ Descriptor) Scene { return NewSandbox(env) },
	"O1":                    testScene(MagicPermanence),
	"O2":                    testScene(MagicShape),
	"O3":                    testScene(MagicContinuity),
}

// TestScenarios lists the scenarios accepted in test and dev categories.
var TestScenarios = []string{"O1", "O2", "O3"}

// Scenarios lists every scenario the factory builds.
var Scenarios = append([]string{string(CategoryTrain), string(CategorySandbox)}, TestScenarios...)

func init() {
	for _, s := range Scenarios {
		if _, ok := registry[s]; !ok {
			panic(fmt.Sprintf("scene: no constructor registered for scenario %q", s))
		}
	}
}

// Factory builds scenes sharing one environment.
type Factory struct {
	env Env
}

// NewFactory creates a factory.
func NewFactory(env Env) *Factory {
	return &Factory{env: env}
}

// New builds the scene described by desc.
func (f *Factory) New(desc Descriptor) (Scene, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return registry[desc.Scenario](f.env, desc), nil
}

// Train builds a train scene.
func (f *Factory) Train() Scene {
	return NewTrain(f.env)
}

// Sandbox builds the debug scene.
func (f *Factory) Sandbox() Scene {
	return NewSandbox(f.env)
}

// Test builds a test or dev scene.
func (f *Factory) Test(category Category, scenario string, occluded bool, movement Movement) (Scene, error) {
	return f.New(Descriptor{Category: category, Scenario: scenario, Occluded: occluded, Movement: movement})
}

// Regenerate builds a fresh scene for the slot of s, with new draws.
func (f *Factory) Regenerate(s Scene) (Scene, error) {
	return f.New(s.Descriptor())
}

// Validate checks the descriptor names a known combination.
func (d Descriptor) Validate() error {
	switch d.Category {
	case CategoryTrain, CategorySandbox:
		if d.Scenario != string(d.Category) {
			return configErrorf("category %s cannot hold scenario %q", d.Category, d.Scenario)
		}
		return nil
	case CategoryTest, CategoryDev:
	default:
		return configErrorf("category must be train, test, dev or sandbox but is %q", d.Category)
	}
	if !isTestScenario(d.Scenario) {
		return configErrorf("unknown scenario %q, expected one of %s", d.Scenario, strings.Join(TestScenarios, ", "))
	}
	if !isMovement(d.Movement) {
		return configErrorf("movement must be static, dynamic_1 or dynamic_2 but is %q", d.Movement)
	}
	return nil
}

func isTestScenario(s string) bool {
	for _, known := range TestScenarios {
		if s == known {
			return true
		}
	}
	return false
}

func isMovement(m Movement) bool {
	for _, known := range Movements {
		if m == known {
			return true
		}
	}
	return false
}

// ParseFile builds the scenes of a JSON specification file.
func (f *Factory) ParseFile(path string) ([]Scene, error) {
	descs, err := ParseSpecFile(path)
	if err != nil {
		return nil, err
	}
	return f.build(descs)
}

// Parse builds the scenes of a JSON specification, in file order.
func (f *Factory) Parse(r io.Reader) ([]Scene, error) {
	descs, err := ParseSpec(r)
	if err != nil {
		return nil, err
	}
	return f.build(descs)
}

func (f *Factory) build(descs []Descriptor) ([]Scene, error) {
	scenes := make([]Scene, 0, len(descs))
	for _, d := range descs {
		s, err := f.New(d)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, s)
	}
	return scenes, nil
}

// ParseSpecFile reads and validates a specification file.
func ParseSpecFile(path string) ([]Descriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Msg: "cannot read " + path, Err: err}
	}
	return ParseSpec(bytes.NewReader(b))
}

// ParseSpec validates a specification and expands it into one descriptor
// per scene. Categories, scenarios, visibilities and movements keep the
// order of the document.
func ParseSpec(r io.Reader) ([]Descriptor, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &ConfigError{Msg: "cannot read", Err: err}
	}
	categories, err := decodeObject(b)
	if err != nil {
		return nil, &ConfigError{Msg: "cannot parse", Err: err}
	}

	var out []Descriptor
	for _, c := range categories {
		cat := Category(c.key)
		switch cat {
		case CategoryTrain, CategorySandbox:
			n, err := decodeCount(c.value)
			if err != nil {
				return nil, &ConfigError{Msg: "bad count for " + c.key, Err: err}
			}
			for i := 0; i < n; i++ {
				out = append(out, Descriptor{Category: cat, Scenario: c.key})
			}
		case CategoryTest, CategoryDev:
			descs, err := parseTest(cat, c.value)
			if err != nil {
				return nil, err
			}
			out = append(out, descs...)
		default:
			return nil, configErrorf("category must be train, test, dev or sandbox but is %q", c.key)
		}
	}
	return out, nil
}

func parseTest(cat Category, raw json.RawMessage) ([]Descriptor, error) {
	scenarios, err := decodeObject(raw)
	if err != nil {
		return nil, &ConfigError{Msg: "bad " + string(cat) + " block", Err: err}
	}
	var out []Descriptor
	for _, s := range scenarios {
		if !isTestScenario(s.key) {
			return nil, configErrorf("unknown scenario %q, expected one of %s", s.key, strings.Join(TestScenarios, ", "))
		}
		visibilities, err := decodeObject(s.value)
		if err != nil {
			return nil, &ConfigError{Msg: "bad scenario " + s.key, Err: err}
		}
		for _, v := range visibilities {
			occluded, err := isOccluded(v.key)
			if err != nil {
				return nil, err
			}
			movements, err := decodeObject(v.value)
			if err != nil {
				return nil, &ConfigError{Msg: "bad visibility " + v.key, Err: err}
			}
			for _, m := range movements {
				mv := Movement(m.key)
				if !isMovement(mv) {
					return nil, configErrorf("no \"static\", \"dynamic_1\" or \"dynamic_2\" in %q", m.key)
				}
				n, err := decodeCount(m.value)
				if err != nil {
					return nil, &ConfigError{Msg: "bad count for " + m.key, Err: err}
				}
				for i := 0; i < n; i++ {
					out = append(out, Descriptor{Category: cat, Scenario: s.key, Occluded: occluded, Movement: mv})
				}
			}
		}
	}
	return out, nil
}

func isOccluded(visibility string) (bool, error) {
	switch {
	case strings.Contains(visibility, "occluded"):
		return true, nil
	case strings.Contains(visibility, "visible"):
		return false, nil
	}
	return false, configErrorf("no \"occluded\" or \"visible\" in %q", visibility)
}

type entry struct {
	key   string
	value json.RawMessage
}

// decodeObject decodes a JSON object keeping the order of its keys.
func decodeObject(raw []byte) ([]entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected a JSON object")
	}
	var out []entry
	seen := map[string]bool{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := tok.(string)
		if seen[key] {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		seen[key] = true
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, entry{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after the JSON object")
	}
	return out, nil
}

func decodeCount(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

// Summary counts descriptors per category, for reporting.
func Summary(descs []Descriptor) map[Category]int {
	out := map[Category]int{}
	for _, d := range descs {
		out[d.Category]++
	}
	return out
}

// SortedCategories returns the categories of a summary in name order.
func SortedCategories(summary map[Category]int) []Category {
	out := make([]Category, 0, len(summary))
	for c := range summary {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
