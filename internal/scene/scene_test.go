package scene

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/AaronLay10/IntPhysDirector/internal/actor"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
	"github.com/AaronLay10/IntPhysDirector/internal/geom"
	"github.com/AaronLay10/IntPhysDirector/internal/scenario"
	"github.com/AaronLay10/IntPhysDirector/internal/sim"
)

type fakeGateway struct {
	dry      bool
	fail     bool
	headers  []map[string]interface{}
	captures [][]string
	saved    []string
	resets   int
}

func (g *fakeGateway) SetHeader(h map[string]interface{}) { g.headers = append(g.headers, h) }
func (g *fakeGateway) Reset(bool)                          { g.resets++ }
func (g *fakeGateway) IsDryMode() bool                     { return g.dry }
func (g *fakeGateway) OutputDir() string                   { return "" }

func (g *fakeGateway) Capture(ignored []string, _ map[string]interface{}) {
	g.captures = append(g.captures, append([]string(nil), ignored...))
}

func (g *fakeGateway) Save(subdir string) bool {
	if g.fail {
		return false
	}
	g.saved = append(g.saved, subdir)
	return true
}

func (g *fakeGateway) ShufflePossibleImpossible(string) error { return nil }

func newEnv(seed int64, g *fakeGateway) (Env, *sim.World) {
	world := sim.NewWorld(sim.DefaultConfig())
	b := scenario.NewBuilder(scenario.DefaultConfig(), scenario.DefaultMaterials(), rand.New(rand.NewSource(seed)))
	return Env{Runtime: world, Gateway: g, Builder: b}, world
}

func TestParseSpecKeepsDocumentOrder(t *testing.T) {
	doc := `{
		"test": {
			"O2": {"visible": {"dynamic_1": 1}},
			"O1": {"occluded": {"static": 2, "dynamic_2": 1}}
		},
		"train": 2,
		"dev": {"O3": {"visible_only": {"static": 1}}}
	}`
	descs, err := ParseSpec(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Descriptor{
		{Category: CategoryTest, Scenario: "O2", Movement: MovementDynamic1},
		{Category: CategoryTest, Scenario: "O1", Occluded: true, Movement: MovementStatic},
		{Category: CategoryTest, Scenario: "O1", Occluded: true, Movement: MovementStatic},
		{Category: CategoryTest, Scenario: "O1", Occluded: true, Movement: MovementDynamic2},
		{Category: CategoryTrain, Scenario: "train"},
		{Category: CategoryTrain, Scenario: "train"},
		{Category: CategoryDev, Scenario: "O3", Movement: MovementStatic},
	}
	if len(descs) != len(want) {
		t.Fatalf("expected %d scenes, got %d: %+v", len(want), len(descs), descs)
	}
	for i := range want {
		if descs[i] != want[i] {
			t.Errorf("scene %d: got %+v, want %+v", i, descs[i], want[i])
		}
	}

	summary := Summary(descs)
	if summary[CategoryTest] != 4 || summary[CategoryTrain] != 2 || summary[CategoryDev] != 1 {
		t.Errorf("summary: %v", summary)
	}
	cats := SortedCategories(summary)
	if len(cats) != 3 || cats[0] != CategoryDev || cats[2] != CategoryTrain {
		t.Errorf("sorted categories: %v", cats)
	}
}

func TestParseSpecErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not an object", `[1, 2]`},
		{"unknown category", `{"validation": 3}`},
		{"negative count", `{"train": -1}`},
		{"count not a number", `{"train": "two"}`},
		{"unknown scenario", `{"test": {"O4": {"visible": {"static": 1}}}}`},
		{"bad visibility", `{"test": {"O1": {"hidden": {"static": 1}}}}`},
		{"bad movement", `{"test": {"O1": {"visible": {"rolling": 1}}}}`},
		{"duplicate key", `{"train": 1, "train": 2}`},
		{"truncated", `{"train": 1`},
		{"trailing data", `{"train": 1} junk`},
		{"second object", `{"train": 1} {"dev": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpec(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("expected a ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestDescriptorValidate(t *testing.T) {
	valid := []Descriptor{
		{Category: CategoryTrain, Scenario: "train"},
		{Category: CategorySandbox, Scenario: "sandbox"},
		{Category: CategoryDev, Scenario: "O2", Movement: MovementDynamic2},
	}
	for _, d := range valid {
		if err := d.Validate(); err != nil {
			t.Errorf("%+v: %v", d, err)
		}
	}
	invalid := []Descriptor{
		{Category: CategoryTrain, Scenario: "O1"},
		{Category: "bogus", Scenario: "train"},
		{Category: CategoryTest, Scenario: "train", Movement: MovementStatic},
		{Category: CategoryTest, Scenario: "O1"},
	}
	for _, d := range invalid {
		if err := d.Validate(); err == nil {
			t.Errorf("%+v: expected an error", d)
		}
	}
}

func TestSubDirPadding(t *testing.T) {
	g := &fakeGateway{dry: true}
	env, _ := newEnv(1, g)
	f := NewFactory(env)

	if got := f.Train().SubDir(2, 10); got != "train/03" {
		t.Errorf("train subdir: %s", got)
	}
	if got := f.Sandbox().SubDir(0, 5); got != "sandbox/1" {
		t.Errorf("sandbox subdir: %s", got)
	}
	s, err := f.Test(CategoryDev, "O1", false, MovementStatic)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.SubDir(6, 100); got != "dev/O1/007/1" {
		t.Errorf("test subdir: %s", got)
	}
}

func TestSandboxLifecycle(t *testing.T) {
	g := &fakeGateway{}
	env, world := newEnv(3, g)
	s := NewFactory(env).Sandbox()
	if s.State() != StateParamsGenerated {
		t.Fatalf("state after construction: %s", s.State())
	}
	if err := s.PlayRun(); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !s.IsValid() || s.State() != StateRunning {
		t.Fatalf("sandbox not running: valid=%v state=%s", s.IsValid(), s.State())
	}
	if world.Bodies() == 0 {
		t.Fatal("no body spawned")
	}
	cylinder, ok := world.Find(actor.Name(actor.KindAxisCylinder, 1) + "_cylinder")
	if !ok {
		t.Fatal("axis cylinder not spawned")
	}
	for i := 0; i < 5; i++ {
		s.Tick()
		world.Step()
		s.Capture()
	}
	if y := cylinder.Location().Y; math.Abs(y-(-290)) > 1e-9 {
		t.Errorf("axis cylinder at y=%v, want -290", y)
	}
	if !s.StopRun(2, 10) {
		t.Fatal("train StopRun must succeed")
	}
	if !s.IsOver() || s.State() != StateTerminal {
		t.Errorf("sandbox not over: run=%d state=%s", s.Run(), s.State())
	}
	if world.Bodies() != 0 {
		t.Errorf("%d bodies left after stop", world.Bodies())
	}
	if len(g.saved) != 1 || g.saved[0] != "sandbox/03" {
		t.Errorf("saved: %v", g.saved)
	}
	if len(g.captures) != 5 {
		t.Errorf("expected 5 captures, got %d", len(g.captures))
	}
	h := g.headers[0]
	if h["block_name"] != "sandbox" || h["block_type"] != "train" || h["is_possible"] != true {
		t.Errorf("header: %v", h)
	}
	if err := s.PlayRun(); err != nil || world.Bodies() != 0 {
		t.Error("PlayRun on a finished scene must be a no-op")
	}
}

func TestTrainSaveFailureStillCompletes(t *testing.T) {
	g := &fakeGateway{fail: true}
	env, _ := newEnv(4, g)
	s := NewSandbox(env)
	if err := s.PlayRun(); err != nil {
		t.Fatal(err)
	}
	if !s.StopRun(0, 1) || !s.IsOver() {
		t.Fatal("a failed train save must not block the scene")
	}
}

// trainWith returns a train scene whose run spawns the given spheres.
func trainWith(env Env, spheres ...actor.ObjectParams) *Train {
	s := NewTrain(env)
	s.moving = func() scenario.Moving {
		return scenario.Moving{Policy: scenario.PolicyCollision, Objects: spheres}
	}
	return s
}

func sphereAt(env Env, x float64, force geom.Vector) actor.ObjectParams {
	return actor.ObjectParams{
		Transform:    actor.Transform{Location: geom.Vec(x, 0, 0), Scale: geom.Uniform(2)},
		Physics:      actor.DefaultPhysics(),
		Mesh:         actor.MeshSphere,
		Material:     env.Builder.ObjectMaterial(),
		InitialForce: force,
	}
}

func TestTrainOverlapInvalidatesRun(t *testing.T) {
	events.Clear()
	g := &fakeGateway{}
	env, world := newEnv(5, g)
	push := geom.Vec(1e4, 0, 0)
	s := trainWith(env, sphereAt(env, 400, push), sphereAt(env, 430, push))

	if err := s.PlayRun(); err != nil {
		t.Fatalf("an overlap is not a play error: %v", err)
	}
	if s.IsValid() || s.State() != StateInvalid {
		t.Fatalf("valid=%v state=%s", s.IsValid(), s.State())
	}
	world.Step()
	for i := 1; i <= 2; i++ {
		b, ok := world.Find(actor.Name(actor.KindObject, i))
		if !ok {
			t.Fatalf("object %d not spawned", i)
		}
		if vx := b.Velocity().X; vx != 0 {
			t.Errorf("object %d pushed on an invalid run: vx=%v", i, vx)
		}
	}
	var invalid, spawned int
	for _, e := range events.Snapshot() {
		switch e.Name {
		case "scene.invalid":
			invalid++
		case "scene.spawned":
			spawned++
		}
	}
	if invalid != 1 || spawned != 0 {
		t.Errorf("scene.invalid=%d scene.spawned=%d", invalid, spawned)
	}
}

func TestTrainAppliesInitialForceOnce(t *testing.T) {
	g := &fakeGateway{}
	env, world := newEnv(6, g)
	s := trainWith(env, sphereAt(env, 400, geom.Vec(1e4, 0, 0)))

	if err := s.PlayRun(); err != nil {
		t.Fatal(err)
	}
	if !s.IsValid() || s.State() != StateRunning {
		t.Fatalf("valid=%v state=%s", s.IsValid(), s.State())
	}
	b, ok := world.Find(actor.Name(actor.KindObject, 1))
	if !ok {
		t.Fatal("object not spawned")
	}
	world.Step()
	first := b.Velocity().X
	if first <= 0 {
		t.Fatalf("initial force not applied: vx=%v", first)
	}
	for i := 0; i < 3; i++ {
		s.Tick()
		world.Step()
		if vx := b.Velocity().X; vx > first {
			t.Fatalf("tick %d pushed again: vx=%v > %v", i, vx, first)
		}
	}
}

// playTest renders every run of a test scene and returns the ignored actors
// of each capture.
func playTest(t *testing.T, s *Test, g *fakeGateway) [][]string {
	t.Helper()
	ticks := s.env.Builder.Config().SceneTicks
	for run := 0; run < TestRuns; run++ {
		if err := s.PlayRun(); err != nil {
			t.Fatalf("run %d: %v", run+1, err)
		}
		if !s.IsValid() {
			t.Fatalf("run %d invalid", run+1)
		}
		if got := s.IsPossible(); got != (run < 2) {
			t.Fatalf("run %d possible=%v", run+1, got)
		}
		for i := 0; i < ticks; i++ {
			s.Tick()
			s.Capture()
		}
		if !s.StopRun(0, 1) {
			t.Fatalf("run %d not stopped", run+1)
		}
	}
	if !s.IsOver() || s.State() != StateTerminal {
		t.Fatalf("test scene not over: run=%d state=%s", s.Run(), s.State())
	}
	return g.captures
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func TestPermanenceRuns(t *testing.T) {
	g := &fakeGateway{dry: true}
	env, _ := newEnv(5, g)
	s := NewTest(env, Descriptor{Category: CategoryTest, Scenario: "O1", Movement: MovementStatic}, MagicPermanence)
	if len(s.Ticks()) != 1 {
		t.Fatalf("static scene has %d magic ticks", len(s.Ticks()))
	}
	magic := s.Ticks()[0]
	ticks := env.Builder.Config().SceneTicks

	captures := playTest(t, s, g)
	if len(captures) != TestRuns*ticks {
		t.Fatalf("expected %d captures, got %d", TestRuns*ticks, len(captures))
	}
	for run := 0; run < TestRuns; run++ {
		for k := 0; k < ticks; k++ {
			hidden := contains(captures[run*ticks+k], magicName)
			var want bool
			switch run {
			case 1:
				want = true
			case 2:
				want = k >= magic
			case 3:
				want = k < magic
			}
			if hidden != want {
				t.Fatalf("run %d tick %d: hidden=%v, want %v (magic tick %d)", run+1, k, hidden, want, magic)
			}
		}
	}
	for i, h := range g.headers {
		if h["is_possible"] != (i < 2) {
			t.Errorf("header %d: is_possible=%v", i, h["is_possible"])
		}
		if _, ok := h["magic"]; !ok {
			t.Errorf("header %d has no magic entry", i)
		}
	}
}

func TestDynamic2HasTwoOrderedMagicTicks(t *testing.T) {
	env, _ := newEnv(6, &fakeGateway{dry: true})
	s := NewTest(env, Descriptor{Category: CategoryTest, Scenario: "O1", Occluded: true, Movement: MovementDynamic2}, MagicPermanence)
	ticks := s.Ticks()
	if len(ticks) != 2 || ticks[0] >= ticks[1] {
		t.Fatalf("magic ticks: %v", ticks)
	}
	if len(s.occluders) != 2 {
		t.Fatalf("expected one occluder per magic tick, got %d", len(s.occluders))
	}
	for i, o := range s.occluders {
		if o.Moves[0] >= ticks[i] || o.Moves[1] <= ticks[i] {
			t.Errorf("occluder %d moves %v do not cover tick %d", i, o.Moves, ticks[i])
		}
	}
}

func TestContinuityTeleports(t *testing.T) {
	env, _ := newEnv(7, &fakeGateway{dry: true})
	s := NewTest(env, Descriptor{Category: CategoryTest, Scenario: "O3", Movement: MovementDynamic1}, MagicContinuity)
	s.run = 2
	if err := s.PlayRun(); err != nil {
		t.Fatal(err)
	}
	magic := s.Ticks()[0]
	for i := 0; i < magic; i++ {
		s.Tick()
	}
	before := s.magicObject().Location()
	s.Tick()
	after := s.magicObject().Location()

	want := s.stateA.Velocity.Y + s.stateB.Location.Y - s.stateA.Location.Y
	if got := after.Y - before.Y; math.Abs(got-want) > 1e-6 {
		t.Errorf("teleport: moved %f, want %f", got, want)
	}
	if math.Abs(s.stateB.Location.Y-s.stateA.Location.Y) != dynamicShift {
		t.Errorf("unexpected shift between states")
	}
}

func TestShapeChangesMesh(t *testing.T) {
	env, _ := newEnv(8, &fakeGateway{dry: true})
	s := NewTest(env, Descriptor{Category: CategoryTest, Scenario: "O2", Movement: MovementStatic}, MagicShape)
	if s.stateA.Mesh == s.stateB.Mesh {
		t.Fatal("both states share a mesh")
	}
	s.run = 2
	if err := s.PlayRun(); err != nil {
		t.Fatal(err)
	}
	magic := s.Ticks()[0]
	for i := 0; i <= magic; i++ {
		s.Tick()
	}
	obj := s.magicObject()
	if obj == nil || obj.Params().Mesh != s.stateB.Mesh {
		t.Fatal("magic object did not change shape")
	}
	if !s.IsValid() {
		t.Error("respawn invalidated the scene")
	}
}

func TestTestSaveFailureFailsScene(t *testing.T) {
	g := &fakeGateway{fail: true}
	env, world := newEnv(9, g)
	s := NewTest(env, Descriptor{Category: CategoryTest, Scenario: "O1", Movement: MovementStatic}, MagicPermanence)
	if err := s.PlayRun(); err != nil {
		t.Fatal(err)
	}
	if s.StopRun(0, 1) {
		t.Fatal("a failed test save must fail the scene")
	}
	if s.State() != StateInvalid || s.Run() != 0 {
		t.Errorf("state=%s run=%d", s.State(), s.Run())
	}
	if world.Bodies() != 0 {
		t.Error("actors left after a failed stop")
	}
}

func TestAbortDiscardsRun(t *testing.T) {
	g := &fakeGateway{}
	env, world := newEnv(10, g)
	s := NewSandbox(env)
	if err := s.PlayRun(); err != nil {
		t.Fatal(err)
	}
	s.Abort()
	if world.Bodies() != 0 || s.State() != StateInvalid {
		t.Errorf("abort: bodies=%d state=%s", world.Bodies(), s.State())
	}
	if len(g.saved) != 0 {
		t.Error("abort saved a run")
	}
}

func TestRegenerateKeepsDescriptor(t *testing.T) {
	env, _ := newEnv(11, &fakeGateway{dry: true})
	f := NewFactory(env)
	s, err := f.Test(CategoryTest, "O3", true, MovementDynamic1)
	if err != nil {
		t.Fatal(err)
	}
	r, err := f.Regenerate(s)
	if err != nil {
		t.Fatal(err)
	}
	if r == s || r.Descriptor() != s.Descriptor() || r.Run() != 0 {
		t.Errorf("regenerated %+v from %+v", r.Descriptor(), s.Descriptor())
	}
}

func TestFactoryParseBuildsScenes(t *testing.T) {
	env, _ := newEnv(12, &fakeGateway{dry: true})
	scenes, err := NewFactory(env).Parse(strings.NewReader(`{"sandbox": 1, "test": {"O2": {"visible": {"static": 1}}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(scenes) != 2 || scenes[0].Name() != "sandbox" || !scenes[1].IsTestScene() {
		t.Fatalf("scenes: %v", scenes)
	}
}
