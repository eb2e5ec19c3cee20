package scene

import (
	"fmt"
	"math"
	"path"
	"strconv"

	"github.com/AaronLay10/IntPhysDirector/internal/actor"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
	"github.com/AaronLay10/IntPhysDirector/internal/geom"
	"github.com/AaronLay10/IntPhysDirector/internal/placement"
	"github.com/AaronLay10/IntPhysDirector/internal/scenario"
)

// TestRuns is the number of runs of a test scene: two possible runs then
// two impossible ones.
const TestRuns = 4

// Magic is the physical law a test scene breaks in its impossible runs.
type Magic string

const (
	// MagicPermanence: the object vanishes or appears.
	MagicPermanence Magic = "permanence"
	// MagicShape: the object changes its mesh.
	MagicShape Magic = "shape"
	// MagicContinuity: the object teleports.
	MagicContinuity Magic = "continuity"
)

const (
	magicName = "object_1"
	// lateral half course of a moving magic object
	magicSpan = 400.0
	// teleport distances of the continuity scenes
	staticShift  = 250.0
	dynamicShift = 150.0
	// occluders stand between the camera and the magic object
	occluderGap    = 250.0
	occluderCover  = 60.0
	occluderHeight = 2.0
	occluderSpeed  = 5.0
	// ticks an occluder stays up before and after a magic tick
	occluderLead = 10
)

// Test is a scene rendered four times with the same parameters. In the
// impossible runs the magic object switches state at the magic ticks: once
// for static and dynamic_1 scenes, twice for dynamic_2 (switch then switch
// back). Occluded scenes hide every switch behind a standing occluder.
type Test struct {
	base
	magic     Magic
	static    scenario.Static
	stateA    actor.ObjectParams
	stateB    actor.ObjectParams
	occluders []actor.OccluderParams
	ticks     []int

	tick int
	inB  bool
}

// NewTest draws the parameters shared by the four runs of a test scene.
func NewTest(env Env, desc Descriptor, magic Magic) *Test {
	t := &Test{base: newBase(env, desc), magic: magic}
	b := env.Builder
	t.static = b.StaticParams(false)
	t.camera = t.static.Camera

	sceneTicks := b.Config().SceneTicks
	t.ticks = magicTicks(b, desc, sceneTicks)
	t.stateA, t.stateB = t.magicParams(b, sceneTicks)
	if desc.Occluded {
		t.occluders = t.hidingOccluders(b)
	}
	t.state = StateParamsGenerated
	return t
}

// riseTicks is the number of ticks an occluder takes to stand up.
func riseTicks() int {
	return int(math.Ceil(90 / occluderSpeed))
}

func magicTicks(b *scenario.Builder, desc Descriptor, sceneTicks int) []int {
	rng := b.Rand()
	draw := func(lo, hi int) int {
		if hi <= lo {
			return lo
		}
		return lo + rng.Intn(hi-lo+1)
	}
	if desc.Movement == MovementDynamic2 {
		return []int{
			draw(sceneTicks/5, 3*sceneTicks/10),
			draw(7*sceneTicks/10, 4*sceneTicks/5),
		}
	}
	lo := sceneTicks / 4
	if desc.Occluded && lo < riseTicks()+occluderLead {
		lo = riseTicks() + occluderLead
	}
	return []int{draw(lo, 3*sceneTicks/4)}
}

// magicParams draws the magic object in its two states.
func (t *Test) magicParams(b *scenario.Builder, sceneTicks int) (a, alt actor.ObjectParams) {
	rng := b.Rand()
	uniform := func(min, max float64) float64 {
		return placement.Range{Min: min, Max: max}.Sample(rng)
	}
	a = actor.ObjectParams{
		Transform: actor.Transform{
			Location: geom.Vec(uniform(550, 650), 0, 0),
			Scale:    geom.Uniform(1),
		},
		Physics:  actor.DefaultPhysics(),
		Mesh:     b.Mesh(),
		Material: b.ObjectMaterial(),
	}

	var shift float64
	if t.desc.Movement == MovementStatic {
		a.Location.Y = uniform(-150, 150)
		a.Fixed = true
		shift = staticShift
		if a.Location.Y > 0 {
			shift = -shift
		}
	} else {
		dir := 1.0
		if rng.Intn(2) == 0 {
			dir = -1
		}
		a.Location.Y = -dir * magicSpan
		a.Velocity = geom.Vec(0, dir*2*magicSpan/float64(sceneTicks), 0)
		shift = dir * dynamicShift
	}

	alt = a
	switch t.magic {
	case MagicShape:
		alt.Mesh = otherMesh(b, a.Mesh)
	case MagicContinuity:
		alt.Location.Y += shift
	}
	return a, alt
}

// otherMesh draws an object mesh different from m.
func otherMesh(b *scenario.Builder, m actor.Mesh) actor.Mesh {
	var others []actor.Mesh
	for _, o := range actor.ObjectMeshes {
		if o != m {
			others = append(others, o)
		}
	}
	return others[b.Rand().Intn(len(others))]
}

// locationAt is the location of the magic object in state A after the
// given tick.
func (t *Test) locationAt(tick int) geom.Vector {
	return t.stateA.Location.Add(t.stateA.Velocity.Scale(float64(tick + 1)))
}

// hidingOccluders places one occluder in front of the magic object at each
// magic tick. The occluder lies on the floor, stands up just before the
// tick and falls back just after.
func (t *Test) hidingOccluders(b *scenario.Builder) []actor.OccluderParams {
	var out []actor.OccluderParams
	for _, tick := range t.ticks {
		loc := t.locationAt(tick)
		width := 2 * occluderCover
		center := loc.Y
		if t.magic == MagicContinuity {
			shift := t.stateB.Location.Y - t.stateA.Location.Y
			width += math.Abs(shift)
			center += shift / 2
		}
		start := tick - riseTicks() - occluderLead
		if start < 0 {
			start = 0
		}
		out = append(out, actor.OccluderParams{
			Transform: actor.Transform{
				Location: geom.Vec(loc.X-occluderGap, center, 0),
				Rotation: geom.Rot(0, 0, 90),
				Scale:    geom.Vec(width/100, 1, occluderHeight),
			},
			Physics:  actor.DefaultPhysics(),
			Material: b.WallMaterial(t.static.Floor.Material),
			Moves:    []int{start, tick + occluderLead},
			Speed:    occluderSpeed,
		})
	}
	return out
}

func (t *Test) IsTestScene() bool { return true }

// IsPossible reports whether the current run is physically plausible.
func (t *Test) IsPossible() bool {
	return t.run < 2
}

// IsOver reports whether the four runs have been rendered.
func (t *Test) IsOver() bool {
	return t.run >= TestRuns
}

// Ticks returns the magic ticks.
func (t *Test) Ticks() []int {
	return append([]int(nil), t.ticks...)
}

// startsInB reports whether the magic object starts the run in state B:
// runs 2 and 4.
func (t *Test) startsInB() bool {
	return t.run%2 == 1
}

func (t *Test) PlayRun() error {
	if t.IsOver() {
		return nil
	}
	named := t.static.Actors()
	for i, o := range t.occluders {
		named = append(named, scenario.Named{Name: actor.Name(actor.KindOccluder, i+1), Params: o})
	}
	if err := t.spawn(named); err != nil {
		return err
	}

	t.inB = t.startsInB()
	if err := t.spawnMagic(t.initialMagicParams()); err != nil {
		return err
	}
	if t.magic == MagicPermanence && t.inB {
		t.magicObject().SetHidden(true)
	}
	t.state = StateActorsSpawned
	if !t.sweep() {
		return nil
	}
	t.tick = 0
	t.state = StateRunning
	events.Emit("info", "scene.spawned", "", map[string]interface{}{
		"scene":       t.desc.Scenario,
		"run":         t.run + 1,
		"is_possible": t.IsPossible(),
		"occluded":    t.desc.Occluded,
		"movement":    string(t.desc.Movement),
	})
	return nil
}

func (t *Test) initialMagicParams() actor.ObjectParams {
	if t.inB && t.magic != MagicPermanence {
		return t.stateB
	}
	return t.stateA
}

func (t *Test) spawnMagic(p actor.ObjectParams) error {
	return t.spawn([]scenario.Named{{Name: magicName, Params: p}})
}

func (t *Test) magicObject() *actor.Object {
	for _, a := range t.actors {
		if o, ok := a.(*actor.Object); ok && o.Name() == magicName {
			return o
		}
	}
	return nil
}

// Tick moves the actors then, in impossible runs, switches the magic object
// at the magic ticks.
func (t *Test) Tick() {
	t.base.Tick()
	if !t.IsPossible() && t.isMagicTick(t.tick) {
		t.switchMagic()
	}
	t.tick++
}

func (t *Test) isMagicTick(tick int) bool {
	for _, m := range t.ticks {
		if m == tick {
			return true
		}
	}
	return false
}

func (t *Test) switchMagic() {
	obj := t.magicObject()
	if obj == nil {
		return
	}
	toB := !t.inB
	switch t.magic {
	case MagicPermanence:
		obj.SetHidden(toB)
	case MagicShape:
		if err := t.respawnMagic(obj, toB); err != nil {
			t.invalidate("magic respawn failed", map[string]interface{}{"error": err.Error()})
			return
		}
	case MagicContinuity:
		shift := t.stateB.Location.Sub(t.stateA.Location)
		if !toB {
			shift = shift.Scale(-1)
		}
		if err := obj.SetLocation(obj.Location().Add(shift)); err != nil {
			t.invalidate("magic teleport failed", map[string]interface{}{"error": err.Error()})
			return
		}
	}
	t.inB = toB
	events.Emit("info", "scene.magic", "", map[string]interface{}{
		"scene": t.desc.Scenario,
		"run":   t.run + 1,
		"tick":  t.tick,
		"magic": string(t.magic),
	})
}

// respawnMagic replaces the magic object by its other shape, at its current
// location.
func (t *Test) respawnMagic(obj *actor.Object, toB bool) error {
	p := t.stateA
	if toB {
		p = t.stateB
	}
	loc := obj.Location()
	// the spawn lifts objects by their half height
	loc.Z -= 50 * p.Scale.Z
	p.Location = loc
	p.Rotation = obj.Rotation()

	idx := -1
	for i, a := range t.actors {
		if a == actor.Actor(obj) {
			idx = i
		}
	}
	obj.Destroy()
	a, err := actor.Spawn(t.env.Runtime, magicName, p)
	if err != nil {
		return fmt.Errorf("respawn %s: %w", magicName, err)
	}
	t.actors[idx] = a
	return nil
}

// Capture buffers the frame, the hidden actors being left out of the masks.
func (t *Test) Capture() {
	var ignored []string
	for _, a := range t.actors {
		if h, ok := a.(interface{ Hidden() bool }); ok && h.Hidden() {
			ignored = append(ignored, a.Name())
		}
	}
	t.env.Gateway.Capture(ignored, t.status())
}

// StopRun saves the run. A test scene needs its four runs: a failed save or
// an invalid run makes the whole scene regenerate.
func (t *Test) StopRun(index, total int) bool {
	valid := t.IsValid()
	t.state = StateStopping
	header := t.header(string(CategoryTest), t.IsPossible())
	header["magic"] = map[string]interface{}{
		"actor": magicName,
		"kind":  string(t.magic),
		"ticks": t.Ticks(),
	}
	saved := valid && t.persist(header, t.SubDir(index, total))
	t.destroy()
	if !saved {
		t.state = StateInvalid
		return false
	}
	t.run++
	t.state = StateStopped
	if t.IsOver() {
		t.state = StateTerminal
	}
	return true
}

// SubDir is "<category>/<scenario>/<index>/<run>".
func (t *Test) SubDir(index, total int) string {
	return path.Join(sceneDir(t.desc, index, total, false), strconv.Itoa(t.run+1))
}
