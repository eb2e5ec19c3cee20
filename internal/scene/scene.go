// Package scene implements the lifecycle of one scene: parameters, actor
// spawn, ticks, validity, capture and persistence of its runs.
package scene

import (
	"fmt"
	"path"
	"strconv"

	"github.com/AaronLay10/IntPhysDirector/internal/actor"
	"github.com/AaronLay10/IntPhysDirector/internal/capture"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
	"github.com/AaronLay10/IntPhysDirector/internal/scenario"
	"github.com/zyedidia/generic/mapset"
)

// Category is the dataset a scene belongs to.
type Category string

const (
	CategoryTrain   Category = "train"
	CategoryTest    Category = "test"
	CategoryDev     Category = "dev"
	CategorySandbox Category = "sandbox"
)

// Movement is the motion of the magic object of a test scene.
type Movement string

const (
	MovementStatic   Movement = "static"
	MovementDynamic1 Movement = "dynamic_1"
	MovementDynamic2 Movement = "dynamic_2"
)

// Movements lists the accepted movement tokens.
var Movements = []Movement{MovementStatic, MovementDynamic1, MovementDynamic2}

// State is the lifecycle state of a scene.
type State string

const (
	StateCreated         State = "created"
	StateParamsGenerated State = "params_generated"
	StateActorsSpawned   State = "actors_spawned"
	StateRunning         State = "running"
	StateStopping        State = "stopping"
	StateStopped         State = "stopped"
	StateTerminal        State = "terminal"
	StateInvalid         State = "invalid"
)

// Descriptor identifies what a scene slot holds. Regenerating a scene builds
// a new scene from the same descriptor.
type Descriptor struct {
	Category Category
	Scenario string
	Occluded bool
	Movement Movement
}

// Scene is one queued scene.
type Scene interface {
	Descriptor() Descriptor
	// Name is the scenario name: "train", "sandbox", "O1"...
	Name() string
	Run() int
	State() State
	CameraParams() actor.CameraParams
	// PlayRun spawns the actors of the next run. It is a no-op once the
	// scene is over.
	PlayRun() error
	Tick()
	Capture()
	IsValid() bool
	IsPossible() bool
	IsTestScene() bool
	// StopRun persists the run and destroys the actors. False means the
	// scene cannot be completed and must be regenerated.
	StopRun(index, total int) bool
	// Abort destroys the actors without persisting anything.
	Abort()
	IsOver() bool
	// SubDir is the output directory of the current run, relative to the
	// dataset root.
	SubDir(index, total int) string
}

// Env holds the collaborators shared by every scene.
type Env struct {
	Runtime actor.Runtime
	Gateway capture.Gateway
	Builder *scenario.Builder
}

// sweepKinds are the kinds checked for overlaps once a run is spawned.
var sweepKinds = func() mapset.Set[actor.Kind] {
	s := mapset.New[actor.Kind]()
	for _, k := range []actor.Kind{actor.KindObject, actor.KindOccluder, actor.KindWalls, actor.KindAxisCylinder} {
		s.Put(k)
	}
	return s
}()

// base is the state shared by every scene type.
type base struct {
	env    Env
	desc   Descriptor
	state  State
	run    int
	valid  bool
	camera actor.CameraParams
	actors []actor.Actor
}

func newBase(env Env, desc Descriptor) base {
	return base{env: env, desc: desc, state: StateCreated, valid: true}
}

func (b *base) Descriptor() Descriptor           { return b.desc }
func (b *base) Name() string                     { return b.desc.Scenario }
func (b *base) Run() int                         { return b.run }
func (b *base) State() State                     { return b.state }
func (b *base) CameraParams() actor.CameraParams { return b.camera }
func (b *base) IsTestScene() bool                { return false }

// IsValid is false once the scene or one of its live actors saw an illegal
// overlap.
func (b *base) IsValid() bool {
	if !b.valid {
		return false
	}
	for _, a := range b.actors {
		if !a.IsValid() {
			return false
		}
	}
	return true
}

func (b *base) invalidate(reason string, fields map[string]interface{}) {
	b.valid = false
	b.state = StateInvalid
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["scene"] = b.desc.Scenario
	fields["run"] = b.run
	events.Emit("warn", "scene.invalid", reason, fields)
}

// spawn creates the actors in order. A failed spawn invalidates the scene.
func (b *base) spawn(named []scenario.Named) error {
	for _, n := range named {
		a, err := actor.Spawn(b.env.Runtime, n.Name, n.Params)
		if err != nil {
			b.invalidate("spawn failed", map[string]interface{}{"actor": n.Name, "error": err.Error()})
			return fmt.Errorf("spawn %s: %w", n.Name, err)
		}
		b.actors = append(b.actors, a)
	}
	return nil
}

// sweep checks every pair of spawned moving actors and walls with the exact
// runtime overlap query. It reports false and invalidates the scene on the
// first overlapping pair.
func (b *base) sweep() bool {
	var checked []actor.Overlappable
	for _, a := range b.actors {
		if o, ok := a.(actor.Overlappable); ok && sweepKinds.Has(a.Kind()) {
			checked = append(checked, o)
		}
	}
	for i := 0; i < len(checked); i++ {
		for j := i + 1; j < len(checked); j++ {
			if checked[i].Overlapping(checked[j]) {
				b.invalidate("overlapping actors at spawn", map[string]interface{}{
					"actors": []string{checked[i].Name(), checked[j].Name()},
				})
				return false
			}
		}
	}
	return true
}

// applyInitialForces pushes every object once, right after spawn.
func (b *base) applyInitialForces() {
	for _, a := range b.actors {
		if o, ok := a.(*actor.Object); ok {
			o.ApplyInitialForce()
		}
	}
}

// Tick moves every movable actor. An actor the runtime cannot move
// invalidates the scene.
func (b *base) Tick() {
	for _, a := range b.actors {
		m, ok := a.(actor.Movable)
		if !ok {
			continue
		}
		if err := m.Move(); err != nil {
			events.Emit("error", "system.error", err.Error(), map[string]interface{}{
				"scene": b.desc.Scenario,
				"actor": a.Name(),
			})
			b.invalidate("actor move failed", map[string]interface{}{"actor": a.Name()})
			return
		}
	}
}

// status returns the status of the moving actors, objects and occluders.
func (b *base) status() map[string]interface{} {
	s := map[string]interface{}{}
	for _, a := range b.actors {
		if a.Kind() == actor.KindObject || a.Kind() == actor.KindOccluder {
			s[a.Name()] = a.Status()
		}
	}
	return s
}

// header returns the status of the constant actors.
func (b *base) header(blockType string, possible bool) map[string]interface{} {
	h := map[string]interface{}{
		"block_name":  b.desc.Scenario,
		"block_type":  blockType,
		"is_possible": possible,
	}
	for _, a := range b.actors {
		if a.Kind() != actor.KindObject && a.Kind() != actor.KindOccluder {
			h[a.Name()] = a.Status()
		}
	}
	return h
}

func (b *base) destroy() {
	for _, a := range b.actors {
		a.Destroy()
	}
	b.actors = nil
}

func (b *base) Abort() {
	b.destroy()
	b.state = StateInvalid
	events.Emit("info", "run.discarded", "", map[string]interface{}{
		"scene": b.desc.Scenario,
		"run":   b.run,
	})
}

// persist sets the header then, outside dry mode, saves the run and resets
// the gateway buffer.
func (b *base) persist(header map[string]interface{}, subdir string) bool {
	g := b.env.Gateway
	g.SetHeader(header)
	ok := true
	if !g.IsDryMode() {
		ok = g.Save(subdir)
		g.Reset(true)
	}
	return ok
}

// sceneDir is "<category>/<pad>" for train and sandbox scenes and
// "<category>/<scenario>/<pad>" for test scenes, the index being 1-based
// and zero padded to the width of total. Each category has its own counter
// in the director, hence its own directory.
func sceneDir(desc Descriptor, index, total int, trainLike bool) string {
	width := len(strconv.Itoa(total))
	padded := fmt.Sprintf("%0*d", width, index+1)
	if trainLike {
		return path.Join(string(desc.Category), padded)
	}
	return path.Join(string(desc.Category), desc.Scenario, padded)
}
