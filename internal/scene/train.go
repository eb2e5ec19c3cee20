package scene

import (
	"github.com/AaronLay10/IntPhysDirector/internal/actor"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
	"github.com/AaronLay10/IntPhysDirector/internal/geom"
	"github.com/AaronLay10/IntPhysDirector/internal/scenario"
)

// Train is a physically plausible scene rendered once. Its camera, floor
// and lights are drawn at construction; the walls, objects and occluders
// are drawn when the run is played.
type Train struct {
	base
	static scenario.Static
	moving func() scenario.Moving
	policy scenario.Policy
}

// NewTrain creates a train scene.
func NewTrain(env Env) *Train {
	t := &Train{base: newBase(env, Descriptor{Category: CategoryTrain, Scenario: string(CategoryTrain)})}
	t.static = env.Builder.StaticParams(true)
	t.camera = t.static.Camera
	t.moving = func() scenario.Moving {
		return env.Builder.MovingParams(t.static.Floor.Material)
	}
	t.state = StateParamsGenerated
	return t
}

// NewSandbox creates the debug scene: train contract, background walls, two
// spheres (the second one thrown at the first) and a sliding axis cylinder.
func NewSandbox(env Env) *Train {
	t := &Train{base: newBase(env, Descriptor{Category: CategorySandbox, Scenario: string(CategorySandbox)})}
	b := env.Builder
	t.static = b.StaticParams(true)
	t.camera = t.static.Camera
	walls := b.WallsParams(false)
	sphere := func(x, y float64, force geom.Vector) actor.ObjectParams {
		return actor.ObjectParams{
			Transform: actor.Transform{
				Location: geom.Vec(x, y, 0),
				Scale:    geom.Uniform(2),
			},
			Physics:      actor.DefaultPhysics(),
			Mesh:         actor.MeshSphere,
			Material:     b.ObjectMaterial(),
			InitialForce: force,
		}
	}
	objects := []actor.ObjectParams{
		sphere(300, 0, geom.Vector{}),
		sphere(500, 300, geom.Vec(-1e4, -1e4, 0)),
	}
	cylinder := actor.AxisCylinderParams{
		Transform: actor.Transform{Location: geom.Vec(600, -300, 0), Scale: geom.Uniform(1)},
		Material:  b.ObjectMaterial(),
		Speed:     2,
	}
	t.moving = func() scenario.Moving {
		return scenario.Moving{
			Policy:        scenario.PolicyCollision,
			Walls:         &walls,
			Objects:       objects,
			AxisCylinders: []actor.AxisCylinderParams{cylinder},
		}
	}
	t.state = StateParamsGenerated
	return t
}

// Policy returns the policy drawn for the current run.
func (t *Train) Policy() scenario.Policy {
	return t.policy
}

func (t *Train) PlayRun() error {
	if t.IsOver() {
		return nil
	}
	if err := t.spawn(t.static.Actors()); err != nil {
		return err
	}
	m := t.moving()
	t.policy = m.Policy
	if err := t.spawn(m.Actors()); err != nil {
		return err
	}
	t.state = StateActorsSpawned
	if !t.sweep() {
		return nil
	}
	t.applyInitialForces()
	t.state = StateRunning
	events.Emit("info", "scene.spawned", "", map[string]interface{}{
		"scene":     t.desc.Scenario,
		"policy":    string(m.Policy),
		"objects":   len(m.Objects),
		"occluders": len(m.Occluders),
		"cylinders": len(m.AxisCylinders),
		"walls":     m.Walls != nil,
	})
	return nil
}

func (t *Train) IsPossible() bool { return true }

// IsOver reports whether the single run has been rendered.
func (t *Train) IsOver() bool {
	return t.run == 1
}

func (t *Train) Capture() {
	t.env.Gateway.Capture(nil, t.status())
}

// StopRun saves the run, best effort: a failed save is reported by the
// gateway and the scene still completes.
func (t *Train) StopRun(index, total int) bool {
	t.state = StateStopping
	t.persist(t.header(string(CategoryTrain), true), t.SubDir(index, total))
	t.destroy()
	t.run++
	t.state = StateStopped
	if t.IsOver() {
		t.state = StateTerminal
	}
	return true
}

// SubDir is "train/<index>", or "sandbox/<index>" for sandbox scenes.
func (t *Train) SubDir(index, total int) string {
	return sceneDir(t.desc, index, total, true)
}
