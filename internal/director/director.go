// Package director renders a queue of scenes, one engine tick at a time.
//
// The director starts each scene, pauses the engine while assets load, ticks
// the scene and captures every other tick, stops the scene after
// 2*frames ticks and regenerates scenes that turned invalid. Once the queue
// is exhausted it shuffles the test datasets and reports completion.
package director

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/AaronLay10/IntPhysDirector/internal/actor"
	"github.com/AaronLay10/IntPhysDirector/internal/capture"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
	"github.com/AaronLay10/IntPhysDirector/internal/scene"
)

// Engine is the physics backend driven by the director.
type Engine interface {
	actor.Runtime
	Pauser
	// Step advances the physics by one tick. A paused engine does not move.
	Step()
}

// Regenerator builds a fresh scene in place of a failed one.
// *scene.Factory implements it.
type Regenerator interface {
	Regenerate(s scene.Scene) (scene.Scene, error)
}

// Options configures a Director.
type Options struct {
	// Frames is the number of frames captured per run.
	Frames int
	// PauseDuration is the number of ticks the engine stays paused at the
	// start of each run.
	PauseDuration int
	// WarmupTicks are played, uncaptured, at the start of train runs.
	WarmupTicks int
}

// Director schedules the scenes. Tick is called once per engine tick;
// Progress may be called concurrently.
type Director struct {
	mu sync.Mutex

	engine  Engine
	gateway capture.Gateway
	regen   Regenerator
	camera  *actor.Camera
	pauser  *PauseManager
	scenes  []scene.Scene

	maxTick int
	warmup  int

	// counter holds the index of the current scene within its contiguous
	// block of same-named scenes, per category.
	counter   map[scene.Category]int
	index     int
	ticker    int
	restarted int
	captures  int
	done      bool
	err       error
	startedAt time.Time
}

type cameraSetter interface {
	SetCamera(c capture.StatusProvider)
}

// scheduled scenes change at fixed ticks, which must fall within a scene.
type scheduled interface {
	Ticks() []int
}

func checkSchedule(s scene.Scene, maxTick int) error {
	sc, ok := s.(scheduled)
	if !ok {
		return nil
	}
	for _, t := range sc.Ticks() {
		if t < 0 || t >= maxTick {
			return fmt.Errorf("scene %s changes at tick %d, outside its %d ticks", s.Name(), t, maxTick)
		}
	}
	return nil
}

// New creates a director over scenes and spawns the camera it owns. When the
// gateway accepts a camera, the camera status is given to it.
func New(engine Engine, gateway capture.Gateway, regen Regenerator, scenes []scene.Scene, opts Options) (*Director, error) {
	if opts.Frames < 1 {
		return nil, fmt.Errorf("frames per scene must be positive, got %d", opts.Frames)
	}
	for i, s := range scenes {
		if err := checkSchedule(s, 2*opts.Frames); err != nil {
			return nil, fmt.Errorf("scene %d: %w", i+1, err)
		}
	}
	camera, err := actor.SpawnCamera(engine, actor.DefaultCameraParams())
	if err != nil {
		return nil, fmt.Errorf("spawn camera: %w", err)
	}
	if cs, ok := gateway.(cameraSetter); ok {
		cs.SetCamera(camera)
	}
	d := &Director{
		engine:    engine,
		gateway:   gateway,
		regen:     regen,
		camera:    camera,
		pauser:    NewPauseManager(engine, opts.PauseDuration),
		scenes:    scenes,
		maxTick:   2 * opts.Frames,
		warmup:    opts.WarmupTicks,
		counter:   map[scene.Category]int{},
		startedAt: time.Now(),
	}
	events.Emit("info", "director.started", "", map[string]interface{}{
		"scenes":     len(scenes),
		"frames":     opts.Frames,
		"dry_mode":   gateway.IsDryMode(),
		"output_dir": gateway.OutputDir(),
	})
	return d, nil
}

// Camera returns the camera owned by the director.
func (d *Director) Camera() *actor.Camera {
	return d.camera
}

// Run ticks the director then steps the engine until every scene is
// rendered or ctx is cancelled.
func (d *Director) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.cancel()
			return ctx.Err()
		default:
		}
		if d.Tick() {
			return d.Err()
		}
		d.engine.Step()
	}
}

// Err returns the error that stopped the director, if any.
func (d *Director) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Done reports whether the director has finished.
func (d *Director) Done() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Tick advances the schedule by one engine tick and reports whether the
// director is done.
func (d *Director) Tick() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return true
	}

	d.pauser.Tick()
	if d.pauser.IsPaused() {
		return false
	}

	switch {
	case d.ticker == 0:
		if d.index >= len(d.scenes) {
			d.terminate()
			return true
		}
		d.startScene()
		d.ticker = 1
	case d.ticker > d.maxTick:
		d.stopScene()
		d.ticker = 0
	default:
		s := d.current()
		if s.IsValid() && d.camera.IsValid() {
			s.Tick()
			if d.ticker%2 == 1 {
				s.Capture()
				d.captures++
			}
			d.ticker++
			break
		}
		if !d.camera.IsValid() {
			events.Emit("warn", "scene.invalid", "camera overlapped", map[string]interface{}{
				"scene": s.Name(),
				"run":   s.Run(),
			})
		}
		s.Abort()
		d.regenerate()
		d.ticker = 0
	}
	return d.done
}

func (d *Director) current() scene.Scene {
	return d.scenes[d.index]
}

func (d *Director) startScene() {
	s := d.current()
	desc := s.Descriptor()
	if s.Run() == 0 {
		fields := map[string]interface{}{
			"index":    d.index + 1,
			"total":    len(d.scenes),
			"category": string(desc.Category),
			"scenario": desc.Scenario,
		}
		if s.IsTestScene() {
			fields["movement"] = string(desc.Movement)
			fields["occluded"] = desc.Occluded
		}
		events.Emit("info", "scene.started", "", fields)
	}

	if err := d.camera.Setup(s.CameraParams()); err != nil {
		events.Emit("error", "system.error", err.Error(), map[string]interface{}{"scene": s.Name()})
	}
	if err := s.PlayRun(); err != nil {
		// the scene is invalid and gets regenerated at the next tick
		return
	}
	if !s.IsValid() {
		return
	}

	if desc.Category == scene.CategoryTrain {
		for i := 0; i < d.warmup; i++ {
			s.Tick()
			d.engine.Step()
		}
	}
	d.pauser.Pause()
	events.Emit("debug", "director.paused", "", map[string]interface{}{
		"scene": s.Name(),
		"ticks": d.pauser.Remaining(),
	})
}

func (d *Director) stopScene() {
	s := d.current()
	cat := s.Descriptor().Category
	if !s.StopRun(d.counter[cat], len(d.scenes)) {
		d.regenerate()
		return
	}
	events.Emit("info", "scene.stopped", "", map[string]interface{}{
		"scene": s.Name(),
		"run":   s.Run(),
	})
	if !s.IsOver() {
		return
	}

	next := d.scenes[(d.index+1)%len(d.scenes)]
	if next.Name() != s.Name() {
		d.counter[cat] = 0
	} else {
		d.counter[cat]++
	}
	d.index++
	events.Emit("info", "scene.finished", "", map[string]interface{}{
		"scene": s.Name(),
		"index": d.index,
		"total": len(d.scenes),
	})
}

// regenerate replaces the current scene by a new one with fresh parameters,
// dropping the buffered frames and the failed output on disk.
func (d *Director) regenerate() {
	s := d.current()
	d.restarted++
	events.Emit("warn", "director.restarting", "", map[string]interface{}{
		"scene":     s.Name(),
		"index":     d.index + 1,
		"restarted": d.restarted,
	})

	d.gateway.Reset(true)
	if !d.gateway.IsDryMode() {
		subdir := s.SubDir(d.counter[s.Descriptor().Category], len(d.scenes))
		if s.IsTestScene() {
			// every run of the scene goes
			subdir = path.Dir(subdir)
		}
		dir := filepath.Join(d.gateway.OutputDir(), filepath.FromSlash(subdir))
		if err := os.RemoveAll(dir); err != nil {
			events.Emit("error", "system.error", "cannot remove failed scene output", map[string]interface{}{
				"dir":   dir,
				"error": err.Error(),
			})
		}
	}

	fresh, err := d.regen.Regenerate(s)
	if err == nil {
		err = checkSchedule(fresh, d.maxTick)
	}
	if err != nil {
		d.err = fmt.Errorf("regenerate scene %d: %w", d.index+1, err)
		d.done = true
		return
	}
	d.scenes[d.index] = fresh
}

// terminate reports the restarts and shuffles the runs of the test
// datasets.
func (d *Director) terminate() {
	fields := map[string]interface{}{
		"scenes":    len(d.scenes),
		"restarted": d.restarted,
		"captures":  d.captures,
		"elapsed_s": time.Since(d.startedAt).Seconds(),
	}
	if d.restarted > 0 && len(d.scenes) > 0 {
		fields["restarted_percent"] = 100 * d.restarted / len(d.scenes)
	}
	for _, dataset := range []scene.Category{scene.CategoryTest, scene.CategoryDev} {
		if err := d.gateway.ShufflePossibleImpossible(string(dataset)); err != nil && d.err == nil {
			d.err = fmt.Errorf("shuffle %s: %w", dataset, err)
		}
	}
	d.done = true
	events.Emit("info", "director.completed", "", fields)
}

// cancel discards the run in progress.
func (d *Director) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done || d.index >= len(d.scenes) {
		return
	}
	if d.ticker > 0 {
		d.current().Abort()
		d.gateway.Reset(true)
	}
	d.done = true
}
