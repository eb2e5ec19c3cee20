package capture

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/AaronLay10/IntPhysDirector/internal/events"
	"github.com/AaronLay10/IntPhysDirector/internal/storage/postgres"
	"github.com/zyedidia/generic/mapset"
)

// StatusFile is the name of the run status written by Save.
const StatusFile = "status.json"

// Options configures a Saver.
type Options struct {
	// OutputDir is the dataset root. Empty means dry mode: nothing is
	// buffered nor written.
	OutputDir string
	Width     int
	Height    int
	Frames    int
	Seed      int64
}

// Status is the content of status.json.
type Status struct {
	Header map[string]interface{}   `json:"header"`
	Frames []map[string]interface{} `json:"frames"`
}

var _ Gateway = (*Saver)(nil)

// Saver is the file system Gateway.
type Saver struct {
	opts   Options
	rng    *rand.Rand
	camera StatusProvider
	ledger Ledger

	header  map[string]interface{}
	frames  []map[string]interface{}
	visible [][]string
	partial string
}

// NewSaver creates a saver. The shuffle of the test datasets draws from its
// own RNG seeded with opts.Seed.
func NewSaver(opts Options) *Saver {
	return &Saver{
		opts:   opts,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		header: map[string]interface{}{},
	}
}

// SetCamera sets the camera whose status completes every header.
func (s *Saver) SetCamera(c StatusProvider) {
	s.camera = c
}

// SetLedger makes Save record every run.
func (s *Saver) SetLedger(l Ledger) {
	s.ledger = l
}

func (s *Saver) IsDryMode() bool {
	return s.opts.OutputDir == ""
}

func (s *Saver) OutputDir() string {
	return s.opts.OutputDir
}

// Frames returns the number of buffered frames.
func (s *Saver) Frames() int {
	return len(s.frames)
}

func (s *Saver) SetHeader(header map[string]interface{}) {
	if header == nil {
		header = map[string]interface{}{}
	}
	s.header = header
	if s.camera != nil {
		s.header["camera"] = s.camera.Status()
	}
}

func (s *Saver) Capture(ignored []string, status map[string]interface{}) {
	if s.IsDryMode() {
		return
	}
	skip := mapset.New[string]()
	for _, name := range ignored {
		skip.Put(name)
	}
	var visible []string
	for name := range status {
		if !skip.Has(name) {
			visible = append(visible, name)
		}
	}
	s.frames = append(s.frames, status)
	s.visible = append(s.visible, visible)
}

func (s *Saver) Reset(clearDisk bool) {
	if s.IsDryMode() {
		return
	}
	s.header = map[string]interface{}{}
	s.frames = nil
	s.visible = nil
	if clearDisk && s.partial != "" {
		if err := os.RemoveAll(s.partial); err != nil {
			events.Emit("error", "system.error", err.Error(), map[string]interface{}{
				"dir": s.partial,
			})
		}
		s.partial = ""
	}
}

func (s *Saver) Save(subdir string) bool {
	if s.IsDryMode() {
		return true
	}
	dir := filepath.Join(s.opts.OutputDir, subdir)
	err := s.write(dir)
	s.record(subdir, err == nil)
	if err != nil {
		s.partial = dir
		events.Emit("warn", "run.save_failed", err.Error(), map[string]interface{}{
			"subdir": subdir,
		})
		return false
	}
	s.partial = ""
	events.Emit("info", "run.saved", "", map[string]interface{}{
		"subdir": subdir,
		"frames": len(s.frames),
	})
	return true
}

func (s *Saver) write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	b, err := json.MarshalIndent(s.status(), "", "    ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, StatusFile), b, 0o644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}

// status builds the saved document: actor names are the status keys, so
// the "name" entries are dropped, and each frame gets its masks.
func (s *Saver) status() Status {
	header := make(map[string]interface{}, len(s.header))
	for k, v := range s.header {
		header[k] = withoutName(v)
	}
	levels := s.maskLevels()
	frames := make([]map[string]interface{}, len(s.frames))
	for i, f := range s.frames {
		frame := make(map[string]interface{}, len(f)+1)
		for k, v := range f {
			frame[k] = withoutName(v)
		}
		masks := map[string]int{}
		for _, name := range s.visible[i] {
			masks[name] = levels[name]
		}
		frame["masks"] = masks
		frames[i] = frame
	}
	return Status{Header: header, Frames: frames}
}

// maskLevels spreads one gray level per actor seen in the run over
// [1,255], in name order so that levels are stable along the run.
func (s *Saver) maskLevels() map[string]int {
	seen := mapset.New[string]()
	for _, names := range s.visible {
		for _, n := range names {
			seen.Put(n)
		}
	}
	var names []string
	seen.Each(func(n string) {
		names = append(names, n)
	})
	sort.Strings(names)
	levels := make(map[string]int, len(names))
	for i, n := range names {
		levels[n] = 255 * (i + 1) / len(names)
	}
	return levels
}

func withoutName(v interface{}) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	if _, ok := m["name"]; !ok {
		return m
	}
	out := make(map[string]interface{}, len(m)-1)
	for k, val := range m {
		if k != "name" {
			out[k] = val
		}
	}
	return out
}

func (s *Saver) record(subdir string, saved bool) {
	if s.ledger == nil {
		return
	}
	row := postgres.RunRow{
		Subdir: subdir,
		Frames: len(s.frames),
		Saved:  saved,
	}
	row.Block, _ = s.header["block_name"].(string)
	row.Category, _ = s.header["block_type"].(string)
	row.IsPossible, _ = s.header["is_possible"].(bool)
	if err := s.ledger.RecordRun(row); err != nil {
		events.Emit("error", "system.error", "run ledger failed", map[string]interface{}{
			"error":  err.Error(),
			"subdir": subdir,
		})
	}
}

func (s *Saver) ShufflePossibleImpossible(dataset string) error {
	if s.IsDryMode() {
		return nil
	}
	n, err := Shuffle(filepath.Join(s.opts.OutputDir, dataset), s.rng)
	if err != nil {
		events.Emit("error", "dataset.shuffle_failed", err.Error(), map[string]interface{}{
			"dataset": dataset,
		})
		return err
	}
	if n > 0 {
		events.Emit("info", "dataset.shuffled", "", map[string]interface{}{
			"dataset": dataset,
			"scenes":  n,
		})
	}
	return nil
}
