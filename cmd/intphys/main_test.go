package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AaronLay10/IntPhysDirector/internal/storage/postgres"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"INTPHYS_SCENES", "INTPHYS_OUTPUTDIR", "INTPHYS_SEED", "INTPHYS_RESOLUTION",
		"INTPHYS_PAUSEDURATION", "INTPHYS_CONFIG", "MQTT_URL", "INTPHYS_ALERT_WEBHOOK_URL",
	} {
		t.Setenv(name, "")
	}
}

func flagsSet(names ...string) func(string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("INTPHYS_SCENES", "env.json")
	t.Setenv("INTPHYS_SEED", "7")
	t.Setenv("INTPHYS_RESOLUTION", "64x64")

	s, err := resolve(runOptions{
		seed:       11,
		resolution: "128x96",
		apiPort:    8080,
		changed:    flagsSet("seed", "resolution", "api-port"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.scenes != "env.json" || s.seed != 11 {
		t.Errorf("settings: %+v", s)
	}
	if s.cfg.Director.Resolution.Width != 128 || s.cfg.Director.Resolution.Height != 96 {
		t.Errorf("resolution: %v", s.cfg.Director.Resolution)
	}
	if s.cfg.Network.APIPort != 8080 || s.cfg.Director.PauseDuration != 50 {
		t.Errorf("config: %+v %+v", s.cfg.Network, s.cfg.Director)
	}
	if s.outputDir != "" {
		t.Errorf("expected dry mode, got %q", s.outputDir)
	}
}

func TestResolveUsesEnvWhenFlagsUnset(t *testing.T) {
	clearEnv(t)
	t.Setenv("INTPHYS_SEED", "7")
	t.Setenv("INTPHYS_PAUSEDURATION", "3")
	t.Setenv("INTPHYS_OUTPUTDIR", "out")

	s, err := resolve(runOptions{scenes: "arg.json", seed: 11, pauseDuration: 50})
	if err != nil {
		t.Fatal(err)
	}
	if s.scenes != "arg.json" || s.seed != 7 || s.cfg.Director.PauseDuration != 3 {
		t.Errorf("settings: %+v", s)
	}
	if !filepath.IsAbs(s.outputDir) || filepath.Base(s.outputDir) != "out" {
		t.Errorf("output dir: %q", s.outputDir)
	}
}

func TestResolveErrors(t *testing.T) {
	clearEnv(t)
	if _, err := resolve(runOptions{}); err == nil {
		t.Error("expected an error without scenes file")
	}
	if _, err := resolve(runOptions{scenes: "s.json", resolution: "big", changed: flagsSet("resolution")}); err == nil {
		t.Error("expected an error for a bad resolution")
	}
	if _, err := resolve(runOptions{scenes: "s.json", pauseDuration: -1, changed: flagsSet("pause-duration")}); err == nil {
		t.Error("expected an error for a negative pause")
	}
	if _, err := resolve(runOptions{scenes: "s.json", configPath: "missing.yaml", changed: flagsSet("config")}); err == nil {
		t.Error("expected an error for a missing config")
	}
}

func TestPrepareOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	if err := prepareOutputDir(dir, false); err != nil {
		t.Fatalf("create: %v", err)
	}
	writeFile(t, dir, "old", "x")

	if err := prepareOutputDir(dir, false); err == nil {
		t.Fatal("expected an error on an existing directory")
	}
	if err := prepareOutputDir(dir, true); err != nil {
		t.Fatalf("force: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "old")); !os.IsNotExist(err) {
		t.Error("force did not clear the directory")
	}
}

func TestBuildSchemas(t *testing.T) {
	schemas := buildSchemas()
	b, err := json.Marshal(schemas["scenes.schema.json"])
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Title      string                     `json:"title"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"train", "sandbox", "test", "dev"} {
		if _, ok := doc.Properties[key]; !ok {
			t.Errorf("scenes schema misses %q: %s", key, b)
		}
	}
	if doc.Title == "" {
		t.Error("missing title")
	}

	dir := t.TempDir()
	if err := runSchema(dir); err != nil {
		t.Fatal(err)
	}
	for name := range schemas {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", `{"train": 2, "test": {"O1": {"visible": {"static": 1}}}}`)
	bad := writeFile(t, dir, "bad.json", `{"test": {"O7": {"visible": {"static": 1}}}}`)

	if err := runValidate(good, ""); err != nil {
		t.Errorf("good: %v", err)
	}
	if err := runValidate(bad, ""); err == nil {
		t.Error("expected an error for an unknown scenario")
	}
}

func TestRunGenerateTrainScene(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	scenes := writeFile(t, dir, "scenes.json", `{"train": 1}`)
	out := filepath.Join(dir, "out")

	opts := runOptions{
		scenes:        scenes,
		outputDir:     out,
		seed:          3,
		pauseDuration: 2,
		changed:       flagsSet("output-dir", "seed", "pause-duration"),
	}
	if err := runGenerate(context.Background(), opts); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "train", "1", "status.json")); err != nil {
		t.Errorf("train run not saved: %v", err)
	}

	// a second run refuses to overwrite the dataset
	if err := runGenerate(context.Background(), opts); err == nil {
		t.Error("expected an error on an existing output directory")
	}
}

func TestRunGenerateStopsOnCancel(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	scenes := writeFile(t, dir, "scenes.json", `{"train": 3}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runGenerate(ctx, runOptions{scenes: scenes, changed: flagsSet()})
	if err == nil {
		t.Fatal("expected the run to stop")
	}
}

type fakeLedger struct {
	runs      []postgres.RunRow
	events    []postgres.EventRow
	err       error
	lastLimit int
}

func (f *fakeLedger) QueryRuns(limit int) ([]postgres.RunRow, error) {
	f.lastLimit = limit
	return f.runs, f.err
}

func (f *fakeLedger) Query(limit int) ([]postgres.EventRow, error) {
	return f.events, f.err
}

func TestPrintLedger(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := "save failed"
	ledger := &fakeLedger{
		runs: []postgres.RunRow{
			{Timestamp: ts, Subdir: "test/O1/1/3", Block: "O1", Category: "test", Frames: 100, Saved: false},
			{Timestamp: ts, Subdir: "train/1", Block: "train", Category: "train", IsPossible: true, Frames: 100, Saved: true},
		},
		events: []postgres.EventRow{{Timestamp: ts, Level: "warn", Event: "run.save_failed", Message: &msg}},
	}

	var buf bytes.Buffer
	if err := printLedger(&buf, ledger, 10, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if ledger.lastLimit != 10 {
		t.Errorf("limit: %d", ledger.lastLimit)
	}
	for _, want := range []string{"FAILED", "test/O1/1/3", "train/1", "2 runs, 1 saved"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "run.save_failed") {
		t.Error("events listed without --events")
	}

	buf.Reset()
	if err := printLedger(&buf, ledger, 10, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "run.save_failed") || !strings.Contains(buf.String(), msg) {
		t.Errorf("events missing:\n%s", buf.String())
	}

	if err := printLedger(&buf, &fakeLedger{err: errors.New("down")}, 10, false); err == nil {
		t.Error("expected the query error")
	}
}
