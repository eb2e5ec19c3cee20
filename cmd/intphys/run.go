package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/AaronLay10/IntPhysDirector/internal/api"
	"github.com/AaronLay10/IntPhysDirector/internal/capture"
	"github.com/AaronLay10/IntPhysDirector/internal/config"
	"github.com/AaronLay10/IntPhysDirector/internal/director"
	"github.com/AaronLay10/IntPhysDirector/internal/events"
	"github.com/AaronLay10/IntPhysDirector/internal/mqtt"
	"github.com/AaronLay10/IntPhysDirector/internal/scenario"
	"github.com/AaronLay10/IntPhysDirector/internal/scene"
	"github.com/AaronLay10/IntPhysDirector/internal/sim"
	"github.com/AaronLay10/IntPhysDirector/internal/storage/postgres"
	"github.com/AaronLay10/IntPhysDirector/internal/version"
)

type runOptions struct {
	scenes        string
	outputDir     string
	force         bool
	seed          int64
	resolution    string
	pauseDuration int
	configPath    string
	apiPort       int
	mqttBroker    string
	mqttTopic     string
	ledger        bool
	verbose       bool

	// changed reports whether a flag was given on the command line.
	changed func(name string) bool
}

// settings are the resolved run parameters.
type settings struct {
	scenes     string
	outputDir  string
	configPath string
	seed       int64
	cfg        *config.GeneratorConfig
}

// resolve merges, by increasing priority, the defaults, the configuration
// file, the INTPHYS_* environment and the command line flags.
func resolve(opts runOptions) (settings, error) {
	rc, err := config.FromEnv()
	if err != nil {
		return settings{}, err
	}
	changed := opts.changed
	if changed == nil {
		changed = func(string) bool { return false }
	}

	if opts.scenes != "" {
		rc.Scenes = opts.scenes
	}
	if changed("output-dir") {
		rc.OutputDir = opts.outputDir
	}
	if changed("config") {
		rc.ConfigPath = opts.configPath
	}
	if changed("seed") {
		rc.Seed, rc.HasSeed = opts.seed, true
	}
	if changed("resolution") {
		res, err := config.ParseResolution(opts.resolution)
		if err != nil {
			return settings{}, err
		}
		rc.Resolution = &res
	}
	if changed("pause-duration") {
		if opts.pauseDuration < 0 {
			return settings{}, fmt.Errorf("pause duration must be non-negative, it is %d", opts.pauseDuration)
		}
		rc.PauseDuration = opts.pauseDuration
	}
	if rc.Scenes == "" {
		return settings{}, errors.New("no scenes file given, as argument or in INTPHYS_SCENES")
	}

	cfg := config.DefaultGeneratorConfig()
	if rc.ConfigPath != "" {
		if cfg, err = config.LoadGeneratorConfig(rc.ConfigPath); err != nil {
			return settings{}, err
		}
	}
	rc.Apply(cfg)
	if changed("api-port") {
		cfg.Network.APIPort = opts.apiPort
	}
	if changed("mqtt-broker") {
		cfg.Network.MQTTBroker = opts.mqttBroker
	}
	if changed("mqtt-topic") {
		cfg.Network.MQTTTopic = opts.mqttTopic
	}
	if err := cfg.Validate(); err != nil {
		return settings{}, err
	}

	s := settings{scenes: rc.Scenes, configPath: rc.ConfigPath, seed: rc.Seed, cfg: cfg}
	if !rc.HasSeed {
		s.seed = time.Now().UnixNano()
	}
	if rc.OutputDir != "" {
		if s.outputDir, err = filepath.Abs(rc.OutputDir); err != nil {
			return settings{}, err
		}
	}
	return s, nil
}

// prepareOutputDir creates dir. An existing dir is an error unless force
// is set, in which case it is removed first.
func prepareOutputDir(dir string, force bool) error {
	if _, err := os.Stat(dir); err == nil {
		if !force {
			return fmt.Errorf("existing output directory %s, use --force to overwrite it", dir)
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

func runGenerate(parent context.Context, opts runOptions) error {
	if opts.verbose {
		events.SetOutput(os.Stdout)
	}

	s, err := resolve(opts)
	if err != nil {
		events.Emit("error", "config.error", err.Error(), nil)
		return err
	}
	if s.outputDir != "" {
		if err := prepareOutputDir(s.outputDir, opts.force); err != nil {
			return err
		}
	}

	cfg := s.cfg
	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "intphys starting", map[string]interface{}{
		"version":    version.Version,
		"hostname":   hostname,
		"pid":        os.Getpid(),
		"scenes":     s.scenes,
		"output_dir": s.outputDir,
		"seed":       s.seed,
		"resolution": cfg.Director.Resolution.String(),
	})

	saver := capture.NewSaver(capture.Options{
		OutputDir: s.outputDir,
		Width:     cfg.Director.Resolution.Width,
		Height:    cfg.Director.Resolution.Height,
		Frames:    cfg.Director.FramesPerScene,
		Seed:      s.seed,
	})

	if opts.ledger {
		client, err := openLedger(s.outputDir)
		if err != nil {
			events.Emit("error", "system.error", "run ledger unavailable", map[string]interface{}{"error": err.Error()})
			return err
		}
		defer client.Close()
		events.SetPostgresClient(client)
		defer events.SetPostgresClient(nil)
		saver.SetLedger(client)
		api.SetPostgresState(true, false)
	}

	world := sim.NewWorld(cfg.Sim)
	builder := scenario.NewBuilder(cfg.Scenarios, cfg.Materials, rand.New(rand.NewSource(s.seed)))
	factory := scene.NewFactory(scene.Env{Runtime: world, Gateway: saver, Builder: builder})

	scenes, err := factory.ParseFile(s.scenes)
	if err != nil {
		events.Emit("error", "config.error", err.Error(), map[string]interface{}{"scenes": s.scenes})
		return err
	}
	events.Emit("info", "config.loaded", "", map[string]interface{}{
		"scenes": len(scenes),
		"config": s.configPath,
	})

	d, err := director.New(world, saver, factory, scenes, director.Options{
		Frames:        cfg.Director.FramesPerScene,
		PauseDuration: cfg.Director.PauseDuration,
		WarmupTicks:   cfg.Director.WarmupTicks,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer events.CloseAllSubscribers()

	var mqttUp api.Reachable
	if cfg.Network.MQTTBroker != "" || os.Getenv("MQTT_URL") != "" {
		client := mqtt.NewClient(cfg.Network.MQTTBroker, "intphys-"+hostname, mqtt.StatusTopic(cfg.Network.MQTTTopic))
		api.SetMQTTState(client.Start(), true)
		defer client.Disconnect()
		mqttUp = client.IsConnected

		publisher := mqtt.NewPublisher(client, cfg.Network.MQTTTopic, d, 2*time.Second)
		publisher.Start()
		defer publisher.Stop()

		control := mqtt.NewControl()
		control.Handle("stop", func(mqtt.ControlCommand) { cancel() })
		if err := control.Listen(client, cfg.Network.MQTTTopic); err != nil {
			log.Printf("mqtt: control topic unavailable: %v", err)
		}
	}

	monitorStop := make(chan struct{})
	defer close(monitorStop)
	api.InitAlerts()
	if cfg.Network.APIPort > 0 {
		if err := api.InitAuth(); err != nil {
			return err
		}
		api.InitTLS()
		api.InitMetrics()
		api.SetDataset(s.outputDir)
		api.SetProgressSource(d)
		api.SetStopFunc(func(string) { cancel() })
		api.Start(cfg.Network.APIPort)
	}
	if cfg.Network.APIPort > 0 || api.GetAlertWebhookURL() != "" {
		var pgUp api.Reachable
		if client := events.GetPostgresClient(); client != nil {
			pgUp = func() bool { return client.Ping() == nil }
		}
		api.StartAlertMonitor(10*time.Second, monitorStop, mqttUp, pgUp)
	}
	api.SetDirectorReady(true)
	defer api.SetDirectorReady(false)

	start := time.Now()
	runErr := d.Run(ctx)
	p := d.Progress()

	fields := map[string]interface{}{
		"scenes":    p.Index,
		"total":     p.Total,
		"restarted": p.Restarted,
		"elapsed_s": time.Since(start).Seconds(),
	}
	switch {
	case runErr != nil:
		events.Emit("warn", "system.shutdown", "generation stopped", fields)
		return fmt.Errorf("generation stopped after %d/%d scenes: %w", p.Index, p.Total, runErr)
	case d.Err() != nil:
		events.Emit("error", "system.error", d.Err().Error(), fields)
		return d.Err()
	}

	if s.outputDir != "" {
		if _, err := reportDuplicates(s.outputDir); err != nil {
			log.Printf("duplicates check failed: %v", err)
		}
	}
	events.Emit("info", "system.shutdown", "generation completed", fields)
	fmt.Printf("generated %d scenes in %s (%d restarted)\n", p.Total, time.Since(start).Round(time.Second), p.Restarted)
	return nil
}

func openLedger(dataset string) (*postgres.Client, error) {
	password, err := config.ResolveSecret("PGPASSWORD")
	if err != nil {
		return nil, err
	}
	if dataset == "" {
		dataset = "dry-run"
	}
	return postgres.New(postgres.Options{Password: password, Dataset: dataset})
}

// ledgerReader is the read side of the run ledger. *postgres.Client
// implements it.
type ledgerReader interface {
	QueryRuns(limit int) ([]postgres.RunRow, error)
	Query(limit int) ([]postgres.EventRow, error)
}

func printLedger(w io.Writer, r ledgerReader, limit int, withEvents bool) error {
	runs, err := r.QueryRuns(limit)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	saved := 0
	for _, run := range runs {
		state := "saved"
		if !run.Saved {
			state = "FAILED"
		} else {
			saved++
		}
		fmt.Fprintf(w, "%s  %-6s %-8s %-24s possible=%-5t frames=%d  %s\n",
			run.Timestamp.Format(time.RFC3339), state, run.Category, run.Block, run.IsPossible, run.Frames, run.Subdir)
	}
	fmt.Fprintf(w, "%d runs, %d saved\n", len(runs), saved)

	if !withEvents {
		return nil
	}
	rows, err := r.Query(limit)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	for _, e := range rows {
		msg := ""
		if e.Message != nil {
			msg = *e.Message
		}
		fmt.Fprintf(w, "%s  %-5s %-24s %s\n", e.Timestamp.Format(time.RFC3339), e.Level, e.Event, msg)
	}
	return nil
}

func runValidate(path, configPath string) error {
	if configPath != "" {
		if _, err := config.LoadGeneratorConfig(configPath); err != nil {
			return err
		}
		fmt.Printf("%s: ok\n", configPath)
	}

	descs, err := scene.ParseSpecFile(path)
	if err != nil {
		return err
	}
	summary := scene.Summary(descs)
	fmt.Printf("%s: %d scenes\n", path, len(descs))
	for _, c := range scene.SortedCategories(summary) {
		fmt.Printf("  %-8s %d\n", c, summary[c])
	}
	return nil
}

func runShuffle(dir string, seed int64, hasSeed bool) error {
	if !hasSeed {
		seed = time.Now().UnixNano()
	}
	n, err := capture.Shuffle(dir, rand.New(rand.NewSource(seed)))
	if err != nil {
		events.Emit("error", "dataset.shuffle_failed", err.Error(), map[string]interface{}{"dataset": dir})
		return err
	}
	events.Emit("info", "dataset.shuffled", "", map[string]interface{}{"dataset": dir, "scenes": n, "seed": seed})
	fmt.Printf("shuffled %d scenes in %s\n", n, dir)
	return nil
}

// reportDuplicates prints the scenes sharing their parameters and returns
// their number.
func reportDuplicates(dir string) (int, error) {
	dups, err := capture.FindDuplicates(dir)
	if err != nil {
		return 0, err
	}
	if len(dups) == 0 {
		return 0, nil
	}
	fmt.Printf("WARNING: found %d duplicated scenes, the following scenes are the same:\n", len(dups))
	for _, dup := range dups {
		fmt.Printf("%s  ==  %s\n", dup.A, dup.B)
		events.Emit("warn", "dataset.duplicated", "", map[string]interface{}{"scene": dup.A, "duplicate": dup.B})
	}
	return len(dups), nil
}
