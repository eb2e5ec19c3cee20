package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/IntPhysDirector/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "intphys",
		Short:         "Generate the train, test and dev scenes of the intuitive physics benchmark",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(shuffleCmd())
	rootCmd.AddCommand(duplicatesCmd())
	rootCmd.AddCommand(ledgerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error, exiting: %v\n", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [scenes-file]",
		Short: "Render the scenes described in a JSON scenes file",
		Long: `Render the scenes described in a JSON scenes file.

Without an output directory the scenes are simulated but nothing is saved
(dry mode). INTPHYS_SCENES, INTPHYS_OUTPUTDIR, INTPHYS_SEED,
INTPHYS_RESOLUTION, INTPHYS_PAUSEDURATION and INTPHYS_CONFIG provide the
defaults of the matching flags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.scenes = args[0]
			}
			opts.changed = func(name string) bool { return cmd.Flags().Changed(name) }
			return runGenerate(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.outputDir, "output-dir", "o", "", "directory where to write the generated data, dry mode if empty")
	f.BoolVarP(&opts.force, "force", "f", false, "overwrite an existing output directory")
	f.Int64VarP(&opts.seed, "seed", "s", 0, "random seed, random by default")
	f.StringVarP(&opts.resolution, "resolution", "r", "288x288", "resolution of the rendered images, <width>x<height>")
	f.IntVarP(&opts.pauseDuration, "pause-duration", "p", 50, "ticks the engine stays paused before each run")
	f.StringVarP(&opts.configPath, "config", "c", "", "generator configuration file (YAML)")
	f.IntVar(&opts.apiPort, "api-port", 0, "port of the status API, disabled if 0")
	f.StringVar(&opts.mqttBroker, "mqtt-broker", "", "MQTT broker URL, defaults to MQTT_URL")
	f.StringVar(&opts.mqttTopic, "mqtt-topic", "", "base MQTT topic for progress and events")
	f.BoolVar(&opts.ledger, "ledger", false, "record events and runs in PostgreSQL (PG* environment)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "print every event on stdout")
	return cmd
}

func validateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate [scenes-file]",
		Short: "Check a scenes file, and optionally a configuration, without rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(args[0], configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "generator configuration file (YAML)")
	return cmd
}

func schemaCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Write the JSON schemas of the scenes file and of status.json",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSchema(outDir)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "schema", "directory where to write the schemas")
	return cmd
}

func shuffleCmd() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "shuffle [dataset-dir]",
		Short: "Shuffle the possible and impossible runs of a test or dev dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShuffle(args[0], seed, cmd.Flags().Changed("seed"))
		},
	}

	cmd.Flags().Int64VarP(&seed, "seed", "s", 0, "random seed, random by default")
	return cmd
}

func duplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates [output-dir]",
		Short: "List the scenes generated twice with the same parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			n, err := reportDuplicates(args[0])
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("no duplicated scenes")
			}
			return nil
		},
	}
}

func ledgerCmd() *cobra.Command {
	var limit int
	var withEvents bool

	cmd := &cobra.Command{
		Use:   "ledger [output-dir]",
		Short: "List the runs recorded in PostgreSQL for a dataset",
		Long: `List the runs recorded in PostgreSQL by "run --ledger", newest first.

The dataset is the absolute output directory of the run, or the dry runs when
no directory is given. The database is located by the PG* environment.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dataset := ""
			if len(args) == 1 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				dataset = abs
			}
			client, err := openLedger(dataset)
			if err != nil {
				return err
			}
			defer client.Close()
			return printLedger(os.Stdout, client, limit, withEvents)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of rows to list")
	cmd.Flags().BoolVar(&withEvents, "events", false, "list the recorded events as well")
	return cmd
}
