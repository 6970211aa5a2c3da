package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// rootOptions carries the flag values shared by every command.
type rootOptions struct {
	configPath   string
	input        string
	outputDir    string
	modelPath    string
	retrain      bool
	createSample bool
	verbose      bool

	logger *zap.Logger
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tpdm-automation",
		Short: "Classify delegate comments and split workbook rows by predicted action",
		Long: `tpdm-automation reads every sheet of an input workbook, predicts an action
(ADD, UPDATE, TERM or OTHER) for each row from its "Delegate Comments" cell and
writes one workbook per predicted action.

The classifier is loaded from the model path, or trained from the embedded seed
corpus and saved there when no model exists yet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logger != nil {
				return nil
			}
			config := zap.NewProductionConfig()
			if opts.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.logger = logger.With(zap.String("service", "tpdm-automation"))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (or set TPDM_CONFIG)")
	flags.StringVarP(&opts.input, "input", "i", "", "Input workbook (default ./TestData/input.xlsx)")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for per-action workbooks (default ./Output)")
	flags.StringVarP(&opts.modelPath, "model", "m", "", "Classifier artifact (default ./MLModels/comment_classifier.bin)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.Flags().BoolVar(&opts.retrain, "retrain", false, "Retrain the classifier even when a model exists")
	cmd.Flags().BoolVar(&opts.createSample, "create-sample", false, "Create a sample input workbook when the input is missing")

	cmd.AddCommand(
		newSampleCmd(opts),
		newTrainCmd(opts),
		newPredictCmd(opts),
	)
	return cmd
}

// config resolves the layered configuration; explicitly set flags win.
func (o *rootOptions) config(cmd *cobra.Command) (*Config, error) {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputPath = o.input
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = o.outputDir
	}
	if flags.Changed("model") {
		cfg.ModelPath = o.modelPath
	}
	if flags.Changed("retrain") {
		cfg.Retrain = o.retrain
	}
	if flags.Changed("create-sample") {
		cfg.CreateSample = o.createSample
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.config(cmd)
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, cfg, opts.logger)
	if err != nil {
		return err
	}
	defer p.Close()

	report, err := p.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSummary(out, report)
	fmt.Fprintf(out, "Output files created in: %s\n", cfg.OutputDir)
	return nil
}

func newSampleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sample [path]",
		Short: "Write the two-sheet sample input workbook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			path := cfg.InputPath
			if len(args) == 1 {
				path = args[0]
			}

			if err := writeSampleWorkbook(path); err != nil {
				return fmt.Errorf("%w: failed to create sample input: %w", ErrOutputUnwritable, err)
			}
			opts.logger.Info("Created sample input workbook", zap.String("path", path))
			fmt.Fprintf(cmd.OutOrStdout(), "Sample file created: %s\n", path)
			return nil
		},
	}
}

func newTrainCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train the classifier from the seed corpus and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			cfg.Retrain = true

			p, err := newPipeline(cmd.Context(), cfg, opts.logger)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.prepareDirs(); err != nil {
				return err
			}
			model, err := p.trainModel(cmd.Context(), opts.logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Model trained on %d labels and saved to %s\n", len(model.Labels), cfg.ModelPath)
			return nil
		},
	}
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "predict <comment>...",
		Short: "Predict the action for one or more comments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}

			p, err := newPipeline(cmd.Context(), cfg, opts.logger)
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.prepareDirs(); err != nil {
				return err
			}
			model, err := p.loadModel(cmd.Context(), opts.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, comment := range args {
				fmt.Fprintf(out, "%s\t%s\n", model.Predict(comment), comment)
			}
			return nil
		},
	}
}

func main() {
	opts := &rootOptions{}
	err := newRootCmd(opts).Execute()

	switch {
	case err == nil:
	case errors.Is(err, errNoRows):
		fmt.Fprintln(os.Stdout, "No data found in input workbook.")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	if opts.logger != nil {
		_ = opts.logger.Sync()
	}
	os.Exit(exitCode(err))
}
