package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/dataset"
	"github.com/YuminosukeSato/nestcv/evaluation"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
	"github.com/YuminosukeSato/nestcv/report"
)

type runOpts struct {
	dataPath    string
	outputDir   string
	format      string
	seed        uint64
	workers     int
	repetitions int
	noPlot      bool
}

func newRunCmd(global *globalOpts) *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run repeated nested cross-validation and write the artifacts",
		Long: `Loads the dataset, evaluates every (repetition, outer fold) and writes the
prediction table, the JSON summary and the AUC box plot into a run directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg, err := loadConfig(global, func(c *config.Config) {
				if opts.dataPath != "" {
					c.Data.Path = opts.dataPath
				}
				if opts.outputDir != "" {
					c.Output.Dir = opts.outputDir
				}
				if opts.format != "" {
					c.Output.PredictionsFormat = opts.format
				}
				if flags.Changed("seed") {
					c.Seed = opts.seed
				}
				if flags.Changed("workers") {
					c.Workers = opts.workers
				}
				if flags.Changed("repetitions") {
					c.NRepetitions = opts.repetitions
				}
				if opts.noPlot {
					c.Output.Plot = false
				}
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runEvaluation(ctx, cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.dataPath, "data", "", "Dataset path (.csv, .tsv or .xlsx); overrides data.path")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Artifact directory; overrides output.dir")
	cmd.Flags().StringVar(&opts.format, "format", "", "Predictions format: csv or xlsx")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Base random seed")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent outer-fold tasks (0 = one per CPU)")
	cmd.Flags().IntVar(&opts.repetitions, "repetitions", 10, "Number of repetitions")
	cmd.Flags().BoolVar(&opts.noPlot, "no-plot", false, "Skip the AUC box plot")

	return cmd
}

func loadDataset(cfg *config.Config) (*dataset.Dataset, error) {
	if cfg.Data.Path == "" {
		return nil, errors.NewConfigurationError("data.path", "no dataset given; set data.path or --data", "")
	}
	return dataset.Load(cfg.Data.Path, cfg.Data.TableSpec)
}

func runEvaluation(ctx context.Context, cfg *config.Config, out io.Writer) error {
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}

	runner := evaluation.NewRunner(cfg, evaluation.WithLogger(log.GetLogger()))
	res, err := runner.Run(ctx, ds)
	if err != nil {
		return err
	}

	artifacts, err := report.Write(res, cfg)
	if err != nil {
		return err
	}

	printSummary(out, res)
	fmt.Fprintf(out, "\nArtifacts written to %s\n", artifacts.Dir)
	return nil
}

func printSummary(out io.Writer, res *evaluation.Result) {
	s := res.Summary
	fmt.Fprintf(out, "Run %s: %d samples, %d features\n\n", res.RunID, res.NSamples, res.NFeatures)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPETITION\tFOLD\tAUC\tSELECTED C")
	for _, fs := range s.Scores {
		fmt.Fprintf(tw, "%d\t%d\t%.4f\t%g\n", fs.Repetition, fs.Fold, fs.AUC, fs.SelectedC)
	}
	tw.Flush()

	fmt.Fprintf(out, "\nAUC mean %.4f, std %.4f (min %.4f, max %.4f)\n", s.Mean, s.Std, s.Min, s.Max)
}
