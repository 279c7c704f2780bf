package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/evaluation"
)

func newValidateCmd(global *globalOpts) *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the config and that the dataset can be split as configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global, func(c *config.Config) {
				if dataPath != "" {
					c.Data.Path = dataPath
				}
			})
			if err != nil {
				return err
			}
			ds, err := loadDataset(cfg)
			if err != nil {
				return err
			}
			if cfg.Data.NormalizeBy != "" {
				if ds, err = ds.NormalizeBy(cfg.Data.NormalizeBy); err != nil {
					return err
				}
			}
			if _, err := evaluation.OuterFolds(cfg, ds.Labels()); err != nil {
				return err
			}

			neg, pos := ds.ClassCounts()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config ok: %d repetitions x %d outer x %d inner folds, %d candidates, scoring %s\n",
				cfg.NRepetitions, cfg.NOuterFolds, cfg.NInnerFolds, len(cfg.HyperparameterCandidates), cfg.ScoringRule)
			fmt.Fprintf(out, "dataset ok: %d samples (%d negative, %d positive), %d features\n",
				ds.Len(), neg, pos, ds.NFeatures())
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "Dataset path; overrides data.path")
	return cmd
}
