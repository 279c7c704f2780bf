package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/nestcv/dataset"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

func newSynthCmd() *cobra.Command {
	var (
		spec dataset.SyntheticSpec
		out  string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a synthetic two-class dataset for smoke runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.Synthetic(spec)
			if err != nil {
				return err
			}
			if err := writeDataset(ds, out); err != nil {
				return err
			}
			neg, pos := ds.ClassCounts()
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d samples (%d negative, %d positive), %d features\n",
				out, ds.Len(), neg, pos, ds.NFeatures())
			return nil
		},
	}

	cmd.Flags().IntVar(&spec.NNegative, "negatives", 50, "Number of negative (control) samples")
	cmd.Flags().IntVar(&spec.NPositive, "positives", 50, "Number of positive (patient) samples")
	cmd.Flags().IntVar(&spec.NFeatures, "features", 5, "Number of features")
	cmd.Flags().Float64Var(&spec.Separation, "separation", 1.0, "Mean shift of positive-class features")
	cmd.Flags().Uint64Var(&spec.Seed, "seed", 0, "Random seed")
	cmd.Flags().StringVar(&spec.Covariate, "covariate", "", "Add a scaling covariate column with this name")
	cmd.Flags().StringVarP(&out, "out", "o", "synthetic.csv", "Output path (.csv or .xlsx)")

	return cmd
}

func writeDataset(ds *dataset.Dataset, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ds.WriteXLSX(path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := ds.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
