package report

import (
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/evaluation"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Artifact file names inside a run directory.
const (
	PredictionsBase = "predictions"
	SummaryFile     = "summary.json"
	PlotFile        = "auc_boxplot.png"
)

// Artifacts lists the files written for one run. Plot is empty when plotting
// is disabled.
type Artifacts struct {
	Dir         string
	Predictions string
	Summary     string
	Plot        string
}

// Write stores all artifacts of res under <output.dir>/<run id>/.
func Write(res *evaluation.Result, cfg *config.Config) (*Artifacts, error) {
	dir := filepath.Join(cfg.Output.Dir, res.RunID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}
	a := &Artifacts{
		Dir:     dir,
		Summary: filepath.Join(dir, SummaryFile),
	}

	switch cfg.Output.PredictionsFormat {
	case "xlsx":
		a.Predictions = filepath.Join(dir, PredictionsBase+".xlsx")
		if err := WritePredictionsXLSX(a.Predictions, res.Predictions); err != nil {
			return nil, err
		}
	default:
		a.Predictions = filepath.Join(dir, PredictionsBase+".csv")
		if err := writeFile(a.Predictions, func(f *os.File) error {
			return WritePredictionsCSV(f, res.Predictions)
		}); err != nil {
			return nil, err
		}
	}

	doc := NewSummaryDocument(res, cfg)
	if err := writeFile(a.Summary, func(f *os.File) error {
		return WriteSummaryJSON(f, doc)
	}); err != nil {
		return nil, err
	}

	if cfg.Output.Plot {
		a.Plot = filepath.Join(dir, PlotFile)
		if err := writeFile(a.Plot, func(f *os.File) error {
			return WriteAUCPlot(f, res.Summary)
		}); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func writeFile(path string, fn func(*os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return fn(f)
}
