package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/nestcv/evaluation"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// AUCPlot draws one box per repetition and a final box over all folds.
func AUCPlot(summary *evaluation.Summary) (*plot.Plot, error) {
	if summary == nil || len(summary.Scores) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "AUCPlot")
	}

	byRep := make(map[int]plotter.Values)
	var reps []int
	all := make(plotter.Values, 0, len(summary.Scores))
	for _, fs := range summary.Scores {
		if _, ok := byRep[fs.Repetition]; !ok {
			reps = append(reps, fs.Repetition)
		}
		byRep[fs.Repetition] = append(byRep[fs.Repetition], fs.AUC)
		all = append(all, fs.AUC)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Outer-fold AUC (mean %.3f, std %.3f)", summary.Mean, summary.Std)
	p.Y.Label.Text = "AUC"
	p.Y.Min = 0
	p.Y.Max = 1

	names := make([]string, 0, len(reps)+1)
	width := vg.Points(18)
	for i, rep := range reps {
		box, err := plotter.NewBoxPlot(width, float64(i), byRep[rep])
		if err != nil {
			return nil, errors.Wrapf(err, "box plot repetition %d", rep)
		}
		p.Add(box)
		names = append(names, fmt.Sprintf("rep %02d", rep))
	}
	box, err := plotter.NewBoxPlot(width, float64(len(reps)), all)
	if err != nil {
		return nil, errors.Wrap(err, "box plot all folds")
	}
	p.Add(box)
	names = append(names, "all")
	p.NominalX(names...)
	return p, nil
}

// WriteAUCPlot renders the AUC box plot as PNG.
func WriteAUCPlot(w io.Writer, summary *evaluation.Summary) error {
	p, err := AUCPlot(summary)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return errors.Wrap(err, "render auc plot")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write auc plot")
	}
	return nil
}
