// Package report writes the artifacts of an evaluation run: the hold-out
// prediction table, the JSON summary and the AUC box plot.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/nestcv/dataset"
	"github.com/YuminosukeSato/nestcv/evaluation"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// PredictionColumn names the probability column of one repetition.
func PredictionColumn(rep int) string {
	return fmt.Sprintf("Prediction repetition %02d", rep)
}

// predictionRows lays the table out as id, label, one column per repetition.
// Missing predictions are empty cells.
func predictionRows(table *evaluation.PredictionTable) [][]string {
	nReps := table.NRepetitions()
	header := make([]string, 0, nReps+2)
	header = append(header, dataset.IDColumnName, dataset.LabelColumnName)
	for rep := 0; rep < nReps; rep++ {
		header = append(header, PredictionColumn(rep))
	}

	rows := make([][]string, 0, table.Len()+1)
	rows = append(rows, header)
	for _, id := range table.IDs() {
		label, _ := table.Label(id)
		row := make([]string, 0, len(header))
		row = append(row, id, strconv.Itoa(label))
		for rep := 0; rep < nReps; rep++ {
			if p, ok := table.Probability(id, rep); ok {
				row = append(row, strconv.FormatFloat(p, 'g', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// WritePredictionsCSV writes the prediction table as CSV.
func WritePredictionsCSV(w io.Writer, table *evaluation.PredictionTable) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(predictionRows(table)); err != nil {
		return errors.Wrap(err, "write predictions csv")
	}
	return nil
}

// WritePredictionsXLSX writes the prediction table to a new workbook.
// Probabilities are stored as numbers.
func WritePredictionsXLSX(path string, table *evaluation.PredictionTable) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, "predictions"); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	sheet = "predictions"

	for r, row := range predictionRows(table) {
		for c, v := range row {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return errors.Wrap(err, "cell name")
			}
			var value interface{} = v
			if r > 0 && c >= 2 && v != "" {
				p, _ := strconv.ParseFloat(v, 64)
				value = p
			}
			if err := f.SetCellValue(sheet, cellName, value); err != nil {
				return errors.Wrapf(err, "set %s", cellName)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}
