package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Column names used when writing a Dataset.
const (
	IDColumnName    = "Participant_ID"
	LabelColumnName = "Diagn"
)

// Header returns the column names written by WriteCSV and WriteXLSX.
func (d *Dataset) Header() []string {
	header := []string{IDColumnName, LabelColumnName}
	names := d.featureNames
	if names == nil {
		names = make([]string, d.nFeatures)
		for j := range names {
			names[j] = fmt.Sprintf("feature_%02d", j)
		}
	}
	header = append(header, names...)
	return append(header, d.covariateNames()...)
}

// TableSpec returns the spec that reads a written Dataset back.
func (d *Dataset) TableSpec() TableSpec {
	header := d.Header()
	covs := d.covariateNames()
	return TableSpec{
		IDColumn:         IDColumnName,
		LabelColumn:      LabelColumnName,
		FeatureColumns:   header[2 : 2+d.nFeatures],
		CovariateColumns: covs,
	}
}

func (d *Dataset) covariateNames() []string {
	set := make(map[string]struct{})
	for _, s := range d.samples {
		for k := range s.covariates {
			set[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for k := range set {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (d *Dataset) records() [][]string {
	covs := d.covariateNames()
	out := make([][]string, 0, len(d.samples)+1)
	out = append(out, d.Header())
	for _, s := range d.samples {
		rec := []string{s.id, strconv.Itoa(s.label)}
		for _, v := range s.features {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, name := range covs {
			if v, ok := s.covariates[name]; ok {
				rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
			} else {
				rec = append(rec, "")
			}
		}
		out = append(out, rec)
	}
	return out
}

// WriteCSV writes the Dataset as a comma-separated table with a header row.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(d.records()); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return nil
}

// WriteXLSX writes the Dataset to the first sheet of a new workbook.
func (d *Dataset) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, rec := range d.records() {
		for c, v := range rec {
			cellName, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return errors.Wrap(err, "cell name")
			}
			if err := f.SetCellValue(sheet, cellName, v); err != nil {
				return errors.Wrapf(err, "set %s", cellName)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}
