package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// TableSpec describes how a tabular file maps onto a Dataset.
type TableSpec struct {
	// IDColumn holds the participant identifier.
	IDColumn string `yaml:"id_column"`
	// LabelColumn holds the raw diagnosis code.
	LabelColumn string `yaml:"label_column"`
	// FeatureColumns lists the feature columns in order. Empty means every
	// column that is not the id, label, a covariate or excluded.
	FeatureColumns []string `yaml:"feature_columns"`
	// CovariateColumns are read as per-sample covariates (e.g. "EstimatedTotalIntraCranialVol").
	CovariateColumns []string `yaml:"covariate_columns"`
	// ExcludeColumns are ignored when FeatureColumns is empty.
	ExcludeColumns []string `yaml:"exclude_columns"`
	// NegativeCode and PositiveCode select rows by diagnosis code and map them
	// to 0 and 1. Rows with any other code are dropped. When both are empty
	// the label column must already hold 0 or 1.
	NegativeCode string `yaml:"negative_code"`
	PositiveCode string `yaml:"positive_code"`
	// Sheet names the worksheet of an XLSX file (default: the first sheet).
	Sheet string `yaml:"sheet"`
}

// Load reads a CSV, TSV or XLSX file chosen by extension.
func Load(path string, spec TableSpec) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return loadXLSX(path, spec)
	case ".tsv":
		return loadDelimited(path, '\t', spec)
	default:
		return loadDelimited(path, ',', spec)
	}
}

func loadDelimited(path string, comma rune, spec TableSpec) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadDelimited(f, comma, spec)
}

// ReadDelimited parses a delimited table with a header row.
func ReadDelimited(r io.Reader, comma rune, spec TableSpec) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read delimited table")
	}
	return FromRows(rows, spec)
}

func loadXLSX(path string, spec TableSpec) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	sheet := spec.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheet)
	}
	return FromRows(rows, spec)
}

// FromRows builds a Dataset from raw string rows; rows[0] is the header.
func FromRows(rows [][]string, spec TableSpec) (*Dataset, error) {
	if len(rows) < 2 {
		return nil, errors.NewValueError("dataset.FromRows", "table must have a header row and at least one data row")
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.TrimSpace(name)] = i
	}
	column := func(param, name string) (int, error) {
		idx, ok := header[name]
		if !ok {
			return 0, errors.NewConfigurationError(param, "column not found in header", name)
		}
		return idx, nil
	}

	idIdx, err := column("data.id_column", spec.IDColumn)
	if err != nil {
		return nil, err
	}
	labelIdx, err := column("data.label_column", spec.LabelColumn)
	if err != nil {
		return nil, err
	}
	covIdx := make([]int, len(spec.CovariateColumns))
	for i, name := range spec.CovariateColumns {
		if covIdx[i], err = column("data.covariate_columns", name); err != nil {
			return nil, err
		}
	}

	featureNames := spec.FeatureColumns
	if len(featureNames) == 0 {
		featureNames = inferFeatureColumns(rows[0], spec)
	}
	if len(featureNames) == 0 {
		return nil, errors.NewConfigurationError("data.feature_columns", "no feature columns", nil)
	}
	featIdx := make([]int, len(featureNames))
	for i, name := range featureNames {
		if featIdx[i], err = column("data.feature_columns", name); err != nil {
			return nil, err
		}
	}

	samples := make([]Sample, 0, len(rows)-1)
	for r, row := range rows[1:] {
		line := r + 2
		label, keep, err := mapLabel(cell(row, labelIdx), spec)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", line)
		}
		if !keep {
			continue
		}

		features := make([]float64, len(featIdx))
		for j, idx := range featIdx {
			if features[j], err = parseCell(row, idx, featureNames[j], line); err != nil {
				return nil, err
			}
		}
		var covariates map[string]float64
		if len(covIdx) > 0 {
			covariates = make(map[string]float64, len(covIdx))
			for j, idx := range covIdx {
				v, err := parseCell(row, idx, spec.CovariateColumns[j], line)
				if err != nil {
					return nil, err
				}
				covariates[spec.CovariateColumns[j]] = v
			}
		}
		samples = append(samples, NewSample(strings.TrimSpace(cell(row, idIdx)), features, label, covariates))
	}
	if len(samples) == 0 {
		return nil, errors.NewValueError("dataset.FromRows", "no rows matched the configured diagnosis codes")
	}
	return New(samples, featureNames)
}

func inferFeatureColumns(header []string, spec TableSpec) []string {
	skip := map[string]bool{spec.IDColumn: true, spec.LabelColumn: true}
	for _, c := range spec.CovariateColumns {
		skip[c] = true
	}
	for _, c := range spec.ExcludeColumns {
		skip[c] = true
	}
	var names []string
	for _, name := range header {
		name = strings.TrimSpace(name)
		if name != "" && !skip[name] {
			names = append(names, name)
		}
	}
	return names
}

// mapLabel converts a raw diagnosis code into a binary label. keep is false
// for rows whose code matches neither configured code.
func mapLabel(raw string, spec TableSpec) (label int, keep bool, err error) {
	raw = strings.TrimSpace(raw)
	if spec.NegativeCode == "" && spec.PositiveCode == "" {
		switch raw {
		case "0":
			return 0, true, nil
		case "1":
			return 1, true, nil
		default:
			return 0, false, errors.NewConfigurationError("labels", "labels must be 0 or 1 when no diagnosis codes are configured", raw)
		}
	}
	switch {
	case sameCode(raw, spec.NegativeCode):
		return 0, true, nil
	case sameCode(raw, spec.PositiveCode):
		return 1, true, nil
	default:
		return 0, false, nil
	}
}

// sameCode compares codes textually, or numerically when both parse ("1" == "1.0").
func sameCode(raw, code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	if raw == code {
		return true
	}
	a, errA := strconv.ParseFloat(raw, 64)
	b, errB := strconv.ParseFloat(code, 64)
	return errA == nil && errB == nil && a == b
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func parseCell(row []string, idx int, name string, line int) (float64, error) {
	raw := strings.TrimSpace(cell(row, idx))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewValueError("dataset.FromRows",
			fmt.Sprintf("row %d column %q: %q is not a number", line, name, raw))
	}
	return v, nil
}
