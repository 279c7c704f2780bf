// Package dataset holds the in-memory biomarker table consumed by the
// evaluation engine: samples with a fixed-width feature vector, a binary
// label and optional normalization covariates.
//
// A Dataset is read-only once constructed. Every accessor returns copies, so
// concurrent fold tasks can share one Dataset without locking.
package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// Sample is one participant: identifier, features, label (0/1) and optional
// covariates such as the estimated total intracranial volume.
type Sample struct {
	id         string
	features   []float64
	label      int
	covariates map[string]float64
}

// NewSample copies its arguments into an immutable Sample.
func NewSample(id string, features []float64, label int, covariates map[string]float64) Sample {
	s := Sample{
		id:       id,
		features: append([]float64(nil), features...),
		label:    label,
	}
	if len(covariates) > 0 {
		s.covariates = make(map[string]float64, len(covariates))
		for k, v := range covariates {
			s.covariates[k] = v
		}
	}
	return s
}

// ID returns the sample identifier.
func (s Sample) ID() string { return s.id }

// Label returns the binary class label.
func (s Sample) Label() int { return s.label }

// NFeatures returns the feature vector length.
func (s Sample) NFeatures() int { return len(s.features) }

// Features returns a copy of the feature vector.
func (s Sample) Features() []float64 { return append([]float64(nil), s.features...) }

// Covariate returns the named covariate and whether it is present.
func (s Sample) Covariate(name string) (float64, bool) {
	v, ok := s.covariates[name]
	return v, ok
}

// Dataset is an ordered, validated collection of samples.
type Dataset struct {
	samples      []Sample
	featureNames []string
	nFeatures    int
}

// New validates samples and builds a Dataset.
//
// Every sample must have the same feature count and finite feature values,
// IDs must be unique, and the label set must be exactly {0, 1}. featureNames
// may be nil; otherwise its length must match the feature count.
func New(samples []Sample, featureNames []string) (*Dataset, error) {
	if len(samples) == 0 {
		return nil, errors.NewValueError("dataset.New", "no samples")
	}

	nFeatures := samples[0].NFeatures()
	if nFeatures == 0 {
		return nil, errors.NewValueError("dataset.New", "samples have no features")
	}
	if featureNames != nil && len(featureNames) != nFeatures {
		return nil, errors.NewDimensionError("dataset.New", nFeatures, len(featureNames), 1)
	}

	seen := make(map[string]struct{}, len(samples))
	counts := [2]int{}
	for i, s := range samples {
		if s.NFeatures() != nFeatures {
			return nil, errors.Wrapf(errors.NewDimensionError("dataset.New", nFeatures, s.NFeatures(), 1),
				"sample %q (row %d)", s.id, i)
		}
		if _, dup := seen[s.id]; dup {
			return nil, errors.NewValueError("dataset.New", fmt.Sprintf("duplicate sample id %q", s.id))
		}
		seen[s.id] = struct{}{}
		if s.label != 0 && s.label != 1 {
			return nil, errors.NewConfigurationError("labels", "labels must be binary (0 or 1)", s.label)
		}
		counts[s.label]++
		if err := errors.CheckNumericalStability("dataset.New", s.features, i); err != nil {
			return nil, errors.Wrapf(err, "sample %q has non-finite features", s.id)
		}
	}
	if counts[0] == 0 || counts[1] == 0 {
		return nil, errors.NewConfigurationError("labels", "label set must be exactly {0, 1}",
			fmt.Sprintf("%d negatives, %d positives", counts[0], counts[1]))
	}

	ds := &Dataset{
		samples:   append([]Sample(nil), samples...),
		nFeatures: nFeatures,
	}
	if featureNames != nil {
		ds.featureNames = append([]string(nil), featureNames...)
	}
	return ds, nil
}

// FromMatrix builds a Dataset from a feature matrix and a parallel label
// slice. IDs default to the row index when ids is nil.
func FromMatrix(X mat.Matrix, labels []int, ids []string) (*Dataset, error) {
	r, c := X.Dims()
	if len(labels) != r {
		return nil, errors.NewDimensionError("dataset.FromMatrix", r, len(labels), 0)
	}
	if ids != nil && len(ids) != r {
		return nil, errors.NewDimensionError("dataset.FromMatrix", r, len(ids), 0)
	}
	samples := make([]Sample, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		id := fmt.Sprintf("%d", i)
		if ids != nil {
			id = ids[i]
		}
		samples[i] = NewSample(id, row, labels[i], nil)
	}
	return New(samples, nil)
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.samples) }

// NFeatures returns the feature dimensionality.
func (d *Dataset) NFeatures() int { return d.nFeatures }

// FeatureNames returns a copy of the feature names (nil when unnamed).
func (d *Dataset) FeatureNames() []string {
	if d.featureNames == nil {
		return nil
	}
	return append([]string(nil), d.featureNames...)
}

// Sample returns the i-th sample.
func (d *Dataset) Sample(i int) Sample { return d.samples[i] }

// IDs returns the sample identifiers in order.
func (d *Dataset) IDs() []string {
	ids := make([]string, len(d.samples))
	for i, s := range d.samples {
		ids[i] = s.id
	}
	return ids
}

// Labels returns the labels in order.
func (d *Dataset) Labels() []int {
	labels := make([]int, len(d.samples))
	for i, s := range d.samples {
		labels[i] = s.label
	}
	return labels
}

// ClassCounts returns the number of negative and positive samples.
func (d *Dataset) ClassCounts() (negatives, positives int) {
	for _, s := range d.samples {
		if s.label == 1 {
			positives++
		} else {
			negatives++
		}
	}
	return negatives, positives
}

// Matrix returns a new n×p matrix of the features.
func (d *Dataset) Matrix() *mat.Dense {
	X := mat.NewDense(len(d.samples), d.nFeatures, nil)
	for i, s := range d.samples {
		X.SetRow(i, s.features)
	}
	return X
}

// NormalizeBy returns a new Dataset whose features are divided by the named
// per-sample covariate, e.g. regional volumes divided by total intracranial
// volume. A missing, zero or non-finite covariate is a ValueError.
func (d *Dataset) NormalizeBy(covariate string) (*Dataset, error) {
	samples := make([]Sample, len(d.samples))
	for i, s := range d.samples {
		v, ok := s.covariates[covariate]
		if !ok {
			return nil, errors.NewValueError("Dataset.NormalizeBy",
				fmt.Sprintf("sample %q has no covariate %q", s.id, covariate))
		}
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewValueError("Dataset.NormalizeBy",
				fmt.Sprintf("sample %q has invalid covariate %q = %v", s.id, covariate, v))
		}
		features := make([]float64, len(s.features))
		for j, x := range s.features {
			features[j] = x / v
		}
		samples[i] = Sample{id: s.id, features: features, label: s.label, covariates: s.covariates}
	}
	return &Dataset{samples: samples, featureNames: d.featureNames, nFeatures: d.nFeatures}, nil
}
