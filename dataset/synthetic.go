package dataset

import (
	"fmt"
	"math/rand/v2"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// SyntheticSpec configures Synthetic.
type SyntheticSpec struct {
	NNegative int
	NPositive int
	NFeatures int
	// Separation shifts the mean of every positive-class feature.
	Separation float64
	Seed       uint64
	// Covariate, when set, adds a per-sample covariate of that name drawn
	// uniformly from [1200, 1800) and multiplies every feature by it, so that
	// NormalizeBy(Covariate) recovers the unscaled features.
	Covariate string
}

// Synthetic generates a two-class Gaussian dataset. Equal specs give equal
// datasets. Samples alternate between classes while both have members left.
func Synthetic(spec SyntheticSpec) (*Dataset, error) {
	if spec.NNegative < 1 || spec.NPositive < 1 {
		return nil, errors.NewConfigurationError("synthetic.samples", "both classes need at least one sample",
			fmt.Sprintf("%d/%d", spec.NNegative, spec.NPositive))
	}
	if spec.NFeatures < 1 {
		return nil, errors.NewConfigurationError("synthetic.features", "must be at least 1", spec.NFeatures)
	}

	rng := rand.New(rand.NewPCG(spec.Seed, 0xda3e39cb94b95bdb))
	n := spec.NNegative + spec.NPositive
	samples := make([]Sample, 0, n)
	remaining := [2]int{spec.NNegative, spec.NPositive}

	for i := 0; i < n; i++ {
		label := i % 2
		if remaining[label] == 0 {
			label = 1 - label
		}
		remaining[label]--

		features := make([]float64, spec.NFeatures)
		for j := range features {
			features[j] = rng.NormFloat64() + float64(label)*spec.Separation
		}

		var covariates map[string]float64
		if spec.Covariate != "" {
			v := 1200 + 600*rng.Float64()
			for j := range features {
				features[j] *= v
			}
			covariates = map[string]float64{spec.Covariate: v}
		}
		samples = append(samples, NewSample(fmt.Sprintf("sub-%04d", i), features, label, covariates))
	}
	return New(samples, nil)
}
