// Package svm implements a linear support vector classifier with Platt
// probability calibration.
package svm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/model_selection"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// LinearSVC is a binary linear support vector classifier (hinge loss, L2
// penalty) trained by dual coordinate descent. Probabilities come from a
// Platt sigmoid fitted on out-of-fold decision values.
// Compatible with scikit-learn's SVC(kernel="linear", probability=True) usage.
type LinearSVC struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	C                float64 // Slack penalty; larger C means less regularization
	tol              float64 // Stopping tolerance on the projected gradient gap
	maxIter          int     // Maximum coordinate descent epochs
	bias             float64 // Constant appended to every sample for the intercept
	randomState      uint64  // Seed of the coordinate order and calibration folds
	calibrationFolds int     // Internal folds for Platt calibration

	// Model parameters
	coef_      []float64
	intercept_ float64
	platt_     plattScaling
	nIter_     int
}

// LinearSVCOption is a functional option for LinearSVC
type LinearSVCOption func(*LinearSVC)

// NewLinearSVC creates a new LinearSVC classifier
func NewLinearSVC(opts ...LinearSVCOption) *LinearSVC {
	svc := &LinearSVC{
		state:            model.NewStateManager("LinearSVC"),
		C:                1.0,
		tol:              1e-3,
		maxIter:          1000,
		bias:             1.0,
		calibrationFolds: 5,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithC sets the slack penalty
func WithC(c float64) LinearSVCOption {
	return func(s *LinearSVC) { s.C = c }
}

// WithTol sets the tolerance for stopping criteria
func WithTol(tol float64) LinearSVCOption {
	return func(s *LinearSVC) { s.tol = tol }
}

// WithMaxIter sets the maximum number of epochs
func WithMaxIter(maxIter int) LinearSVCOption {
	return func(s *LinearSVC) { s.maxIter = maxIter }
}

// WithRandomState sets the random seed
func WithRandomState(seed uint64) LinearSVCOption {
	return func(s *LinearSVC) { s.randomState = seed }
}

// WithCalibrationFolds sets the number of internal calibration folds
func WithCalibrationFolds(k int) LinearSVCOption {
	return func(s *LinearSVC) { s.calibrationFolds = k }
}

// Fit trains the classifier. y is an n×1 matrix of 0/1 labels.
func (s *LinearSVC) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "LinearSVC.Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError("LinearSVC.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LinearSVC.Fit", 1, yCols, 1)
	}
	if s.C <= 0 {
		return errors.NewConfigurationError("C", "must be positive", s.C)
	}
	if err := errors.CheckMatrix("LinearSVC.Fit", X, nSamples, nFeatures); err != nil {
		return err
	}

	labels := make([]int, nSamples)
	yPM := make([]float64, nSamples)
	var positives int
	for i := 0; i < nSamples; i++ {
		switch y.At(i, 0) {
		case 0:
			yPM[i] = -1
		case 1:
			labels[i] = 1
			yPM[i] = 1
			positives++
		default:
			return errors.NewValueError("LinearSVC.Fit", fmt.Sprintf("label %g is not binary", y.At(i, 0)))
		}
	}
	if positives == 0 || positives == nSamples {
		return errors.NewDegenerateInputError("fit", "training labels contain a single class")
	}

	sol := s.train(X, yPM)
	if !sol.solved {
		errors.Warn(errors.NewConvergenceWarning("LinearSVC", sol.nIter,
			"Liblinear failed to converge, increase the number of iterations."))
	}

	dec, err := s.calibrationDecisions(X, labels, yPM, sol.w)
	if err != nil {
		return err
	}
	platt, err := fitPlatt(dec, yPM)
	if err != nil {
		return errors.Wrap(err, "platt calibration")
	}

	s.coef_ = sol.w[:nFeatures]
	s.intercept_ = sol.w[nFeatures] * s.bias
	s.platt_ = platt
	s.nIter_ = sol.nIter
	s.state.SetFitted(nFeatures, nSamples)
	return nil
}

func (s *LinearSVC) train(X mat.Matrix, yPM []float64) dualSolution {
	return solveDualCD(X, yPM, s.C, s.tol, s.maxIter, s.bias, model_selection.NewRand(s.randomState))
}

// calibrationDecisions returns out-of-fold decision values from a stratified
// internal split. When a class is too small for two folds the in-sample
// decision values of the full model are used instead.
func (s *LinearSVC) calibrationDecisions(X mat.Matrix, labels []int, yPM []float64, w []float64) ([]float64, error) {
	n, p := X.Dims()
	minority := 0
	for _, l := range labels {
		minority += l
	}
	if n-minority < minority {
		minority = n - minority
	}
	k := s.calibrationFolds
	if minority < k {
		k = minority
	}

	dec := make([]float64, n)
	if k < 2 {
		for i := 0; i < n; i++ {
			dec[i] = decision(X, i, w[:p], w[p]*s.bias)
		}
		return dec, nil
	}

	folds, err := model_selection.NewStratifiedKFold(k, true, s.randomState).Split(labels)
	if err != nil {
		return nil, err
	}
	for _, fold := range folds {
		XTrain := model_selection.TakeRows(X, fold.TrainIndices)
		yTrain := make([]float64, len(fold.TrainIndices))
		for i, idx := range fold.TrainIndices {
			yTrain[i] = yPM[idx]
		}
		sub := s.train(XTrain, yTrain)
		for _, idx := range fold.TestIndices {
			dec[idx] = decision(X, idx, sub.w[:p], sub.w[p]*s.bias)
		}
	}
	return dec, nil
}

func decision(X mat.Matrix, i int, coef []float64, intercept float64) float64 {
	v := intercept
	for j, c := range coef {
		v += X.At(i, j) * c
	}
	return v
}

// DecisionFunction returns the signed distance of each sample to the
// separating hyperplane as an n×1 matrix. Positive values favour class 1.
func (s *LinearSVC) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("DecisionFunction"); err != nil {
		return nil, err
	}
	n, c := X.Dims()
	if err := s.state.RequireFeatures("LinearSVC.DecisionFunction", c); err != nil {
		return nil, err
	}
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, decision(X, i, s.coef_, s.intercept_))
	}
	return out, nil
}

// Predict returns class labels (n×1) from the sign of the decision function.
func (s *LinearSVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	dec, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n, _ := dec.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if dec.At(i, 0) > 0 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}

// PredictProba returns an n×2 matrix of calibrated probabilities, columns
// P(class 0) and P(class 1).
func (s *LinearSVC) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	dec, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n, _ := dec.Dims()
	out := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p1 := s.platt_.probability(dec.At(i, 0))
		out.Set(i, 0, 1-p1)
		out.Set(i, 1, p1)
	}
	return out, nil
}

// Classes returns the class labels in probability column order.
func (s *LinearSVC) Classes() []int { return []int{0, 1} }

// Coef returns a copy of the feature weights.
func (s *LinearSVC) Coef() []float64 {
	return append([]float64(nil), s.coef_...)
}

// Intercept returns the bias term.
func (s *LinearSVC) Intercept() float64 { return s.intercept_ }

// NIter returns the number of epochs run by the final solve.
func (s *LinearSVC) NIter() int { return s.nIter_ }

// PlattParams returns the fitted sigmoid parameters A and B.
func (s *LinearSVC) PlattParams() (a, b float64) { return s.platt_.A, s.platt_.B }

// IsFitted reports whether Fit has completed.
func (s *LinearSVC) IsFitted() bool { return s.state.IsFitted() }

// GetParams returns the model hyperparameters
func (s *LinearSVC) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":                 s.C,
		"tol":               s.tol,
		"max_iter":          s.maxIter,
		"intercept_scaling": s.bias,
		"random_state":      s.randomState,
		"calibration_folds": s.calibrationFolds,
	}
}

// String returns a short description of the classifier.
func (s *LinearSVC) String() string {
	if !s.state.IsFitted() {
		return fmt.Sprintf("LinearSVC(C=%g)", s.C)
	}
	return fmt.Sprintf("LinearSVC(C=%g, n_features=%d, |w|=%.4g)", s.C, len(s.coef_), floats.Norm(s.coef_, 2))
}
