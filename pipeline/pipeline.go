// Package pipeline chains the robust scaler and a classifier into a single
// estimator, so that scaling statistics are always learned from exactly the
// rows the classifier is trained on.
package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/preprocessing"
)

// Pipeline is a RobustScaler followed by a classifier.
type Pipeline struct {
	scaler     *preprocessing.RobustScaler
	classifier model.Classifier
}

// New creates a pipeline from an unfitted scaler and classifier.
func New(scaler *preprocessing.RobustScaler, classifier model.Classifier) *Pipeline {
	return &Pipeline{scaler: scaler, classifier: classifier}
}

// Fit learns the scaler on X, then trains the classifier on the scaled rows.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	Xs, err := p.scaler.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "pipeline scaler")
	}
	if err := p.classifier.Fit(Xs, y); err != nil {
		return errors.Wrap(err, "pipeline classifier")
	}
	return nil
}

func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	Xs, err := p.scaler.Transform(X)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline scaler")
	}
	return Xs, nil
}

// Predict returns hard class labels (n×1).
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xs, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return p.classifier.Predict(Xs)
}

// PredictProba returns class probabilities (n×2).
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	Xs, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return p.classifier.PredictProba(Xs)
}

// DecisionFunction returns the classifier's decision values when it exposes them.
func (p *Pipeline) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	df, ok := p.classifier.(model.DecisionFunctioner)
	if !ok {
		return nil, errors.NewValueError("Pipeline.DecisionFunction",
			fmt.Sprintf("%T has no decision function", p.classifier))
	}
	Xs, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return df.DecisionFunction(Xs)
}

// Classes returns the classifier's class order.
func (p *Pipeline) Classes() []int { return p.classifier.Classes() }

// Scaler returns the pipeline's scaler.
func (p *Pipeline) Scaler() *preprocessing.RobustScaler { return p.scaler }

// Classifier returns the pipeline's classifier.
func (p *Pipeline) Classifier() model.Classifier { return p.classifier }

// GetParams returns the parameters of both steps, prefixed by step name.
func (p *Pipeline) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for k, v := range p.scaler.GetParams() {
		params["scaler__"+k] = v
	}
	if pg, ok := p.classifier.(model.ParameterGetter); ok {
		for k, v := range pg.GetParams() {
			params["classifier__"+k] = v
		}
	}
	return params
}

// String returns a short description of both steps.
func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(%v -> %v)", p.scaler, p.classifier)
}
