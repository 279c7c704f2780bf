package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/metrics"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// ScoringRule names the criterion used to rank hyperparameter candidates.
// Higher is always better; error metrics are negated.
type ScoringRule string

const (
	// NegMeanAbsoluteError scores hard predictions by -MAE.
	NegMeanAbsoluteError ScoringRule = "neg_mean_absolute_error"
	// ROCAUC scores positive-class probabilities by ROC AUC.
	ROCAUC ScoringRule = "roc_auc"
	// Accuracy scores hard predictions by accuracy.
	Accuracy ScoringRule = "accuracy"
	// BalancedAccuracy scores hard predictions by the mean per-class recall.
	BalancedAccuracy ScoringRule = "balanced_accuracy"
	// NegLogLoss scores probabilities by -log loss.
	NegLogLoss ScoringRule = "neg_log_loss"
	// NegBrierScore scores probabilities by -Brier score.
	NegBrierScore ScoringRule = "neg_brier_score"
)

// ScoringRules lists every supported rule.
var ScoringRules = []ScoringRule{
	NegMeanAbsoluteError, ROCAUC, Accuracy, BalancedAccuracy, NegLogLoss, NegBrierScore,
}

// ParseScoringRule validates a rule name.
func ParseScoringRule(name string) (ScoringRule, error) {
	for _, r := range ScoringRules {
		if string(r) == name {
			return r, nil
		}
	}
	return "", errors.NewConfigurationError("scoring_rule", "unknown scoring rule", name)
}

// NeedsProbabilities reports whether the rule scores PredictProba output
// rather than hard predictions.
func (r ScoringRule) NeedsProbabilities() bool {
	switch r {
	case ROCAUC, NegLogLoss, NegBrierScore:
		return true
	default:
		return false
	}
}

// Score evaluates a fitted classifier on X against labels y.
func (r ScoringRule) Score(est model.Classifier, X mat.Matrix, y []int) (float64, error) {
	yTrue := LabelVector(y)

	if r.NeedsProbabilities() {
		proba, err := est.PredictProba(X)
		if err != nil {
			return 0, err
		}
		pos, err := PositiveColumn(proba, est.Classes())
		if err != nil {
			return 0, err
		}
		switch r {
		case ROCAUC:
			return metrics.AUC(yTrue, pos)
		case NegLogLoss:
			loss, err := metrics.BinaryLogLoss(yTrue, pos)
			return -loss, err
		default:
			brier, err := metrics.BrierScore(yTrue, pos)
			return -brier, err
		}
	}

	pred, err := est.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := pred.Dims()
	yPred := mat.NewVecDense(n, mat.Col(nil, 0, pred))

	switch r {
	case NegMeanAbsoluteError:
		mae, err := metrics.MAE(yTrue, yPred)
		return -mae, err
	case Accuracy:
		return metrics.Accuracy(yTrue, yPred)
	case BalancedAccuracy:
		return metrics.BalancedAccuracy(yTrue, yPred)
	default:
		return 0, errors.NewConfigurationError("scoring_rule", "unknown scoring rule", string(r))
	}
}

// PositiveColumn extracts P(class = 1) from an n×2 probability matrix whose
// columns follow classes.
func PositiveColumn(proba mat.Matrix, classes []int) (*mat.VecDense, error) {
	n, c := proba.Dims()
	if c != len(classes) {
		return nil, errors.NewDimensionError("PositiveColumn", len(classes), c, 1)
	}
	for j, class := range classes {
		if class == 1 {
			return mat.NewVecDense(n, mat.Col(nil, j, proba)), nil
		}
	}
	return nil, errors.NewValueError("PositiveColumn", "positive class not among fitted classes")
}
