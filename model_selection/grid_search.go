package model_selection

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/core/parallel"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
)

// EstimatorFactory builds an unfitted classifier for regularization strength c.
// Every call must return a fresh, independent estimator.
type EstimatorFactory func(c float64) model.Classifier

// SearchResult is the outcome of one grid search.
type SearchResult struct {
	// BestParam is the selected regularization strength, always a candidate.
	BestParam float64
	// BestScore is the mean inner score of BestParam.
	BestScore float64
	// MeanScores holds the mean inner score per candidate, in candidate order.
	MeanScores []float64
	// FoldScores holds the inner score per candidate (row) and inner fold (column).
	FoldScores [][]float64
	// BestEstimator is refit on the full training partition with BestParam.
	BestEstimator model.Classifier
}

// GridSearchCV selects the regularization strength with the best mean score
// over stratified inner folds and refits the winner on all training rows.
type GridSearchCV struct {
	factory    EstimatorFactory
	candidates []float64
	innerFolds int
	scoring    ScoringRule
	seed       uint64
	workers    int
	logger     log.Logger
}

// Option configures a GridSearchCV.
type Option func(*GridSearchCV)

// WithInnerFolds sets the number of inner folds (default 5).
func WithInnerFolds(k int) Option {
	return func(g *GridSearchCV) { g.innerFolds = k }
}

// WithScoring sets the scoring rule (default neg_mean_absolute_error).
func WithScoring(rule ScoringRule) Option {
	return func(g *GridSearchCV) { g.scoring = rule }
}

// WithSeed sets the seed of the inner fold shuffle.
func WithSeed(seed uint64) Option {
	return func(g *GridSearchCV) { g.seed = seed }
}

// WithWorkers bounds the number of concurrent (candidate, fold) tasks.
// Zero means one per CPU core.
func WithWorkers(n int) Option {
	return func(g *GridSearchCV) { g.workers = n }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(g *GridSearchCV) { g.logger = l }
}

// NewGridSearchCV creates a search over candidates. The candidate slice is copied.
func NewGridSearchCV(factory EstimatorFactory, candidates []float64, opts ...Option) *GridSearchCV {
	g := &GridSearchCV{
		factory:    factory,
		candidates: append([]float64(nil), candidates...),
		innerFolds: 5,
		scoring:    NegMeanAbsoluteError,
		workers:    1,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = log.GetLogger().With(log.ComponentKey, "model_selection")
	}
	return g
}

// ValidateCandidates checks that a candidate set is non-empty, positive,
// finite and free of duplicates.
func ValidateCandidates(candidates []float64) error {
	if len(candidates) == 0 {
		return errors.NewConfigurationError("hyperparameter_candidates", "candidate set is empty", candidates)
	}
	seen := make(map[float64]struct{}, len(candidates))
	for _, c := range candidates {
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			return errors.NewConfigurationError("hyperparameter_candidates", "candidates must be positive and finite", c)
		}
		if _, dup := seen[c]; dup {
			return errors.NewConfigurationError("hyperparameter_candidates", "duplicate candidate", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

type innerData struct {
	XTrain, XTest *mat.Dense
	yTrain, yTest []int
}

// Fit runs the search on the training partition X, y.
//
// Inner (candidate, fold) tasks run on the worker pool; their scores are
// reduced in candidate order, so the selection does not depend on the worker
// count. Ties on the mean score go to the smallest candidate.
func (g *GridSearchCV) Fit(ctx context.Context, X mat.Matrix, y []int) (*SearchResult, error) {
	if err := ValidateCandidates(g.candidates); err != nil {
		return nil, err
	}
	if g.factory == nil {
		return nil, errors.NewConfigurationError("estimator_factory", "must not be nil", nil)
	}
	r, _ := X.Dims()
	if r != len(y) {
		return nil, errors.NewDimensionError("GridSearchCV.Fit", r, len(y), 0)
	}

	start := time.Now()
	folds, err := NewStratifiedKFold(g.innerFolds, true, g.seed).Split(y)
	if err != nil {
		return nil, errors.Wrap(err, "inner split")
	}

	data := make([]innerData, len(folds))
	for f, fold := range folds {
		data[f] = innerData{
			XTrain: TakeRows(X, fold.TrainIndices),
			XTest:  TakeRows(X, fold.TestIndices),
			yTrain: TakeLabels(y, fold.TrainIndices),
			yTest:  TakeLabels(y, fold.TestIndices),
		}
	}

	nFolds := len(folds)
	scores, err := parallel.Map(ctx, len(g.candidates)*nFolds, g.workers, func(_ context.Context, task int) (float64, error) {
		c := g.candidates[task/nFolds]
		f := task % nFolds
		d := data[f]

		est := g.factory(c)
		if err := est.Fit(d.XTrain, LabelVector(d.yTrain)); err != nil {
			return 0, errors.Wrapf(err, "fit C=%g on inner fold %d", c, f)
		}
		score, err := g.scoring.Score(est, d.XTest, d.yTest)
		if err != nil {
			return 0, errors.Wrapf(err, "score C=%g on inner fold %d", c, f)
		}
		g.logger.Debug("inner fold scored",
			log.RegularizationKey, c,
			log.InnerFoldKey, f,
			log.ScoreKey, score,
		)
		return score, nil
	})
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		MeanScores: make([]float64, len(g.candidates)),
		FoldScores: make([][]float64, len(g.candidates)),
	}
	best := -1
	for i, c := range g.candidates {
		row := scores[i*nFolds : (i+1)*nFolds]
		result.FoldScores[i] = append([]float64(nil), row...)
		var sum float64
		for _, s := range row {
			sum += s
		}
		mean := sum / float64(nFolds)
		result.MeanScores[i] = mean

		if best < 0 || mean > result.BestScore || (mean == result.BestScore && c < result.BestParam) {
			best = i
			result.BestParam = c
			result.BestScore = mean
		}
	}

	refit := g.factory(result.BestParam)
	if err := refit.Fit(X, LabelVector(y)); err != nil {
		return nil, errors.Wrapf(err, "refit C=%g", result.BestParam)
	}
	result.BestEstimator = refit

	g.logger.Debug("grid search completed",
		log.StageKey, log.StageInnerSearch,
		log.CandidatesKey, fmt.Sprint(g.candidates),
		log.RegularizationKey, result.BestParam,
		log.ScoreKey, result.BestScore,
		log.ScoringRuleKey, string(g.scoring),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Candidates returns a copy of the candidate set.
func (g *GridSearchCV) Candidates() []float64 {
	return append([]float64(nil), g.candidates...)
}
