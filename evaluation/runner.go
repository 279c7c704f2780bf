// Package evaluation runs repeated nested cross-validation and aggregates the
// hold-out AUC of every outer fold.
package evaluation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/core/model"
	"github.com/YuminosukeSato/nestcv/core/parallel"
	"github.com/YuminosukeSato/nestcv/dataset"
	"github.com/YuminosukeSato/nestcv/model_selection"
	"github.com/YuminosukeSato/nestcv/pipeline"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
	"github.com/YuminosukeSato/nestcv/pkg/log"
	"github.com/YuminosukeSato/nestcv/preprocessing"
	"github.com/YuminosukeSato/nestcv/sklearn/svm"
)

// ModelArtifact is the fitted state of one outer fold: the scaler fitted on
// outer-train and the pipeline refit with the selected C.
type ModelArtifact struct {
	Repetition int
	Fold       int
	Scaler     *preprocessing.RobustScaler
	Pipeline   *pipeline.Pipeline
	Search     *model_selection.SearchResult
}

// Result is the outcome of a run.
type Result struct {
	RunID       uuid.UUID
	Started     time.Time
	Duration    time.Duration
	NSamples    int
	NFeatures   int
	Summary     *Summary
	Predictions *PredictionTable
}

// Runner executes the repeated nested cross-validation described by a Config.
type Runner struct {
	cfg        *config.Config
	logger     log.Logger
	runID      uuid.UUID
	onArtifact func(*ModelArtifact)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger.
func WithLogger(l log.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id uuid.UUID) RunnerOption {
	return func(r *Runner) { r.runID = id }
}

// WithArtifactHook registers fn to observe each outer-fold artifact. fn runs
// on the worker that fitted the fold, as soon as the fold is scored, so calls
// may be concurrent and in any order. The runner keeps no reference to the
// artifact once fn returns.
func WithArtifactHook(fn func(*ModelArtifact)) RunnerOption {
	return func(r *Runner) { r.onArtifact = fn }
}

// NewRunner creates a runner for cfg.
func NewRunner(cfg *config.Config, opts ...RunnerOption) *Runner {
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == uuid.Nil {
		r.runID = uuid.New()
	}
	if r.logger == nil {
		r.logger = log.GetLogger()
	}
	r.logger = r.logger.With(log.ComponentKey, "evaluation", log.RunIDKey, r.runID.String())
	return r
}

// RunID returns the run identifier.
func (r *Runner) RunID() uuid.UUID { return r.runID }

// outerOutcome is what the reducer needs from one outer fold.
type outerOutcome struct {
	testIDs    []string
	testLabels []int
	proba      []float64
	selectedC  float64
	innerScore float64
}

// Run evaluates ds.
//
// All outer folds of all repetitions are generated, and their inner splits
// checked, before any model is trained, so stratification failures surface
// first. Outer-fold tasks then run on the worker pool and are recorded in
// (repetition, fold) order.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	if r.cfg == nil {
		return nil, errors.NewConfigurationError("config", "must not be nil", nil)
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, errors.Wrap(errors.ErrEmptyData, "Runner.Run")
	}
	if r.cfg.Data.NormalizeBy != "" {
		normalized, err := ds.NormalizeBy(r.cfg.Data.NormalizeBy)
		if err != nil {
			return nil, errors.Wrap(err, "normalize features")
		}
		ds = normalized
	}

	started := time.Now()
	X := ds.Matrix()
	y := ds.Labels()
	ids := ds.IDs()
	_, positives := ds.ClassCounts()
	nReps, nOuter := r.cfg.NRepetitions, r.cfg.NOuterFolds

	r.logger.Info("evaluation started",
		log.SamplesKey, ds.Len(),
		log.FeaturesKey, ds.NFeatures(),
		log.PositivesKey, positives,
		log.RandomSeedKey, r.cfg.Seed,
		log.WorkersKey, r.cfg.Workers,
		log.ScoringRuleKey, r.cfg.ScoringRule,
	)

	outerFolds, err := OuterFolds(r.cfg, y)
	if err != nil {
		return nil, err
	}

	outcomes, err := parallel.Map(ctx, nReps*nOuter, r.cfg.Workers, func(ctx context.Context, task int) (*outerOutcome, error) {
		rep, fold := task/nOuter, task%nOuter
		return r.runOuterFold(ctx, X, y, ids, rep, fold, outerFolds[rep][fold])
	})
	if err != nil {
		return nil, err
	}

	agg := NewMetricAggregator(nReps, nOuter)
	for task, out := range outcomes {
		rep, fold := task/nOuter, task%nOuter
		if err := agg.Record(rep, fold, out.testIDs, out.testLabels, out.proba); err != nil {
			return nil, errors.WithFoldContext(err, log.StageOuterScore, rep, fold)
		}
		if err := agg.RecordSelection(rep, fold, out.selectedC, out.innerScore); err != nil {
			return nil, errors.WithFoldContext(err, log.StageOuterScore, rep, fold)
		}
		outcomes[task] = nil
	}

	summary, err := agg.Finalize()
	if err != nil {
		return nil, err
	}
	predictions := agg.Predictions()
	predictions.SortBy(ids)

	for _, fs := range summary.Scores {
		r.logger.Debug("outer fold scored",
			log.RepetitionKey, fs.Repetition,
			log.FoldKey, fs.Fold,
			log.AUCKey, fs.AUC,
			log.RegularizationKey, fs.SelectedC,
			log.ScoreKey, fs.InnerScore,
		)
	}
	duration := time.Since(started)
	r.logger.Info("evaluation completed",
		log.MeanKey, summary.Mean,
		log.StdKey, summary.Std,
		log.DurationMsKey, duration.Milliseconds(),
	)

	return &Result{
		RunID:       r.runID,
		Started:     started,
		Duration:    duration,
		NSamples:    ds.Len(),
		NFeatures:   ds.NFeatures(),
		Summary:     summary,
		Predictions: predictions,
	}, nil
}

// OuterFolds generates the outer folds of every repetition and checks that
// each outer-train partition can be split into the configured inner folds.
// No model is trained.
func OuterFolds(cfg *config.Config, labels []int) ([][]model_selection.Fold, error) {
	outerFolds := make([][]model_selection.Fold, cfg.NRepetitions)
	for rep := range outerFolds {
		seed := model_selection.RepetitionSeed(cfg.Seed, rep)
		folds, err := model_selection.NewStratifiedKFold(cfg.NOuterFolds, true, seed).Split(labels)
		if err != nil {
			return nil, errors.WithFoldContext(err, log.StageOuterSplit, rep, -1)
		}
		inner := model_selection.NewStratifiedKFold(cfg.NInnerFolds, true, seed)
		for fold, f := range folds {
			if _, err := inner.Split(model_selection.TakeLabels(labels, f.TrainIndices)); err != nil {
				return nil, errors.WithFoldContext(err, log.StageInnerSplit, rep, fold)
			}
		}
		outerFolds[rep] = folds
	}
	return outerFolds, nil
}

// estimatorFactory returns the factory of inner pipelines for one repetition.
// Every candidate gets a fresh scaler and a fresh classifier.
func (r *Runner) estimatorFactory(seed uint64) model_selection.EstimatorFactory {
	cc := r.cfg.Classifier
	return func(c float64) model.Classifier {
		return pipeline.New(
			preprocessing.NewRobustScaler(),
			svm.NewLinearSVC(
				svm.WithC(c),
				svm.WithTol(cc.Tol),
				svm.WithMaxIter(cc.MaxIter),
				svm.WithCalibrationFolds(cc.CalibrationFolds),
				svm.WithRandomState(seed),
			),
		)
	}
}

func (r *Runner) runOuterFold(ctx context.Context, X *mat.Dense, y []int, ids []string, rep, fold int, f model_selection.Fold) (*outerOutcome, error) {
	start := time.Now()
	seed := model_selection.RepetitionSeed(r.cfg.Seed, rep)
	logger := r.logger.With(log.RepetitionKey, rep, log.FoldKey, fold)

	XTrain := model_selection.TakeRows(X, f.TrainIndices)
	XTest := model_selection.TakeRows(X, f.TestIndices)
	yTrain := model_selection.TakeLabels(y, f.TrainIndices)
	yTest := model_selection.TakeLabels(y, f.TestIndices)

	scaler := preprocessing.NewRobustScaler()
	XTrainScaled, err := scaler.FitTransform(XTrain)
	if err != nil {
		return nil, errors.WithFoldContext(err, log.StageOuterScale, rep, fold)
	}
	XTestScaled, err := scaler.Transform(XTest)
	if err != nil {
		return nil, errors.WithFoldContext(err, log.StageOuterScale, rep, fold)
	}

	search := model_selection.NewGridSearchCV(
		r.estimatorFactory(seed),
		r.cfg.HyperparameterCandidates,
		model_selection.WithInnerFolds(r.cfg.NInnerFolds),
		model_selection.WithScoring(r.cfg.Scoring()),
		model_selection.WithSeed(seed),
		model_selection.WithWorkers(r.cfg.InnerWorkers),
		model_selection.WithLogger(logger),
	)
	result, err := search.Fit(ctx, XTrainScaled, yTrain)
	if err != nil {
		stage := log.StageInnerSearch
		if errors.IsInsufficientData(err) {
			stage = log.StageInnerSplit
		}
		return nil, errors.WithFoldContext(err, stage, rep, fold)
	}

	best, ok := result.BestEstimator.(*pipeline.Pipeline)
	if !ok {
		return nil, errors.WithFoldContext(
			errors.NewValueError("Runner", "estimator factory must build a pipeline"), log.StageRefit, rep, fold)
	}
	proba, err := best.PredictProba(XTestScaled)
	if err != nil {
		return nil, errors.WithFoldContext(err, log.StageOuterScore, rep, fold)
	}
	positive, err := model_selection.PositiveColumn(proba, best.Classes())
	if err != nil {
		return nil, errors.WithFoldContext(err, log.StageOuterScore, rep, fold)
	}

	testIDs := make([]string, len(f.TestIndices))
	for i, idx := range f.TestIndices {
		testIDs[i] = ids[idx]
	}

	logger.Debug("outer fold fitted",
		log.StageKey, log.StageRefit,
		log.RegularizationKey, result.BestParam,
		log.SamplesKey, len(f.TrainIndices),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if r.onArtifact != nil {
		r.onArtifact(&ModelArtifact{
			Repetition: rep,
			Fold:       fold,
			Scaler:     scaler,
			Pipeline:   best,
			Search:     result,
		})
	}

	return &outerOutcome{
		testIDs:    testIDs,
		testLabels: yTest,
		proba:      mat.Col(nil, 0, positive),
		selectedC:  result.BestParam,
		innerScore: result.BestScore,
	}, nil
}
