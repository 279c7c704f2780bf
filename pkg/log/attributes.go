// Package log defines standard attribute keys for evaluation runs.
//
// The keys follow a hierarchical naming convention ("cv.fold", "data.samples")
// so that records from concurrent fold tasks can be filtered and joined after
// the run.
package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "LinearSVC", "RobustScaler", "Pipeline"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict_proba", "transform", "score", "split"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "model_selection", "preprocessing", "evaluation"
	ComponentKey = "ml.component"

	// RunIDKey identifies one evaluation run.
	RunIDKey = "run.id"
)

// Cross-validation position
// These attributes locate a record inside the repetition × outer fold × inner
// fold × candidate loop nest.
const (
	// RepetitionKey is the zero-based repetition index.
	RepetitionKey = "cv.repetition"

	// FoldKey is the zero-based outer fold index.
	FoldKey = "cv.fold"

	// InnerFoldKey is the zero-based inner fold index.
	InnerFoldKey = "cv.inner_fold"

	// StageKey names the pipeline stage ("outer_split", "inner_search", "refit", "score").
	StageKey = "cv.stage"

	// NFoldsKey is the fold count of the split being produced.
	NFoldsKey = "cv.n_folds"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// PositivesKey indicates the number of positive-class samples.
	PositivesKey = "data.positives"

	// ColumnsKey lists affected column indices.
	ColumnsKey = "data.columns"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AUCKey records the area under the ROC curve of one fold.
	AUCKey = "metrics.auc"

	// ScoreKey records the inner scoring-rule value.
	ScoreKey = "metrics.score"

	// ScoringRuleKey names the scoring rule used for model selection.
	ScoringRuleKey = "metrics.scoring_rule"

	// MeanKey and StdKey record aggregate statistics.
	MeanKey = "metrics.mean"
	StdKey  = "metrics.std"

	// IterationKey records the number of solver iterations.
	IterationKey = "training.iteration"
)

// Error and Warning Context
const (
	// ErrorKey holds the error value itself.
	ErrorKey = "error"

	// ErrorTypeKey categorizes the error.
	// Examples: "InsufficientDataError", "DegenerateInputError"
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated by the error logging functions.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// RegularizationKey records the margin/slack trade-off C.
	RegularizationKey = "hyperparams.regularization"

	// CandidatesKey records the hyperparameter candidate set.
	CandidatesKey = "hyperparams.candidates"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// WorkersKey records the worker pool size.
	WorkersKey = "config.workers"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredictProba = "predict_proba"
	OperationTransform    = "transform"
	OperationScore        = "score"
	OperationSplit        = "split"

	StageOuterSplit  = "outer_split"
	StageOuterScale  = "outer_scale"
	StageInnerSplit  = "inner_split"
	StageInnerSearch = "inner_search"
	StageRefit       = "refit"
	StageOuterScore  = "outer_score"
	StageCalibration = "calibration"
)
