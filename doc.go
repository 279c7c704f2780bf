// Package nestcv estimates how well a binary classifier generalizes on tabular
// biomarker data, using repeated nested cross-validation.
//
// Every repetition splits the cohort into stratified outer folds. For each
// outer fold a RobustScaler is fitted on the outer-train rows only, a grid
// search over the SVM regularization strength C runs on stratified inner folds
// of the outer-train partition, and the winner is refit and scored on the
// untouched outer-test rows. The hold-out AUC of every (repetition, fold) is
// aggregated into a mean and a population standard deviation.
//
// # Quick Start
//
//	ds, err := dataset.Load("cohort.xlsx", dataset.TableSpec{
//	    IDColumn:     "Participant_ID",
//	    LabelColumn:  "Diagn",
//	    NegativeCode: "1",
//	    PositiveCode: "17",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := config.DefaultConfig() // 10 repetitions, 10 outer, 5 inner folds
//	res, err := evaluation.NewRunner(cfg).Run(ctx, ds)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("AUC %.3f ± %.3f\n", res.Summary.Mean, res.Summary.Std)
//
// # Packages
//
//   - dataset: samples, CSV/TSV/XLSX loading, covariate normalization, synthetic cohorts
//   - model_selection: StratifiedKFold, GridSearchCV and scoring rules
//   - preprocessing: RobustScaler (median / interquartile range)
//   - sklearn/svm: LinearSVC with dual coordinate descent and Platt calibration
//   - pipeline: scaler + classifier fitted as one estimator
//   - metrics: ROC AUC, log loss, Brier score, accuracy, MAE
//   - evaluation: Runner and MetricAggregator
//   - report: prediction tables, JSON summary, AUC box plot
//   - config: YAML configuration with NESTCV_* environment overrides
//   - core/model, core/parallel: estimator interfaces and the worker pool
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// # Reproducibility
//
// Every random decision (fold shuffles, the SVM coordinate order, the
// calibration folds) takes an explicit seed derived from config.Config.Seed
// and the repetition index. Tasks run on a bounded worker pool and their
// results are reduced in (repetition, fold) order, so a run is bit-identical
// for any worker count.
//
// The nestcv command (cmd/nestcv) wraps the same engine:
//
//	nestcv synth --out cohort.csv
//	nestcv validate --data cohort.csv
//	nestcv run --data cohort.csv --output-dir results
package nestcv
