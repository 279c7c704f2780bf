package evaluation

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"

	"github.com/YuminosukeSato/nestcv/metrics"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// FoldScore is the hold-out result of one (repetition, outer fold).
type FoldScore struct {
	Repetition int     `json:"repetition"`
	Fold       int     `json:"fold"`
	AUC        float64 `json:"auc"`
	SelectedC  float64 `json:"selected_c"`
	InnerScore float64 `json:"inner_score"`
	NTest      int     `json:"n_test"`
}

// Summary aggregates the fold scores of a finalized run.
type Summary struct {
	// Scores is ordered by repetition, then fold.
	Scores []FoldScore `json:"scores"`
	Mean   float64     `json:"mean_auc"`
	// Std is the population standard deviation of the fold AUCs.
	Std float64 `json:"std_auc"`
	Min float64 `json:"min_auc"`
	Max float64 `json:"max_auc"`
}

// AUCs returns the fold AUCs in Scores order.
func (s *Summary) AUCs() []float64 {
	out := make([]float64, len(s.Scores))
	for i, fs := range s.Scores {
		out[i] = fs.AUC
	}
	return out
}

// RepetitionMeans returns the mean AUC of every repetition.
func (s *Summary) RepetitionMeans() []float64 {
	var (
		means []float64
		sum   float64
		n     int
		rep   = -1
	)
	for _, fs := range s.Scores {
		if fs.Repetition != rep && n > 0 {
			means = append(means, sum/float64(n))
			sum, n = 0, 0
		}
		rep = fs.Repetition
		sum += fs.AUC
		n++
	}
	if n > 0 {
		means = append(means, sum/float64(n))
	}
	return means
}

type aggregatorState int

const (
	collecting aggregatorState = iota
	finalized
)

type slot struct {
	recorded bool
	score    FoldScore
}

// MetricAggregator collects hold-out predictions of every (repetition, fold)
// slot and turns them into a Summary once all slots are recorded.
//
// The aggregator is Collecting until Finalize succeeds; afterwards it is
// Finalized and rejects further records.
type MetricAggregator struct {
	mu          sync.Mutex
	nReps       int
	nFolds      int
	state       aggregatorState
	slots       []slot
	predictions *PredictionTable
	summary     *Summary
}

// NewMetricAggregator creates an aggregator expecting nRepetitions × nFolds records.
func NewMetricAggregator(nRepetitions, nFolds int) *MetricAggregator {
	return &MetricAggregator{
		nReps:       nRepetitions,
		nFolds:      nFolds,
		slots:       make([]slot, max(nRepetitions*nFolds, 0)),
		predictions: newPredictionTable(nRepetitions),
	}
}

func (a *MetricAggregator) index(op string, rep, fold int) (int, error) {
	if rep < 0 || rep >= a.nReps {
		return 0, errors.NewValueError(op, fmt.Sprintf("repetition %d out of range [0, %d)", rep, a.nReps))
	}
	if fold < 0 || fold >= a.nFolds {
		return 0, errors.NewValueError(op, fmt.Sprintf("fold %d out of range [0, %d)", fold, a.nFolds))
	}
	return rep*a.nFolds + fold, nil
}

// Record scores the hold-out probabilities of one (repetition, fold) and
// stores them in the prediction table.
//
// It fails after Finalize, on a slot that is already recorded, and with a
// DegenerateInputError when the labels contain a single class.
func (a *MetricAggregator) Record(rep, fold int, ids []string, labels []int, probabilities []float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == finalized {
		return errors.Wrapf(errors.ErrFinalized, "record repetition %d fold %d", rep, fold)
	}
	idx, err := a.index("MetricAggregator.Record", rep, fold)
	if err != nil {
		return err
	}
	if a.slots[idx].recorded {
		return errors.NewValueError("MetricAggregator.Record",
			fmt.Sprintf("repetition %d fold %d already recorded", rep, fold))
	}
	if len(ids) != len(labels) {
		return errors.NewDimensionError("MetricAggregator.Record", len(labels), len(ids), 0)
	}
	if len(probabilities) != len(labels) {
		return errors.NewDimensionError("MetricAggregator.Record", len(labels), len(probabilities), 0)
	}
	for _, p := range probabilities {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return errors.NewValueError("MetricAggregator.Record", fmt.Sprintf("probability %v outside [0, 1]", p))
		}
	}

	auc, err := metrics.ROCAUC(labels, probabilities)
	if err != nil {
		return err
	}
	if err := a.predictions.add(rep, ids, labels, probabilities); err != nil {
		return err
	}

	a.slots[idx] = slot{
		recorded: true,
		score: FoldScore{
			Repetition: rep,
			Fold:       fold,
			AUC:        auc,
			NTest:      len(labels),
		},
	}
	return nil
}

// RecordSelection attaches the selected regularization strength and its
// inner score to an already recorded slot.
func (a *MetricAggregator) RecordSelection(rep, fold int, c, innerScore float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == finalized {
		return errors.Wrapf(errors.ErrFinalized, "record selection repetition %d fold %d", rep, fold)
	}
	idx, err := a.index("MetricAggregator.RecordSelection", rep, fold)
	if err != nil {
		return err
	}
	if !a.slots[idx].recorded {
		return errors.NewValueError("MetricAggregator.RecordSelection",
			fmt.Sprintf("repetition %d fold %d not recorded", rep, fold))
	}
	a.slots[idx].score.SelectedC = c
	a.slots[idx].score.InnerScore = innerScore
	return nil
}

// Finalize computes the Summary. Every slot must have been recorded.
func (a *MetricAggregator) Finalize() (*Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == finalized {
		return nil, errors.ErrFinalized
	}
	if len(a.slots) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "MetricAggregator.Finalize")
	}

	scores := make([]FoldScore, len(a.slots))
	aucs := make(stats.Float64Data, len(a.slots))
	var missing int
	for i, s := range a.slots {
		if !s.recorded {
			missing++
			continue
		}
		scores[i] = s.score
		aucs[i] = s.score.AUC
	}
	if missing > 0 {
		return nil, errors.NewValueError("MetricAggregator.Finalize",
			fmt.Sprintf("%d of %d (repetition, fold) slots not recorded", missing, len(a.slots)))
	}

	mean, err := stats.Mean(aucs)
	if err != nil {
		return nil, errors.Wrap(err, "mean auc")
	}
	std, err := stats.StandardDeviationPopulation(aucs)
	if err != nil {
		return nil, errors.Wrap(err, "std auc")
	}
	lo, _ := stats.Min(aucs)
	hi, _ := stats.Max(aucs)

	a.state = finalized
	a.summary = &Summary{Scores: scores, Mean: mean, Std: std, Min: lo, Max: hi}
	return a.summary, nil
}

// Predictions returns the prediction table. It is complete only after Finalize.
func (a *MetricAggregator) Predictions() *PredictionTable {
	return a.predictions
}

// PredictionTable holds the hold-out probability of every sample in every
// repetition. A sample has at most one probability per repetition.
type PredictionTable struct {
	nReps  int
	ids    []string
	labels map[string]int
	probs  map[string][]float64
}

func newPredictionTable(nReps int) *PredictionTable {
	return &PredictionTable{
		nReps:  nReps,
		labels: make(map[string]int),
		probs:  make(map[string][]float64),
	}
}

// add validates the whole batch before writing any of it, so a rejected
// batch leaves the table unchanged.
func (t *PredictionTable) add(rep int, ids []string, labels []int, probabilities []float64) error {
	batch := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := batch[id]; dup {
			return errors.NewValueError("PredictionTable",
				fmt.Sprintf("sample %q predicted twice in repetition %d", id, rep))
		}
		batch[id] = i
		row, ok := t.probs[id]
		if !ok {
			continue
		}
		if t.labels[id] != labels[i] {
			return errors.NewValueError("PredictionTable",
				fmt.Sprintf("sample %q recorded with labels %d and %d", id, t.labels[id], labels[i]))
		}
		if !math.IsNaN(row[rep]) {
			return errors.NewValueError("PredictionTable",
				fmt.Sprintf("sample %q predicted twice in repetition %d", id, rep))
		}
	}

	for i, id := range ids {
		if _, ok := t.probs[id]; !ok {
			row := make([]float64, t.nReps)
			for r := range row {
				row[r] = math.NaN()
			}
			t.probs[id] = row
			t.labels[id] = labels[i]
			t.ids = append(t.ids, id)
		}
		t.probs[id][rep] = probabilities[i]
	}
	return nil
}

// NRepetitions returns the number of repetition columns.
func (t *PredictionTable) NRepetitions() int { return t.nReps }

// Len returns the number of samples.
func (t *PredictionTable) Len() int { return len(t.ids) }

// IDs returns the sample ids in row order.
func (t *PredictionTable) IDs() []string { return append([]string(nil), t.ids...) }

// Label returns the true label of a sample.
func (t *PredictionTable) Label(id string) (int, bool) {
	l, ok := t.labels[id]
	return l, ok
}

// Probability returns P(class = 1) of a sample in one repetition.
func (t *PredictionTable) Probability(id string, rep int) (float64, bool) {
	row, ok := t.probs[id]
	if !ok || rep < 0 || rep >= t.nReps || math.IsNaN(row[rep]) {
		return 0, false
	}
	return row[rep], true
}

// SortBy puts the rows in the order of ids. Rows not in ids keep their
// relative order after the listed ones.
func (t *PredictionTable) SortBy(ids []string) {
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	sort.SliceStable(t.ids, func(i, j int) bool {
		ri, okI := rank[t.ids[i]]
		rj, okJ := rank[t.ids[j]]
		switch {
		case okI && okJ:
			return ri < rj
		default:
			return okI && !okJ
		}
	})
}
