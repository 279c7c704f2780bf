package report

import (
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/nestcv/config"
	"github.com/YuminosukeSato/nestcv/evaluation"
	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// RunParameters records the settings a summary was produced with.
type RunParameters struct {
	NRepetitions int       `json:"n_repetitions"`
	NOuterFolds  int       `json:"n_outer_folds"`
	NInnerFolds  int       `json:"n_inner_folds"`
	Candidates   []float64 `json:"hyperparameter_candidates"`
	ScoringRule  string    `json:"scoring_rule"`
	Seed         uint64    `json:"seed"`
	NormalizeBy  string    `json:"normalize_by,omitempty"`
}

// SummaryDocument is the JSON summary of one run.
type SummaryDocument struct {
	RunID      uuid.UUID          `json:"run_id"`
	Started    time.Time          `json:"started"`
	DurationMs int64              `json:"duration_ms"`
	NSamples   int                `json:"n_samples"`
	NFeatures  int                `json:"n_features"`
	Parameters RunParameters      `json:"parameters"`
	Summary    evaluation.Summary `json:"summary"`
	RepMeans   []float64          `json:"repetition_mean_auc"`
	// Selected counts how often each candidate won an outer fold.
	Selected map[string]int `json:"selected_c_counts"`
}

// NewSummaryDocument builds the summary of res under cfg.
func NewSummaryDocument(res *evaluation.Result, cfg *config.Config) *SummaryDocument {
	doc := &SummaryDocument{
		RunID:      res.RunID,
		Started:    res.Started.UTC(),
		DurationMs: res.Duration.Milliseconds(),
		NSamples:   res.NSamples,
		NFeatures:  res.NFeatures,
		Parameters: RunParameters{
			NRepetitions: cfg.NRepetitions,
			NOuterFolds:  cfg.NOuterFolds,
			NInnerFolds:  cfg.NInnerFolds,
			Candidates:   append([]float64(nil), cfg.HyperparameterCandidates...),
			ScoringRule:  cfg.ScoringRule,
			Seed:         cfg.Seed,
			NormalizeBy:  cfg.Data.NormalizeBy,
		},
		Summary:  *res.Summary,
		RepMeans: res.Summary.RepetitionMeans(),
		Selected: make(map[string]int),
	}
	for _, fs := range res.Summary.Scores {
		doc.Selected[formatC(fs.SelectedC)]++
	}
	return doc
}

// WriteSummaryJSON writes doc as indented JSON.
func WriteSummaryJSON(w io.Writer, doc *SummaryDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encode summary")
	}
	return nil
}

// ReadSummaryJSON decodes a summary written by WriteSummaryJSON.
func ReadSummaryJSON(r io.Reader) (*SummaryDocument, error) {
	var doc SummaryDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode summary")
	}
	return &doc, nil
}

func formatC(c float64) string {
	return strconv.FormatFloat(c, 'g', -1, 64)
}
