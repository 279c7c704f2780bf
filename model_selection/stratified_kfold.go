// Package model_selection partitions labelled data into stratified folds and
// selects the regularization strength of a classifier by inner
// cross-validation.
package model_selection

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

// pcgStream is the fixed second PCG word; the seed selects the sequence.
const pcgStream = 0x9e3779b97f4a7c15

// NewRand returns a deterministic generator for the given seed. Every
// component that shuffles takes its own generator so no random state is
// shared between concurrent tasks.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, pcgStream))
}

// RepetitionSeed derives the seed of one repetition from the run's base seed.
// With base 0 the repetition index itself is the seed.
func RepetitionSeed(base uint64, repetition int) uint64 {
	return base + uint64(repetition)
}

// Fold is one train/test split. Both index slices are sorted ascending.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// StratifiedKFold は各クラスの比率を保ったK分割交差検証の分割器
type StratifiedKFold struct {
	nSplits int
	shuffle bool
	seed    uint64
}

// NewStratifiedKFold は新しいStratifiedKFoldを作成する
//
// shuffle が true の場合、各クラスのメンバーを seed で初期化したPCG乱数で
// シャッフルしてからフォールドに割り当てる。同じ入力と seed からは常に同じ
// 分割が得られる。
func NewStratifiedKFold(nSplits int, shuffle bool, seed uint64) *StratifiedKFold {
	return &StratifiedKFold{nSplits: nSplits, shuffle: shuffle, seed: seed}
}

// NSplits returns the number of folds.
func (s *StratifiedKFold) NSplits() int { return s.nSplits }

// Split assigns every index of labels to exactly one test fold.
//
// Members of each class are dealt round-robin over the folds, so the count of
// a class in any test fold is the floor or ceiling of its proportional share.
// The second class continues the rotation where the first stopped, which keeps
// total fold sizes within one of each other.
func (s *StratifiedKFold) Split(labels []int) ([]Fold, error) {
	if s.nSplits < 2 {
		return nil, errors.NewConfigurationError("n_splits", "must be at least 2", s.nSplits)
	}

	var members [2][]int
	for i, label := range labels {
		if label != 0 && label != 1 {
			return nil, errors.NewConfigurationError("labels",
				fmt.Sprintf("label at index %d is not binary", i), label)
		}
		members[label] = append(members[label], i)
	}
	for class, m := range members {
		if len(m) < s.nSplits {
			return nil, errors.NewInsufficientDataError("stratified_split", class, len(m), s.nSplits)
		}
	}

	var rng *rand.Rand
	if s.shuffle {
		rng = NewRand(s.seed)
	}

	testSets := make([][]int, s.nSplits)
	offset := 0
	for _, m := range members {
		m = append([]int(nil), m...)
		if rng != nil {
			rng.Shuffle(len(m), func(i, j int) { m[i], m[j] = m[j], m[i] })
		}
		for k, idx := range m {
			f := (offset + k) % s.nSplits
			testSets[f] = append(testSets[f], idx)
		}
		offset = (offset + len(m)) % s.nSplits
	}

	folds := make([]Fold, s.nSplits)
	inTest := make([]bool, len(labels))
	for f, test := range testSets {
		sort.Ints(test)
		for _, idx := range test {
			inTest[idx] = true
		}
		train := make([]int, 0, len(labels)-len(test))
		for i := range labels {
			if !inTest[i] {
				train = append(train, i)
			}
		}
		for _, idx := range test {
			inTest[idx] = false
		}
		folds[f] = Fold{TrainIndices: train, TestIndices: test}
	}
	return folds, nil
}

// TakeRows returns a new matrix holding the given rows of X in order.
func TakeRows(X mat.Matrix, indices []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(indices), c, nil)
	row := make([]float64, c)
	for i, idx := range indices {
		mat.Row(row, idx, X)
		out.SetRow(i, row)
	}
	return out
}

// TakeLabels returns the labels at the given indices.
func TakeLabels(y []int, indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[i] = y[idx]
	}
	return out
}

// LabelVector converts 0/1 labels into an n×1 column vector.
func LabelVector(y []int) *mat.VecDense {
	data := make([]float64, len(y))
	for i, v := range y {
		data[i] = float64(v)
	}
	return mat.NewVecDense(len(y), data)
}
