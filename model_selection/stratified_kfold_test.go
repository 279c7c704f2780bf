package model_selection

import (
	"reflect"
	"testing"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

func makeLabels(neg, pos int) []int {
	total := neg + pos
	labels := make([]int, 0, total)
	for i := 0; i < total; i++ {
		// interleave so class membership is not contiguous
		if i%2 == 1 && pos > 0 || neg == 0 {
			labels = append(labels, 1)
			pos--
		} else {
			labels = append(labels, 0)
			neg--
		}
	}
	return labels
}

func TestMakeLabels(t *testing.T) {
	tests := []struct{ neg, pos int }{{70, 13}, {3, 3}, {50, 50}, {0, 4}, {5, 0}}
	for _, tt := range tests {
		labels := makeLabels(tt.neg, tt.pos)
		if len(labels) != tt.neg+tt.pos {
			t.Fatalf("makeLabels(%d, %d) len = %d", tt.neg, tt.pos, len(labels))
		}
		counts := [2]int{}
		for _, l := range labels {
			counts[l]++
		}
		if counts != [2]int{tt.neg, tt.pos} {
			t.Errorf("makeLabels(%d, %d) counts = %v", tt.neg, tt.pos, counts)
		}
	}
}

func TestStratifiedKFoldDisjointAndExhaustive(t *testing.T) {
	tests := []struct {
		name    string
		neg     int
		pos     int
		nSplits int
	}{
		{"balanced", 50, 50, 5},
		{"imbalanced", 70, 13, 10},
		{"minimum members", 3, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := makeLabels(tt.neg, tt.pos)
			folds, err := NewStratifiedKFold(tt.nSplits, true, 42).Split(labels)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if len(folds) != tt.nSplits {
				t.Fatalf("got %d folds, want %d", len(folds), tt.nSplits)
			}

			seen := make([]int, len(labels))
			for f, fold := range folds {
				if len(fold.TrainIndices)+len(fold.TestIndices) != len(labels) {
					t.Errorf("fold %d: train+test = %d, want %d", f,
						len(fold.TrainIndices)+len(fold.TestIndices), len(labels))
				}
				inTest := make(map[int]bool)
				for i, idx := range fold.TestIndices {
					if i > 0 && fold.TestIndices[i-1] >= idx {
						t.Errorf("fold %d: test indices not sorted ascending", f)
					}
					inTest[idx] = true
					seen[idx]++
				}
				for _, idx := range fold.TrainIndices {
					if inTest[idx] {
						t.Errorf("fold %d: index %d in both train and test", f, idx)
					}
				}
			}
			for idx, n := range seen {
				if n != 1 {
					t.Errorf("index %d appears in %d test folds, want 1", idx, n)
				}
			}
		})
	}
}

func TestStratifiedKFoldProportions(t *testing.T) {
	labels := makeLabels(70, 13)
	k := 10
	folds, err := NewStratifiedKFold(k, true, 7).Split(labels)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	total := [2]float64{70, 13}
	minSize, maxSize := len(labels), 0
	for f, fold := range folds {
		var counts [2]float64
		for _, idx := range fold.TestIndices {
			counts[labels[idx]]++
		}
		for class := range counts {
			share := total[class] / float64(k)
			if diff := counts[class] - share; diff >= 1 || diff <= -1 {
				t.Errorf("fold %d class %d: %v members, proportional share %v", f, class, counts[class], share)
			}
		}
		if n := len(fold.TestIndices); n < minSize {
			minSize = n
		}
		if n := len(fold.TestIndices); n > maxSize {
			maxSize = n
		}
	}
	if maxSize-minSize > 1 {
		t.Errorf("test fold sizes range %d..%d, want a spread of at most 1", minSize, maxSize)
	}
}

func TestStratifiedKFoldDeterminism(t *testing.T) {
	labels := makeLabels(40, 20)

	a, err := NewStratifiedKFold(5, true, RepetitionSeed(0, 3)).Split(labels)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewStratifiedKFold(5, true, RepetitionSeed(0, 3)).Split(labels)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical seeds produced different folds")
	}

	c, err := NewStratifiedKFold(5, true, RepetitionSeed(0, 4)).Split(labels)
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(a, c) {
		t.Error("different repetition seeds produced identical folds")
	}
}

func TestStratifiedKFoldErrors(t *testing.T) {
	tests := []struct {
		name      string
		labels    []int
		nSplits   int
		wantCheck func(error) bool
	}{
		{"too few splits", makeLabels(10, 10), 1, errors.IsConfiguration},
		{"non-binary label", []int{0, 1, 2, 0, 1, 0}, 2, errors.IsConfiguration},
		{"minority class smaller than folds", makeLabels(98, 2), 5, errors.IsInsufficientData},
		{"missing class", []int{0, 0, 0, 0, 0}, 2, errors.IsInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStratifiedKFold(tt.nSplits, true, 0).Split(tt.labels)
			if err == nil {
				t.Fatal("Split() expected error")
			}
			if !tt.wantCheck(err) {
				t.Errorf("unexpected error type: %v", err)
			}
		})
	}

	_, err := NewStratifiedKFold(5, true, 0).Split(makeLabels(98, 2))
	var ide *errors.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("error = %v, want *InsufficientDataError", err)
	}
	if ide.Class != 1 || ide.Have != 2 || ide.Need != 5 {
		t.Errorf("InsufficientDataError = %+v, want class 1 have 2 need 5", ide)
	}
}

func TestStratifiedKFoldWithoutShuffleIsOrdered(t *testing.T) {
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1}
	folds, err := NewStratifiedKFold(2, false, 0).Split(labels)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]int{{0, 2, 4, 6}, {1, 3, 5, 7}}
	for f, fold := range folds {
		if !reflect.DeepEqual(fold.TestIndices, want[f]) {
			t.Errorf("fold %d test = %v, want %v", f, fold.TestIndices, want[f])
		}
	}
}
