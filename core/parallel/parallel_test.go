package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/YuminosukeSato/nestcv/pkg/errors"
)

func TestMapPreservesIndexOrder(t *testing.T) {
	for _, workers := range []int{1, 3, 0} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got, err := Map(context.Background(), 50, workers, func(_ context.Context, i int) (int, error) {
				return i * i, nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i, v := range got {
				if v != i*i {
					t.Fatalf("result[%d] = %d, want %d", i, v, i*i)
				}
			}
		})
	}
}

func TestMapReturnsFirstErrorSequentially(t *testing.T) {
	var ran int32
	_, err := Map(context.Background(), 10, 1, func(_ context.Context, i int) (int, error) {
		atomic.AddInt32(&ran, 1)
		if i == 3 {
			return 0, errors.NewDegenerateInputError("train", fmt.Sprintf("task %d", i))
		}
		return i, nil
	})
	if !errors.IsDegenerateInput(err) {
		t.Fatalf("expected DegenerateInputError, got %v", err)
	}
	if ran != 4 {
		t.Errorf("expected tasks after the failure to be skipped, ran %d", ran)
	}
}

func TestMapRecoversPanics(t *testing.T) {
	_, err := Map(context.Background(), 4, 2, func(_ context.Context, i int) (int, error) {
		if i == 2 {
			panic("solver exploded")
		}
		return i, nil
	})
	var panicErr *errors.PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("expected PanicError, got %v", err)
	}
	if panicErr.Operation != "task 2" {
		t.Errorf("Operation = %q, want %q", panicErr.Operation, "task 2")
	}
}

func TestMapRecoversPanicInFoldTask(t *testing.T) {
	const nReps, nFolds = 2, 3
	// the last fold of the last repetition has no test rows
	testRows := [][]int{{0, 1}, {2, 3}, {4, 5}, {0, 2}, {1, 4}, {}}

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			_, err := Map(context.Background(), nReps*nFolds, workers, func(_ context.Context, task int) (int, error) {
				rep, fold := task/nFolds, task%nFolds
				first := testRows[rep*nFolds+fold][0]
				return first, nil
			})

			var pe *errors.PanicError
			if !errors.As(err, &pe) {
				t.Fatalf("Map() = %v, want *PanicError", err)
			}
			if pe.Operation != "task 5" {
				t.Errorf("Operation = %q, want %q", pe.Operation, "task 5")
			}
			if _, ok := pe.PanicValue.(runtime.Error); !ok {
				t.Errorf("PanicValue = %T, want runtime.Error", pe.PanicValue)
			}
		})
	}
}

func TestMapEmpty(t *testing.T) {
	got, err := Map(context.Background(), 0, 4, func(_ context.Context, i int) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})
	if err != nil || len(got) != 0 {
		t.Errorf("Map(0) = %v, %v", got, err)
	}
}

func TestWorkers(t *testing.T) {
	if got := Workers(8, 3); got != 3 {
		t.Errorf("Workers(8, 3) = %d, want 3", got)
	}
	if got := Workers(2, 10); got != 2 {
		t.Errorf("Workers(2, 10) = %d, want 2", got)
	}
	if got := Workers(-1, 1); got != 1 {
		t.Errorf("Workers(-1, 1) = %d, want 1", got)
	}
}

func TestParallelizeWithThresholdCoversRange(t *testing.T) {
	for _, items := range []int{0, 5, 1000} {
		seen := make([]int32, items)
		ParallelizeWithThreshold(items, 10, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, c := range seen {
			if c != 1 {
				t.Fatalf("items=%d: index %d visited %d times", items, i, c)
			}
		}
	}
}
