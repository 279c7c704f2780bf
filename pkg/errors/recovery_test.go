package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestSafeExecute(t *testing.T) {
	solverFailure := NewValueError("LinearSVC.Fit", "no samples")

	tests := []struct {
		name      string
		fn        func() error
		wantPanic interface{}
		wantErr   error
	}{
		{"success", func() error { return nil }, nil, nil},
		{"returned error passes through", func() error { return solverFailure }, nil, solverFailure},
		{"string panic", func() error { panic("dual step diverged") }, "dual step diverged", nil},
		{"integer panic", func() error { panic(7) }, 7, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("rep 1 fold 3", tt.fn)

			if tt.wantPanic == nil {
				if err != tt.wantErr {
					t.Fatalf("SafeExecute() = %v, want %v", err, tt.wantErr)
				}
				return
			}

			var pe *PanicError
			if !errors.As(err, &pe) {
				t.Fatalf("SafeExecute() = %T %v, want *PanicError", err, err)
			}
			if pe.PanicValue != tt.wantPanic {
				t.Errorf("PanicValue = %v, want %v", pe.PanicValue, tt.wantPanic)
			}
			if pe.Operation != "rep 1 fold 3" {
				t.Errorf("Operation = %q", pe.Operation)
			}
			if !strings.Contains(pe.String(), "Stack trace:") || pe.StackTrace == "" {
				t.Error("panic error carries no stack trace")
			}
			if pe.Unwrap() != nil {
				t.Error("PanicError must not wrap another error")
			}
		})
	}
}

func TestRecoverKeepsEarlierError(t *testing.T) {
	fitErr := NewConvergenceWarning("dual_cd", 1000, "max_iter reached")

	run := func() (err error) {
		defer Recover(&err, "outer_fold")
		err = fitErr
		panic("refit failed")
	}

	err := run()
	if err == nil {
		t.Fatal("Recover() left a nil error")
	}
	if !strings.Contains(err.Error(), "panic in outer_fold: refit failed") {
		t.Errorf("error %q does not mention the panic", err)
	}
	var cw *ConvergenceWarning
	if !errors.As(err, &cw) {
		t.Errorf("earlier error lost: %v", err)
	}
}
