package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError は回復されたpanicから作成されたエラーです。
// ワーカープール内のタスクがpanicした場合でも、実行全体をクラッシュさせずに
// 呼び出し元へエラーとして返すために使用します。
type PanicError struct {
	// PanicValue はpanic()に渡された元の値
	PanicValue interface{}
	// StackTrace はpanic発生時のスタックトレース
	StackTrace string
	// Operation はpanicを回復した処理の名前
	Operation string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap はnilを返します。PanicErrorは他のエラーをラップしません。
func (e *PanicError) Unwrap() error {
	return nil
}

// String はスタックトレースを含む詳細な情報を返します。
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError は新しいPanicErrorを作成します。
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover はdeferで使用し、panicをエラーに変換します。
//
//	func (r *Runner) runTask() (err error) {
//	    defer errors.Recover(&err, "outer_fold")
//	    ...
//	}
//
// 既にエラーが設定されている場合は、panic情報でそのエラーをラップします。
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		if *err != nil {
			*err = Wrapf(*err, "panic in %s: %v", operation, r)
			return
		}
		*err = NewPanicError(operation, r)
	}
}

// SafeExecute は関数を実行し、panicが発生した場合はエラーに変換して返します。
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
