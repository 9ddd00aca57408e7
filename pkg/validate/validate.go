// Package validate implements the invariant-failure half of the
// two-taxonomy error model (spec.md §7): assertion-level failures that
// can never be recovered from within a block and must halt the process.
package validate

import (
	"fmt"

	"chainrealm/pkg/gamelog"
)

// InvariantError is panicked by Fatalf. pipeline.ProcessBlock recovers
// it only to roll the block's transaction back and then re-panics;
// nothing recovers it after that, so the panic ends the process.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return e.Msg }

// Fatalf logs the invariant failure at Error severity and panics with
// an *InvariantError. There is no return: callers use it exactly like
// log.Fatalf, as a statement, never as an expression.
func Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	gamelog.Error("invariant violated", gamelog.Reason(msg))
	panic(&InvariantError{Msg: msg})
}

// Require panics via Fatalf when cond is false. Used at call sites that
// already have a human-readable description of the invariant.
func Require(cond bool, format string, args ...any) {
	if !cond {
		Fatalf(format, args...)
	}
}
