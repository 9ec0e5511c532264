package track

import (
	"errors"
	"fmt"
)

// Filter decides whether an operation is delivered to a subscription.
type Filter interface {
	Match(op Op) (bool, error)
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(op Op) (bool, error)

// Match dispatches to the underlying function.
func (f FilterFunc) Match(op Op) (bool, error) {
	if f == nil {
		return true, nil
	}
	return f(op)
}

// FilterError captures filter engine metadata alongside the originating
// error.
type FilterError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *FilterError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("track: %s filter expr=%q: %v", e.Engine, e.Expr, e.Err)
}

func (e *FilterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapFilterError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}
	var filterErr *FilterError
	if errors.As(err, &filterErr) {
		return err
	}
	return &FilterError{Engine: engine, Expr: expr, Err: err}
}

// filterEnv builds the expression environment an operation is evaluated
// against: kind, path, key (leaf), root (first path element), value and prev.
func filterEnv(op Op) map[string]any {
	return map[string]any{
		"kind":  string(op.Kind),
		"path":  op.Path,
		"key":   op.Key(),
		"root":  op.Root(),
		"value": op.Value,
		"prev":  op.Prev,
	}
}

func coerceFilterResult(engine, expr string, out any) (bool, error) {
	match, ok := out.(bool)
	if !ok {
		return false, wrapFilterError(engine, expr, fmt.Errorf("filter must evaluate to bool, got %T", out))
	}
	return match, nil
}
