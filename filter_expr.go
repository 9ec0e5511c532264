package track

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprFilterOption configures an expr filter instance.
type ExprFilterOption func(*exprFilter)

// ExprWithProgramCache wires a ProgramCache into the expr filter.
func ExprWithProgramCache(cache ProgramCache) ExprFilterOption {
	return func(f *exprFilter) {
		f.cache = cache
	}
}

// exprFilter matches operations using github.com/expr-lang/expr.
type exprFilter struct {
	cache      ProgramCache
	expression string
	program    *exprvm.Program
}

// NewExprFilter compiles expression into a Filter backed by expr-lang/expr.
// The expression sees kind, path, key, root, value and prev and must evaluate
// to a boolean.
func NewExprFilter(expression string, opts ...ExprFilterOption) (Filter, error) {
	if expression == "" {
		return nil, wrapFilterError("expr", expression, fmt.Errorf("expression must not be empty"))
	}
	f := &exprFilter{expression: expression}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	program, err := f.loadOrCompile()
	if err != nil {
		return nil, err
	}
	f.program = program
	return f, nil
}

func (f *exprFilter) Match(op Op) (bool, error) {
	out, err := exprlang.Run(f.program, filterEnv(op))
	if err != nil {
		return false, wrapFilterError("expr", f.expression, err)
	}
	return coerceFilterResult("expr", f.expression, out)
}

func (f *exprFilter) loadOrCompile() (*exprvm.Program, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(f.expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	program, err := exprlang.Compile(f.expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, wrapFilterError("expr", f.expression, err)
	}
	if f.cache != nil {
		f.cache.Set(f.expression, program)
	}
	return program, nil
}
