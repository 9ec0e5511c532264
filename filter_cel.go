package track

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
)

// CELFilterOption configures the CEL filter.
type CELFilterOption func(*celFilter)

// CELWithProgramCache wires a ProgramCache into the CEL filter.
func CELWithProgramCache(cache ProgramCache) CELFilterOption {
	return func(f *celFilter) {
		f.cache = cache
	}
}

// celFilter matches operations using cel-go.
type celFilter struct {
	cache      ProgramCache
	expression string
	program    celgo.Program
}

// NewCELFilter compiles expression into a Filter backed by cel-go. The
// expression sees the same environment as the expr engine and must evaluate
// to a boolean.
func NewCELFilter(expression string, opts ...CELFilterOption) (Filter, error) {
	if expression == "" {
		return nil, wrapFilterError("cel", expression, fmt.Errorf("expression must not be empty"))
	}
	f := &celFilter{expression: expression}
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

func (f *celFilter) Match(op Op) (bool, error) {
	out, _, err := f.program.Eval(filterEnv(op))
	if err != nil {
		return false, wrapFilterError("cel", f.expression, err)
	}
	return coerceFilterResult("cel", f.expression, out.Value())
}

func (f *celFilter) loadOrCompile() (celgo.Program, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(f.expression); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}
	env, err := celgo.NewEnv(
		celgo.Variable("kind", celgo.StringType),
		celgo.Variable("path", celgo.ListType(celgo.StringType)),
		celgo.Variable("key", celgo.StringType),
		celgo.Variable("root", celgo.StringType),
		celgo.Variable("value", celgo.DynType),
		celgo.Variable("prev", celgo.DynType),
	)
	if err != nil {
		return nil, wrapFilterError("cel", f.expression, err)
	}
	ast, issues := env.Parse(f.expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapFilterError("cel", f.expression, issues.Err())
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, wrapFilterError("cel", f.expression, issues.Err())
	}
	program, err := env.Program(checked)
	if err != nil {
		return nil, wrapFilterError("cel", f.expression, err)
	}
	if f.cache != nil {
		f.cache.Set(f.expression, program)
	}
	return program, nil
}
