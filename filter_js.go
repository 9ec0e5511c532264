//go:build js_eval

package track

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsFilter matches operations using goja. A fresh VM is prepared per match so
// expressions cannot leak state between operations.
type jsFilter struct {
	cache      ProgramCache
	expression string
	program    *goja.Program
}

// NewJSFilter compiles expression into a Filter backed by goja. The
// expression sees the same environment as the expr engine and must evaluate
// to a boolean.
func NewJSFilter(expression string, opts ...JSFilterOption) (Filter, error) {
	if expression == "" {
		return nil, wrapFilterError("js", expression, fmt.Errorf("expression must not be empty"))
	}
	cfg := applyJSFilterOptions(opts)
	f := &jsFilter{cache: cfg.cache, expression: expression}
	program, err := f.loadOrCompile()
	if err != nil {
		return nil, err
	}
	f.program = program
	return f, nil
}

func (f *jsFilter) Match(op Op) (bool, error) {
	vm := goja.New()
	for name, value := range filterEnv(op) {
		if err := vm.Set(name, value); err != nil {
			return false, wrapFilterError("js", f.expression, err)
		}
	}
	out, err := vm.RunProgram(f.program)
	if err != nil {
		return false, wrapFilterError("js", f.expression, err)
	}
	return coerceFilterResult("js", f.expression, out.Export())
}

func (f *jsFilter) loadOrCompile() (*goja.Program, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(f.expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("filter", f.expression, true)
	if err != nil {
		return nil, wrapFilterError("js", f.expression, err)
	}
	if f.cache != nil {
		f.cache.Set(f.expression, program)
	}
	return program, nil
}

func jsFilterAvailable() bool {
	return true
}
