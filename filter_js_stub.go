//go:build !js_eval

package track

// NewJSFilter is unavailable without the js_eval build tag.
func NewJSFilter(expression string, opts ...JSFilterOption) (Filter, error) {
	_ = applyJSFilterOptions(opts)
	return nil, ErrJSFilterUnavailable
}

func jsFilterAvailable() bool {
	return false
}
