package track

import "errors"

// ErrJSFilterUnavailable indicates the binary was built without the js_eval
// build tag.
var ErrJSFilterUnavailable = errors.New("track: js filter requires the js_eval build tag")

type jsFilterConfig struct {
	cache ProgramCache
}

// JSFilterOption configures the JS filter.
type JSFilterOption func(*jsFilterConfig)

// JSWithProgramCache applies a ProgramCache to the JS filter.
func JSWithProgramCache(cache ProgramCache) JSFilterOption {
	return func(cfg *jsFilterConfig) {
		cfg.cache = cache
	}
}

func applyJSFilterOptions(opts []JSFilterOption) jsFilterConfig {
	cfg := jsFilterConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
