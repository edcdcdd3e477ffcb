package maincmd

import "github.com/caarlos0/env/v6"

// runtimeConfig holds the process-wide knobs a host deployment tunes via
// environment variables rather than flags, parsed once per Main invocation.
type runtimeConfig struct {
	// MaxSteps bounds how many IR instructions a single Run may dispatch,
	// guarding against a runaway script (spec.md §5 "Scheduling"); a run
	// that reaches the bound stops without reporting an error. 0 leaves the
	// VM's own default cap in place.
	MaxSteps int64 `env:"BLIKK_MAX_STEPS" envDefault:"0"`
	// Trace is parsed and validated from BLIKK_TRACE; nothing reads it, so
	// setting it changes no output.
	Trace bool `env:"BLIKK_TRACE" envDefault:"false"`
}

func loadRuntimeConfig() (runtimeConfig, error) {
	var cfg runtimeConfig
	if err := env.Parse(&cfg); err != nil {
		return runtimeConfig{}, err
	}
	return cfg, nil
}
