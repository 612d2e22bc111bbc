// Package buildoptions holds the environment driven configuration of the
// code generation tooling. The library packages themselves read no
// environment; embedders parse Options and wire the result in explicitly.
package buildoptions

import (
	"fmt"

	"github.com/mstoykov/envconfig"
)

// Options configures code generation tooling. Zero values mean off.
type Options struct {
	// DumpIR prints each built function's instruction stream.
	DumpIR bool `envconfig:"FORGE_DUMP_IR"`
	// TraceCache installs a debug logger on the code generator, tracing
	// symbol registration and accessor cache materialization.
	TraceCache bool `envconfig:"FORGE_TRACE_CACHE"`
	// LogLevel is a zap level name such as "debug" or "warn".
	LogLevel string `envconfig:"FORGE_LOG_LEVEL" default:"info"`
}

// FromEnv parses Options from the process environment. Tests pass a lookup
// function instead of mutating the real environment.
func FromEnv(getenvs ...func(key string) (string, bool)) (Options, error) {
	var o Options
	if err := envconfig.Process("", &o, getenvs...); err != nil {
		return Options{}, fmt.Errorf("invalid FORGE_* environment: %w", err)
	}
	return o, nil
}
