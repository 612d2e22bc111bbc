// Command forge-abi inspects the code generation ABI: the intrinsic symbol
// manifest, the execution context layout, and a demo compilation that
// exercises the whole stack from module metadata to machine code.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wasmforge/forge/buildoptions"
	"github.com/wasmforge/forge/codegen"
)

func main() {
	gs := newGlobalState()
	if err := newRootCommand(gs).Execute(); err != nil {
		fmt.Fprintln(gs.stderr, err)
		os.Exit(1)
	}
}

// globalState carries everything subcommands touch, so tests can run them
// against buffers and a fake environment instead of real process state.
type globalState struct {
	stdout, stderr io.Writer
	env            map[string]string
	opts           buildoptions.Options
}

func newGlobalState() *globalState {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return &globalState{stdout: os.Stdout, stderr: os.Stderr, env: env}
}

func newRootCommand(gs *globalState) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "forge-abi",
		Short:        "Inspect the forge code generation ABI",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return gs.setup()
		},
	}
	cmd.SetOut(gs.stdout)
	cmd.SetErr(gs.stderr)
	cmd.AddCommand(getCmdIntrinsics(gs), getCmdLayout(gs), getCmdDemo(gs))
	return cmd
}

// setup parses the FORGE_* environment and installs the code generator's
// logger. The library default is a nop logger; here is where an operator's
// FORGE_TRACE_CACHE=1 turns the accessor's materialization events on.
func (gs *globalState) setup() error {
	opts, err := buildoptions.FromEnv(func(key string) (string, bool) {
		v, ok := gs.env[key]
		return v, ok
	})
	if err != nil {
		return err
	}
	gs.opts = opts

	level, err := zapcore.ParseLevel(opts.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid FORGE_LOG_LEVEL: %w", err)
	}
	if opts.TraceCache {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(gs.stderr),
		level,
	)
	codegen.SetLogger(zap.New(core))
	return nil
}
