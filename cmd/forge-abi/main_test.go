package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type testState struct {
	gs             *globalState
	stdout, stderr *bytes.Buffer
}

func newTestState() *testState {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &testState{
		gs:     &globalState{stdout: stdout, stderr: stderr, env: map[string]string{}},
		stdout: stdout,
		stderr: stderr,
	}
}

func (ts *testState) run(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCommand(ts.gs)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestIntrinsicsCommand(t *testing.T) {
	ts := newTestState()
	require.NoError(t, ts.run(t, "intrinsics"))

	out := ts.stdout.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 38)
	require.Contains(t, lines[0], "llvm.ctlz.i32")
	require.Contains(t, lines[37], "vm.memory.size.shared.import")
	// ctlz takes the zero-undef flag alongside its operand.
	require.Contains(t, out, "(i32, i1) -> i32")
	// Grow entry points thread the context through.
	require.Contains(t, out, "(ctx*, i32, i32) -> i32")
}

func TestLayoutCommand(t *testing.T) {
	ts := newTestState()
	require.NoError(t, ts.run(t, "layout"))

	out := ts.stdout.String()
	require.Contains(t, out, "execution context: 64 bytes, 8 pointer fields")
	require.Contains(t, out, "+48  imported function records (inline)")
	require.Contains(t, out, "memory descriptor: 24 bytes (base +0, bound +8, owner +16)")
	require.Contains(t, out, "imported function record: 16 byte stride")
	require.Contains(t, out, "anyfunc record: 24 bytes")
	require.Contains(t, out, "page size: 65536 bytes, grow failure sentinel: -1")
}

func TestDemoCommand(t *testing.T) {
	ts := newTestState()
	require.NoError(t, ts.run(t, "demo"))

	out := ts.stdout.String()
	require.Contains(t, out, "module: 1 imported memory, 1 local memory, 1 global")
	require.Contains(t, out, "declared 38 intrinsic symbols")
	require.Contains(t, out, "instructions over")
	require.NotContains(t, out, "fn demo(", "IR dump must be off by default")
	require.NotContains(t, out, "bytes of amd64 code")
}

func TestDemoCommand_dumpIRFlag(t *testing.T) {
	ts := newTestState()
	require.NoError(t, ts.run(t, "demo", "--dump-ir"))

	out := ts.stdout.String()
	require.Contains(t, out, "fn demo(")
	require.Contains(t, out, "vm.memory.grow.dynamic.local")
}

func TestDemoCommand_dumpIREnv(t *testing.T) {
	ts := newTestState()
	ts.gs.env["FORGE_DUMP_IR"] = "true"
	require.NoError(t, ts.run(t, "demo"))
	require.Contains(t, ts.stdout.String(), "fn demo(")
}

func TestDemoCommand_lower(t *testing.T) {
	ts := newTestState()
	require.NoError(t, ts.run(t, "demo", "--lower"))
	require.Contains(t, ts.stdout.String(), "bytes of amd64 code")
}

func TestDemoCommand_traceCache(t *testing.T) {
	ts := newTestState()
	ts.gs.env["FORGE_TRACE_CACHE"] = "true"
	require.NoError(t, ts.run(t, "demo"))
	require.Contains(t, ts.stderr.String(), "materialized memory access path")
	require.Contains(t, ts.stderr.String(), "materialized global access")
}

func TestBadEnvironment(t *testing.T) {
	ts := newTestState()
	ts.gs.env["FORGE_DUMP_IR"] = "banana"
	err := ts.run(t, "demo")
	require.Error(t, err)
	require.Contains(t, err.Error(), "FORGE_")
}

func TestBadLogLevel(t *testing.T) {
	ts := newTestState()
	ts.gs.env["FORGE_LOG_LEVEL"] = "chatty"
	err := ts.run(t, "intrinsics")
	require.Error(t, err)
	require.Contains(t, err.Error(), "FORGE_LOG_LEVEL")
}
