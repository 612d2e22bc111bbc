package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wasmforge/forge/vmctx"
	"github.com/wasmforge/forge/wasm"
)

type layoutCmd struct {
	gs *globalState
}

func (c *layoutCmd) run(*cobra.Command, []string) error {
	w := c.gs.stdout

	fields := []struct {
		offset vmctx.Offset
		desc   string
	}{
		{vmctx.ContextLocalMemoriesOffset, "local memory descriptor pointers"},
		{vmctx.ContextLocalTablesOffset, "local table descriptor pointers"},
		{vmctx.ContextLocalGlobalsOffset, "local global cell pointers"},
		{vmctx.ContextImportedMemoriesOffset, "imported memory descriptor pointers"},
		{vmctx.ContextImportedTablesOffset, "imported table descriptor pointers"},
		{vmctx.ContextImportedGlobalsOffset, "imported global cell pointers"},
		{vmctx.ContextImportedFuncsOffset, "imported function records (inline)"},
		{vmctx.ContextSigIDsOffset, "signature identifiers (u32 each)"},
	}

	fmt.Fprintf(w, "execution context: %d bytes, %d pointer fields\n", vmctx.ContextSize, len(fields))
	for _, f := range fields {
		fmt.Fprintf(w, "  +%-3d %s\n", f.offset, f.desc)
	}

	fmt.Fprintf(w, "\nmemory descriptor: %d bytes (base +%d, bound +%d, owner +%d)\n",
		vmctx.MemorySize, vmctx.MemoryBaseOffset, vmctx.MemoryBoundOffset, vmctx.MemoryOwnerOffset)
	fmt.Fprintf(w, "table descriptor: %d bytes (base +%d, count +%d, owner +%d)\n",
		vmctx.TableSize, vmctx.TableBaseOffset, vmctx.TableCountOffset, vmctx.TableOwnerOffset)
	fmt.Fprintf(w, "global cell: %d bytes, typed views via pointer round-trip\n", vmctx.GlobalSize)
	fmt.Fprintf(w, "imported function record: %d byte stride (code +%d, context +%d)\n",
		vmctx.ImportedFuncSize, vmctx.ImportedFuncFuncOffset, vmctx.ImportedFuncCtxOffset)
	fmt.Fprintf(w, "anyfunc record: %d bytes (code +%d, context +%d, signature id +%d)\n",
		vmctx.AnyfuncSize, vmctx.AnyfuncFuncOffset, vmctx.AnyfuncCtxOffset, vmctx.AnyfuncSigIDOffset)
	fmt.Fprintf(w, "signature id: %d byte stride\n", vmctx.SigIDSize)
	fmt.Fprintf(w, "\npage size: %d bytes, grow failure sentinel: %d\n", wasm.PageSize, vmctx.GrowFailed)
	return nil
}

func getCmdLayout(gs *globalState) *cobra.Command {
	c := &layoutCmd{gs: gs}
	return &cobra.Command{
		Use:   "layout",
		Short: "Print the execution context field table and descriptor strides",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
}
