package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wasmforge/forge/codegen"
	"github.com/wasmforge/forge/ir"
)

type intrinsicsCmd struct {
	gs *globalState
}

func (c *intrinsicsCmd) run(*cobra.Command, []string) error {
	unit := ir.NewUnit("forge-abi")
	codegen.Declare(unit)
	for i, f := range unit.ExtFuncs() {
		if _, err := fmt.Fprintf(c.gs.stdout, "%2d  %-30s %s\n", i, f.Name, f.Sig); err != nil {
			return err
		}
	}
	return nil
}

func getCmdIntrinsics(gs *globalState) *cobra.Command {
	c := &intrinsicsCmd{gs: gs}
	return &cobra.Command{
		Use:   "intrinsics",
		Short: "Print the intrinsic symbol manifest in registration order",
		Long: `Print every external symbol generated code may reference, with its
signature, in registration order. The names are the binary contract with the
runtime and the linker.`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}
}
