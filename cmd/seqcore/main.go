// Command seqcore is the transport console: a thin host that compiles a
// sequence source file and either reports errors, dumps compiled events as
// JSON, or plays the result through an OSC note-sink while a bubbletea
// console shows transport state.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "seqcore",
		Short: "Compile and play sequence-DSL sources",
	}
	root.AddCommand(newCheckCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newPlayCmd())
	return root
}
