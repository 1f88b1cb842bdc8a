package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brightloop/seqcore/internal/compiler"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Parse and compile a source file, reporting the first error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := compiler.CompileSource(string(src), func(line, column int, message string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d:%d: %s\n", args[0], line, column, message)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d events, %.3fs at %.0f bpm\n",
				res.EventCount, res.TotalDuration, res.BPM)
			return nil
		},
	}
}
