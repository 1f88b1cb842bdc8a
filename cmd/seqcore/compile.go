package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brightloop/seqcore/internal/compiler"
	"github.com/brightloop/seqcore/internal/seqjson"
)

func newCompileCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a source file to an event list",
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
			if !asJSON {
				fmt.Fprintf(cmd.OutOrStdout(), "%d events, %.3fs at %.0f bpm\n",
					res.EventCount, res.TotalDuration, res.BPM)
				return nil
			}
			out, err := seqjson.Marshal(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the compiled event list as JSON")
	return cmd
}
