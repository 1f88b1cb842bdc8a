package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/brightloop/seqcore/internal/compiler"
	"github.com/brightloop/seqcore/internal/oscsink"
	"github.com/brightloop/seqcore/internal/scheduler"
)

func newPlayCmd() *cobra.Command {
	var oscHost string
	var oscPort int
	var loop bool
	var loopBars int
	cmd := &cobra.Command{
		Use:   "play [file]",
		Short: "Compile a source file and play it through an OSC note-sink",
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

			bars := res.Settings.LoopBars
			if loopBars > 0 {
				bars = loopBars
			}

			sink := oscsink.New(oscHost, oscPort, nil)
			started := time.Now()
			sched := scheduler.New(scheduler.Config{
				Events:      res.Events,
				BPM:         res.BPM,
				LoopBars:    bars,
				LoopEnabled: loop,
				NoteSink:    sink.NoteSink(),
				AudioClock:  func() float64 { return time.Since(started).Seconds() },
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sched.Run(ctx)
			sched.Play()

			m := newTransportModel(sched, res)
			p := tea.NewProgram(m)
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&oscHost, "osc-host", "localhost", "OSC destination host")
	cmd.Flags().IntVar(&oscPort, "osc-port", 57120, "OSC destination port")
	cmd.Flags().BoolVar(&loop, "loop", false, "enable looping at the declared loop length")
	cmd.Flags().IntVar(&loopBars, "loop-bars", 0, "override the declared loop length, in bars")
	return cmd
}
