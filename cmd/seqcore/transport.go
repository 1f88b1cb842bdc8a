package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"

	"github.com/brightloop/seqcore/internal/compiler"
	"github.com/brightloop/seqcore/internal/scheduler"
)

const playheadBarWidth = 40

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C0C0C0"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
)

type tickMsg time.Time

func tickEvery() tea.Cmd {
	return tea.Tick(time.Duration(scheduler.LookaheadMS)*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// transportModel is the bubbletea console shown by `seqcore play`: a
// playhead bar, BPM, and loop/mute state, refreshed every lookahead tick
// (spec §4.5's transport state, rendered rather than driven).
type transportModel struct {
	sched  *scheduler.Scheduler
	result *compiler.CompilationResult
}

func newTransportModel(sched *scheduler.Scheduler, result *compiler.CompilationResult) transportModel {
	return transportModel{sched: sched, result: result}
}

func (m transportModel) Init() tea.Cmd {
	return tickEvery()
}

func (m transportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.sched.Stop()
			return m, tea.Quit
		case " ":
			if m.sched.GetTransportState().Playing {
				m.sched.Stop()
			} else {
				m.sched.Play()
			}
			return m, tickEvery()
		case "l":
			snap := m.sched.GetTransportState()
			m.sched.SetLoopEnabled(!snap.LoopEnabled)
			return m, tickEvery()
		}
	case tickMsg:
		if !m.sched.GetTransportState().Playing {
			return m, tea.Quit
		}
		return m, tickEvery()
	}
	return m, nil
}

func (m transportModel) View() string {
	snap := m.sched.GetTransportState()

	var b strings.Builder
	b.WriteString(labelStyle.Render(fmt.Sprintf("seqcore  %.0f bpm  %d events", snap.BPM, m.result.EventCount)))
	b.WriteString("\n\n")
	b.WriteString(playheadBar(snap, m.result.TotalDuration))
	b.WriteString("\n\n")

	state := "stopped"
	if snap.Playing {
		state = "playing"
	}
	loop := "off"
	if snap.LoopEnabled {
		loop = "on"
	}
	b.WriteString(fmt.Sprintf("%s   loop: %s   %.2fs / %.2fs\n", state, loop, snap.PlayheadSec, m.result.TotalDuration))
	if len(snap.MutedTracks) > 0 {
		b.WriteString(fmt.Sprintf("muted: %s\n", strings.Join(snap.MutedTracks, ", ")))
	}
	if len(snap.SoloedTracks) > 0 {
		b.WriteString(fmt.Sprintf("soloed: %s\n", strings.Join(snap.SoloedTracks, ", ")))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space: play/pause   l: toggle loop   q: quit"))
	return b.String()
}

// playheadBar renders a fixed-width progress bar, coloring filled cells
// along a gradient from dim gray to white the way the teacher's level
// meters blend colorful.Color stops before handing off to termenv.
func playheadBar(snap scheduler.TransportStateSnapshot, total float64) string {
	frac := 0.0
	if total > 0 {
		frac = snap.PlayheadSec / total
	}
	frac = math.Max(0, math.Min(1, frac))
	filled := int(frac * float64(playheadBarWidth))

	start, _ := colorful.Hex("#404040")
	end, _ := colorful.Hex("#FFFFFF")
	profile := termenv.ColorProfile()

	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < playheadBarWidth; i++ {
		if i >= filled {
			b.WriteString(helpStyle.Render("·"))
			continue
		}
		t := float64(i) / float64(playheadBarWidth)
		c := start.BlendLuv(end, t)
		termColor := profile.Color(c.Hex())
		b.WriteString(termenv.String("█").Foreground(termColor).String())
	}
	b.WriteString("]")
	return b.String()
}
