// Package tui renders a live view of a tracking run: point positions on a
// braille canvas, a displacement sparkline, and running counters.
package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/facerhythm/facerhythm/internal/flow"
)

const (
	canvasWidth     = 60
	canvasHeight    = 18
	historyCapacity = 600
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// StepMsg carries one tracking step into the UI loop.
type StepMsg flow.FrameStep

// DoneMsg signals the end of the run.
type DoneMsg struct {
	Metrics map[string]float64
	Err     error
}

// ChannelObserver forwards tracker steps into a channel without blocking
// the tracking loop; steps the UI cannot keep up with are dropped.
type ChannelObserver struct {
	ch chan flow.FrameStep
}

func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{ch: make(chan flow.FrameStep, buffer)}
}

func (o *ChannelObserver) OnFrame(step flow.FrameStep) {
	select {
	case o.ch <- step:
	default:
	}
}

func (o *ChannelObserver) Steps() <-chan flow.FrameStep { return o.ch }

// Close releases UI readers waiting on the step channel.
func (o *ChannelObserver) Close() { close(o.ch) }

// Model is the bubbletea state for one live tracking session.
type Model struct {
	videoName      string
	videoW, videoH int
	totalFrames    int

	steps <-chan flow.FrameStep
	done  <-chan DoneMsg

	canvas   *Canvas
	frame    int
	lost     int
	dispHist []float64
	finished bool
	err      error
	metrics  map[string]float64
}

func NewModel(videoName string, videoW, videoH, totalFrames int, steps <-chan flow.FrameStep, done <-chan DoneMsg) Model {
	return Model{
		videoName:   videoName,
		videoW:      videoW,
		videoH:      videoH,
		totalFrames: totalFrames,
		steps:       steps,
		done:        done,
		canvas:      NewCanvas(canvasWidth, canvasHeight),
		dispHist:    make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd { return m.wait() }

// wait blocks on the next tracker step or the final result.
func (m Model) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case step, ok := <-m.steps:
			if !ok {
				return DoneMsg(<-m.done)
			}
			return StepMsg(step)
		case d := <-m.done:
			return DoneMsg(d)
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case StepMsg:
		m.frame = msg.Index
		m.lost = msg.Lost
		m.dispHist = append(m.dispHist, msg.MeanDisplacement)
		if len(m.dispHist) > historyCapacity {
			m.dispHist = m.dispHist[1:]
		}
		m.drawPoints(msg.Positions, msg.Status)
		return m, m.wait()
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		m.metrics = msg.Metrics
		return m, nil
	}
	return m, nil
}

// drawPoints maps frame coordinates onto the dot raster.
func (m *Model) drawPoints(positions []flow.Vec2, status []flow.Status) {
	m.canvas.Clear()
	if m.videoW < 1 || m.videoH < 1 {
		return
	}
	sx := float64(canvasWidth*2) / float64(m.videoW)
	sy := float64(canvasHeight*4) / float64(m.videoH)
	for i, p := range positions {
		if i < len(status) && status[i] == flow.Lost {
			continue
		}
		m.canvas.Set(int(p.X*sx), int(p.Y*sy))
	}
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.videoName)) + "\n")

	status := "TRACKING"
	if m.finished {
		status = "DONE"
		if m.err != nil {
			status = "FAILED: " + m.err.Error()
		}
	}
	s.WriteString(status + "\n\n")

	if len(m.dispHist) > 1 {
		chart := asciigraph.Plot(m.dispHist,
			asciigraph.Height(4),
			asciigraph.Width(30),
			asciigraph.Caption("mean displacement"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	progress := fmt.Sprintf("%d", m.frame)
	if m.totalFrames > 0 {
		progress = fmt.Sprintf("%d / %d", m.frame, m.totalFrames)
	}
	s.WriteString(labelStyle.Render("Frame") + valueStyle.Render(progress) + "\n")
	s.WriteString(labelStyle.Render("Lost points") + valueStyle.Render(fmt.Sprintf("%d", m.lost)) + "\n")
	s.WriteString(labelStyle.Render("Backend") + valueStyle.Render(flow.GetBackend().Name()) + "\n")

	if m.finished && len(m.metrics) > 0 {
		s.WriteString("\nMETRICS\n")
		keys := make([]string, 0, len(m.metrics))
		for k := range m.metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.WriteString(labelStyle.Render(k) + valueStyle.Render(fmt.Sprintf("%.4f", m.metrics[k])) + "\n")
		}
	}
	s.WriteString(helpStyle.Render("\nQ:Quit"))

	canvasView := canvasStyle.Render(m.canvas.String())
	statsView := statsStyle.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}
