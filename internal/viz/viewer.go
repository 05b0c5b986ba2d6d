package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/thermotune/internal/autotune"
)

const (
	minWindow = 20
	panFactor = 0.25
)

// Viewer is a Bubble Tea model that pages through a validation trace.
type Viewer struct {
	title         string
	trace         autotune.Trace
	start, window int
	residuals     bool
	width, height int
}

func NewViewer(title string, trace autotune.Trace) Viewer {
	return Viewer{
		title:  title,
		trace:  trace,
		window: trace.Len(),
		width:  80,
		height: 24,
	}
}

func (v Viewer) Init() tea.Cmd { return nil }

func (v Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		case "left", "h":
			v.pan(-1)
		case "right", "l":
			v.pan(1)
		case "+", "=":
			v.zoom(0.5)
		case "-", "_":
			v.zoom(2)
		case "r":
			v.residuals = !v.residuals
		case "home":
			v.start = 0
		}
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height
	}
	return v, nil
}

func (v *Viewer) pan(dir int) {
	step := max(int(float64(v.window)*panFactor), 1)
	v.start = min(max(v.start+dir*step, 0), max(v.trace.Len()-v.window, 0))
}

func (v *Viewer) zoom(factor float64) {
	n := v.trace.Len()
	center := v.start + v.window/2
	v.window = min(max(int(float64(v.window)*factor), min(minWindow, n)), n)
	v.start = min(max(center-v.window/2, 0), max(n-v.window, 0))
}

// Window returns the visible slice of the trace.
func (v Viewer) Window() autotune.Trace {
	end := min(v.start+v.window, v.trace.Len())
	return autotune.Trace{
		Times:     v.trace.Times[v.start:end],
		Control:   v.trace.Control[v.start:end],
		Actual:    v.trace.Actual[v.start:end],
		Simulated: v.trace.Simulated[v.start:end],
	}
}

func (v Viewer) View() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Render(v.title) + "\n")

	w := v.Window()
	if w.Len() == 0 {
		s.WriteString(Subtle.Render("empty trace") + "\n")
		return s.String()
	}

	opts := PlotOptions{
		Width:   max(v.width-12, 20),
		Height:  max(v.height-10, 5),
		Caption: fmt.Sprintf("%.1f to %.1f sec", w.Times[0], w.Times[w.Len()-1]),
	}
	if v.residuals {
		s.WriteString(PlotResiduals(w, opts))
	} else {
		s.WriteString(PlotTrace(w, opts))
	}
	s.WriteString("\n\n")
	s.WriteString(MetricLabel.Render("Heater") + Sparkline(w.Control, opts.Width) + "\n")
	s.WriteString(KeyHint.Render("←/→ pan  +/- zoom  r residuals  q quit") + "\n")
	return s.String()
}

// RunViewer blocks until the user quits.
func RunViewer(title string, trace autotune.Trace) error {
	_, err := tea.NewProgram(NewViewer(title, trace), tea.WithAltScreen()).Run()
	return err
}
