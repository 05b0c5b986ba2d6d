package storage

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/san-kum/thermotune/internal/plant"
	"github.com/san-kum/thermotune/internal/sim"
)

var (
	closedLoopHeader = []string{"Time", "Temperature", "Heater"}
	closedLoopUnits  = []string{"[sec]", "[deg F]", "[unit control]"}
)

// TraceWriter streams a closed-loop simulation to CSV as it runs. It
// implements sim.Observer; each row is the state the controller acted on
// and the duty it chose.
type TraceWriter struct {
	cw   *csv.Writer
	row  []string
	rows int
	err  error
}

// NewTraceWriter writes the header lines immediately.
func NewTraceWriter(w io.Writer) *TraceWriter {
	tw := &TraceWriter{cw: csv.NewWriter(w), row: make([]string, len(closedLoopHeader))}
	if err := tw.cw.Write(closedLoopHeader); err != nil {
		tw.err = err
		return tw
	}
	tw.err = tw.cw.Write(closedLoopUnits)
	return tw
}

func (tw *TraceWriter) OnStep(x sim.State, u sim.Control, t float64) {
	if tw.err != nil {
		return
	}
	duty := 0.0
	if len(u) > 0 {
		duty = u[0]
	}
	tw.row[0] = strconv.FormatFloat(t, 'f', 6, 64)
	tw.row[1] = strconv.FormatFloat(x[plant.Temperature], 'f', 6, 64)
	tw.row[2] = strconv.FormatFloat(duty, 'f', 6, 64)
	if tw.err = tw.cw.Write(tw.row); tw.err == nil {
		tw.rows++
	}
}

// Rows is the number of data rows written so far.
func (tw *TraceWriter) Rows() int { return tw.rows }

// Flush writes buffered rows and reports the first error seen.
func (tw *TraceWriter) Flush() error {
	if tw.err != nil {
		return tw.err
	}
	tw.cw.Flush()
	return tw.cw.Error()
}
