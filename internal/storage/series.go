package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/thermotune/internal/autotune"
	"github.com/san-kum/thermotune/internal/plant"
)

// ErrMalformedSeries reports a data row that is not a pair of numbers.
var ErrMalformedSeries = errors.New("malformed series")

// headerLines precede the data in every series file: column names, then units.
const headerLines = 2

var (
	seriesHeader     = []string{"Time", "Temperature"}
	seriesUnits      = []string{"[sec]", "[deg F]"}
	validationHeader = []string{"Time", "Actual Temperature", "SimulatedTemperature"}
	validationUnits  = []string{"[sec]", "[deg F]", "[deg F]"}
)

// ReadSeries parses a recorded (time, temperature) series. The first two
// lines are skipped; extra columns on a data row are ignored.
func ReadSeries(r io.Reader) (times, temps []float64, err error) {
	rows, err := readColumns(r, 2)
	if err != nil {
		return nil, nil, err
	}
	return rows[0], rows[1], nil
}

// ReadValidation parses a file written by WriteValidation. The control
// column is rebuilt from the excitation waveform.
func ReadValidation(r io.Reader) (autotune.Trace, error) {
	rows, err := readColumns(r, 3)
	if err != nil {
		return autotune.Trace{}, err
	}
	return autotune.Trace{
		Times:     rows[0],
		Control:   plant.Excitation(rows[0]),
		Actual:    rows[1],
		Simulated: rows[2],
	}, nil
}

func readColumns(r io.Reader, width int) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	cols := make([][]float64, width)
	for n := 0; ; n++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSeries, err)
		}
		if n < headerLines {
			continue
		}

		line, _ := cr.FieldPos(0)
		if len(record) < width {
			return nil, fmt.Errorf("%w: line %d: expected %d fields, got %d", ErrMalformedSeries, line, width, len(record))
		}
		for j := 0; j < width; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedSeries, line, err)
			}
			cols[j] = append(cols[j], v)
		}
	}
	return cols, nil
}

// WriteSeries writes a recorded series in the format ReadSeries accepts.
func WriteSeries(w io.Writer, times, temps []float64) error {
	if len(times) != len(temps) {
		return fmt.Errorf("series length mismatch: %d times, %d temperatures", len(times), len(temps))
	}
	return writeColumns(w, seriesHeader, seriesUnits, times, temps)
}

// WriteValidation writes recorded and simulated temperatures side by side.
// Plotting tools downstream match on the exact header text.
func WriteValidation(w io.Writer, trace autotune.Trace) error {
	if len(trace.Actual) != trace.Len() || len(trace.Simulated) != trace.Len() {
		return fmt.Errorf("validation trace length mismatch")
	}
	return writeColumns(w, validationHeader, validationUnits, trace.Times, trace.Actual, trace.Simulated)
}

func writeColumns(w io.Writer, header, units []string, cols ...[]float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.Write(units); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for i := range cols[0] {
		for j, col := range cols {
			row[j] = strconv.FormatFloat(col[i], 'f', 6, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
