package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/thermotune/internal/autotune"
)

type ExportData struct {
	RunMetadata
	Steps     int       `json:"steps"`
	Times     []float64 `json:"times"`
	Control   []float64 `json:"control"`
	Actual    []float64 `json:"actual"`
	Simulated []float64 `json:"simulated"`
}

func newExportData(meta *RunMetadata, trace autotune.Trace) ExportData {
	return ExportData{
		RunMetadata: *meta,
		Steps:       trace.Len(),
		Times:       trace.Times,
		Control:     trace.Control,
		Actual:      trace.Actual,
		Simulated:   trace.Simulated,
	}
}

func ExportJSON(path string, meta *RunMetadata, trace autotune.Trace) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, meta, trace)
}

// WriteJSON encodes a run and its validation trace to w.
func WriteJSON(w io.Writer, meta *RunMetadata, trace autotune.Trace) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(meta, trace))
}
