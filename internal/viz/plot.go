package viz

import (
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/thermotune/internal/autotune"
)

type PlotOptions struct {
	Width   int
	Height  int
	Caption string
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 80, Height: 15, Caption: "temperature [deg F] vs sample"}
}

// PlotTrace draws the recorded and simulated temperatures on one chart.
func PlotTrace(trace autotune.Trace, opts PlotOptions) string {
	if trace.Len() == 0 {
		return ""
	}
	return asciigraph.PlotMany([][]float64{trace.Actual, trace.Simulated},
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(opts.Caption),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
		asciigraph.SeriesLegends("actual", "simulated"),
	)
}

// PlotResiduals draws simulated minus recorded temperature.
func PlotResiduals(trace autotune.Trace, opts PlotOptions) string {
	if trace.Len() == 0 {
		return ""
	}
	res := make([]float64, trace.Len())
	for i := range res {
		res[i] = trace.Simulated[i] - trace.Actual[i]
	}
	return asciigraph.Plot(res,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption("residual [deg F]"),
	)
}

// PlotSeries draws a single series, such as the excitation waveform.
func PlotSeries(values []float64, opts PlotOptions) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(opts.Height),
		asciigraph.Width(opts.Width),
		asciigraph.Caption(opts.Caption),
	)
}
