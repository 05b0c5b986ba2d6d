package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/thermotune/internal/autotune"
	"github.com/san-kum/thermotune/internal/plant"
)

// Report is what a finished or stored fit shows on the console.
type Report struct {
	Title     string
	Params    plant.Params
	StdErrors plant.Params
	Gains     autotune.Gains
	// Metrics holds fit quality figures keyed as in the run store
	// (rmse, max_error, r_squared, condition).
	Metrics    map[string]float64
	Iterations int
	Samples    int
}

func ReportFromResult(title string, res *autotune.Result) Report {
	return Report{
		Title:     title,
		Params:    res.Params,
		StdErrors: res.StdErrors,
		Gains:     res.Gains,
		Metrics: map[string]float64{
			"rmse":      res.RMSE,
			"max_error": res.MaxError,
			"r_squared": res.RSquared,
			"condition": res.Condition,
		},
		Iterations: res.Iterations,
		Samples:    res.Samples,
	}
}

type line struct {
	label  string
	value  float64
	stderr float64
}

// RenderReport lays out the model parameters, the recommended gains and
// the fit quality as labeled lines with units.
func RenderReport(r Report) string {
	var sb strings.Builder
	if r.Title != "" {
		sb.WriteString(HeaderStyle.Render(r.Title) + "\n")
	}

	sb.WriteString(Title.Render("Model") + "\n")
	writeLines(&sb, []line{
		{"c1 [1/sec]", r.Params.C1, r.StdErrors.C1},
		{"c2 [deg F per unit control]", r.Params.C2, r.StdErrors.C2},
		{"tau [sec]", r.Params.Tau, r.StdErrors.Tau},
		{"Ambient [deg F]", r.Params.Ambient, r.StdErrors.Ambient},
	})

	sb.WriteString("\n" + Title.Render("Gains") + "\n")
	writeLines(&sb, []line{
		{"Kp [unit control per deg F]", r.Gains.Kp, 0},
		{"Ti [sec]", r.Gains.Ti, 0},
		{"Kf [unit control per deg F]", r.Gains.Kf, 0},
		{"Max Heat Rate [deg F/sec]", r.Gains.MaxHeatRate, 0},
	})

	if len(r.Metrics) > 0 {
		sb.WriteString("\n" + Title.Render("Fit") + "\n")
		if r.Samples > 0 {
			sb.WriteString(MetricLabel.Render("Samples") + MetricValue.Render(fmt.Sprint(r.Samples)) + "\n")
		}
		if r.Iterations > 0 {
			sb.WriteString(MetricLabel.Render("Iterations") + MetricValue.Render(fmt.Sprint(r.Iterations)) + "\n")
		}
		writeLines(&sb, []line{
			{"RMSE [deg F]", r.Metrics["rmse"], 0},
			{"Max Error [deg F]", r.Metrics["max_error"], 0},
		})
		if r2, ok := r.Metrics["r_squared"]; ok {
			sb.WriteString(MetricLabel.Render("R²") + qualityStyle(r2).Render(fmt.Sprintf("%.6f", r2)) + "\n")
		}
		if c, ok := r.Metrics["condition"]; ok && c > 0 {
			sb.WriteString(MetricLabel.Render("Jacobian condition") + MetricValue.Render(fmt.Sprintf("%.3g", c)) + "\n")
		}
	}

	return sb.String()
}

func writeLines(sb *strings.Builder, lines []line) {
	for _, l := range lines {
		value := MetricValue.Render(fmt.Sprintf("%.6g", l.value))
		if l.stderr > 0 && !math.IsInf(l.stderr, 0) {
			value += Subtle.Render(fmt.Sprintf(" ± %.2g", l.stderr))
		}
		sb.WriteString(MetricLabel.Render(l.label) + value + "\n")
	}
}

func qualityStyle(r2 float64) lipgloss.Style {
	switch {
	case r2 >= 0.99:
		return QualityGood
	case r2 >= 0.9:
		return QualityFair
	default:
		return QualityPoor
	}
}

// RenderVerify summarizes a closed-loop run of the recommended gains.
func RenderVerify(metrics map[string]float64, setpoint, band float64) string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render(fmt.Sprintf("Closed loop to %.1f deg F", setpoint)) + "\n")

	sb.WriteString(MetricLabel.Render("Overshoot [deg F]") + MetricValue.Render(fmt.Sprintf("%.3f", metrics["overshoot"])) + "\n")

	settling := "never"
	if st, ok := metrics["settling_time"]; ok && !math.IsInf(st, 0) {
		settling = fmt.Sprintf("%.1f", st)
	}
	sb.WriteString(MetricLabel.Render(fmt.Sprintf("Settling ±%.2g [sec]", band)) + MetricValue.Render(settling) + "\n")

	sb.WriteString(MetricLabel.Render("Mean duty") + MetricValue.Render(fmt.Sprintf("%.3f", metrics["control_effort"])) + "\n")

	inBand := metrics["time_in_band"]
	sb.WriteString(MetricLabel.Render("Time in band") + ProgressBar(inBand, 20) + MetricValue.Render(fmt.Sprintf(" %.0f%%", 100*inBand)) + "\n")
	return sb.String()
}
