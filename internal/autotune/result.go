package autotune

import "github.com/san-kum/thermotune/internal/plant"

// Seed sources.
const (
	SeedRegression   = "regression"
	SeedInitialGuess = "initial_guess"
)

// Trace pairs the recorded temperatures with the fitted model's prediction.
type Trace struct {
	Times     []float64 `json:"times"`
	Control   []float64 `json:"control"`
	Actual    []float64 `json:"actual"`
	Simulated []float64 `json:"simulated"`
}

func (t Trace) Len() int { return len(t.Times) }

// Result is a converged fit. Failed fits return no Result.
type Result struct {
	Params plant.Params `json:"params"`
	Gains  Gains        `json:"gains"`
	// StdErrors are one-sigma parameter uncertainties estimated from the
	// final Jacobian and residual variance.
	StdErrors plant.Params `json:"std_errors"`

	Seed       plant.Params `json:"seed"`
	SeedSource string       `json:"seed_source"`

	Samples    int     `json:"samples"`
	Iterations int     `json:"iterations"`
	Cost       float64 `json:"cost"`
	RMSE       float64 `json:"rmse"`
	MaxError   float64 `json:"max_error"`
	RSquared   float64 `json:"r_squared"`

	// Rank, SingularValues and Condition describe the column-scaled
	// Jacobian at the solution.
	Rank           int       `json:"rank"`
	SingularValues []float64 `json:"singular_values"`
	Condition      float64   `json:"condition"`

	Trace Trace `json:"-"`
}
