package optim

import (
	"context"
	"errors"
	"math"
)

// ErrNoCandidate is returned when every grid point failed or scored NaN.
var ErrNoCandidate = errors.New("no grid point produced a finite score")

// Objective scores one parameter assignment; lower is better.
type Objective func(params map[string]float64) (float64, error)

// GridSearch exhaustively evaluates the Cartesian product of per-parameter
// value lists.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	if len(params) != len(ranges) {
		panic("optim: parameter names and ranges differ in length")
	}
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Size is the number of grid points Search will evaluate.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search returns the best-scoring assignment. Points whose objective errors
// or returns NaN are skipped. Ties keep the first point visited.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, &best, &bestParams); err != nil {
		return bestParams, best, err
	}
	if bestParams == nil {
		return nil, best, ErrNoCandidate
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if depth == len(g.paramNames) {
		if err := ctx.Err(); err != nil {
			return err
		}

		val, err := objective(current)
		if err != nil || math.IsNaN(val) {
			return nil
		}
		if val < *best || *bestParams == nil {
			*best = val
			*bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, objective, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
