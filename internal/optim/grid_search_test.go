package optim

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestGridSearch_FindsMinimum(t *testing.T) {
	g := NewGridSearch(
		[]string{"x", "y"},
		[][]float64{LinearRange(-2, 2, 9), LinearRange(-2, 2, 9)},
	)
	if g.Size() != 81 {
		t.Errorf("expected 81 grid points, got %d", g.Size())
	}

	best, score, err := g.Search(context.Background(), func(p map[string]float64) (float64, error) {
		dx := p["x"] - 1
		dy := p["y"] + 0.5
		return dx*dx + dy*dy, nil
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if best["x"] != 1 || best["y"] != -0.5 {
		t.Errorf("expected (1, -0.5), got (%v, %v)", best["x"], best["y"])
	}
	if score != 0 {
		t.Errorf("expected score 0, got %v", score)
	}
}

func TestGridSearch_SkipsFailures(t *testing.T) {
	g := NewGridSearch([]string{"tau"}, [][]float64{{1, 2, 3, 4}})

	best, score, err := g.Search(context.Background(), func(p map[string]float64) (float64, error) {
		switch p["tau"] {
		case 1:
			return 0, errors.New("bad point")
		case 2:
			return math.NaN(), nil
		}
		return p["tau"], nil
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if best["tau"] != 3 || score != 3 {
		t.Errorf("expected tau=3 score=3, got tau=%v score=%v", best["tau"], score)
	}
}

func TestGridSearch_NoCandidate(t *testing.T) {
	g := NewGridSearch([]string{"tau"}, [][]float64{{1, 2}})
	_, _, err := g.Search(context.Background(), func(map[string]float64) (float64, error) {
		return 0, errors.New("always fails")
	})
	if !errors.Is(err, ErrNoCandidate) {
		t.Errorf("expected ErrNoCandidate, got %v", err)
	}
}

func TestGridSearch_InfiniteScoreStillCandidate(t *testing.T) {
	g := NewGridSearch([]string{"tau"}, [][]float64{{5}})
	best, _, err := g.Search(context.Background(), func(map[string]float64) (float64, error) {
		return math.Inf(1), nil
	})
	if err != nil || best["tau"] != 5 {
		t.Errorf("expected tau=5 without error, got %v (%v)", best, err)
	}
}

func TestGridSearch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGridSearch([]string{"tau"}, [][]float64{{1, 2}})
	_, _, err := g.Search(ctx, func(map[string]float64) (float64, error) { return 0, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGridSearch_MismatchedRangesPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewGridSearch([]string{"a", "b"}, [][]float64{{1}})
}

func TestRanges(t *testing.T) {
	lin := LinearRange(0, 1, 5)
	if len(lin) != 5 || lin[0] != 0 || lin[4] != 1 || math.Abs(lin[2]-0.5) > 1e-15 {
		t.Errorf("unexpected linear range %v", lin)
	}

	geo := GeometricRange(1, 1000, 4)
	want := []float64{1, 10, 100, 1000}
	for i := range want {
		if math.Abs(geo[i]-want[i]) > 1e-9*want[i] {
			t.Errorf("geometric[%d] = %v, want %v", i, geo[i], want[i])
		}
	}

	if GeometricRange(0, 1, 3) != nil {
		t.Error("expected nil for non-positive bound")
	}
	if got := LinearRange(3, 9, 1); len(got) != 1 || got[0] != 3 {
		t.Errorf("single-point range = %v", got)
	}
}
