package autotune_test

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/thermotune/internal/autotune"
	"github.com/san-kum/thermotune/internal/plant"
)

var reference = plant.Params{C1: 0.000625, C2: 0.125, Tau: 10, Ambient: 62}

func recordTest(p plant.Params, times []float64, initial float64) []float64 {
	return plant.Simulate(p, times, plant.Excitation(times), initial)
}

func newTuner(mutate ...func(*autotune.Config)) *autotune.Tuner {
	cfg := autotune.DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	t, err := autotune.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	return t
}

func expectRecovered(got, want plant.Params) {
	Expect(got.C1).To(BeNumerically("~", want.C1, 0.05*want.C1))
	Expect(got.C2).To(BeNumerically("~", want.C2, 0.05*want.C2))
	Expect(got.Tau).To(BeNumerically("~", want.Tau, 0.05*want.Tau))
	Expect(got.Ambient).To(BeNumerically("~", want.Ambient, 0.5))
}

var _ = Describe("Tuner", func() {
	var (
		tuner *autotune.Tuner
		times []float64
		temps []float64
	)

	BeforeEach(func() {
		tuner = newTuner()
		times = plant.UniformTimes(1000, 0.1)
		temps = recordTest(reference, times, 60)
	})

	Describe("Fit", func() {
		It("recovers the parameters of a synthetic test", func() {
			res, err := tuner.Fit(times, temps)
			Expect(err).NotTo(HaveOccurred())

			expectRecovered(res.Params, reference)
			Expect(res.SeedSource).To(Equal(autotune.SeedRegression))
			Expect(res.Samples).To(Equal(1000))
			Expect(res.Rank).To(Equal(plant.NumParams))
			Expect(res.SingularValues).To(HaveLen(plant.NumParams))
			Expect(res.RMSE).To(BeNumerically("<", 1e-6))
			Expect(res.Iterations).To(BeNumerically(">=", 1))
		})

		It("derives gains from the fitted parameters", func() {
			res, err := tuner.Fit(times, temps)
			Expect(err).NotTo(HaveOccurred())

			want, err := autotune.ComputeGains(reference, autotune.DefaultConfig().Bandwidth)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Gains.Ti).To(BeNumerically("~", want.Ti, 0.05*want.Ti))
			Expect(res.Gains.Kf).To(BeNumerically("~", want.Kf, 0.05*want.Kf))
			Expect(res.Gains.Kp).To(BeNumerically("~", want.Kp, 0.1*want.Kp))
			Expect(res.Gains.MaxHeatRate).To(BeNumerically("~", want.MaxHeatRate, 0.1*want.MaxHeatRate))
		})

		It("produces a validation trace aligned with the input", func() {
			res, err := tuner.Fit(times, temps)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Trace.Len()).To(Equal(len(times)))
			Expect(res.Trace.Simulated).To(HaveLen(len(times)))
			Expect(res.Trace.Control).To(Equal(plant.Excitation(times)))
			Expect(res.Trace.Actual).To(Equal(temps))
			Expect(res.Trace.Simulated[0]).To(Equal(temps[0]))
		})

		It("is idempotent", func() {
			first, err := tuner.Fit(times, temps)
			Expect(err).NotTo(HaveOccurred())
			second, err := tuner.Fit(times, temps)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Params).To(Equal(first.Params))
			Expect(second.Gains).To(Equal(first.Gains))
			Expect(second.Iterations).To(Equal(first.Iterations))
		})

		It("handles a non-uniform sample grid", func() {
			grid := make([]float64, 1000)
			for k := 1; k < len(grid); k++ {
				dt := 0.12
				if k%2 == 1 {
					dt = 0.08
				}
				grid[k] = grid[k-1] + dt
			}

			res, err := tuner.Fit(grid, recordTest(reference, grid, 60))
			Expect(err).NotTo(HaveOccurred())
			expectRecovered(res.Params, reference)
		})

		It("fits a noisy recording of a realistic tank", func() {
			tank := plant.Params{C1: 0.0005, C2: 120, Tau: 25, Ambient: 68}
			grid := plant.UniformTimes(1800, 1)
			recorded := recordTest(tank, grid, 70)

			rng := rand.New(rand.NewPCG(7, 11))
			for i := range recorded {
				recorded[i] += 0.05 * rng.NormFloat64()
			}

			res, err := tuner.Fit(grid, recorded)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Params.C1).To(BeNumerically("~", tank.C1, 0.02*tank.C1))
			Expect(res.RMSE).To(BeNumerically("~", 0.05, 0.02))
			Expect(res.RSquared).To(BeNumerically(">", 0.999))
			Expect(res.StdErrors.C1).To(BeNumerically(">", 0))
		})
	})

	Describe("input validation", func() {
		It("rejects a temperature series shorter than the time series", func() {
			res, err := tuner.Fit(times, temps[:len(temps)-1])
			Expect(res).To(BeNil())
			Expect(errors.Is(err, autotune.ErrInsufficientData)).To(BeTrue())
			Expect(errors.Is(err, autotune.ErrLengthMismatch)).To(BeTrue())
		})

		It("rejects too few samples", func() {
			res, err := tuner.Fit(times[:4], temps[:4])
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(autotune.ErrInsufficientData))
		})

		It("rejects non-finite samples", func() {
			temps[10] = math.NaN()
			_, err := tuner.Fit(times, temps)
			Expect(err).To(MatchError(autotune.ErrInsufficientData))
		})

		DescribeTable("rejects time stamps that do not increase",
			func(i int, shift float64) {
				times[i] = times[i-1] + shift
				res, err := tuner.Fit(times, temps)
				Expect(res).To(BeNil())
				Expect(err).To(MatchError(autotune.ErrNonMonotonicTime))
			},
			Entry("repeated", 500, 0.0),
			Entry("decreasing", 500, -0.05),
			Entry("repeated at the end", 999, 0.0),
		)
	})

	Describe("fit failures", func() {
		It("reports an exhausted iteration budget", func() {
			tuner = newTuner(func(c *autotune.Config) { c.MaxIterations = 1 })

			_, err := tuner.Fit(times, temps)
			Expect(err).To(MatchError(autotune.ErrConvergence))

			var fitErr *autotune.FitError
			Expect(errors.As(err, &fitErr)).To(BeTrue())
			Expect(fitErr.Iteration).To(Equal(1))
		})

		It("reports a test that never heated as singular", func() {
			flat := make([]float64, len(times))
			for i := range flat {
				flat[i] = 60
			}
			off, err := autotune.New(autotune.DefaultConfig(),
				autotune.WithExcitation(func(float64) float64 { return 0 }))
			Expect(err).NotTo(HaveOccurred())

			res, err := off.Fit(times, flat)
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(autotune.ErrSingularFit))
		})

		It("stops when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := tuner.FitContext(ctx, times, temps)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("New", func() {
		It("rejects an invalid configuration", func() {
			cfg := autotune.DefaultConfig()
			cfg.MaxIterations = 0
			_, err := autotune.New(cfg)
			Expect(err).To(HaveOccurred())
		})

		DescribeTable("rejects non-finite settings",
			func(mutate func(*autotune.Config)) {
				cfg := autotune.DefaultConfig()
				mutate(&cfg)
				_, err := autotune.New(cfg)
				Expect(err).To(HaveOccurred())
			},
			Entry("NaN epsilon", func(c *autotune.Config) { c.Tolerance.Epsilon = math.NaN() }),
			Entry("infinite epsilon", func(c *autotune.Config) { c.Tolerance.Epsilon = math.Inf(1) }),
			Entry("NaN step tolerance", func(c *autotune.Config) { c.StepTolerance = math.NaN() }),
			Entry("NaN diff step", func(c *autotune.Config) { c.DiffStep = math.NaN() }),
			Entry("NaN bandwidth", func(c *autotune.Config) { c.Bandwidth = math.NaN() }),
			Entry("infinite bandwidth", func(c *autotune.Config) { c.Bandwidth = math.Inf(1) }),
			Entry("NaN tau grid bound", func(c *autotune.Config) { c.TauGrid.Min = math.NaN() }),
		)
	})
})

var _ = Describe("ComputeGains", func() {
	It("cancels the water pole and damps the lag critically", func() {
		g, err := autotune.ComputeGains(reference, 0.25)
		Expect(err).NotTo(HaveOccurred())

		Expect(g.Ti).To(BeNumerically("~", 1600, 1e-9))
		Expect(g.Kf).To(BeNumerically("~", 8, 1e-12))
		Expect(g.MaxHeatRate).To(BeNumerically("~", 0.000078125, 1e-15))
		// Kp*c1*c2 = 1/(4*tau) puts both closed-loop poles at -1/(2*tau).
		Expect(g.Kp * reference.C1 * reference.C2).To(BeNumerically("~", 1/(4*reference.Tau), 1e-12))
		Expect(g.Ki()).To(BeNumerically("~", g.Kp/g.Ti, 1e-15))
	})

	It("scales the proportional gain with bandwidth", func() {
		slow, _ := autotune.ComputeGains(reference, 0.25)
		fast, _ := autotune.ComputeGains(reference, 0.5)
		Expect(fast.Kp).To(BeNumerically("~", 2*slow.Kp, 1e-9))
	})

	It("falls back to the inverse plant gain without a lag", func() {
		p := reference
		p.Tau = 0
		g, err := autotune.ComputeGains(p, 0.25)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Kp).To(BeNumerically("~", 8, 1e-12))
	})

	It("rejects non-physical parameters", func() {
		_, err := autotune.ComputeGains(plant.Params{C1: 0, C2: 1, Tau: 1}, 0.25)
		Expect(err).To(HaveOccurred())
		_, err = autotune.ComputeGains(reference, 0)
		Expect(err).To(HaveOccurred())
		_, err = autotune.ComputeGains(reference, math.Inf(1))
		Expect(err).To(HaveOccurred())
	})
})
