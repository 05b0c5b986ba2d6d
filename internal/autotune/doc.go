// Package autotune identifies the heated-tank model from a recorded
// excitation test and recommends PI plus feed-forward gains.
//
// A fit runs in three stages. The heater command is rebuilt from the known
// excitation waveform. A linear regression over a sweep of heater lags seeds
// the parameters. A damped Gauss-Newton iteration then refines c1, c2, tau and
// the ambient temperature against the simulated response, solving each
// linearized step with linalg's pseudo-inverse.
package autotune
