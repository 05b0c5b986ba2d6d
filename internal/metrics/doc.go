// Package metrics scores simulated temperature traces.
//
// Fit metrics compare a simulated series with a recorded one. Closed-loop
// metrics implement sim.Metric and are observed step by step while a
// controller holds a setpoint.
package metrics
