// Package viz renders tuning results in the terminal.
//
//   - [RenderReport]: fitted parameters and recommended gains as labeled lines
//   - [PlotTrace]: recorded against simulated temperature, via asciigraph
//   - [Viewer]: a Bubble Tea program for scrolling through a validation trace
//
// # Viewer Key Bindings
//
//	←/→ h/l - Pan
//	+/-     - Zoom
//	R       - Toggle residual view
//	Home    - Jump to start
//	Q       - Quit
package viz
