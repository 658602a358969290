// Package raster is a small pixel-plotting layer for the figure renderer:
// an NRGBA canvas with primitive drawing (lines, discs, filled cells, text
// via the fixed 7x13 face) and Axes, which map a data-space extent onto a
// pixel rectangle with optional log scaling per axis.
//
// It draws directly, one pixel at a time, with no display or vector
// backend. Figures meant for humans go through the render package, which
// composes these primitives into full panels.
package raster
