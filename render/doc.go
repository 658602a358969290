// Package render turns processing results into figure images.
//
// Each figure function is a stateless call over already-computed arrays
// and returns an in-memory NRGBA image; SaveFigure scales it for the
// requested DPI and writes it to disk. Nothing here feeds back into the
// processing chain.
package render
