// Package fit holds the numerical fitting primitives used by the bubble
// analysis: the Kåsa algebraic circle fit, the double Vandermonde design
// matrix for bivariate polynomials, and the least-squares polynomial surface
// fit with its coefficient of determination.
//
// Every function is pure and safe for concurrent use. Degenerate input is
// reported through the sentinel errors in errors.go rather than by letting
// NaN or Inf leak into results; the *Legacy variants exist for callers that
// need the old propagate-NaN behaviour.
//
// No file, plotting or database code is allowed in this package.
package fit
