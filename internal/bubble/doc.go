// Package bubble implements the bubble-test analysis on top of internal/fit:
// the Z-displacement correction that re-centres a frame on the clamp circle
// and removes non-specimen points, and the four bubble origin estimates
// (circle fit, extrema intersection, raw median, polynomial-fit median).
//
// All functions are pure functions of a dic.PointCloud and Options, so
// frames can be processed concurrently without coordination.
package bubble
