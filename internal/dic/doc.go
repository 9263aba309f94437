// Package dic owns the digital-image-correlation point data of a single
// bubble-test frame.
//
// Responsibilities: the immutable PointCloud model (initial position plus
// displacement per tracked point), reading the whitespace-delimited .dat
// exports, and the compressed binary frame cache.
// Key types: Point, PointCloud.
//
// Numerical fitting lives in internal/fit and internal/bubble; this package
// never imports them.
package dic
