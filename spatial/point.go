// Package spatial provides the geometric primitives used throughout the
// index: points, bounding boxes, octant/quadrant directions, and the
// arbitrary-precision node identifiers used to address the tree.
package spatial

import (
	"fmt"
	"math"
)

// Point is a coordinate in the indexed space. Z is ignored for 2D
// (quadtree) structures.
type Point struct {
	X, Y, Z float64
}

// Add returns the component-wise sum of p and o.
func (p Point) Add(o Point) Point {
	return Point{p.X + o.X, p.Y + o.Y, p.Z + o.Z}
}

// Sub returns the component-wise difference of p and o.
func (p Point) Sub(o Point) Point {
	return Point{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

// Scale multiplies every component of p by f.
func (p Point) Scale(f float64) Point {
	return Point{p.X * f, p.Y * f, p.Z * f}
}

// Equal reports whether p and o are bit-identical.
func (p Point) Equal(o Point) bool {
	return p.X == o.X && p.Y == o.Y && p.Z == o.Z
}

// SqDist2d returns the squared Euclidean distance in X/Y only.
func (p Point) SqDist2d(o Point) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return dx*dx + dy*dy
}

// SqDist3d returns the squared Euclidean distance in all three dimensions.
func (p Point) SqDist3d(o Point) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// Valid reports whether all components are finite.
func (p Point) Valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsNaN(p.Z) &&
		!math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) && !math.IsInf(p.Z, 0)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}
