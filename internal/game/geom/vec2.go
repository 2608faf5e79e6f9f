// Package geom provides the small amount of vector math the grouping
// engine needs.
package geom

import "math"

// Vec2 is a 2D integer position on the world grid.
type Vec2 struct {
	X int32
	Y int32
}

// Sub returns the component-wise difference v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Mag returns the Euclidean magnitude of v.
//
// Postcondition: Returns a non-negative float64.
func (v Vec2) Mag() float64 {
	return math.Sqrt(float64(v.X)*float64(v.X) + float64(v.Y)*float64(v.Y))
}

// Dist returns the Euclidean distance between v and o.
func (v Vec2) Dist(o Vec2) float64 {
	return v.Sub(o).Mag()
}
