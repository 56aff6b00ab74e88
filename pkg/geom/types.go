// Package geom provides the small value types shared by the walking stages.
package geom

import "fmt"

// Point2 defines a position in 2D.
type Point2 struct {
	X, Y float64
}

// Point3 defines a position in 3D.
type Point3 struct {
	X, Y, Z float64
}

// Offset is a planar offset together with a yaw, used to track the
// displacement of a foot from its nominal pose.
type Offset struct {
	X, Y float64
	Yaw  Angle
}

// Add is a helper to add Point2.
func (p Point2) Add(p1 Point2) Point2 {
	return Point2{X: p.X + p1.X, Y: p.Y + p1.Y}
}

// Sub is a helper to subtract Point2.
func (p Point2) Sub(p1 Point2) Point2 {
	return Point2{X: p.X - p1.X, Y: p.Y - p1.Y}
}

// String implements fmt.Stringer.
func (p Point2) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", p.X, p.Y)
}

// Add is a helper to add Point3.
func (p Point3) Add(p1 Point3) Point3 {
	return Point3{X: p.X + p1.X, Y: p.Y + p1.Y, Z: p.Z + p1.Z}
}

// OffsetOf creates an Offset from a position and a heading.
func OffsetOf(p Point2, yaw Angle) Offset {
	return Offset{X: p.X, Y: p.Y, Yaw: yaw}
}

// Add adds component-wise. Yaw is not normalized so that an
// accumulated offset never jumps.
func (o Offset) Add(o1 Offset) Offset {
	return Offset{X: o.X + o1.X, Y: o.Y + o1.Y, Yaw: o.Yaw + o1.Yaw}
}

// Sub subtracts component-wise.
func (o Offset) Sub(o1 Offset) Offset {
	return Offset{X: o.X - o1.X, Y: o.Y - o1.Y, Yaw: o.Yaw - o1.Yaw}
}

// Div divides all components by a scalar.
func (o Offset) Div(d float64) Offset {
	return Offset{X: o.X / d, Y: o.Y / d, Yaw: o.Yaw.Div(d)}
}

// Point gets the planar part.
func (o Offset) Point() Point2 {
	return Point2{X: o.X, Y: o.Y}
}

// String implements fmt.Stringer.
func (o Offset) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.2f°)", o.X, o.Y, o.Yaw.Degrees())
}
