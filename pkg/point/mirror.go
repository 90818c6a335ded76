package point

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Axis names a plane of symmetry by the two axes spanning it.
type Axis int

const (
	AxisYZ Axis = iota // mirrors X
	AxisXZ             // mirrors Y
	AxisXY             // mirrors Z
)

func (a Axis) String() string {
	switch a {
	case AxisXY:
		return "xy"
	case AxisXZ:
		return "xz"
	case AxisYZ:
		return "yz"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis converts "xy", "xz" or "yz" to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "xy":
		return AxisXY, nil
	case "xz":
		return AxisXZ, nil
	case "yz":
		return AxisYZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected xy, xz, or yz", s)
}

// Reflect returns v reflected across the plane.
func (a Axis) Reflect(v v3.Vec) v3.Vec {
	switch a {
	case AxisXY:
		v.Z = -v.Z
	case AxisXZ:
		v.Y = -v.Y
	default:
		v.X = -v.X
	}
	return v
}

// Normal returns the coordinate of v normal to the plane.
func (a Axis) Normal(v v3.Vec) float64 {
	switch a {
	case AxisXY:
		return v.Z
	case AxisXZ:
		return v.Y
	default:
		return v.X
	}
}

// Mirror returns a new slice holding every point reflected across the
// plane. Weights are kept.
func Mirror(points []Point, axis Axis) []Point {
	mirrored := make([]Point, len(points))
	for i, p := range points {
		mirrored[i] = Point{Position: axis.Reflect(p.Position), Weight: p.Weight}
	}
	return mirrored
}

// Translate returns a new slice holding every point moved by offset.
func Translate(points []Point, offset v3.Vec) []Point {
	moved := make([]Point, len(points))
	for i, p := range points {
		moved[i] = Point{Position: p.Position.Add(offset), Weight: p.Weight}
	}
	return moved
}
