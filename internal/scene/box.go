package scene

import (
	"math"

	"camview/internal/frustum"

	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis-aligned bounding box.
type Box struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyBox returns a box that contains nothing; its union with any box b is b.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

func NewBox(min, max mgl64.Vec3) Box {
	return Box{Min: min, Max: max}
}

// IsEmpty reports whether the box has min > max on any axis.
func (b Box) IsEmpty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

// Valid reports whether the box is non-empty with finite corners.
func (b Box) Valid() bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(b.Min[i]) || math.IsInf(b.Min[i], 0) || math.IsNaN(b.Max[i]) || math.IsInf(b.Max[i], 0) {
			return false
		}
	}
	return !b.IsEmpty()
}

// Corners returns the eight corners of the box.
func (b Box) Corners() [8]mgl64.Vec3 {
	return frustum.BoxCorners(b.Min, b.Max)
}

// Union returns the smallest box containing b and o.
func (b Box) Union(o Box) Box {
	return Box{
		Min: mgl64.Vec3{math.Min(b.Min.X(), o.Min.X()), math.Min(b.Min.Y(), o.Min.Y()), math.Min(b.Min.Z(), o.Min.Z())},
		Max: mgl64.Vec3{math.Max(b.Max.X(), o.Max.X()), math.Max(b.Max.Y(), o.Max.Y()), math.Max(b.Max.Z(), o.Max.Z())},
	}
}

// Transform returns the axis-aligned box enclosing b's corners mapped by m.
func (b Box) Transform(m mgl64.Mat4) Box {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox()
	for _, c := range b.Corners() {
		p := mgl64.TransformCoordinate(c, m)
		out = out.Union(Box{Min: p, Max: p})
	}
	return out
}
