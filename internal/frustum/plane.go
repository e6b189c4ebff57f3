package frustum

import "github.com/go-gl/mathgl/mgl64"

// Side is the position of a point relative to a plane.
type Side int

const (
	InFront Side = iota
	Behind
	On
)

func (s Side) String() string {
	switch s {
	case InFront:
		return "infront"
	case Behind:
		return "behind"
	case On:
		return "on"
	}
	return "unknown"
}

// Plane is a half-space: points with Normal·p + Distance > 0 are in front of it.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

// NewPlane returns the plane through the origin spanned by a and b.
// The normal is normalize(a × b), so the winding of a and b picks the front side.
func NewPlane(a, b mgl64.Vec3) Plane {
	return Plane{Normal: a.Cross(b).Normalize()}
}

// SignedDistance returns Normal·p + Distance.
func (pl Plane) SignedDistance(p mgl64.Vec3) float64 {
	return pl.Normal.Dot(p) + pl.Distance
}

// Classify reports which side of the plane p lies on. On is an exact
// float comparison.
func (pl Plane) Classify(p mgl64.Vec3) Side {
	v := pl.SignedDistance(p)
	if v > 0 {
		return InFront
	}
	if v < 0 {
		return Behind
	}
	return On
}

// normalizePlane scales a raw (a,b,c,d) plane so its normal is unit length.
func normalizePlane(a, b, c, d float64) Plane {
	n := mgl64.Vec3{a, b, c}
	l := n.Len()
	if l == 0 {
		return Plane{Normal: n, Distance: d}
	}
	return Plane{Normal: n.Mul(1 / l), Distance: d / l}
}
