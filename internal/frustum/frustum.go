// Package frustum classifies camera-space points against a six-plane view volume.
package frustum

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Plane indices. The order is fixed for every Frustum.
const (
	Right = iota
	Left
	Bottom
	Top
	Far
	Near
	NumPlanes
)

// Containment is the relation of a point set to the whole frustum.
type Containment int

const (
	Inside Containment = iota
	Outside
	Intersects
)

func (c Containment) String() string {
	switch c {
	case Inside:
		return "inside"
	case Outside:
		return "outside"
	case Intersects:
		return "intersects"
	}
	return "unknown"
}

var (
	ErrInvalidFrustum    = errors.New("invalid frustum parameters")
	ErrIncompleteFrustum = errors.New("frustum does not have six planes")
	ErrNoPoints          = errors.New("no points to classify")
)

// Frustum is a camera-space view volume. Every plane is oriented so that
// Behind means outside the volume. Read-only after construction.
type Frustum struct {
	planes    [NumPlanes]Plane
	numPlanes int
}

// New builds the frustum of a camera looking down -Z from its near/far clip
// distances and the left/right/bottom/top extents at the near plane.
func New(near, far, left, right, bottom, top float64) (Frustum, error) {
	for _, v := range [...]float64{near, far, left, right, bottom, top} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Frustum{}, fmt.Errorf("%w: non-finite value in near=%g far=%g l=%g r=%g b=%g t=%g",
				ErrInvalidFrustum, near, far, left, right, bottom, top)
		}
	}
	if near <= 0 || far <= near {
		return Frustum{}, fmt.Errorf("%w: need 0 < near < far, got near=%g far=%g", ErrInvalidFrustum, near, far)
	}
	if left >= right || bottom >= top {
		return Frustum{}, fmt.Errorf("%w: empty extents l=%g r=%g b=%g t=%g", ErrInvalidFrustum, left, right, bottom, top)
	}

	var f Frustum
	f.planes[Right] = NewPlane(mgl64.Vec3{right, top, -near}, mgl64.Vec3{right, bottom, -near})
	f.planes[Left] = NewPlane(mgl64.Vec3{left, bottom, -near}, mgl64.Vec3{left, top, -near})
	f.planes[Bottom] = NewPlane(mgl64.Vec3{right, bottom, -near}, mgl64.Vec3{left, bottom, -near})
	f.planes[Top] = NewPlane(mgl64.Vec3{left, top, -near}, mgl64.Vec3{right, top, -near})
	f.planes[Far] = Plane{Normal: mgl64.Vec3{0, 0, 1}, Distance: far}
	// The near plane sits at z = -near, so points closer to the eye are behind it.
	f.planes[Near] = Plane{Normal: mgl64.Vec3{0, 0, -1}, Distance: -near}
	f.numPlanes = NumPlanes
	return f, nil
}

// FromProjection extracts the six planes from an OpenGL-style projection
// matrix. The result uses the same plane order and orientation as New.
func FromProjection(m mgl64.Mat4) Frustum {
	// mgl64 is column-major: row i is m[i], m[i+4], m[i+8], m[i+12].
	row := func(i int) mgl64.Vec4 { return mgl64.Vec4{m[i], m[i+4], m[i+8], m[i+12]} }
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	plane := func(v mgl64.Vec4) Plane { return normalizePlane(v[0], v[1], v[2], v[3]) }

	var f Frustum
	f.planes[Right] = plane(r3.Sub(r0))
	f.planes[Left] = plane(r3.Add(r0))
	f.planes[Bottom] = plane(r3.Add(r1))
	f.planes[Top] = plane(r3.Sub(r1))
	f.planes[Far] = plane(r3.Sub(r2))
	f.planes[Near] = plane(r3.Add(r2))
	f.numPlanes = NumPlanes
	return f
}

// Plane returns the plane at index i (Right..Near).
func (f Frustum) Plane(i int) Plane {
	return f.planes[i]
}

// Planes returns a copy of all planes in order.
func (f Frustum) Planes() [NumPlanes]Plane {
	return f.planes
}

// Valid reports whether the frustum was fully constructed.
func (f Frustum) Valid() bool {
	return f.numPlanes == NumPlanes
}

// Classify reports whether points lie entirely inside, entirely outside, or
// across the frustum. A set is Outside only when a single plane has every
// point behind it, so some boxes near frustum corners come back as Intersects.
func (f Frustum) Classify(points []mgl64.Vec3) (Containment, error) {
	if !f.Valid() {
		return Outside, ErrIncompleteFrustum
	}
	if len(points) == 0 {
		return Outside, ErrNoPoints
	}

	satisfied := 0
	for i := 0; i < f.numPlanes; i++ {
		behind := 0
		for _, p := range points {
			if f.planes[i].Classify(p) == Behind {
				behind++
			}
		}
		if behind == len(points) {
			return Outside, nil
		}
		if behind == 0 {
			satisfied++
		}
	}
	if satisfied == f.numPlanes {
		return Inside, nil
	}
	return Intersects, nil
}

// ClassifyBox maps the eight corners of the box [min, max] through m and
// classifies them.
func (f Frustum) ClassifyBox(min, max mgl64.Vec3, m mgl64.Mat4) (Containment, error) {
	pts := BoxCorners(min, max)
	for i := range pts {
		pts[i] = mgl64.TransformCoordinate(pts[i], m)
	}
	return f.Classify(pts[:])
}

// BoxCorners returns the eight corners of [min, max]: the bottom face
// (y = min) first, then the top face, each wound min → +x → +x+z → +z.
func BoxCorners(min, max mgl64.Vec3) [8]mgl64.Vec3 {
	return [8]mgl64.Vec3{
		{min.X(), min.Y(), min.Z()},
		{max.X(), min.Y(), min.Z()},
		{max.X(), min.Y(), max.Z()},
		{min.X(), min.Y(), max.Z()},
		{min.X(), max.Y(), min.Z()},
		{max.X(), max.Y(), min.Z()},
		{max.X(), max.Y(), max.Z()},
		{min.X(), max.Y(), max.Z()},
	}
}
