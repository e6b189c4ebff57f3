// Package camera models a film-back perspective camera: clip planes, film
// gate and lens, and the viewing frustum extents they imply at the near plane.
package camera

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

const mmPerInch = 25.4

var ErrInvalidCamera = errors.New("invalid camera")

// FilmFit controls how the film gate is fitted to the output aspect ratio.
type FilmFit int

const (
	FitFill FilmFit = iota
	FitHorizontal
	FitVertical
	FitOverscan
)

var filmFitNames = [...]string{"fill", "horizontal", "vertical", "overscan"}

func (f FilmFit) String() string {
	if f < 0 || int(f) >= len(filmFitNames) {
		return fmt.Sprintf("FilmFit(%d)", int(f))
	}
	return filmFitNames[f]
}

func (f FilmFit) MarshalText() ([]byte, error) {
	if f < 0 || int(f) >= len(filmFitNames) {
		return nil, fmt.Errorf("unknown film fit %d", int(f))
	}
	return []byte(filmFitNames[f]), nil
}

func (f *FilmFit) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, name := range filmFitNames {
		if s == name {
			*f = FilmFit(i)
			return nil
		}
	}
	return fmt.Errorf("unknown film fit %q", s)
}

// Camera holds the parameters of a perspective camera. Apertures and film
// offsets are in inches, the focal length in millimetres.
type Camera struct {
	NearClip               float64
	FarClip                float64
	FocalLength            float64
	HorizontalFilmAperture float64
	VerticalFilmAperture   float64
	HorizontalFilmOffset   float64
	VerticalFilmOffset     float64
	LensSqueezeRatio       float64
	FilmFit                FilmFit
	Overscan               float64
	// DeviceAspectRatio is the output image aspect. Zero means use the film aspect.
	DeviceAspectRatio float64
}

// Default returns a 35mm camera on a 1.417x0.945in gate, clipping at 0.1 and 10000.
func Default() *Camera {
	return &Camera{
		NearClip:               0.1,
		FarClip:                10000,
		FocalLength:            35,
		HorizontalFilmAperture: 1.417,
		VerticalFilmAperture:   0.945,
		LensSqueezeRatio:       1,
		FilmFit:                FitFill,
		Overscan:               1,
	}
}

// NewPerspective returns a camera whose vertical field of view is fovY
// degrees, matching mgl64.Perspective for the same arguments.
func NewPerspective(fovY, aspect, near, far float64) (*Camera, error) {
	if fovY <= 0 || fovY >= 180 {
		return nil, fmt.Errorf("%w: field of view %g out of range", ErrInvalidCamera, fovY)
	}
	if aspect <= 0 {
		return nil, fmt.Errorf("%w: aspect ratio %g", ErrInvalidCamera, aspect)
	}
	c := Default()
	c.NearClip = near
	c.FarClip = far
	c.HorizontalFilmAperture = c.VerticalFilmAperture * aspect
	c.FilmFit = FitVertical
	c.DeviceAspectRatio = aspect
	c.FocalLength = (c.VerticalFilmAperture * mmPerInch / 2) / math.Tan(mgl64.DegToRad(fovY)/2)
	return c, nil
}

func (c *Camera) NearClippingPlane() (float64, error) {
	if err := c.validateClip(); err != nil {
		return 0, err
	}
	return c.NearClip, nil
}

func (c *Camera) FarClippingPlane() (float64, error) {
	if err := c.validateClip(); err != nil {
		return 0, err
	}
	return c.FarClip, nil
}

func (c *Camera) validateClip() error {
	if !finite(c.NearClip) || !finite(c.FarClip) || c.NearClip <= 0 || c.FarClip <= c.NearClip {
		return fmt.Errorf("%w: clip planes near=%g far=%g", ErrInvalidCamera, c.NearClip, c.FarClip)
	}
	return nil
}

// AspectRatio returns the device aspect ratio, or the film aspect when unset.
func (c *Camera) AspectRatio() (float64, error) {
	if c.DeviceAspectRatio > 0 {
		return c.DeviceAspectRatio, nil
	}
	if c.HorizontalFilmAperture <= 0 || c.VerticalFilmAperture <= 0 {
		return 0, fmt.Errorf("%w: film aperture %gx%g", ErrInvalidCamera, c.HorizontalFilmAperture, c.VerticalFilmAperture)
	}
	return c.HorizontalFilmAperture / c.VerticalFilmAperture, nil
}

// ViewingFrustum returns the left, right, bottom and top extents of the view
// volume at the near clipping plane for an output of the given aspect ratio.
func (c *Camera) ViewingFrustum(aspect float64, applyOverscan, applySqueeze bool) (left, right, bottom, top float64, err error) {
	if err = c.validateClip(); err != nil {
		return
	}
	if !(aspect > 0) || !finite(aspect) {
		err = fmt.Errorf("%w: aspect ratio %g", ErrInvalidCamera, aspect)
		return
	}
	if !(c.FocalLength > 0) || !finite(c.FocalLength) {
		err = fmt.Errorf("%w: focal length %g", ErrInvalidCamera, c.FocalLength)
		return
	}
	if !(c.HorizontalFilmAperture > 0) || !(c.VerticalFilmAperture > 0) {
		err = fmt.Errorf("%w: film aperture %gx%g", ErrInvalidCamera, c.HorizontalFilmAperture, c.VerticalFilmAperture)
		return
	}

	w := c.HorizontalFilmAperture * mmPerInch
	h := c.VerticalFilmAperture * mmPerInch
	if applySqueeze && c.LensSqueezeRatio > 0 {
		w *= c.LensSqueezeRatio
	}

	switch c.fitFor(w/h, aspect) {
	case FitHorizontal:
		h = w / aspect
	case FitVertical:
		w = h * aspect
	}
	if applyOverscan && c.Overscan > 0 {
		w *= c.Overscan
		h *= c.Overscan
	}

	scale := c.NearClip / c.FocalLength
	ox := c.HorizontalFilmOffset * mmPerInch
	oy := c.VerticalFilmOffset * mmPerInch
	left = (-w/2 + ox) * scale
	right = (w/2 + ox) * scale
	bottom = (-h/2 + oy) * scale
	top = (h/2 + oy) * scale
	return
}

// fitFor resolves fill and overscan to a concrete horizontal or vertical fit.
func (c *Camera) fitFor(filmAspect, aspect float64) FilmFit {
	switch c.FilmFit {
	case FitFill:
		if filmAspect > aspect {
			return FitVertical
		}
		return FitHorizontal
	case FitOverscan:
		if filmAspect > aspect {
			return FitHorizontal
		}
		return FitVertical
	}
	return c.FilmFit
}

// Projection returns the OpenGL-style projection matrix for the camera's
// viewing frustum at its own aspect ratio.
func (c *Camera) Projection() (mgl64.Mat4, error) {
	aspect, err := c.AspectRatio()
	if err != nil {
		return mgl64.Mat4{}, err
	}
	l, r, b, t, err := c.ViewingFrustum(aspect, false, true)
	if err != nil {
		return mgl64.Mat4{}, err
	}
	return mgl64.Frustum(l, r, b, t, c.NearClip, c.FarClip), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
