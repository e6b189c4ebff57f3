package visibility

import (
	"fmt"
	"math"

	"camview/internal/frustum"
	"camview/internal/scene"

	"github.com/go-gl/mathgl/mgl64"
)

// View is the camera state shared read-only by a whole walk.
type View struct {
	Camera       scene.Node
	Frustum      frustum.Frustum
	InverseWorld mgl64.Mat4
}

// ResolveCamera finds the camera shape named by selector. An empty selector
// falls back to selection, which must then hold exactly one entry.
func ResolveCamera(host scene.Host, selector string, selection []string) (scene.Node, error) {
	if selector == "" {
		switch len(selection) {
		case 0:
			return nil, ErrNoCamera
		case 1:
			selector = selection[0]
		default:
			return nil, fmt.Errorf("%w: %d objects selected, need exactly one", ErrAmbiguousCamera, len(selection))
		}
	}

	matches, err := host.Lookup(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCamera, err)
	}
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: nothing matches %q", ErrNoCamera, selector)
	case len(matches) > 1:
		return nil, fmt.Errorf("%w: more than one object matches %q", ErrAmbiguousCamera, selector)
	}

	n := matches[0]
	if n.Kind() != scene.Camera {
		shape, err := scene.ExtendToShape(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotCamera, n.PartialPath(), err)
		}
		n = shape
	}
	if _, ok := n.Lens(); !ok || n.Kind() != scene.Camera {
		return nil, fmt.Errorf("%w: %s", ErrNotCamera, n.PartialPath())
	}
	return n, nil
}

// Setup builds the view frustum of cam and the matrix that maps world
// space into its camera space.
func Setup(cam scene.Node, applyOverscan, applySqueeze bool) (*View, error) {
	lens, ok := cam.Lens()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCamera, cam.PartialPath())
	}
	path := cam.FullPath()
	wrap := func(op string, err error) error {
		return &QueryError{Op: op, Path: path, Err: err}
	}

	near, err := lens.NearClippingPlane()
	if err != nil {
		return nil, wrap("NearClippingPlane", err)
	}
	far, err := lens.FarClippingPlane()
	if err != nil {
		return nil, wrap("FarClippingPlane", err)
	}
	aspect, err := lens.AspectRatio()
	if err != nil {
		return nil, wrap("AspectRatio", err)
	}
	left, right, bottom, top, err := lens.ViewingFrustum(aspect, applyOverscan, applySqueeze)
	if err != nil {
		return nil, wrap("ViewingFrustum", err)
	}
	f, err := frustum.New(near, far, left, right, bottom, top)
	if err != nil {
		return nil, wrap("ViewingFrustum", err)
	}

	world, err := scene.InclusiveMatrix(cam)
	if err != nil {
		return nil, wrap("InclusiveMatrix", err)
	}
	if det := world.Det(); det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return nil, wrap("InclusiveMatrixInverse", fmt.Errorf("camera world matrix is singular (det=%g)", det))
	}

	return &View{
		Camera:       cam,
		Frustum:      f,
		InverseWorld: world.Inv(),
	}, nil
}
