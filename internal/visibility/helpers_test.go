package visibility

import (
	"errors"
	"testing"

	"camview/internal/scene"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

// fixedLens is a 90 degree square frustum from near 1 to far 100.
type fixedLens struct {
	near, far float64
	err       error
}

func (l fixedLens) NearClippingPlane() (float64, error) { return l.near, l.err }
func (l fixedLens) FarClippingPlane() (float64, error)  { return l.far, nil }
func (l fixedLens) AspectRatio() (float64, error)       { return 1, nil }

func (l fixedLens) ViewingFrustum(float64, bool, bool) (float64, float64, float64, float64, error) {
	return -l.near, l.near, -l.near, l.near, nil
}

func unitBox() *scene.Box {
	b := scene.NewBox(mgl64.Vec3{-0.5, -0.5, -0.5}, mgl64.Vec3{0.5, 0.5, 0.5})
	return &b
}

func wideBox() *scene.Box {
	b := scene.NewBox(mgl64.Vec3{-10, -0.5, -0.5}, mgl64.Vec3{10, 0.5, 0.5})
	return &b
}

func add(t *testing.T, g *scene.Graph, parent *scene.Object, spec scene.Spec) *scene.Object {
	t.Helper()
	o, err := g.Add(parent, spec)
	require.NoError(t, err)
	return o
}

// newTestScene builds a camera at the origin looking down -Z and a handful
// of objects around it:
//
//	cam|camShape
//	inside|insideShape          fully in view
//	behind|behindShape          behind the camera
//	straddle|straddleShape      crosses both side planes
//	group|a|aShape              in view
//	group|b|bShape              behind the camera
//	multi|shapeA, multi|shapeB  two shapes, one crossing the sides
//	locked|lockedShape          read-only helper in view
func newTestScene(t *testing.T) *scene.Graph {
	t.Helper()
	g := scene.NewGraph()
	at := func(z float64) mgl64.Mat4 { return mgl64.Translate3D(0, 0, z) }

	cam := add(t, g, nil, scene.Spec{Name: "cam", Kind: scene.Transform})
	add(t, g, cam, scene.Spec{Name: "camShape", Kind: scene.Camera, Lens: fixedLens{near: 1, far: 100}})

	inside := add(t, g, nil, scene.Spec{Name: "inside", Kind: scene.Transform, Local: at(-5)})
	add(t, g, inside, scene.Spec{Name: "insideShape", Kind: scene.Mesh, Geometry: unitBox()})

	behind := add(t, g, nil, scene.Spec{Name: "behind", Kind: scene.Transform, Local: at(5)})
	add(t, g, behind, scene.Spec{Name: "behindShape", Kind: scene.Mesh, Geometry: unitBox()})

	straddle := add(t, g, nil, scene.Spec{Name: "straddle", Kind: scene.Transform, Local: at(-5)})
	add(t, g, straddle, scene.Spec{Name: "straddleShape", Kind: scene.Mesh, Geometry: wideBox()})

	group := add(t, g, nil, scene.Spec{Name: "group", Kind: scene.Transform})
	a := add(t, g, group, scene.Spec{Name: "a", Kind: scene.Transform, Local: at(-5)})
	add(t, g, a, scene.Spec{Name: "aShape", Kind: scene.Mesh, Geometry: unitBox()})
	b := add(t, g, group, scene.Spec{Name: "b", Kind: scene.Transform, Local: at(50)})
	add(t, g, b, scene.Spec{Name: "bShape", Kind: scene.Mesh, Geometry: unitBox()})

	multi := add(t, g, nil, scene.Spec{Name: "multi", Kind: scene.Transform, Local: at(-5)})
	add(t, g, multi, scene.Spec{Name: "shapeA", Kind: scene.Mesh, Geometry: unitBox()})
	add(t, g, multi, scene.Spec{Name: "shapeB", Kind: scene.NurbsSurface, Geometry: wideBox()})

	locked := add(t, g, nil, scene.Spec{Name: "locked", Kind: scene.Transform, Local: at(-5), ReadOnly: true})
	add(t, g, locked, scene.Spec{Name: "lockedShape", Kind: scene.Mesh, Geometry: unitBox()})

	return g
}

var errHost = errors.New("host unavailable")

// faultHost wraps a Host and injects failures or overrides per full path.
type faultHost struct {
	scene.Host
	failBox      map[string]bool
	failChildren map[string]bool
	boxes        map[string]scene.Box
	kinds        map[string]scene.Kind
}

func newFaultHost(h scene.Host) *faultHost {
	return &faultHost{
		Host:         h,
		failBox:      map[string]bool{},
		failChildren: map[string]bool{},
		boxes:        map[string]scene.Box{},
		kinds:        map[string]scene.Kind{},
	}
}

func (h *faultHost) wrap(ns []scene.Node) []scene.Node {
	out := make([]scene.Node, len(ns))
	for i, n := range ns {
		out[i] = &faultNode{Node: n, h: h}
	}
	return out
}

func (h *faultHost) Roots() ([]scene.Node, error) {
	ns, err := h.Host.Roots()
	return h.wrap(ns), err
}

func (h *faultHost) Lookup(sel string) ([]scene.Node, error) {
	ns, err := h.Host.Lookup(sel)
	return h.wrap(ns), err
}

type faultNode struct {
	scene.Node
	h *faultHost
}

func (n *faultNode) Kind() scene.Kind {
	if k, ok := n.h.kinds[n.FullPath()]; ok {
		return k
	}
	return n.Node.Kind()
}

func (n *faultNode) Parent() scene.Node {
	p := n.Node.Parent()
	if p == nil {
		return nil
	}
	return &faultNode{Node: p, h: n.h}
}

func (n *faultNode) Children() ([]scene.Node, error) {
	if n.h.failChildren[n.FullPath()] {
		return nil, errHost
	}
	ns, err := n.Node.Children()
	return n.h.wrap(ns), err
}

func (n *faultNode) BoundingBox() (scene.Box, error) {
	if n.h.failBox[n.FullPath()] {
		return scene.Box{}, errHost
	}
	if b, ok := n.h.boxes[n.FullPath()]; ok {
		return b, nil
	}
	return n.Node.BoundingBox()
}
