package scenefile

import (
	"fmt"

	"camview/internal/camera"
	"camview/internal/scene"

	"github.com/go-gl/mathgl/mgl64"
)

// Build turns a resolved document into a scene graph.
func Build(doc *Document) (*scene.Graph, error) {
	g := scene.NewGraph()
	for _, n := range doc.Nodes {
		if err := addNode(g, nil, n); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func addNode(g *scene.Graph, parent *scene.Object, n NodeSpec) error {
	if n.Prototype != "" {
		return fmt.Errorf("%s: prototype %q not resolved", n.Name, n.Prototype)
	}
	spec, err := n.sceneSpec()
	if err != nil {
		return fmt.Errorf("node %s: %w", n.Name, err)
	}
	o, err := g.Add(parent, spec)
	if err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := addNode(g, o, c); err != nil {
			return err
		}
	}
	return nil
}

func (n NodeSpec) sceneSpec() (scene.Spec, error) {
	kind := scene.Transform
	if n.Kind != "" {
		k, err := scene.ParseKind(n.Kind)
		if err != nil {
			return scene.Spec{}, err
		}
		kind = k
	}

	local, err := n.LocalMatrix()
	if err != nil {
		return scene.Spec{}, err
	}
	spec := scene.Spec{
		Name:     n.Name,
		Kind:     kind,
		Local:    local,
		ReadOnly: n.Writable != nil && !*n.Writable,
	}

	if n.Bounds != nil {
		b := scene.NewBox(mgl64.Vec3(n.Bounds.Min), mgl64.Vec3(n.Bounds.Max))
		if !b.Valid() {
			return scene.Spec{}, fmt.Errorf("bounds min %v exceeds max %v", n.Bounds.Min, n.Bounds.Max)
		}
		spec.Geometry = &b
	}

	switch {
	case n.Camera != nil && kind != scene.Camera:
		return scene.Spec{}, fmt.Errorf("camera settings on a %s node", kind)
	case kind == scene.Camera:
		cam, err := n.Camera.Camera()
		if err != nil {
			return scene.Spec{}, err
		}
		spec.Lens = cam
	}
	return spec, nil
}

// LocalMatrix is the node-to-parent matrix: Matrix when given, otherwise
// translate * rotateZ * rotateY * rotateX * scale.
func (n NodeSpec) LocalMatrix() (mgl64.Mat4, error) {
	if n.Matrix != nil {
		if len(n.Matrix) != 16 {
			return mgl64.Mat4{}, fmt.Errorf("matrix has %d values, need 16", len(n.Matrix))
		}
		var m mgl64.Mat4
		copy(m[:], n.Matrix)
		return m, nil
	}

	m := mgl64.Ident4()
	if t := n.Translate; t != nil {
		m = m.Mul4(mgl64.Translate3D(t[0], t[1], t[2]))
	}
	if r := n.Rotate; r != nil {
		m = m.Mul4(mgl64.HomogRotate3DZ(mgl64.DegToRad(r[2])))
		m = m.Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(r[1])))
		m = m.Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(r[0])))
	}
	if s := n.Scale; s != nil {
		m = m.Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
	}
	return m, nil
}

// Camera applies the spec over camera.Default. A nil spec yields the default.
func (c *CameraSpec) Camera() (*camera.Camera, error) {
	cam := camera.Default()
	if c == nil {
		return cam, nil
	}
	if c.FieldOfView != nil {
		aspect := cam.HorizontalFilmAperture / cam.VerticalFilmAperture
		if c.DeviceAspectRatio != nil && *c.DeviceAspectRatio > 0 {
			aspect = *c.DeviceAspectRatio
		}
		near, far := cam.NearClip, cam.FarClip
		if c.NearClip != nil {
			near = *c.NearClip
		}
		if c.FarClip != nil {
			far = *c.FarClip
		}
		p, err := camera.NewPerspective(*c.FieldOfView, aspect, near, far)
		if err != nil {
			return nil, err
		}
		cam = p
	}

	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cam.NearClip, c.NearClip)
	set(&cam.FarClip, c.FarClip)
	if c.FieldOfView == nil {
		set(&cam.FocalLength, c.FocalLength)
		set(&cam.HorizontalFilmAperture, c.HorizontalFilmAperture)
		set(&cam.VerticalFilmAperture, c.VerticalFilmAperture)
	}
	set(&cam.HorizontalFilmOffset, c.HorizontalFilmOffset)
	set(&cam.VerticalFilmOffset, c.VerticalFilmOffset)
	set(&cam.LensSqueezeRatio, c.LensSqueezeRatio)
	set(&cam.Overscan, c.Overscan)
	set(&cam.DeviceAspectRatio, c.DeviceAspectRatio)
	if c.FilmFit != nil && c.FieldOfView == nil {
		cam.FilmFit = *c.FilmFit
	}
	return cam, nil
}
