package scenefile

import "camview/internal/camera"

// Document is a scene description as stored on disk or in a bucket.
type Document struct {
	// Includes name other documents whose nodes and prototypes are merged
	// in ahead of this document's own.
	Includes   []string            `yaml:"includes,omitempty"`
	Prototypes map[string]NodeSpec `yaml:"prototypes,omitempty"`
	Nodes      []NodeSpec          `yaml:"nodes"`
	// Selection is the default camera when a query names none.
	Selection []string `yaml:"selection,omitempty"`
}

// NodeSpec describes one DAG node and its children. Unset fields are
// inherited from the prototype chain.
type NodeSpec struct {
	Name      string      `yaml:"name"`
	Kind      string      `yaml:"kind,omitempty"`
	Prototype string      `yaml:"prototype,omitempty"`
	Translate *[3]float64 `yaml:"translate,omitempty"`
	// Rotate is in degrees, applied X then Y then Z.
	Rotate *[3]float64 `yaml:"rotate,omitempty"`
	Scale  *[3]float64 `yaml:"scale,omitempty"`
	// Matrix is a column-major local matrix. It replaces translate/rotate/scale.
	Matrix   []float64   `yaml:"matrix,omitempty"`
	Bounds   *Bounds     `yaml:"bounds,omitempty"`
	Writable *bool       `yaml:"writable,omitempty"`
	Camera   *CameraSpec `yaml:"camera,omitempty"`
	Children []NodeSpec  `yaml:"children,omitempty"`
}

type Bounds struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

// CameraSpec overrides camera.Default. Setting FieldOfView derives the
// focal length and gate from a vertical angle in degrees instead.
type CameraSpec struct {
	NearClip               *float64        `yaml:"near_clip,omitempty"`
	FarClip                *float64        `yaml:"far_clip,omitempty"`
	FieldOfView            *float64        `yaml:"fov,omitempty"`
	FocalLength            *float64        `yaml:"focal_length,omitempty"`
	HorizontalFilmAperture *float64        `yaml:"horizontal_film_aperture,omitempty"`
	VerticalFilmAperture   *float64        `yaml:"vertical_film_aperture,omitempty"`
	HorizontalFilmOffset   *float64        `yaml:"horizontal_film_offset,omitempty"`
	VerticalFilmOffset     *float64        `yaml:"vertical_film_offset,omitempty"`
	LensSqueezeRatio       *float64        `yaml:"lens_squeeze_ratio,omitempty"`
	FilmFit                *camera.FilmFit `yaml:"film_fit,omitempty"`
	Overscan               *float64        `yaml:"overscan,omitempty"`
	DeviceAspectRatio      *float64        `yaml:"device_aspect_ratio,omitempty"`
}

func cloneVec(v *[3]float64) *[3]float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (n NodeSpec) clone() NodeSpec {
	c := n
	c.Translate = cloneVec(n.Translate)
	c.Rotate = cloneVec(n.Rotate)
	c.Scale = cloneVec(n.Scale)
	if n.Matrix != nil {
		c.Matrix = append([]float64(nil), n.Matrix...)
	}
	if n.Bounds != nil {
		b := *n.Bounds
		c.Bounds = &b
	}
	if n.Writable != nil {
		w := *n.Writable
		c.Writable = &w
	}
	if n.Camera != nil {
		cs := *n.Camera
		c.Camera = &cs
	}
	if n.Children != nil {
		c.Children = make([]NodeSpec, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.clone()
		}
	}
	return c
}

// inherit fills fields of n that are unset from p.
func (n *NodeSpec) inherit(p NodeSpec) {
	p = p.clone()
	if n.Kind == "" {
		n.Kind = p.Kind
	}
	if n.Matrix == nil && n.Translate == nil && n.Rotate == nil && n.Scale == nil {
		n.Matrix = p.Matrix
		n.Translate = p.Translate
		n.Rotate = p.Rotate
		n.Scale = p.Scale
	}
	if n.Bounds == nil {
		n.Bounds = p.Bounds
	}
	if n.Writable == nil {
		n.Writable = p.Writable
	}
	if n.Camera == nil {
		n.Camera = p.Camera
	}
	if len(n.Children) == 0 {
		n.Children = p.Children
	}
}
