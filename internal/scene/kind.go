package scene

import (
	"fmt"
	"strings"
)

// Kind tags what a node is. Transform is the only kind that is not a shape.
type Kind int

const (
	Transform Kind = iota
	Mesh
	NurbsSurface
	NurbsCurve
	Subdiv
	Lattice
	Camera
	Light
	Locator
)

var kindNames = [...]string{
	Transform:    "transform",
	Mesh:         "mesh",
	NurbsSurface: "nurbsSurface",
	NurbsCurve:   "nurbsCurve",
	Subdiv:       "subdiv",
	Lattice:      "lattice",
	Camera:       "camera",
	Light:        "light",
	Locator:      "locator",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsShape reports whether nodes of this kind are shapes (leaf geometry or
// helpers living under a transform).
func (k Kind) IsShape() bool {
	return k != Transform
}

// IsDrawable reports whether the kind is renderable surface or deformer
// geometry.
func (k Kind) IsDrawable() bool {
	switch k {
	case Mesh, NurbsSurface, NurbsCurve, Subdiv, Lattice:
		return true
	}
	return false
}

// ParseKind accepts the names used by String, case-insensitively.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return Transform, fmt.Errorf("unknown node kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown node kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
