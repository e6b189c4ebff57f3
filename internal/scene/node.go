// Package scene describes the scene graph a visibility query runs against:
// the Node and Host interfaces a host adapter implements, matrix helpers over
// them, a breadth-first iterator, and an in-memory Graph implementation.
package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrNoShape     = errors.New("no shape below node")
	ErrManyShapes  = errors.New("more than one shape below node")
	ErrBadSelector = errors.New("malformed selector")
)

// Lens is the camera data a camera shape exposes. Extents returned by
// ViewingFrustum are measured at the near clipping plane.
type Lens interface {
	NearClippingPlane() (float64, error)
	FarClippingPlane() (float64, error)
	AspectRatio() (float64, error)
	ViewingFrustum(aspect float64, applyOverscan, applySqueeze bool) (left, right, bottom, top float64, err error)
}

// Node is a DAG node owned by the host. Every query may fail; callers must
// not use the value returned alongside an error.
type Node interface {
	Name() string
	// FullPath is the unique '|'-separated path from the scene root.
	FullPath() string
	// PartialPath is the shortest path suffix that still names only this node.
	PartialPath() string
	Kind() Kind
	// Parent returns nil for top-level nodes.
	Parent() Node
	Children() ([]Node, error)
	// BoundingBox is expressed in the parent's space: it already includes
	// this node's own local transform.
	BoundingBox() (Box, error)
	LocalTransform() (mgl64.Mat4, error)
	// Writable is false for host-internal helpers that should never be reported.
	Writable() bool
	// Lens returns the camera data of camera shapes.
	Lens() (Lens, bool)
}

// Host is the scene a query runs against.
type Host interface {
	// Roots returns the top-level nodes in scene order.
	Roots() ([]Node, error)
	// Lookup returns every node matching a selector.
	Lookup(selector string) ([]Node, error)
}

// InclusiveMatrix returns the node-to-world matrix of n.
func InclusiveMatrix(n Node) (mgl64.Mat4, error) {
	m := mgl64.Ident4()
	for p := n; p != nil; p = p.Parent() {
		local, err := p.LocalTransform()
		if err != nil {
			return mgl64.Mat4{}, fmt.Errorf("local transform of %s: %w", p.FullPath(), err)
		}
		m = local.Mul4(m)
	}
	return m, nil
}

// ExclusiveMatrix returns the parent-to-world matrix of n.
func ExclusiveMatrix(n Node) (mgl64.Mat4, error) {
	p := n.Parent()
	if p == nil {
		return mgl64.Ident4(), nil
	}
	return InclusiveMatrix(p)
}

// ExtendToShape returns n when it is a shape, or the single shape directly
// below it.
func ExtendToShape(n Node) (Node, error) {
	if n.Kind().IsShape() {
		return n, nil
	}
	children, err := n.Children()
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", n.FullPath(), err)
	}
	var shape Node
	for _, c := range children {
		if !c.Kind().IsShape() {
			continue
		}
		if shape != nil {
			return nil, fmt.Errorf("%w: %s", ErrManyShapes, n.PartialPath())
		}
		shape = c
	}
	if shape == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoShape, n.PartialPath())
	}
	return shape, nil
}
