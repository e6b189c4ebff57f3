package scene

import (
	"errors"
	"fmt"
	"math"
	"path"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Spec describes a node to add to a Graph.
type Spec struct {
	Name string
	Kind Kind
	// Local is the node-to-parent matrix. The zero matrix means identity.
	Local mgl64.Mat4
	// Geometry is the object-space extent of a shape's own geometry.
	Geometry *Box
	// ReadOnly marks host-internal helpers.
	ReadOnly bool
	Lens     Lens
}

// Graph is an in-memory Host. Build it with Add from a single goroutine;
// once built it is safe for concurrent readers.
type Graph struct {
	mu    sync.Mutex
	roots []*Object
	count int
	index *graphIndex
}

type graphIndex struct {
	order   []*Object
	partial map[*Object]string
	bounds  map[*Object]boundsResult
}

type boundsResult struct {
	box Box
	err error
}

// Object is a node of a Graph.
type Object struct {
	g        *Graph
	name     string
	kind     Kind
	parent   *Object
	children []*Object
	local    mgl64.Mat4
	geometry *Box
	readOnly bool
	lens     Lens
}

func NewGraph() *Graph {
	return &Graph{}
}

// Add creates a node under parent, or at the top level when parent is nil.
func (g *Graph) Add(parent *Object, spec Spec) (*Object, error) {
	if spec.Name == "" || strings.ContainsAny(spec.Name, "|*?[]") {
		return nil, fmt.Errorf("invalid node name %q", spec.Name)
	}
	if parent != nil && parent.g != g {
		return nil, errors.New("parent belongs to another graph")
	}
	if parent != nil && parent.kind.IsShape() {
		return nil, fmt.Errorf("%s is a %s shape and cannot have children", parent.FullPath(), parent.kind)
	}
	if spec.Lens != nil && spec.Kind != Camera {
		return nil, fmt.Errorf("%s: only camera shapes carry a lens", spec.Name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	siblings := g.roots
	if parent != nil {
		siblings = parent.children
	}
	for _, s := range siblings {
		if s.name == spec.Name {
			return nil, fmt.Errorf("duplicate sibling name %q", spec.Name)
		}
	}

	local := spec.Local
	if local == (mgl64.Mat4{}) {
		local = mgl64.Ident4()
	}
	o := &Object{
		g:        g,
		name:     spec.Name,
		kind:     spec.Kind,
		parent:   parent,
		local:    local,
		geometry: spec.Geometry,
		readOnly: spec.ReadOnly,
		lens:     spec.Lens,
	}
	if parent == nil {
		g.roots = append(g.roots, o)
	} else {
		parent.children = append(parent.children, o)
	}
	g.count++
	g.index = nil
	return o, nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

func (g *Graph) Roots() ([]Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Node, len(g.roots))
	for i, r := range g.roots {
		out[i] = r
	}
	return out, nil
}

// Lookup matches selectors of '|'-separated name patterns. A leading '|'
// anchors the pattern at the scene root; otherwise it matches any path
// suffix. Each component may use path.Match wildcards.
func (g *Graph) Lookup(selector string) ([]Node, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, nil
	}
	absolute := strings.HasPrefix(selector, "|")
	parts := strings.Split(strings.TrimPrefix(selector, "|"), "|")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadSelector, selector)
		}
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadSelector, selector, err)
		}
	}

	var out []Node
	for _, o := range g.idx().order {
		comps := o.components()
		if absolute && len(comps) != len(parts) {
			continue
		}
		if len(comps) < len(parts) {
			continue
		}
		if matchSuffix(parts, comps[len(comps)-len(parts):]) {
			out = append(out, o)
		}
	}
	return out, nil
}

func matchSuffix(patterns, names []string) bool {
	for i, p := range patterns {
		if ok, _ := path.Match(p, names[i]); !ok {
			return false
		}
	}
	return true
}

// idx returns the lazily built lookup index. The index is dropped by Add.
func (g *Graph) idx() *graphIndex {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.index != nil {
		return g.index
	}

	ix := &graphIndex{
		partial: make(map[*Object]string, g.count),
		bounds:  make(map[*Object]boundsResult, g.count),
	}
	var walk func(o *Object)
	walk = func(o *Object) {
		ix.order = append(ix.order, o)
		for _, c := range o.children {
			walk(c)
		}
	}
	for _, r := range g.roots {
		walk(r)
	}

	suffixes := make(map[string]int)
	for _, o := range ix.order {
		comps := o.components()
		for k := 1; k <= len(comps); k++ {
			suffixes[strings.Join(comps[len(comps)-k:], "|")]++
		}
	}
	for _, o := range ix.order {
		comps := o.components()
		for k := 1; k <= len(comps); k++ {
			s := strings.Join(comps[len(comps)-k:], "|")
			if suffixes[s] == 1 || k == len(comps) {
				ix.partial[o] = s
				break
			}
		}
	}
	g.index = ix
	return ix
}

func (o *Object) components() []string {
	var comps []string
	for p := o; p != nil; p = p.parent {
		comps = append(comps, p.name)
	}
	for i, j := 0, len(comps)-1; i < j; i, j = i+1, j-1 {
		comps[i], comps[j] = comps[j], comps[i]
	}
	return comps
}

func (o *Object) Name() string { return o.name }

func (o *Object) FullPath() string {
	return "|" + strings.Join(o.components(), "|")
}

func (o *Object) PartialPath() string {
	if p, ok := o.g.idx().partial[o]; ok {
		return p
	}
	return o.FullPath()
}

func (o *Object) Kind() Kind { return o.kind }

func (o *Object) Parent() Node {
	if o.parent == nil {
		return nil
	}
	return o.parent
}

func (o *Object) Children() ([]Node, error) {
	out := make([]Node, len(o.children))
	for i, c := range o.children {
		out[i] = c
	}
	return out, nil
}

func (o *Object) LocalTransform() (mgl64.Mat4, error) {
	for _, v := range o.local {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return mgl64.Mat4{}, fmt.Errorf("%s: non-finite local matrix", o.FullPath())
		}
	}
	return o.local, nil
}

// BoundingBox returns the union of the node's own geometry and its
// children's boxes, mapped into the parent's space. A node with neither is
// a point at its own origin.
func (o *Object) BoundingBox() (Box, error) {
	ix := o.g.idx()
	o.g.mu.Lock()
	r, ok := ix.bounds[o]
	o.g.mu.Unlock()
	if ok {
		return r.box, r.err
	}

	box, err := o.computeBounds()

	o.g.mu.Lock()
	ix.bounds[o] = boundsResult{box: box, err: err}
	o.g.mu.Unlock()
	return box, err
}

func (o *Object) computeBounds() (Box, error) {
	local, err := o.LocalTransform()
	if err != nil {
		return Box{}, err
	}

	box := EmptyBox()
	if o.geometry != nil {
		if !o.geometry.Valid() {
			return Box{}, fmt.Errorf("%s: invalid geometry bounds %v..%v", o.FullPath(), o.geometry.Min, o.geometry.Max)
		}
		box = box.Union(*o.geometry)
	}
	for _, c := range o.children {
		cb, err := c.BoundingBox()
		if err != nil {
			return Box{}, err
		}
		box = box.Union(cb)
	}
	if box.IsEmpty() {
		box = Box{}
	}
	return box.Transform(local), nil
}

func (o *Object) Writable() bool { return !o.readOnly }

func (o *Object) Lens() (Lens, bool) {
	return o.lens, o.lens != nil
}
