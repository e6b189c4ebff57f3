package scene

import "fmt"

// Iter walks a Host breadth-first, top-level nodes first. Nodes rejected by
// the filter are still descended into.
//
//	it := scene.NewIter(host, scene.KindFilter(scene.Transform))
//	for it.Next() {
//		if it.Depth() > 1 {
//			break
//		}
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type Iter struct {
	filter  func(Node) bool
	queue   []iterEntry
	cur     iterEntry
	pending bool
	err     error
}

type iterEntry struct {
	node  Node
	depth int
}

// KindFilter accepts nodes of the given kinds.
func KindFilter(kinds ...Kind) func(Node) bool {
	return func(n Node) bool {
		for _, k := range kinds {
			if n.Kind() == k {
				return true
			}
		}
		return false
	}
}

// NewIter starts an iteration over h. A nil filter accepts every node.
func NewIter(h Host, filter func(Node) bool) *Iter {
	it := &Iter{filter: filter}
	roots, err := h.Roots()
	if err != nil {
		it.err = fmt.Errorf("scene roots: %w", err)
		return it
	}
	for _, r := range roots {
		it.queue = append(it.queue, iterEntry{node: r, depth: 1})
	}
	return it
}

// Next advances to the next accepted node. It returns false when the scene
// is exhausted or a host query failed.
func (it *Iter) Next() bool {
	if it.err != nil {
		return false
	}
	if it.pending {
		it.pending = false
		if !it.expand(it.cur) {
			return false
		}
	}
	for len(it.queue) > 0 {
		e := it.queue[0]
		it.queue = it.queue[1:]
		if it.filter == nil || it.filter(e.node) {
			it.cur = e
			it.pending = true
			return true
		}
		if !it.expand(e) {
			return false
		}
	}
	return false
}

// Prune stops the iterator from descending below the current node.
func (it *Iter) Prune() {
	it.pending = false
}

func (it *Iter) Node() Node { return it.cur.node }

// Depth is 1 for top-level nodes.
func (it *Iter) Depth() int { return it.cur.depth }

func (it *Iter) Err() error { return it.err }

func (it *Iter) expand(e iterEntry) bool {
	children, err := e.node.Children()
	if err != nil {
		it.err = fmt.Errorf("children of %s: %w", e.node.FullPath(), err)
		return false
	}
	for _, c := range children {
		it.queue = append(it.queue, iterEntry{node: c, depth: e.depth + 1})
	}
	return true
}
