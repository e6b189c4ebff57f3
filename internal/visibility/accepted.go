package visibility

// Accepted is the ordered, duplicate-free list of visible node paths.
type Accepted struct {
	paths []string
	seen  map[string]struct{}
}

func NewAccepted() *Accepted {
	return &Accepted{seen: make(map[string]struct{})}
}

// Add appends path unless it is already present.
func (a *Accepted) Add(path string) bool {
	if _, ok := a.seen[path]; ok {
		return false
	}
	a.seen[path] = struct{}{}
	a.paths = append(a.paths, path)
	return true
}

func (a *Accepted) Len() int { return len(a.paths) }

// Paths returns a copy of the accepted paths in discovery order.
func (a *Accepted) Paths() []string {
	out := make([]string, len(a.paths))
	copy(out, a.paths)
	return out
}
