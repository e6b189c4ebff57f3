// Package scenefile reads scene documents and turns them into scene graphs.
package scenefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	maxPrototypeDepth = 10
	maxNesting        = 256
)

var (
	ErrIncludeCycle     = errors.New("include cycle")
	ErrUnknownPrototype = errors.New("unknown prototype")
	ErrPrototypeDepth   = errors.New("prototype chain too deep")
	ErrTooDeep          = errors.New("node hierarchy too deep")
)

var extensions = []string{".yaml", ".yml", ".json"}

type Loader struct {
	src      Source
	validate bool

	mu    sync.Mutex
	cache map[string]cacheEntry
	// gen changes on every Forget; loads that started earlier are not cached.
	gen uint64
}

type cacheEntry struct {
	doc *Document
	// deps lists every document merged into doc, includes first.
	deps []string
}

// NewLoader reads documents from src. With validate set every file is
// checked against the scene schema before decoding.
func NewLoader(src Source, validate bool) *Loader {
	return &Loader{
		src:      src,
		validate: validate,
		cache:    make(map[string]cacheEntry),
	}
}

// LoadDocument returns the named document with its includes merged and
// prototypes resolved. name may omit the file extension. Results are
// cached; callers must not modify them. Included files are read again
// whenever the including document is not cached.
func (l *Loader) LoadDocument(ctx context.Context, name string) (*Document, error) {
	name = trimExt(name)

	l.mu.Lock()
	e, ok := l.cache[name]
	gen := l.gen
	l.mu.Unlock()
	if ok {
		return e.doc, nil
	}

	files := make(map[string]*Document)
	var order []string
	if err := l.collect(ctx, name, nil, files, &order); err != nil {
		return nil, err
	}

	top := files[name]
	doc := &Document{
		Includes:   top.Includes,
		Prototypes: make(map[string]NodeSpec),
		Selection:  top.Selection,
	}
	for _, n := range order {
		f := files[n]
		doc.Nodes = append(doc.Nodes, f.Nodes...)
		for k, v := range f.Prototypes {
			doc.Prototypes[k] = v
		}
	}
	if err := doc.Resolve(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	l.mu.Lock()
	if l.gen == gen {
		l.cache[name] = cacheEntry{doc: doc, deps: order[:len(order)-1]}
	}
	l.mu.Unlock()
	return doc, nil
}

// Forget drops name from the cache together with every cached document
// that merged it, so the next load reads the files again.
func (l *Loader) Forget(name string) {
	name = trimExt(name)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	delete(l.cache, name)
	for k, e := range l.cache {
		for _, d := range e.deps {
			if d == name {
				delete(l.cache, k)
				break
			}
		}
	}
}

// collect reads name and everything it includes, depth first. order gets
// each document once, after its own includes, so a file reached through
// two include paths is merged a single time.
func (l *Loader) collect(ctx context.Context, name string, stack []string, files map[string]*Document, order *[]string) error {
	for _, s := range stack {
		if s == name {
			return fmt.Errorf("%w: %s", ErrIncludeCycle, strings.Join(append(stack, name), " -> "))
		}
	}
	if _, ok := files[name]; ok {
		return nil
	}

	data, file, err := l.read(ctx, name)
	if err != nil {
		return err
	}
	if l.validate {
		if err := Validate(data); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	doc, err := Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	for _, inc := range doc.Includes {
		if err := l.collect(ctx, includePath(name, inc), append(stack, name), files, order); err != nil {
			return fmt.Errorf("%s: include %q: %w", file, inc, err)
		}
	}
	files[name] = doc
	*order = append(*order, name)
	return nil
}

// read tries each known extension in turn.
func (l *Loader) read(ctx context.Context, name string) ([]byte, string, error) {
	for _, ext := range extensions {
		file := name + ext
		rc, err := l.src.Open(ctx, file)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, file, fmt.Errorf("could not open scene file: %w", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, file, fmt.Errorf("could not read scene file: %w", err)
		}
		return data, file, nil
	}
	return nil, name, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Decode parses a YAML or JSON document without resolving it.
func Decode(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("could not decode scene: %w", err)
	}
	return &doc, nil
}

// Resolve expands prototypes in place. Resolved nodes have no Prototype set,
// so resolving twice is harmless.
func (d *Document) Resolve() error {
	nodes := make([]NodeSpec, len(d.Nodes))
	for i, n := range d.Nodes {
		r, err := d.resolveNode(n, 0)
		if err != nil {
			return err
		}
		nodes[i] = r
	}
	d.Nodes = nodes
	return nil
}

func (d *Document) resolveNode(n NodeSpec, depth int) (NodeSpec, error) {
	// A prototype that lists itself among its children would never end.
	if depth == maxNesting {
		return NodeSpec{}, fmt.Errorf("%w: %s is nested %d levels deep (prototype %q)", ErrTooDeep, n.Name, depth, n.Prototype)
	}
	out := n.clone()
	for i, name := 0, n.Prototype; name != ""; i++ {
		if i == maxPrototypeDepth {
			return NodeSpec{}, fmt.Errorf("%w: %s", ErrPrototypeDepth, n.Name)
		}
		p, ok := d.Prototypes[name]
		if !ok {
			return NodeSpec{}, fmt.Errorf("%w %q used by %s", ErrUnknownPrototype, name, n.Name)
		}
		out.inherit(p)
		name = p.Prototype
	}
	out.Prototype = ""

	for i, c := range out.Children {
		r, err := d.resolveNode(c, depth+1)
		if err != nil {
			return NodeSpec{}, err
		}
		out.Children[i] = r
	}
	return out, nil
}

func trimExt(name string) string {
	ext := path.Ext(name)
	for _, e := range extensions {
		if ext == e {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// includePath resolves inc relative to the including document's directory.
func includePath(from, inc string) string {
	inc = trimExt(inc)
	if strings.HasPrefix(inc, "/") {
		return strings.TrimPrefix(inc, "/")
	}
	return path.Join(path.Dir(from), inc)
}
