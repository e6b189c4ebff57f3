// Package visibility reports which scene objects a camera can see.
//
// A query resolves the camera, builds its view frustum, and walks the scene
// from the top-level transforms down. Subtrees entirely inside or outside
// the frustum are decided without descending; partial hits are refined
// until a leaf or a transform with a single shape is reached.
package visibility

import (
	"fmt"

	"camview/internal/profiling"
	"camview/internal/scene"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Request names the camera to query. Camera is a selector; when empty the
// single entry of Selection is used instead.
type Request struct {
	Camera    string
	Selection []string
}

type Result struct {
	// Camera is the partial path of the camera shape used.
	Camera  string
	Objects []string
	Stats   Stats
	// Failures lists the host queries whose subtrees were skipped.
	Failures []error
}

type options struct {
	log           *zap.Logger
	strict        bool
	applyOverscan bool
	applySqueeze  bool
	profile       *profiling.Profile
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithStrict makes any host query failure abort the walk.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

func WithOverscan(apply bool) Option {
	return func(o *options) { o.applyOverscan = apply }
}

func WithSqueeze(apply bool) Option {
	return func(o *options) { o.applySqueeze = apply }
}

func WithProfile(p *profiling.Profile) Option {
	return func(o *options) { o.profile = p }
}

// ObjectsInCamera returns the partial paths of every object at least
// partly inside the frustum of the requested camera, in discovery order.
func ObjectsInCamera(host scene.Host, req Request, opts ...Option) (*Result, error) {
	o := options{log: zap.NewNop(), applySqueeze: true}
	for _, opt := range opts {
		opt(&o)
	}
	defer o.profile.Track("visibility.ObjectsInCamera")()

	cam, err := ResolveCamera(host, req.Camera, req.Selection)
	if err != nil {
		return nil, err
	}

	doneSetup := o.profile.Track("visibility.Setup")
	view, err := Setup(cam, o.applyOverscan, o.applySqueeze)
	doneSetup()
	if err != nil {
		return nil, fmt.Errorf("set up camera %s: %w", cam.PartialPath(), err)
	}

	log := o.log.With(zap.String("camera", cam.PartialPath()))
	w := &walker{
		view:     view,
		log:      log,
		strict:   o.strict,
		accepted: NewAccepted(),
	}

	doneWalk := o.profile.Track("visibility.Walk")
	err = w.walkTopLevel(host)
	doneWalk()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Camera:   cam.PartialPath(),
		Objects:  w.accepted.Paths(),
		Stats:    w.stats,
		Failures: multierr.Errors(w.failures),
	}
	log.Info("visibility query done",
		zap.Int("objects", len(res.Objects)),
		zap.Int("visited", res.Stats.Visited),
		zap.Int("skipped", res.Stats.Skipped),
	)
	return res, nil
}

// walkTopLevel seeds the walk with every writable top-level transform.
func (w *walker) walkTopLevel(host scene.Host) error {
	it := scene.NewIter(host, scene.KindFilter(scene.Transform))
	for it.Next() {
		if it.Depth() > 1 {
			break
		}
		n := it.Node()
		// The walk descends on its own; the iterator only seeds.
		it.Prune()
		if !n.Writable() {
			w.log.Debug("skipping read-only node", zap.String("path", n.FullPath()))
			continue
		}
		if err := w.visit(n, mgl64.Ident4()); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("enumerate top-level nodes: %w", err)
	}
	return nil
}
