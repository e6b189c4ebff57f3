package visibility

import (
	"fmt"

	"camview/internal/frustum"
	"camview/internal/scene"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Stats counts what a walk did.
type Stats struct {
	Visited    int `json:"visited" yaml:"visited"`
	Inside     int `json:"inside" yaml:"inside"`
	Outside    int `json:"outside" yaml:"outside"`
	Intersects int `json:"intersects" yaml:"intersects"`
	Skipped    int `json:"skipped" yaml:"skipped"`
}

type walker struct {
	view     *View
	log      *zap.Logger
	strict   bool
	accepted *Accepted
	stats    Stats
	failures error
}

// visit classifies n, whose parent maps into world space by parentWorld.
// A non-nil error aborts the whole walk.
func (w *walker) visit(n scene.Node, parentWorld mgl64.Mat4) error {
	w.stats.Visited++

	box, err := n.BoundingBox()
	if err != nil {
		return w.fail("BoundingBox", n, err)
	}

	toCamera := w.view.InverseWorld.Mul4(parentWorld)
	rel, err := w.view.Frustum.ClassifyBox(box.Min, box.Max, toCamera)
	if err != nil {
		return fmt.Errorf("%w: classify %s: %w", ErrInvariant, n.FullPath(), err)
	}

	if ce := w.log.Check(zap.DebugLevel, "classified"); ce != nil {
		ce.Write(zap.String("path", n.FullPath()), zap.Stringer("result", rel))
	}

	switch rel {
	case frustum.Inside:
		w.stats.Inside++
		w.accept(n)
		return nil
	case frustum.Outside:
		w.stats.Outside++
		return nil
	}
	w.stats.Intersects++

	children, err := n.Children()
	if err != nil {
		return w.fail("Children", n, err)
	}
	if len(children) == 0 {
		w.accept(n)
		return nil
	}

	local, err := n.LocalTransform()
	if err != nil {
		return w.fail("LocalTransform", n, err)
	}
	world := parentWorld.Mul4(local)

	for _, c := range children {
		// A lone shape is reported through its transform, drawable or not.
		if len(children) == 1 && c.Kind().IsShape() {
			w.accept(n)
			continue
		}
		if err := w.visit(c, world); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) accept(n scene.Node) {
	p := n.PartialPath()
	if w.accepted.Add(p) {
		w.log.Debug("accepted", zap.String("path", p))
	}
}

// fail records a host failure. In strict mode it is returned and ends the
// walk; otherwise the subtree below n is skipped.
func (w *walker) fail(op string, n scene.Node, err error) error {
	qe := &QueryError{Op: op, Path: n.FullPath(), Err: err}
	if w.strict {
		return qe
	}
	w.log.Warn("host query failed, skipping subtree",
		zap.String("op", op),
		zap.String("path", qe.Path),
		zap.Error(err),
	)
	w.stats.Skipped++
	w.failures = multierr.Append(w.failures, qe)
	return nil
}
