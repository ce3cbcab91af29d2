package easytrace

import (
	"math"
	"testing"

	"github.com/tdewolff/test"
)

func TestCurveRegistryRegister(t *testing.T) {
	reg := NewCurveRegistry(4, 1e4)

	c := Curve{Kind: CurveCircle, Center: Point{1.0, 2.0}, Radius: 0.5}
	id := reg.Register(c)
	test.That(t, 0 < id)
	test.T(t, reg.Register(c), id)
	test.T(t, reg.Len(), 1)

	// within rounding tolerance is the same curve
	jittered := c
	jittered.Center.X += 1e-6
	test.T(t, reg.Register(jittered), id)

	other := Curve{Kind: CurveCircle, Center: Point{1.0, 2.0}, Radius: 0.6}
	test.That(t, reg.Register(other) != id)
	test.T(t, reg.Len(), 2)

	got, ok := reg.Curve(id)
	test.That(t, ok)
	test.Float(t, got.Radius, 0.5)
}

func TestCurveRegistryTags(t *testing.T) {
	reg := NewCurveRegistry(4, 1e4)
	id := reg.Register(Curve{Kind: CurveArc, Center: Point{}, Radius: 1.0, Theta1: math.Pi})

	p := Point{0.12345, -3.5}
	reg.Tag(p, CurveTag{ID: id, Segment: 2})

	tag, ok := reg.Lookup(p)
	test.That(t, ok)
	test.T(t, tag.ID, id)
	test.T(t, tag.Segment, 2)

	// sub-scale jitter still hits the tag
	tag, ok = reg.Lookup(Point{p.X + 1e-8, p.Y - 1e-8})
	test.That(t, ok)
	test.T(t, tag.ID, id)

	_, ok = reg.Lookup(Point{5.0, 5.0})
	test.That(t, !ok)

	reg.Clear()
	test.T(t, reg.Len(), 0)
	_, ok = reg.Lookup(p)
	test.That(t, !ok)
}
