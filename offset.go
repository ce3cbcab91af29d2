package easytrace

import (
	"math"
)

// Offsetter offsets individual primitives by a signed radial distance,
// preserving analytic shape where possible. Primitives that cannot be offset
// in closed form fall back to the boolean engine's polygon offsetter.
type Offsetter struct {
	engine   BooleanEngine
	reg      *CurveRegistry
	settings OffsetSettings
}

// NewOffsetter returns an offsetter using the given engine and registry for
// the polygon fallback.
func NewOffsetter(engine BooleanEngine, reg *CurveRegistry, settings OffsetSettings) *Offsetter {
	return &Offsetter{engine: engine, reg: reg, settings: settings}
}

// OffsetPrimitive offsets p by distance. Positive distance grows the boundary
// outward, negative shrinks inward. The result is nil for degenerate input or
// when the shape collapses below the minimum feature size; it may hold several
// primitives when a shrink splits the shape or an open path is stroked
// edge-wise.
func (o *Offsetter) OffsetPrimitive(p *Primitive, distance float64) []*Primitive {
	floor := o.settings.MinFeatureSize
	switch p.Kind {
	case KindCircle:
		r := p.Radius + distance
		if r < floor/2.0 {
			return nil
		}
		q := NewCircle(p.Center, r)
		q.Props = p.Props
		return []*Primitive{q}

	case KindArc:
		r := p.Radius + distance
		if r < floor/2.0 {
			return nil
		}
		q := NewArc(p.Center, r, p.Theta0, p.Theta1, p.CW)
		q.Props = p.Props
		return []*Primitive{q}

	case KindObround:
		w, h := p.W+2.0*distance, p.H+2.0*distance
		if math.Min(w, h) < floor {
			return nil
		}
		q := NewObround(p.Center, w, h)
		q.Props = p.Props
		return []*Primitive{q}

	case KindRect:
		return o.offsetRect(p, distance)

	case KindPath:
		if !p.Closed {
			return o.strokeOpenPath(p, distance)
		}
		return o.offsetPolygon(p, distance)
	}
	return nil
}

// offsetRect grows a rectangle into a rounded rectangle whose corner arcs keep
// analytic identity, or shrinks it to a smaller rectangle. Miter joins grow
// into a plain larger rectangle instead.
func (o *Offsetter) offsetRect(p *Primitive, distance float64) []*Primitive {
	floor := o.settings.MinFeatureSize
	if distance <= 0.0 || o.settings.Join != JoinRound {
		w, h := p.W+2.0*distance, p.H+2.0*distance
		if w < floor || h < floor {
			return nil
		}
		q := NewRect(p.Center, w, h)
		q.Props = p.Props
		return []*Primitive{q}
	}

	d := distance
	l, r := p.Center.X-p.W/2.0, p.Center.X+p.W/2.0
	b, t := p.Center.Y-p.H/2.0, p.Center.Y+p.H/2.0
	q := &Primitive{Kind: KindPath, Closed: true, Props: p.Props}
	q.Points = []Point{
		{l, b - d}, {r, b - d},
		{r + d, b}, {r + d, t},
		{r, t + d}, {l, t + d},
		{l - d, t}, {l - d, b},
	}
	q.ArcSegments = []ArcSegment{
		{Start: 1, End: 2, Center: Point{r, b}, Radius: d, Theta0: -math.Pi / 2.0, Theta1: 0.0},
		{Start: 3, End: 4, Center: Point{r, t}, Radius: d, Theta0: 0.0, Theta1: math.Pi / 2.0},
		{Start: 5, End: 6, Center: Point{l, t}, Radius: d, Theta0: math.Pi / 2.0, Theta1: math.Pi},
		{Start: 7, End: 0, Center: Point{l, b}, Radius: d, Theta0: math.Pi, Theta1: 3.0 * math.Pi / 2.0},
	}
	return []*Primitive{q}
}

// offsetPolygon runs the engine's polygon offsetter on a closed path ring.
func (o *Offsetter) offsetPolygon(p *Primitive, distance float64) []*Primitive {
	ring := p.Tessellate(o.reg, o.settings.ArcTolerance)
	if len(ring) < 3 {
		return nil
	}
	out := o.engine.Offset([]Ring{ring}, distance, o.settings)
	prims := make([]*Primitive, 0, len(out))
	for _, r := range out {
		if len(r) < 3 || math.Abs(polygonArea(r)) < o.settings.MinFeatureSize*o.settings.MinFeatureSize {
			continue
		}
		q := &Primitive{Kind: KindPath, Closed: true, Points: r, Props: p.Props}
		prims = append(prims, q)
	}
	if len(prims) == 0 {
		return nil
	}
	return prims
}

// strokeOpenPath expands an open polyline into closed stroke outlines at
// distance from the centerline. A single straight segment strokes analytically
// into an obround-shaped ring with tagged end caps; longer polylines emit one
// stroke ring per edge plus joint circles, relying on the pass union to merge
// them.
func (o *Offsetter) strokeOpenPath(p *Primitive, distance float64) []*Primitive {
	if distance <= 0.0 || len(p.Points) < 2 {
		return nil
	}
	if len(p.Points) == 2 {
		q := strokeLine(p.Points[0], p.Points[1], distance)
		if q == nil {
			return nil
		}
		q.Props = p.Props
		return []*Primitive{q}
	}
	var prims []*Primitive
	for i := 0; i+1 < len(p.Points); i++ {
		if q := strokeLine(p.Points[i], p.Points[i+1], distance); q != nil {
			q.Props = p.Props
			prims = append(prims, q)
		}
		if 0 < i {
			c := NewCircle(p.Points[i], distance)
			c.Props = p.Props
			prims = append(prims, c)
		}
	}
	if len(prims) == 0 {
		return nil
	}
	return prims
}

// strokeLine returns the closed outline of the segment ab stroked with radius
// d: two straight flanks and two semicircular end caps carrying analytic arc
// identity.
func strokeLine(a, b Point, d float64) *Primitive {
	u := b.Sub(a)
	if u.Length() < Epsilon {
		return NewCircle(a, d)
	}
	nr := u.Rot90CW().Norm(d)
	nl := u.Rot90CCW().Norm(d)

	q := &Primitive{Kind: KindPath, Closed: true}
	q.Points = []Point{a.Add(nr), b.Add(nr), b.Add(nl), a.Add(nl)}
	q.ArcSegments = []ArcSegment{
		{Start: 1, End: 2, Center: b, Radius: d, Theta0: nr.Angle(), Theta1: nl.Angle()},
		{Start: 3, End: 0, Center: a, Radius: d, Theta0: nl.Angle(), Theta1: nr.Angle()},
	}
	return q
}
