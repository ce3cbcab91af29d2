package easytrace

import (
	"math"
)

// arcSegmentCount returns the number of line segments needed to approximate an
// arc of radius r over sweep radians with a maximum sagitta of tol.
func arcSegmentCount(r, sweep, tol float64) int {
	if tol <= 0.0 {
		tol = DefaultOffsetSettings().ArcTolerance
	}
	if r <= tol {
		return 4
	}
	dtheta := 2.0 * math.Acos(1.0-tol/r)
	n := int(math.Ceil(math.Abs(sweep) / dtheta))
	if n < 4 {
		n = 4
	}
	return n
}

// tessellateArc appends the vertices of the arc to dst, registering each
// vertex in the registry under the curve's id. The first vertex is at theta0;
// includeLast controls whether the vertex at theta1 is emitted.
func tessellateArc(reg *CurveRegistry, c Curve, tol float64, dst []Point, includeLast bool) []Point {
	id := reg.Register(c)
	sweep := angleNorm(c.Theta1 - c.Theta0)
	if c.CW {
		sweep = angleNorm(c.Theta0 - c.Theta1)
	}
	if c.Kind == CurveCircle || Equal(sweep, 0.0) {
		sweep = 2.0 * math.Pi
	}
	n := arcSegmentCount(c.Radius, sweep, tol)
	last := n
	if !includeLast {
		last = n - 1
	}
	for i := 0; i <= last; i++ {
		theta := c.Theta0 + sweep*float64(i)/float64(n)
		if c.CW {
			theta = c.Theta0 - sweep*float64(i)/float64(n)
		}
		sintheta, costheta := math.Sincos(theta)
		p := Point{c.Center.X + c.Radius*costheta, c.Center.Y + c.Radius*sintheta}
		reg.Tag(p, CurveTag{ID: id, Segment: i, CW: c.CW})
		dst = append(dst, p)
	}
	return dst
}

// Tessellate converts the primitive's boundary into a single polygon ring
// ready for the boolean engine. Analytic curves register their identity and
// tag every generated vertex so the arc reconstructor can recover them later.
// Degenerate primitives return nil.
func (p *Primitive) Tessellate(reg *CurveRegistry, tol float64) []Point {
	switch p.Kind {
	case KindCircle:
		if p.Radius < Epsilon {
			return nil
		}
		return tessellateArc(reg, Curve{Kind: CurveCircle, Center: p.Center, Radius: p.Radius}, tol, nil, false)
	case KindArc:
		// an open arc has no area; the caller closes it via stitching first
		return nil
	case KindRect:
		if p.W < Epsilon || p.H < Epsilon {
			return nil
		}
		hw, hh := p.W/2.0, p.H/2.0
		return []Point{
			{p.Center.X - hw, p.Center.Y - hh},
			{p.Center.X + hw, p.Center.Y - hh},
			{p.Center.X + hw, p.Center.Y + hh},
			{p.Center.X - hw, p.Center.Y + hh},
		}
	case KindObround:
		return p.tessellateObround(reg, tol)
	case KindPath:
		return p.tessellatePath(reg, tol)
	}
	return nil
}

func (p *Primitive) tessellateObround(reg *CurveRegistry, tol float64) []Point {
	r := p.EndRadius()
	if r < Epsilon {
		return nil
	}
	a, b := p.SlotEndpoints()
	if a.Equals(b) {
		// degenerates to a circle
		return tessellateArc(reg, Curve{Kind: CurveCircle, Center: p.Center, Radius: r}, tol, nil, false)
	}

	// axis angle from end cap a to end cap b
	phi := b.Sub(a).Angle()
	var ring []Point
	// cap at b sweeps CCW from phi-PI/2 to phi+PI/2
	ring = tessellateArc(reg, Curve{Kind: CurveArc, Center: b, Radius: r,
		Theta0: phi - math.Pi/2.0, Theta1: phi + math.Pi/2.0}, tol, ring, true)
	// cap at a sweeps CCW from phi+PI/2 to phi+3PI/2
	ring = tessellateArc(reg, Curve{Kind: CurveArc, Center: a, Radius: r,
		Theta0: phi + math.Pi/2.0, Theta1: phi + 3.0*math.Pi/2.0}, tol, ring, true)
	return ring
}

func (p *Primitive) tessellatePath(reg *CurveRegistry, tol float64) []Point {
	// stitched rings can carry fewer than 3 vertices when arcs span the gaps
	if len(p.Points) < 3 && len(p.ArcSegments) == 0 {
		return nil
	}
	if len(p.ArcSegments) == 0 {
		ring := make([]Point, len(p.Points))
		copy(ring, p.Points)
		return ring
	}

	// expand tagged arc runs, keep straight stretches verbatim
	var ring []Point
	i := 0
	for i < len(p.Points) {
		seg := p.arcSegmentAt(i)
		if seg == nil {
			ring = append(ring, p.Points[i])
			i++
			continue
		}
		c := Curve{Kind: CurveArc, Center: seg.Center, Radius: seg.Radius,
			Theta0: seg.Theta0, Theta1: seg.Theta1, CW: seg.CW}
		if seg.FullCircle {
			c.Kind = CurveCircle
		}
		// the arc's endpoint is the next segment's start, which the following
		// iteration emits itself
		ring = tessellateArc(reg, c, tol, ring, false)
		if seg.End <= seg.Start {
			break // wrapped around to the ring start
		}
		i = seg.End
	}
	return ring
}

func (p *Primitive) arcSegmentAt(i int) *ArcSegment {
	for j := range p.ArcSegments {
		if p.ArcSegments[j].Start == i {
			return &p.ArcSegments[j]
		}
	}
	return nil
}
