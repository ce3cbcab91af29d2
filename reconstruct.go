package easytrace

import (
	"math"
)

// Reconstructor recovers analytic circles and arcs from boolean-engine output
// using the registry's tagged vertices. Vertices belonging to no curve, or to
// runs too short to trust, stay as straight polyline segments. Reconstruction
// is a fidelity optimization: geometry stays correct if it never fires.
type Reconstructor struct {
	reg       *CurveRegistry
	minSweep  float64 // smallest angular span worth replacing with an arc
	tolerance float64 // allowed radial deviation from the registered curve
}

// NewReconstructor returns a reconstructor over the given registry.
func NewReconstructor(reg *CurveRegistry) *Reconstructor {
	return &Reconstructor{reg: reg, minSweep: math.Pi / 9.0, tolerance: 0.01}
}

// Reconstruct converts boolean output rings into path primitives, recovering
// arc segments where tagged runs match their registered curve.
func (r *Reconstructor) Reconstruct(rings []Ring) []*Primitive {
	prims := make([]*Primitive, 0, len(rings))
	for _, ring := range rings {
		if len(ring) < 3 {
			continue
		}
		prims = append(prims, r.reconstructRing(ring))
	}
	nestContours(prims)
	return prims
}

// nestContours derives each contour's nesting depth and immediate parent from
// ring containment. Boolean output rings never cross, so a single
// representative vertex decides containment. ParentID indexes into the
// reconstructed slice, -1 for top-level rings.
func nestContours(prims []*Primitive) {
	contains := make([][]bool, len(prims))
	for i, p := range prims {
		contains[i] = make([]bool, len(prims))
		level := 0
		for j, q := range prims {
			if j != i && pointInPolygon(p.Points[0], q.Points) {
				contains[i][j] = true
				level++
			}
		}
		p.Contours[0].NestingLevel = level
		p.Contours[0].ParentID = -1
	}
	for i, p := range prims {
		for j, q := range prims {
			if contains[i][j] && q.Contours[0].NestingLevel == p.Contours[0].NestingLevel-1 {
				p.Contours[0].ParentID = j
				break
			}
		}
	}
}

type tagRun struct {
	start, length int
	id            int
}

func (r *Reconstructor) reconstructRing(ring Ring) *Primitive {
	n := len(ring)
	ids := make([]int, n)
	for i, p := range ring {
		if tag, ok := r.reg.Lookup(p); ok {
			ids[i] = tag.ID
		}
	}

	prim := &Primitive{Kind: KindPath, Closed: true, Points: ring}

	runs, whole := tagRuns(ids)
	if whole && 0 < ids[0] {
		// the entire ring belongs to one curve: a surviving full circle
		if seg, ok := r.matchRun(ring, 0, n, ids[0]); ok {
			seg.FullCircle = true
			seg.End = 0
			prim.ArcSegments = []ArcSegment{seg}
			prim.Contours = []Contour{r.contour(prim)}
			return prim
		}
	}
	for _, run := range runs {
		if run.id == 0 || run.length < 3 {
			continue
		}
		if seg, ok := r.matchRun(ring, run.start, run.length, run.id); ok {
			prim.ArcSegments = append(prim.ArcSegments, seg)
		}
	}
	prim.Contours = []Contour{r.contour(prim)}
	return prim
}

func (r *Reconstructor) contour(prim *Primitive) Contour {
	ids := make([]int, 0, len(prim.ArcSegments))
	for _, seg := range prim.ArcSegments {
		if id := r.curveID(seg); 0 < id {
			ids = append(ids, id)
		}
	}
	return Contour{
		Points:      prim.Points,
		IsHole:      ringIsHole(prim.Points),
		ArcSegments: prim.ArcSegments,
		CurveIDs:    ids,
	}
}

func (r *Reconstructor) curveID(seg ArcSegment) int {
	kind := CurveArc
	if seg.FullCircle {
		kind = CurveCircle
	}
	return r.reg.Register(Curve{Kind: kind, Center: seg.Center, Radius: seg.Radius,
		Theta0: seg.Theta0, Theta1: seg.Theta1, CW: seg.CW})
}

// tagRuns returns the maximal runs of equal ids around the ring, merging the
// wrap-around at index 0. whole is true when every vertex shares one id.
func tagRuns(ids []int) ([]tagRun, bool) {
	n := len(ids)
	start := -1
	for i := 0; i < n; i++ {
		if ids[(i+n-1)%n] != ids[i] {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, true
	}

	var runs []tagRun
	i := start
	for {
		run := tagRun{start: i, id: ids[i], length: 1}
		j := (i + 1) % n
		for j != start && ids[j] == run.id {
			run.length++
			j = (j + 1) % n
		}
		runs = append(runs, run)
		i = j
		if i == start {
			break
		}
	}
	return runs, false
}

// matchRun checks that the length vertices starting at start lie on the
// registered curve with a consistent rotational sense and a large enough
// sweep, and builds the replacement arc segment.
func (r *Reconstructor) matchRun(ring Ring, start, length, id int) (ArcSegment, bool) {
	curve, ok := r.reg.Curve(id)
	if !ok {
		return ArcSegment{}, false
	}

	n := len(ring)
	angles := make([]float64, length)
	for k := 0; k < length; k++ {
		p := ring[(start+k)%n]
		d := p.Sub(curve.Center)
		if r.tolerance < math.Abs(d.Length()-curve.Radius) {
			return ArcSegment{}, false
		}
		angles[k] = d.Angle()
	}

	// rotational sense must not flip along the run
	cw := false
	sweep := 0.0
	for k := 1; k < length; k++ {
		dtheta := angleNorm(angles[k] - angles[k-1])
		if math.Pi < dtheta {
			dtheta -= 2.0 * math.Pi // negative, ie. clockwise step
		}
		if k == 1 {
			cw = dtheta < 0.0
		} else if (dtheta < 0.0) != cw || Equal(dtheta, 0.0) {
			return ArcSegment{}, false
		}
		sweep += dtheta
	}
	if math.Abs(sweep) < r.minSweep {
		return ArcSegment{}, false
	}

	return ArcSegment{
		Start:  start,
		End:    (start + length - 1) % n,
		Center: curve.Center,
		Radius: curve.Radius,
		Theta0: angles[0],
		Theta1: angles[length-1],
		CW:     cw,
	}, true
}
