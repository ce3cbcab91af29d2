package easytrace

import (
	"fmt"
	"math"
)

// StitchError reports why a set of outline fragments could not be merged into
// one closed contour. The caller falls back to showing the unmerged fragments;
// a partially stitched contour is never returned.
type StitchError struct {
	Segments  int // segments offered
	Consumed  int // segments used before the walk got stuck
	OddNodes  int // endpoints with an odd number of incident segments
	Branching int // endpoints with more than two incident segments
	Open      bool
}

func (e *StitchError) Error() string {
	if 0 < e.Branching {
		return fmt.Sprintf("stitch: ambiguous branching at %d endpoints", e.Branching)
	}
	if 0 < e.OddNodes {
		return fmt.Sprintf("stitch: %d dangling endpoints, outline cannot close", e.OddNodes)
	}
	if e.Open {
		return "stitch: outline does not close onto its start point"
	}
	return fmt.Sprintf("stitch: consumed %d of %d segments, fragments are disconnected", e.Consumed, e.Segments)
}

// Stitcher merges disconnected line and arc fragments into one closed contour.
// Endpoints are quantized to a configurable decimal precision before matching,
// which absorbs the rounding noise typical of exported outline layers.
type Stitcher struct {
	precision float64
}

// NewStitcher returns a stitcher matching endpoints at the given number of
// decimal places.
func NewStitcher(decimals int) *Stitcher {
	return &Stitcher{precision: math.Pow(10.0, float64(decimals))}
}

func (s *Stitcher) node(p Point) [2]int64 {
	return [2]int64{int64(math.Round(p.X * s.precision)), int64(math.Round(p.Y * s.precision))}
}

type stitchEdge struct {
	seg  int
	a, b [2]int64
	used bool
}

// Stitch merges the given open segments (paths and arcs) into a single closed
// path primitive. Either every segment is consumed and the result closes onto
// its start, or a *StitchError describes why not. Arc segments keep their
// analytic identity through ArcSegments metadata on the result.
func (s *Stitcher) Stitch(segments []*Primitive) (*Primitive, error) {
	if len(segments) == 0 {
		return nil, &StitchError{}
	}

	edges := make([]stitchEdge, 0, len(segments))
	adj := map[[2]int64][]int{}
	for i, seg := range segments {
		a, b := s.node(seg.Start()), s.node(seg.End())
		edges = append(edges, stitchEdge{seg: i, a: a, b: b})
		adj[a] = append(adj[a], i)
		// a self-closing fragment counts twice so it passes the degree check
		adj[b] = append(adj[b], i)
	}

	// a closed outline visits every endpoint with exactly two segments; more
	// means ambiguous branching, odd degree means a dangling fragment
	fail := &StitchError{Segments: len(segments)}
	for _, incident := range adj {
		if len(incident)%2 != 0 {
			fail.OddNodes++
		}
		if 2 < len(incident) {
			fail.Branching++
		}
	}
	if 0 < fail.OddNodes || 0 < fail.Branching {
		return nil, fail
	}

	// Hierholzer's walk; with all degrees equal to two this consumes the single
	// Euler circuit or stops early when the fragments are disconnected
	start := edges[0].a
	at := start
	order := make([]int, 0, len(edges))
	reversed := make([]bool, len(edges))
	for {
		var next = -1
		for _, ei := range adj[at] {
			if !edges[ei].used {
				next = ei
				break
			}
		}
		if next < 0 {
			break
		}
		edges[next].used = true
		reversed[next] = edges[next].a != at
		order = append(order, next)
		if reversed[next] {
			at = edges[next].a
		} else {
			at = edges[next].b
		}
	}

	fail.Consumed = len(order)
	if len(order) != len(segments) {
		return nil, fail
	}
	if at != start {
		fail.Open = true
		return nil, fail
	}

	return s.assemble(segments, edges, order, reversed), nil
}

// assemble concatenates the traversed segments into one closed point list,
// dropping each segment's trailing point since the next segment repeats it.
// Reversed segments flip point order and arc sense.
func (s *Stitcher) assemble(segments []*Primitive, edges []stitchEdge, order []int, reversed []bool) *Primitive {
	result := &Primitive{Kind: KindPath, Closed: true}
	for _, ei := range order {
		seg := segments[edges[ei].seg]
		switch seg.Kind {
		case KindArc:
			theta0, theta1, cw := seg.Theta0, seg.Theta1, seg.CW
			if reversed[ei] {
				theta0, theta1 = theta1, theta0
				cw = !cw
			}
			start := len(result.Points)
			result.Points = append(result.Points, seg.ArcPoint(theta0))
			result.ArcSegments = append(result.ArcSegments, ArcSegment{
				Start:  start,
				End:    start + 1, // fixed up to 0 when the arc closes the ring
				Center: seg.Center,
				Radius: seg.Radius,
				Theta0: theta0,
				Theta1: theta1,
				CW:     cw,
			})
		default:
			pts := seg.Points
			if reversed[ei] {
				pts = reversePoints(pts)
			}
			result.Points = append(result.Points, pts[:len(pts)-1]...)
		}
	}

	// an arc that ends the ring wraps to vertex 0
	if 0 < len(result.ArcSegments) {
		last := &result.ArcSegments[len(result.ArcSegments)-1]
		if last.End == len(result.Points) {
			last.End = 0
		}
	}
	return result
}
