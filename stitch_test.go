package easytrace

import (
	"fmt"
	"math"
	"testing"

	"github.com/tdewolff/test"
)

func line(x0, y0, x1, y1 float64) *Primitive {
	return NewPath([]Point{{x0, y0}, {x1, y1}}, false)
}

func TestStitchSquare(t *testing.T) {
	// the same square offered in different segment orders and directions
	tests := [][]*Primitive{
		{line(0, 0, 1, 0), line(1, 0, 1, 1), line(1, 1, 0, 1), line(0, 1, 0, 0)},
		{line(1, 1, 0, 1), line(0, 0, 1, 0), line(0, 1, 0, 0), line(1, 0, 1, 1)},
		{line(1, 0, 0, 0), line(1, 0, 1, 1), line(0, 1, 1, 1), line(0, 1, 0, 0)},
	}
	for i, segments := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			ring, err := NewStitcher(4).Stitch(segments)
			test.Error(t, err)
			test.That(t, ring.Closed)
			test.T(t, len(ring.Points), 4)
			test.Float(t, math.Abs(polygonArea(ring.Points)), 1.0)
		})
	}
}

func TestStitchArcAndLine(t *testing.T) {
	arc := NewArc(Point{}, 1.0, 0.0, math.Pi, false)
	diameter := line(-1, 0, 1, 0)

	ring, err := NewStitcher(4).Stitch([]*Primitive{diameter, arc})
	test.Error(t, err)
	test.That(t, ring.Closed)
	test.T(t, len(ring.ArcSegments), 1)
	test.Float(t, ring.ArcSegments[0].Radius, 1.0)
}

func TestStitchFullCircleArc(t *testing.T) {
	// a single arc sweeping the full circle closes onto itself
	arc := NewArc(Point{1.0, 2.0}, 0.5, 0.0, 2.0*math.Pi, false)

	ring, err := NewStitcher(4).Stitch([]*Primitive{arc})
	test.Error(t, err)
	test.That(t, ring.Closed)
	test.T(t, len(ring.ArcSegments), 1)
	test.T(t, ring.ArcSegments[0].Start, 0)
	test.T(t, ring.ArcSegments[0].End, 0)
	test.Float(t, ring.ArcSegments[0].Radius, 0.5)
}

func TestStitchAbsorbsJitter(t *testing.T) {
	segments := []*Primitive{
		line(0, 0, 1, 0),
		line(1.00004, 0.00002, 1, 1),
		line(1, 1, 0, 1),
		line(0, 1, -0.00003, 0),
	}
	_, err := NewStitcher(4).Stitch(segments)
	test.Error(t, err)
}

func TestStitchErrors(t *testing.T) {
	t.Run("dangling", func(t *testing.T) {
		_, err := NewStitcher(4).Stitch([]*Primitive{
			line(0, 0, 1, 0), line(1, 0, 1, 1),
		})
		serr, ok := err.(*StitchError)
		test.That(t, ok)
		test.T(t, serr.OddNodes, 2)
	})

	t.Run("branching", func(t *testing.T) {
		// two triangles sharing vertex (0,0)
		_, err := NewStitcher(4).Stitch([]*Primitive{
			line(0, 0, 1, 0), line(1, 0, 1, 1), line(1, 1, 0, 0),
			line(0, 0, -1, 0), line(-1, 0, -1, -1), line(-1, -1, 0, 0),
		})
		serr, ok := err.(*StitchError)
		test.That(t, ok)
		test.T(t, serr.Branching, 1)
	})

	t.Run("disconnected", func(t *testing.T) {
		_, err := NewStitcher(4).Stitch([]*Primitive{
			line(0, 0, 1, 0), line(1, 0, 0, 0),
			line(5, 5, 6, 5), line(6, 5, 5, 5),
		})
		serr, ok := err.(*StitchError)
		test.That(t, ok)
		test.T(t, serr.Consumed, 2)
		test.T(t, serr.Segments, 4)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewStitcher(4).Stitch(nil)
		test.That(t, err != nil)
	})
}
