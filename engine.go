package easytrace

import (
	"errors"
	"fmt"
	"math"

	clipper "github.com/ctessum/go.clipper"
)

// FillRule selects how self-overlapping subject polygons are filled during a
// union.
type FillRule int

const (
	NonZero FillRule = iota
	EvenOdd
)

// Ring is one closed polygon ring in mm coordinates.
type Ring []Point

// BooleanEngine performs exact-precision union and difference on polygon
// rings. Implementations scale coordinates to integers internally; round-trips
// lose at most 1/scale mm per coordinate.
type BooleanEngine interface {
	Union(subject []Ring, fill FillRule) ([]Ring, error)
	Difference(subject, clip []Ring) ([]Ring, error)

	// Offset grows (delta > 0) or shrinks (delta < 0) closed rings.
	Offset(rings []Ring, delta float64, settings OffsetSettings) []Ring
}

// ErrEngineInit is returned when the boolean engine cannot be constructed.
// Without an engine the pipeline refuses to run offset and boolean stages;
// peck-only drill planning and raw geometry remain available.
var ErrEngineInit = errors.New("boolean engine initialization failed")

// clipperEngine wraps the go.clipper port of Angus Johnson's Clipper library.
type clipperEngine struct {
	scale float64
}

// NewBooleanEngine returns a Clipper-backed engine operating at scale integer
// units per mm.
func NewBooleanEngine(scale float64) (BooleanEngine, error) {
	if scale <= 0.0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: invalid scale %g", ErrEngineInit, scale)
	}
	return &clipperEngine{scale: scale}, nil
}

func (e *clipperEngine) toClipper(rings []Ring) clipper.Paths {
	paths := make(clipper.Paths, 0, len(rings))
	for _, ring := range rings {
		path := make(clipper.Path, 0, len(ring))
		for _, p := range ring {
			path = append(path, clipper.NewIntPoint(
				clipper.CInt(math.Round(p.X*e.scale)),
				clipper.CInt(math.Round(p.Y*e.scale))))
		}
		paths = append(paths, path)
	}
	return paths
}

func (e *clipperEngine) fromClipper(paths clipper.Paths) []Ring {
	rings := make([]Ring, 0, len(paths))
	for _, path := range paths {
		if len(path) < 3 {
			continue
		}
		ring := make(Ring, 0, len(path))
		for _, ip := range path {
			ring = append(ring, Point{float64(ip.X) / e.scale, float64(ip.Y) / e.scale})
		}
		rings = append(rings, ring)
	}
	return rings
}

func fillType(fill FillRule) clipper.PolyFillType {
	if fill == EvenOdd {
		return clipper.PftEvenOdd
	}
	return clipper.PftNonZero
}

func (e *clipperEngine) Union(subject []Ring, fill FillRule) ([]Ring, error) {
	if len(subject) == 0 {
		return nil, nil
	}
	c := clipper.NewClipper(clipper.IoNone)
	c.AddPaths(e.toClipper(subject), clipper.PtSubject, true)
	solution, ok := c.Execute1(clipper.CtUnion, fillType(fill), fillType(fill))
	if !ok {
		return nil, errors.New("clipper union failed")
	}
	return e.fromClipper(solution), nil
}

func (e *clipperEngine) Difference(subject, clip []Ring) ([]Ring, error) {
	if len(subject) == 0 {
		return nil, nil
	}
	if len(clip) == 0 {
		return subject, nil
	}
	c := clipper.NewClipper(clipper.IoNone)
	c.AddPaths(e.toClipper(subject), clipper.PtSubject, true)
	c.AddPaths(e.toClipper(clip), clipper.PtClip, true)
	solution, ok := c.Execute1(clipper.CtDifference, clipper.PftNonZero, clipper.PftNonZero)
	if !ok {
		return nil, errors.New("clipper difference failed")
	}
	return e.fromClipper(solution), nil
}

// Offset runs the engine's polygon offsetter on closed rings. delta is in mm,
// positive grows the rings outward.
func (e *clipperEngine) Offset(rings []Ring, delta float64, settings OffsetSettings) []Ring {
	co := clipper.NewClipperOffset()
	co.MiterLimit = settings.MiterLimit
	co.ArcTolerance = settings.ArcTolerance * e.scale
	join := clipper.JtRound
	switch settings.Join {
	case JoinMiter:
		join = clipper.JtMiter
	case JoinSquare:
		join = clipper.JtSquare
	}
	co.AddPaths(e.toClipper(rings), join, clipper.EtClosedPolygon)
	return e.fromClipper(co.Execute(delta * e.scale))
}

// ringIsHole reports whether a boolean output ring is a hole. Clipper emits
// outer rings counter clockwise and holes clockwise.
func ringIsHole(ring Ring) bool {
	return !polygonCCW(ring)
}
