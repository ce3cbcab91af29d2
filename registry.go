package easytrace

import (
	"fmt"
	"math"
)

// CurveKind discriminates the analytic curves the registry can identify.
type CurveKind int

const (
	CurveCircle CurveKind = iota
	CurveArc
)

// Curve is the analytic description a registry id stands for.
type Curve struct {
	Kind           CurveKind
	Center         Point
	Radius         float64
	Theta0, Theta1 float64
	CW             bool
}

// CurveTag links one tessellated vertex back to the analytic curve it was
// generated from. Tags ride through the boolean engine in a coordinate-keyed
// side table instead of being packed into the coordinates themselves.
type CurveTag struct {
	ID      int
	Segment int // vertex index within the curve's tessellation
	CW      bool
}

// CurveRegistry assigns stable integer ids to analytic curves so their shape
// survives tessellation and boolean operations. Ids are only unique within one
// registry lifetime; each pipeline run owns its own registry.
type CurveRegistry struct {
	precision float64 // rounding unit for the identity hash
	scale     float64 // integer units per mm, must match the boolean engine
	ids       map[string]int
	curves    map[int]Curve
	tags      map[[2]int64]CurveTag
	nextID    int
}

// NewCurveRegistry returns an empty registry. decimals is the number of
// decimal places at which two curves are considered geometrically equal, scale
// the integer scale factor of the boolean engine.
func NewCurveRegistry(decimals int, scale float64) *CurveRegistry {
	return &CurveRegistry{
		precision: math.Pow(10.0, float64(-decimals)),
		scale:     scale,
		ids:       map[string]int{},
		curves:    map[int]Curve{},
		tags:      map[[2]int64]CurveTag{},
		nextID:    1,
	}
}

// Clear drops all curves and vertex tags. Called at the start of a full
// pipeline run.
func (r *CurveRegistry) Clear() {
	r.ids = map[string]int{}
	r.curves = map[int]Curve{}
	r.tags = map[[2]int64]CurveTag{}
	r.nextID = 1
}

// Len returns the number of registered curves.
func (r *CurveRegistry) Len() int {
	return len(r.curves)
}

func (r *CurveRegistry) round(v float64) int64 {
	return int64(math.Round(v / r.precision))
}

func (r *CurveRegistry) hash(c Curve) string {
	return fmt.Sprintf("%d:%d:%d:%d:%d:%d:%t", c.Kind,
		r.round(c.Center.X), r.round(c.Center.Y), r.round(c.Radius),
		r.round(c.Theta0), r.round(c.Theta1), c.CW)
}

// Register returns the id for the curve, creating it on first sight.
// Geometrically equal curves within the rounding tolerance share one id.
func (r *CurveRegistry) Register(c Curve) int {
	key := r.hash(c)
	if id, ok := r.ids[key]; ok {
		return id
	}
	id := r.nextID
	r.nextID++
	r.ids[key] = id
	r.curves[id] = c
	return id
}

// Curve returns the analytic curve registered under id.
func (r *CurveRegistry) Curve(id int) (Curve, bool) {
	c, ok := r.curves[id]
	return c, ok
}

func (r *CurveRegistry) coordKey(p Point) [2]int64 {
	return [2]int64{int64(math.Round(p.X * r.scale)), int64(math.Round(p.Y * r.scale))}
}

// Tag records that the vertex at p belongs to the given curve. The key is the
// vertex quantized at engine scale, so the tag is found again on boolean
// output vertices that pass through the engine unchanged.
func (r *CurveRegistry) Tag(p Point, tag CurveTag) {
	r.tags[r.coordKey(p)] = tag
}

// Lookup returns the tag of the vertex at p, if any.
func (r *CurveRegistry) Lookup(p Point) (CurveTag, bool) {
	tag, ok := r.tags[r.coordKey(p)]
	return tag, ok
}
