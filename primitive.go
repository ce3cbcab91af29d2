package easytrace

import (
	"fmt"
	"math"
)

// Kind discriminates the primitive variants.
type Kind int

const (
	KindPath Kind = iota
	KindCircle
	KindArc
	KindRect
	KindObround
)

func (k Kind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindCircle:
		return "circle"
	case KindArc:
		return "arc"
	case KindRect:
		return "rect"
	case KindObround:
		return "obround"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Polarity tells whether a primitive adds or subtracts material.
type Polarity int

const (
	Dark  Polarity = iota // adds material, outer contour
	Clear                 // subtracts material, hole contour
)

func (p Polarity) String() string {
	if p == Clear {
		return "clear"
	}
	return "dark"
}

// Role is the manufacturing role a primitive plays within an operation.
type Role int

const (
	RoleNone Role = iota
	RoleDrillHole
	RoleDrillSlot
	RolePeckMark
	RoleDrillMillingPath
	RoleOutline
)

func (r Role) String() string {
	switch r {
	case RoleDrillHole:
		return "drill_hole"
	case RoleDrillSlot:
		return "drill_slot"
	case RolePeckMark:
		return "peck_mark"
	case RoleDrillMillingPath:
		return "drill_milling_path"
	case RoleOutline:
		return "outline"
	}
	return "none"
}

// OperationType classifies a loaded operation.
type OperationType int

const (
	Isolation OperationType = iota
	Clearing
	Drill
	Cutout
)

func (t OperationType) String() string {
	switch t {
	case Clearing:
		return "clearing"
	case Drill:
		return "drill"
	case Cutout:
		return "cutout"
	}
	return "isolation"
}

// OffsetType records on which side of the source geometry an offset ran.
type OffsetType int

const (
	OffsetNone OffsetType = iota
	OffsetExternal
	OffsetInternal
)

func (t OffsetType) String() string {
	switch t {
	case OffsetExternal:
		return "external"
	case OffsetInternal:
		return "internal"
	}
	return "none"
}

// Properties is the metadata bag carried by every primitive. Pipeline stages
// copy and extend it, they never mutate it in place.
type Properties struct {
	Polarity    Polarity
	Role        Role
	OperationID string

	// offset metadata, set by the orchestrator
	Pass        int
	Distance    float64
	OffsetType  OffsetType
	UnionFailed bool

	// reduced plunge feed factor for peck marks near slot ends, 1 when unset
	PlungeFactor float64
}

// ArcSegment marks the vertex range [Start,End] of a contour as lying on an
// analytic arc. End may be less than Start when the run wraps around the ring.
type ArcSegment struct {
	Start, End int
	Center     Point
	Radius     float64
	Theta0     float64 // angle of the first vertex
	Theta1     float64 // angle of the last vertex
	CW         bool
	FullCircle bool
}

// Contour is one ring of a primitive. A contour has at least 3 points; anything
// less is degenerate and gets filtered before it reaches the boolean engine.
type Contour struct {
	Points       []Point
	IsHole       bool
	NestingLevel int
	ParentID     int
	ArcSegments  []ArcSegment
	CurveIDs     []int
}

// Primitive is a tagged union over path, circle, arc, rect and obround. Only
// the fields belonging to Kind are meaningful. Analytic reports whether the
// shape can be offset in closed form without tessellating.
type Primitive struct {
	Kind     Kind
	Analytic bool

	// KindPath
	Points      []Point
	Closed      bool
	ArcSegments []ArcSegment

	// KindCircle, KindArc
	Center Point
	Radius float64

	// KindArc
	Theta0, Theta1 float64
	CW             bool

	// KindRect, KindObround: center position with width and height, for
	// obrounds the smaller dimension is the slot width
	W, H float64

	Contours []Contour
	Props    Properties
}

// NewPath returns a path primitive through the given points.
func NewPath(points []Point, closed bool) *Primitive {
	return &Primitive{Kind: KindPath, Points: points, Closed: closed}
}

// NewCircle returns a full circle at center c with radius r.
func NewCircle(c Point, r float64) *Primitive {
	return &Primitive{Kind: KindCircle, Analytic: true, Center: c, Radius: r}
}

// NewArc returns a circular arc at center c between angles theta0 and theta1.
// With cw false the arc runs counter clockwise from theta0 to theta1.
func NewArc(c Point, r, theta0, theta1 float64, cw bool) *Primitive {
	return &Primitive{Kind: KindArc, Analytic: true, Center: c, Radius: r, Theta0: theta0, Theta1: theta1, CW: cw}
}

// NewRect returns an axis-aligned rectangle centered at c of width w and height h.
func NewRect(c Point, w, h float64) *Primitive {
	return &Primitive{Kind: KindRect, Center: c, W: w, H: h}
}

// NewObround returns an axis-aligned obround (stadium shape) centered at c. The
// smaller of w and h is the slot width, the rounded ends have that radius.
func NewObround(c Point, w, h float64) *Primitive {
	return &Primitive{Kind: KindObround, Analytic: true, Center: c, W: w, H: h}
}

// EndRadius returns the radius of an obround's rounded ends.
func (p *Primitive) EndRadius() float64 {
	return math.Min(p.W, p.H) / 2.0
}

// SlotEndpoints returns the two end-cap centers of an obround. For a circle it
// returns the center twice.
func (p *Primitive) SlotEndpoints() (Point, Point) {
	if p.Kind != KindObround {
		return p.Center, p.Center
	}
	if p.H < p.W {
		d := (p.W - p.H) / 2.0
		return Point{p.Center.X - d, p.Center.Y}, Point{p.Center.X + d, p.Center.Y}
	}
	d := (p.H - p.W) / 2.0
	return Point{p.Center.X, p.Center.Y - d}, Point{p.Center.X, p.Center.Y + d}
}

// SlotLength returns the center distance between an obround's end caps plus
// its slot width, ie. the overall length along the long axis.
func (p *Primitive) SlotLength() float64 {
	return math.Max(p.W, p.H)
}

// Sweep returns the arc's swept angle in the direction of travel, in (0,2PI].
func (p *Primitive) Sweep() float64 {
	if p.Kind != KindArc {
		return 2.0 * math.Pi
	}
	if p.CW {
		return angleNorm(p.Theta0 - p.Theta1)
	}
	return angleNorm(p.Theta1 - p.Theta0)
}

// Start returns the first point of the primitive's boundary.
func (p *Primitive) Start() Point {
	switch p.Kind {
	case KindPath:
		if 0 < len(p.Points) {
			return p.Points[0]
		}
		return Point{}
	case KindArc:
		return p.ArcPoint(p.Theta0)
	case KindCircle:
		return Point{p.Center.X + p.Radius, p.Center.Y}
	}
	return p.Center
}

// End returns the last point of the primitive's boundary.
func (p *Primitive) End() Point {
	switch p.Kind {
	case KindPath:
		if 0 < len(p.Points) {
			return p.Points[len(p.Points)-1]
		}
		return Point{}
	case KindArc:
		return p.ArcPoint(p.Theta1)
	case KindCircle:
		return Point{p.Center.X + p.Radius, p.Center.Y}
	}
	return p.Center
}

// ArcPoint returns the point on the circle or arc at angle theta.
func (p *Primitive) ArcPoint(theta float64) Point {
	sintheta, costheta := math.Sincos(theta)
	return Point{p.Center.X + p.Radius*costheta, p.Center.Y + p.Radius*sintheta}
}

// WithProps returns a shallow copy with the given properties.
func (p *Primitive) WithProps(props Properties) *Primitive {
	q := *p
	q.Props = props
	return &q
}

func (p *Primitive) String() string {
	switch p.Kind {
	case KindCircle:
		return fmt.Sprintf("circle(%v r=%g)", p.Center, p.Radius)
	case KindArc:
		return fmt.Sprintf("arc(%v r=%g %g..%g cw=%t)", p.Center, p.Radius, p.Theta0, p.Theta1, p.CW)
	case KindRect:
		return fmt.Sprintf("rect(%v %gx%g)", p.Center, p.W, p.H)
	case KindObround:
		return fmt.Sprintf("obround(%v %gx%g)", p.Center, p.W, p.H)
	}
	return fmt.Sprintf("path(%d points closed=%t)", len(p.Points), p.Closed)
}

////////////////////////////////////////////////////////////////

// Operation is the parsed result of one user-loaded file: its primitives, the
// generated offset groups, and any manufacturing warnings accumulated while
// planning.
type Operation struct {
	ID         string
	Type       OperationType
	Primitives []*Primitive
	Settings   OperationSettings
	Offsets    []*OffsetGroup
	Warnings   []Warning
}

// ClearResults drops generated offsets and warnings so the operation can be
// regenerated from its source primitives.
func (op *Operation) ClearResults() {
	op.Offsets = nil
	op.Warnings = nil
}

// Warn appends a manufacturing warning, it never blocks generation.
func (op *Operation) Warn(w Warning) {
	op.Warnings = append(op.Warnings, w)
	logger().Warn("manufacturing warning", "operation", op.ID, "kind", w.Kind.String(), "message", w.Message)
}

// OffsetGroup is the output of one offset pass, or of several passes flattened
// into one when CombineOffsets is set.
type OffsetGroup struct {
	Pass         int
	Distance     float64
	OffsetType   OffsetType
	Combined     bool
	UnionFailed  bool
	ToolDiameter float64
	Timestamp    int64
	Primitives   []*Primitive

	// primitive counts per stage, kept for diagnostics
	SourceCount, OffsetCount, UnionCount, FinalCount int
}
