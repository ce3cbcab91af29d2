package easytrace

import (
	"math"

	"github.com/dhconnelly/rtreego"
)

// MachinePosition is the tool position threaded through operation batches. It
// is owned by the orchestration loop and only updated from the machine
// processor's returned end position.
type MachinePosition struct {
	X, Y, Z float64
}

// MoveKind discriminates machine moves.
type MoveKind int

const (
	MoveRapid MoveKind = iota
	MoveLinear
	MoveArcCW
	MoveArcCCW
)

func (k MoveKind) String() string {
	switch k {
	case MoveLinear:
		return "linear"
	case MoveArcCW:
		return "arc_cw"
	case MoveArcCCW:
		return "arc_ccw"
	}
	return "rapid"
}

// Move is one machine motion to an absolute XY position at depth Z. Arc moves
// carry their absolute center.
type Move struct {
	Kind   MoveKind
	To     Point
	Z      float64
	Feed   float64 // mm/min, zero for rapids
	Center Point   // arc moves only
}

// Plan is the machine-ready motion sequence for one operation.
type Plan struct {
	OperationID  string
	Tool         Tool
	SpindleSpeed float64
	Moves        []Move
}

////////////////////////////////////////////////////////////////

// cutSegment is one edge of a translated toolpath: a straight cut or an
// analytic arc.
type cutSegment struct {
	to     Point
	arc    bool
	center Point
	cw     bool
}

// cutPath is one translated toolpath ready for ordering and machining.
type cutPath struct {
	start        Point
	segs         []cutSegment
	closed       bool
	peck         bool
	plungeFactor float64
	diameter     float64
}

// length returns the path length, approximating arcs by their chord. Good
// enough for ordering and tab spacing.
func (cp *cutPath) length() float64 {
	l := 0.0
	cur := cp.start
	for _, s := range cp.segs {
		l += s.to.Sub(cur).Length()
		cur = s.to
	}
	return l
}

// rotate shifts a closed path's entry to the segment endpoint nearest to p,
// which shortens the rapid leading in.
func (cp *cutPath) rotate(p Point) {
	if !cp.closed || len(cp.segs) < 2 {
		return
	}
	best, bestDist := -1, p.Sub(cp.start).Length()
	for i, s := range cp.segs {
		if d := p.Sub(s.to).Length(); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return
	}
	segs := make([]cutSegment, 0, len(cp.segs))
	segs = append(segs, cp.segs[best+1:]...)
	segs = append(segs, cp.segs[:best+1]...)
	cp.start = cp.segs[best].to
	cp.segs = segs
}

// translatePrimitive converts one generated primitive into a cut path, or nil
// when it carries no machinable geometry.
func translatePrimitive(p *Primitive, diameter float64) *cutPath {
	plunge := p.Props.PlungeFactor
	if plunge == 0.0 {
		plunge = 1.0
	}
	cp := &cutPath{closed: true, plungeFactor: plunge, diameter: diameter}

	switch {
	case p.Props.Role == RolePeckMark:
		cp.start = p.Center
		cp.peck = true
		return cp

	case p.Kind == KindCircle:
		if p.Radius < Epsilon {
			return nil
		}
		start := p.ArcPoint(0.0)
		mid := p.ArcPoint(math.Pi)
		cp.start = start
		cp.segs = []cutSegment{
			{to: mid, arc: true, center: p.Center},
			{to: start, arc: true, center: p.Center},
		}
		return cp

	case p.Kind == KindObround:
		return obroundCut(p, cp)

	case p.Kind == KindRect:
		hw, hh := p.W/2.0, p.H/2.0
		c := p.Center
		cp.start = Point{c.X - hw, c.Y - hh}
		cp.segs = []cutSegment{
			{to: Point{c.X + hw, c.Y - hh}},
			{to: Point{c.X + hw, c.Y + hh}},
			{to: Point{c.X - hw, c.Y + hh}},
			{to: cp.start},
		}
		return cp

	case p.Kind == KindPath:
		return pathCut(p, cp)
	}
	return nil
}

func obroundCut(p *Primitive, cp *cutPath) *cutPath {
	r := p.EndRadius()
	if r < Epsilon {
		return nil
	}
	a, b := p.SlotEndpoints()
	if a.Equals(b) {
		return translatePrimitive(NewCircle(p.Center, r), cp.diameter)
	}
	phi := b.Sub(a).Angle()
	e := func(c Point, theta float64) Point {
		sintheta, costheta := math.Sincos(theta)
		return Point{c.X + r*costheta, c.Y + r*sintheta}
	}
	cp.start = e(b, phi-math.Pi/2.0)
	cp.segs = []cutSegment{
		{to: e(b, phi+math.Pi/2.0), arc: true, center: b},
		{to: e(a, phi+math.Pi/2.0)},
		{to: e(a, phi-math.Pi/2.0), arc: true, center: a},
		{to: cp.start},
	}
	return cp
}

func pathCut(p *Primitive, cp *cutPath) *cutPath {
	n := len(p.Points)
	if n < 2 {
		return nil
	}
	cp.closed = p.Closed

	segAt := map[int]*ArcSegment{}
	start := 0
	for j := range p.ArcSegments {
		seg := &p.ArcSegments[j]
		segAt[seg.Start] = seg
		if seg.End < seg.Start {
			start = seg.Start // begin the walk on the wrapping arc
		}
		if seg.FullCircle {
			return translatePrimitive(NewCircle(seg.Center, seg.Radius), cp.diameter)
		}
	}

	cp.start = p.Points[start]
	i, walked := start, 0
	for walked < n {
		if seg, ok := segAt[i]; ok {
			cp.segs = append(cp.segs, cutSegment{to: p.Points[seg.End], arc: true, center: seg.Center, cw: seg.CW})
			step := (seg.End - i + n) % n
			if step == 0 {
				step = n
			}
			i = seg.End
			walked += step
			continue
		}
		next := (i + 1) % n
		if !p.Closed && next == 0 {
			break
		}
		if next == start && p.Closed {
			cp.segs = append(cp.segs, cutSegment{to: p.Points[start]})
			break
		}
		cp.segs = append(cp.segs, cutSegment{to: p.Points[next]})
		i = next
		walked++
	}
	return cp
}

////////////////////////////////////////////////////////////////

// Optimizer orders and machines translated paths while tracking the persistent
// machine position across operation batches. One Optimizer must process its
// batches sequentially.
type Optimizer struct {
	pos MachinePosition
}

// NewOptimizer returns an optimizer starting from the given machine position.
func NewOptimizer(start MachinePosition) *Optimizer {
	return &Optimizer{pos: start}
}

// Position returns the current machine position.
func (o *Optimizer) Position() MachinePosition {
	return o.pos
}

// Process turns a generated operation into a machine-ready plan. Paths are
// grouped by tool diameter, ordered by rapid distance from the running machine
// position, and annotated with entries, depth levels, tabs and rapids. The
// optimizer's machine position advances to the plan's end position.
func (o *Optimizer) Process(op *Operation, ctx *ToolpathContext) *Plan {
	plan := &Plan{OperationID: op.ID, Tool: ctx.Tool, SpindleSpeed: ctx.SpindleSpeed}

	for _, group := range pathGroups(op, ctx) {
		for _, cp := range orderPaths(group, o.pos) {
			o.emitPath(plan, cp, op, ctx)
		}
	}
	return plan
}

// pathGroups translates the operation's primitives and groups them by tool
// diameter in first-seen order.
func pathGroups(op *Operation, ctx *ToolpathContext) [][]*cutPath {
	var order []float64
	byDiameter := map[float64][]*cutPath{}
	for _, g := range op.Offsets {
		d := g.ToolDiameter
		if d == 0.0 {
			d = ctx.Tool.Diameter
		}
		for _, p := range g.Primitives {
			cp := translatePrimitive(p, d)
			if cp == nil {
				continue
			}
			if _, ok := byDiameter[d]; !ok {
				order = append(order, d)
			}
			byDiameter[d] = append(byDiameter[d], cp)
		}
	}
	groups := make([][]*cutPath, 0, len(order))
	for _, d := range order {
		groups = append(groups, byDiameter[d])
	}
	return groups
}

type pathItem struct {
	cp    *cutPath
	where rtreego.Rect
}

func (it *pathItem) Bounds() rtreego.Rect {
	return it.where
}

// orderPaths reorders paths with a nearest-entry heuristic over an R-tree,
// minimizing rapid travel from the running position.
func orderPaths(paths []*cutPath, pos MachinePosition) []*cutPath {
	if len(paths) < 2 {
		return paths
	}
	tree := rtreego.NewTree(2, 2, 8)
	for _, cp := range paths {
		where, err := rtreego.NewRect(rtreego.Point{cp.start.X, cp.start.Y}, []float64{1e-9, 1e-9})
		if err != nil {
			continue
		}
		tree.Insert(&pathItem{cp: cp, where: where})
	}

	at := Point{pos.X, pos.Y}
	ordered := make([]*cutPath, 0, len(paths))
	for 0 < tree.Size() {
		it := tree.NearestNeighbor(rtreego.Point{at.X, at.Y}).(*pathItem)
		tree.Delete(it)
		it.cp.rotate(at)
		ordered = append(ordered, it.cp)
		at = it.cp.start
	}
	return ordered
}

// emitPath appends the full motion sequence for one path: clearance retract,
// rapid to the entry, Z-stepped depth levels, and the cut loops. Short hops
// stay at the reduced travel height instead of full safe Z.
func (o *Optimizer) emitPath(plan *Plan, cp *cutPath, op *Operation, ctx *ToolpathContext) {
	entry := cp.start
	hop := entry.Sub(Point{o.pos.X, o.pos.Y}).Length()
	clearZ := ctx.Machine.SafeZ
	if hop <= ctx.Machine.ShortTravel {
		clearZ = ctx.Machine.TravelZ
	}

	if o.pos.Z < clearZ {
		plan.Moves = append(plan.Moves, Move{Kind: MoveRapid, To: Point{o.pos.X, o.pos.Y}, Z: clearZ})
	}
	plan.Moves = append(plan.Moves, Move{Kind: MoveRapid, To: entry, Z: clearZ})

	plungeFeed := ctx.PlungeFeed * cp.plungeFactor
	if cp.peck {
		// one Z-stepped plunge covers all depth levels
		for _, z := range ctx.DepthLevels {
			plan.Moves = append(plan.Moves, Move{Kind: MoveLinear, To: entry, Z: z, Feed: plungeFeed})
		}
	} else {
		cur := entry
		for li, z := range ctx.DepthLevels {
			plan.Moves = append(plan.Moves, Move{Kind: MoveLinear, To: cur, Z: z, Feed: plungeFeed})
			final := li == len(ctx.DepthLevels)-1
			cur = o.emitLoop(plan, cp, cur, z, final, op, ctx)
		}
	}

	plan.Moves = append(plan.Moves, Move{Kind: MoveRapid, To: lastXY(plan), Z: ctx.Machine.TravelZ})
	end := lastXY(plan)
	o.pos = MachinePosition{end.X, end.Y, ctx.Machine.TravelZ}
}

func lastXY(plan *Plan) Point {
	if len(plan.Moves) == 0 {
		return Point{}
	}
	return plan.Moves[len(plan.Moves)-1].To
}

// emitLoop cuts the path once at depth z from the point at. The deepest pass
// of a cutout gets holding tabs. Open paths are cut in alternating direction;
// the returned point is where the tool ends up.
func (o *Optimizer) emitLoop(plan *Plan, cp *cutPath, at Point, z float64, final bool, op *Operation, ctx *ToolpathContext) Point {
	tabs := final && op.Type == Cutout && ctx.Tabs.Enabled && z+ctx.Tabs.Height < 0.0
	if tabs {
		return o.emitTabbedLoop(plan, cp, z, ctx)
	}

	segs := cp.segs
	if !cp.closed && !at.Equals(cp.start) {
		segs = reverseCut(cp)
	}
	cur := at
	for _, s := range segs {
		plan.Moves = append(plan.Moves, cutMove(s, z, ctx.Feed))
		cur = s.to
	}
	return cur
}

func cutMove(s cutSegment, z, feed float64) Move {
	kind := MoveLinear
	if s.arc {
		kind = MoveArcCCW
		if s.cw {
			kind = MoveArcCW
		}
	}
	return Move{Kind: kind, To: s.to, Z: z, Feed: feed, Center: s.center}
}

// reverseCut returns the path's segments walked backwards, flipping arc sense.
func reverseCut(cp *cutPath) []cutSegment {
	segs := make([]cutSegment, 0, len(cp.segs))
	prev := cp.start
	starts := make([]Point, len(cp.segs))
	for i, s := range cp.segs {
		starts[i] = prev
		prev = s.to
	}
	for i := len(cp.segs) - 1; 0 <= i; i-- {
		s := cp.segs[i]
		segs = append(segs, cutSegment{to: starts[i], arc: s.arc, center: s.center, cw: !s.cw})
	}
	return segs
}

// emitTabbedLoop cuts the closed path at depth z, lifting to the tab height
// over precomputed tab windows. Tabs avoid arcs and sharp corners; spacing
// respects the configured minimum relative to the tool diameter.
func (o *Optimizer) emitTabbedLoop(plan *Plan, cp *cutPath, z float64, ctx *ToolpathContext) Point {
	tabZ := z + ctx.Tabs.Height
	windows := tabWindows(cp, ctx.Tabs)
	if len(windows) == 0 {
		cur := cp.start
		for _, s := range cp.segs {
			plan.Moves = append(plan.Moves, cutMove(s, z, ctx.Feed))
			cur = s.to
		}
		return cur
	}

	cur := cp.start
	acc := 0.0
	w := 0
	lifted := false // inside a tab window carried over from the previous segment
	for _, s := range cp.segs {
		segLen := s.to.Sub(cur).Length()
		if s.arc || segLen < Epsilon {
			if lifted {
				plan.Moves = append(plan.Moves, Move{Kind: MoveLinear, To: s.to, Z: tabZ, Feed: ctx.Feed})
			} else {
				plan.Moves = append(plan.Moves, cutMove(s, z, ctx.Feed))
			}
			acc += segLen
			cur = s.to
			continue
		}
		segStart := cur
		done := 0.0
		for w < len(windows) && windows[w].start < acc+segLen {
			win := windows[w]
			if !lifted {
				t0 := math.Max((win.start-acc)/segLen, 0.0)
				p0 := segStart.Interpolate(s.to, t0)
				if done < t0 {
					plan.Moves = append(plan.Moves, Move{Kind: MoveLinear, To: p0, Z: z, Feed: ctx.Feed})
				}
				plan.Moves = append(plan.Moves, Move{Kind: MoveLinear, To: p0, Z: tabZ, Feed: ctx.PlungeFeed})
				lifted = true
				done = math.Max(done, t0)
			}
			if acc+segLen < win.end {
				break // window spills into the next segment, stay at tab height
			}
			t1 := math.Min((win.end-acc)/segLen, 1.0)
			p1 := segStart.Interpolate(s.to, t1)
			plan.Moves = append(plan.Moves, Move{Kind: MoveLinear, To: p1, Z: tabZ, Feed: ctx.Feed})
			plan.Moves = append(plan.Moves, Move{Kind: MoveLinear, To: p1, Z: z, Feed: ctx.PlungeFeed})
			lifted = false
			done = t1
			w++
		}
		if lifted {
			plan.Moves = append(plan.Moves, Move{Kind: MoveLinear, To: s.to, Z: tabZ, Feed: ctx.Feed})
		} else if done < 1.0 {
			plan.Moves = append(plan.Moves, Move{Kind: MoveLinear, To: s.to, Z: z, Feed: ctx.Feed})
		}
		acc += segLen
		cur = s.to
	}
	return cur
}

type tabWindow struct {
	start, end float64
}

// tabWindows places tab intervals along the path's arc length, skipping spans
// that fall on arcs or contain corners sharper than the configured threshold.
func tabWindows(cp *cutPath, tabs TabSettings) []tabWindow {
	total := cp.length()
	spacing := math.Max(tabs.Spacing, tabs.MinSpacing*cp.diameter)
	if total < 2.0*spacing || tabs.Width <= 0.0 {
		return nil
	}

	// spans to avoid: arc segments, plus a tool-width margin around sharp corners
	type span struct{ start, end float64 }
	var blocked []span
	acc := 0.0
	cur := cp.start
	var prevDir Point
	for i, s := range cp.segs {
		segLen := s.to.Sub(cur).Length()
		dir := s.to.Sub(cur).Norm(1.0)
		if s.arc {
			blocked = append(blocked, span{acc, acc + segLen})
		} else if 0 < i && tabs.CornerMax < math.Abs(prevDir.AngleBetween(dir)) {
			blocked = append(blocked, span{acc - tabs.Width, acc + tabs.Width})
		}
		prevDir = dir
		acc += segLen
		cur = s.to
	}

	overlaps := func(a, b float64) (float64, bool) {
		for _, sp := range blocked {
			if a < sp.end && sp.start < b {
				return sp.end, true
			}
		}
		return 0.0, false
	}

	var windows []tabWindow
	s := spacing / 2.0
	for s+tabs.Width < total {
		if shift, bad := overlaps(s, s+tabs.Width); bad {
			s = shift + tabs.Width/2.0
			continue
		}
		windows = append(windows, tabWindow{s, s + tabs.Width})
		s += spacing
	}
	return windows
}
