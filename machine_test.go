package easytrace

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestTranslateCircle(t *testing.T) {
	cp := translatePrimitive(NewCircle(Point{1.0, 0.0}, 0.5), 0.2)
	test.That(t, cp.closed)
	test.T(t, len(cp.segs), 2)
	test.That(t, cp.segs[0].arc && cp.segs[1].arc)
	test.That(t, cp.segs[1].to.Equals(cp.start))
}

func TestTranslateRect(t *testing.T) {
	cp := translatePrimitive(NewRect(Point{}, 2.0, 1.0), 0.2)
	test.T(t, len(cp.segs), 4)
	test.That(t, cp.segs[3].to.Equals(cp.start))
}

func TestTranslatePeckMark(t *testing.T) {
	mark := NewCircle(Point{3.0, 4.0}, 0.25)
	mark.Props.Role = RolePeckMark
	mark.Props.PlungeFactor = 0.5

	cp := translatePrimitive(mark, 0.5)
	test.That(t, cp.peck)
	test.T(t, len(cp.segs), 0)
	test.That(t, cp.start.Equals(Point{3.0, 4.0}))
	test.Float(t, cp.plungeFactor, 0.5)
}

func TestTranslatePathWithArcs(t *testing.T) {
	// rounded rectangle: the corner arcs become arc cuts, not polylines
	o := newOffsetter(t, DefaultOffsetSettings())
	rounded := o.OffsetPrimitive(NewRect(Point{}, 2.0, 1.0), 0.25)[0]

	cp := translatePrimitive(rounded, 0.2)
	test.That(t, cp.closed)
	arcs := 0
	for _, s := range cp.segs {
		if s.arc {
			arcs++
		}
	}
	test.T(t, arcs, 4)
}

func TestCutPathRotate(t *testing.T) {
	cp := translatePrimitive(NewRect(Point{}, 2.0, 2.0), 0.2)
	n := len(cp.segs)
	cp.rotate(Point{1.2, 1.2})
	test.T(t, len(cp.segs), n)
	test.That(t, cp.start.Equals(Point{1.0, 1.0}))
	test.That(t, cp.segs[n-1].to.Equals(cp.start))
}

func TestOrderPaths(t *testing.T) {
	a := translatePrimitive(NewCircle(Point{0.0, 0.0}, 0.5), 0.2)
	b := translatePrimitive(NewCircle(Point{10.0, 0.0}, 0.5), 0.2)
	c := translatePrimitive(NewCircle(Point{5.0, 0.0}, 0.5), 0.2)

	ordered := orderPaths([]*cutPath{a, b, c}, MachinePosition{X: 11.0})
	test.T(t, len(ordered), 3)
	test.T(t, ordered[0], b)
	test.T(t, ordered[1], c)
	test.T(t, ordered[2], a)
}

func planOp(t *testing.T, op *Operation) (*Plan, *Optimizer, *ToolpathContext) {
	ctx, err := BuildContext(op, DefaultMachineSettings())
	test.Error(t, err)
	pl, err := NewPipeline(DefaultMachineSettings())
	test.Error(t, err)
	test.Error(t, pl.Run(op, ctx))

	o := NewOptimizer(MachinePosition{X: 100.0, Y: 100.0, Z: 5.0})
	return o.Process(op, ctx), o, ctx
}

func TestProcessIsolation(t *testing.T) {
	op := &Operation{ID: "iso", Type: Isolation, Settings: DefaultOperationSettings()}
	op.Primitives = []*Primitive{NewCircle(Point{}, 0.5)}

	plan, o, ctx := planOp(t, op)
	test.T(t, plan.OperationID, "iso")
	test.T(t, plan.Tool.Number, 1)
	test.That(t, 0 < len(plan.Moves))

	// far from the start position: the approach rapid travels at safe Z
	test.T(t, plan.Moves[0].Kind, MoveRapid)
	test.Float(t, plan.Moves[0].Z, ctx.Machine.SafeZ)

	arcs, depth := 0, false
	for _, m := range plan.Moves {
		if m.Kind == MoveArcCW || m.Kind == MoveArcCCW {
			arcs++
			test.Float(t, m.Z, ctx.CutDepth)
		}
		if m.Kind == MoveLinear && Equal(m.Z, ctx.CutDepth) {
			depth = true
		}
	}
	test.T(t, arcs, 2)
	test.That(t, depth)

	// the optimizer parked at reduced clearance over the last cut
	test.Float(t, o.Position().Z, ctx.Machine.TravelZ)
}

func TestProcessShortHopUsesTravelZ(t *testing.T) {
	op := &Operation{ID: "iso", Type: Isolation, Settings: DefaultOperationSettings()}
	op.Primitives = []*Primitive{
		NewCircle(Point{0.0, 0.0}, 0.5),
		NewCircle(Point{2.0, 0.0}, 0.5),
	}
	ctx, err := BuildContext(op, DefaultMachineSettings())
	test.Error(t, err)
	pl, err := NewPipeline(DefaultMachineSettings())
	test.Error(t, err)
	test.Error(t, pl.Run(op, ctx))

	o := NewOptimizer(MachinePosition{X: 0.0, Y: 0.0, Z: 5.0})
	plan := o.Process(op, ctx)

	// both hops are shorter than the short-travel threshold
	for _, m := range plan.Moves {
		if m.Kind == MoveRapid {
			test.Float(t, m.Z, ctx.Machine.TravelZ)
		}
	}
}

func TestProcessMultiDepth(t *testing.T) {
	op := &Operation{ID: "cut", Type: Cutout, Settings: DefaultOperationSettings()}
	op.Settings.ToolDiameter = 1.0
	op.Settings.MultiDepth = true
	op.Settings.CutDepth = -1.8
	op.Settings.DepthPerPass = 0.5
	op.Primitives = []*Primitive{NewPath([]Point{{0, 0}, {20, 0}, {20, 20}, {0, 20}}, true)}

	plan, _, ctx := planOp(t, op)
	test.T(t, len(ctx.DepthLevels), 4)

	// one plunge per depth level, final level exactly at the cut depth
	plunges := make(map[float64]bool)
	for _, m := range plan.Moves {
		if m.Kind == MoveLinear {
			plunges[m.Z] = true
		}
	}
	for _, z := range ctx.DepthLevels {
		test.That(t, plunges[z])
	}
}

func TestProcessPeck(t *testing.T) {
	hole := NewCircle(Point{1.0, 1.0}, 0.5)
	hole.Props.Role = RoleDrillHole

	op := &Operation{ID: "holes", Type: Drill, Settings: DefaultOperationSettings()}
	op.Settings.ToolDiameter = 0.5
	op.Settings.AllowMilling = false
	op.Primitives = []*Primitive{hole}

	plan, _, _ := planOp(t, op)

	// a peck is plunges only: no lateral cut moves
	for _, m := range plan.Moves {
		if m.Kind == MoveLinear {
			test.That(t, m.To.Equals(Point{1.0, 1.0}))
		}
		test.That(t, m.Kind == MoveRapid || m.Kind == MoveLinear)
	}
	last := plan.Moves[len(plan.Moves)-1]
	test.T(t, last.Kind, MoveRapid)
}

func TestTabWindows(t *testing.T) {
	cp := translatePrimitive(NewRect(Point{}, 40.0, 40.0), 2.0)
	tabs := TabSettings{
		Enabled:    true,
		Height:     0.5,
		Width:      2.0,
		MinSpacing: 10.0,
		Spacing:    40.0,
		CornerMax:  0.5,
	}

	windows := tabWindows(cp, tabs)
	test.T(t, len(windows), 4)
	for _, w := range windows {
		test.Float(t, w.end-w.start, 2.0)
		// no window sits on a corner of the 40mm sides
		for _, corner := range []float64{40.0, 80.0, 120.0} {
			test.That(t, w.end < corner-2.0 || corner+2.0 < w.start)
		}
	}
}

func TestTabWindowsSkipsShortPaths(t *testing.T) {
	cp := translatePrimitive(NewRect(Point{}, 5.0, 5.0), 2.0)
	tabs := TabSettings{Enabled: true, Width: 2.0, MinSpacing: 10.0, Spacing: 40.0}
	test.T(t, len(tabWindows(cp, tabs)), 0)
}

func TestProcessCutoutTabs(t *testing.T) {
	op := &Operation{ID: "cut", Type: Cutout, Settings: DefaultOperationSettings()}
	op.Settings.ToolDiameter = 2.0
	op.Settings.CutDepth = -1.6
	op.Settings.Tabs.Enabled = true
	op.Primitives = []*Primitive{NewPath([]Point{{0, 0}, {60, 0}, {60, 60}, {0, 60}}, true)}

	plan, _, ctx := planOp(t, op)

	tabZ := ctx.CutDepth + ctx.Tabs.Height
	lifted := 0
	for _, m := range plan.Moves {
		if m.Kind == MoveLinear && Equal(m.Z, tabZ) {
			lifted++
		}
	}
	test.That(t, 0 < lifted)
}

func TestTabWindowSpansVertex(t *testing.T) {
	// a subdivided straight edge splits a tab window across two segments; the
	// tool must stay at tab height over the vertex instead of dipping to depth
	cp := translatePrimitive(NewPath([]Point{{0, 0}, {21, 0}, {60, 0}, {60, 60}, {0, 60}}, true), 2.0)
	tabs := TabSettings{
		Enabled:    true,
		Height:     0.5,
		Width:      2.0,
		MinSpacing: 10.0,
		Spacing:    40.0,
		CornerMax:  0.5,
	}
	ctx := &ToolpathContext{Feed: 120.0, PlungeFeed: 60.0, Tabs: tabs}

	z := -1.6
	o := NewOptimizer(MachinePosition{})
	plan := &Plan{}
	end := o.emitTabbedLoop(plan, cp, z, ctx)
	test.That(t, end.Equals(Point{0.0, 0.0}))

	// the first window covers [20,22] along the bottom edge and spans the
	// vertex at x=21
	seenVertex := false
	for _, m := range plan.Moves {
		if Equal(m.To.Y, 0.0) && 20.0+Epsilon < m.To.X && m.To.X < 22.0-Epsilon {
			test.Float(t, m.Z, z+tabs.Height)
		}
		if m.To.Equals(Point{21.0, 0.0}) {
			seenVertex = true
			test.Float(t, m.Z, z+tabs.Height)
		}
	}
	test.That(t, seenVertex)
}

func TestMoveKindString(t *testing.T) {
	test.T(t, MoveRapid.String(), "rapid")
	test.T(t, MoveLinear.String(), "linear")
	test.T(t, MoveArcCW.String(), "arc_cw")
	test.T(t, MoveArcCCW.String(), "arc_ccw")
}

func TestTranslateObround(t *testing.T) {
	cp := translatePrimitive(NewObround(Point{}, 3.0, 1.0), 0.2)
	test.That(t, cp.closed)
	test.T(t, len(cp.segs), 4)
	arcs := 0
	for _, s := range cp.segs {
		if s.arc {
			arcs++
		}
	}
	test.T(t, arcs, 2)
	test.Float(t, cp.length(), 6.0) // chords: two 2mm flanks, two 1mm cap chords
}
