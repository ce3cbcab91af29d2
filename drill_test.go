package easytrace

import (
	"testing"

	"github.com/tdewolff/test"
)

func drillOp(toolDiameter float64, prims ...*Primitive) (*Operation, *ToolpathContext) {
	op := &Operation{ID: "drill", Type: Drill, Settings: DefaultOperationSettings(), Primitives: prims}
	op.Settings.ToolDiameter = toolDiameter
	op.Settings.AllowMilling = true
	op.Settings.MinMillingMargin = 0.05
	ctx, err := BuildContext(op, DefaultMachineSettings())
	if err != nil {
		panic(err)
	}
	return op, ctx
}

func TestPlanDrillMillsLargeHole(t *testing.T) {
	hole := NewCircle(Point{1.0, 2.0}, 0.5)
	hole.Props.Role = RoleDrillHole

	op, ctx := drillOp(0.3, hole)
	actions := PlanDrill(op, ctx)
	test.T(t, len(actions), 1)
	test.T(t, actions[0].Kind, DrillMill)
	test.T(t, len(actions[0].Paths), 1)

	mill := actions[0].Paths[0]
	test.T(t, mill.Kind, KindCircle)
	test.Float(t, mill.Radius, 0.35)
	test.That(t, mill.Center.Equals(hole.Center))
	test.T(t, mill.Props.Role, RoleDrillMillingPath)
	test.T(t, len(op.Warnings), 0)
}

func TestPlanDrillOversizedTool(t *testing.T) {
	hole := NewCircle(Point{}, 0.5)
	hole.Props.Role = RoleDrillHole

	op, ctx := drillOp(1.2, hole)
	actions := PlanDrill(op, ctx)
	test.T(t, len(actions), 1)
	test.T(t, actions[0].Kind, DrillPeck)
	test.T(t, actions[0].Paths[0].Props.Role, RolePeckMark)
	test.Float(t, actions[0].Paths[0].Radius, 0.6)

	test.T(t, len(op.Warnings), 1)
	test.T(t, op.Warnings[0].Kind, WarnOversizedTool)
}

func TestPlanDrillUndersizedTool(t *testing.T) {
	// matching tool and hole diameter risks binding
	hole := NewCircle(Point{}, 0.5)
	hole.Props.Role = RoleDrillHole

	op, ctx := drillOp(1.0, hole)
	op.Settings.AllowMilling = false
	ctx, err := BuildContext(op, DefaultMachineSettings())
	test.Error(t, err)

	actions := PlanDrill(op, ctx)
	test.T(t, actions[0].Kind, DrillPeck)
	test.T(t, len(op.Warnings), 1)
	test.T(t, op.Warnings[0].Kind, WarnUndersizedTool)
}

func TestPlanDrillSlotMilled(t *testing.T) {
	slot := NewObround(Point{}, 2.0, 1.0)
	slot.Props.Role = RoleDrillSlot

	op, ctx := drillOp(0.3, slot)
	actions := PlanDrill(op, ctx)
	test.T(t, len(actions), 1)
	test.T(t, actions[0].Kind, DrillMill)

	mill := actions[0].Paths[0]
	test.T(t, mill.Kind, KindObround)
	test.Float(t, mill.W, 1.7)
	test.Float(t, mill.H, 0.7)
}

func TestPlanDrillSlotPecked(t *testing.T) {
	// tool nearly as wide as the slot: two pecks at the cap centers with
	// reduced plunge
	slot := NewObround(Point{1.0, 0.0}, 1.2, 1.0)
	slot.Props.Role = RoleDrillSlot

	op, ctx := drillOp(1.0, slot)
	actions := PlanDrill(op, ctx)
	test.T(t, len(actions), 1)
	test.T(t, actions[0].Kind, DrillPeck)
	test.T(t, len(actions[0].Paths), 2)

	a, b := slot.SlotEndpoints()
	test.That(t, actions[0].Paths[0].Center.Equals(a))
	test.That(t, actions[0].Paths[1].Center.Equals(b))
	test.Float(t, actions[0].Paths[0].Props.PlungeFactor, 0.5)

	slotWarned := false
	for _, w := range op.Warnings {
		if w.Kind == WarnSlotProximity {
			slotWarned = true
		}
	}
	test.That(t, slotWarned)
}

func TestPlanDrillSlotPeckedSeparated(t *testing.T) {
	// pecks 2mm apart clear a 0.8mm tool: full plunge feed, no warning
	slot := NewObround(Point{}, 3.0, 1.0)
	slot.Props.Role = RoleDrillSlot

	op, ctx := drillOp(0.8, slot)
	op.Settings.AllowMilling = false
	ctx, err := BuildContext(op, DefaultMachineSettings())
	test.Error(t, err)

	actions := PlanDrill(op, ctx)
	test.T(t, actions[0].Kind, DrillPeck)
	test.T(t, len(actions[0].Paths), 2)
	test.Float(t, actions[0].Paths[0].Props.PlungeFactor, 1.0)
	for _, w := range op.Warnings {
		test.That(t, w.Kind != WarnSlotProximity)
	}
}

func TestPlanDrillIgnoresMismatchedKinds(t *testing.T) {
	p := NewRect(Point{}, 1.0, 1.0)
	p.Props.Role = RoleDrillHole

	op, ctx := drillOp(0.3, p)
	test.T(t, len(PlanDrill(op, ctx)), 0)
}
