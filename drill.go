package easytrace

import (
	"fmt"
)

// WarningKind classifies manufacturing warnings. They are advisory: geometry
// generation always proceeds.
type WarningKind int

const (
	WarnOversizedTool WarningKind = iota
	WarnUndersizedTool
	WarnSlotProximity
	WarnDegradedPass
	WarnUnionFailed
)

func (k WarningKind) String() string {
	switch k {
	case WarnOversizedTool:
		return "oversized_tool"
	case WarnUndersizedTool:
		return "undersized_tool"
	case WarnSlotProximity:
		return "slot_proximity"
	case WarnDegradedPass:
		return "degraded_pass"
	case WarnUnionFailed:
		return "union_failed"
	}
	return fmt.Sprintf("WarningKind(%d)", int(k))
}

// Warning is one accumulated manufacturing diagnostic.
type Warning struct {
	Kind    WarningKind
	Message string
}

// toolSizeEpsilon separates a genuinely oversized tool from floating-point
// noise on equal diameters.
const toolSizeEpsilon = 1e-6

// bindClearance is the radial clearance below which a peck drill risks
// binding in a nearly tool-sized hole.
const bindClearance = 0.025

// DrillActionKind tells how one hole or slot gets machined.
type DrillActionKind int

const (
	DrillPeck DrillActionKind = iota
	DrillMill
)

func (k DrillActionKind) String() string {
	if k == DrillMill {
		return "mill"
	}
	return "peck"
}

// DrillAction is the planned machining of one drill-role primitive: either an
// internal milling path or one or more peck marks.
type DrillAction struct {
	Kind   DrillActionKind
	Source *Primitive
	Paths  []*Primitive
}

// PlanDrill decides peck versus mill for every drill-role primitive of the
// operation and produces the corresponding geometry. Warnings accumulate on
// the operation and never block planning.
func PlanDrill(op *Operation, ctx *ToolpathContext) []DrillAction {
	rt := ctx.Tool.Diameter / 2.0
	var actions []DrillAction
	for _, p := range op.Primitives {
		switch p.Props.Role {
		case RoleDrillHole:
			if p.Kind != KindCircle {
				continue
			}
			actions = append(actions, planHole(op, ctx, p, rt))
		case RoleDrillSlot:
			if p.Kind != KindObround {
				continue
			}
			actions = append(actions, planSlot(op, ctx, p, rt))
		}
	}
	return actions
}

func planHole(op *Operation, ctx *ToolpathContext, p *Primitive, rt float64) DrillAction {
	rf := p.Radius
	if ctx.AllowMilling && ctx.MinMillingMargin <= rf-rt {
		r := rf - rt
		if ctx.Offset.MinFeatureSize <= 2.0*r {
			props := p.Props
			props.Role = RoleDrillMillingPath
			mill := NewCircle(p.Center, r)
			mill.Props = props
			return DrillAction{Kind: DrillMill, Source: p, Paths: []*Primitive{mill}}
		}
	}
	classifyPeck(op, rf, rt)
	return DrillAction{Kind: DrillPeck, Source: p, Paths: []*Primitive{peckMark(p, p.Center, rt, 1.0)}}
}

func planSlot(op *Operation, ctx *ToolpathContext, p *Primitive, rt float64) DrillAction {
	rf := p.EndRadius()
	if ctx.AllowMilling && ctx.MinMillingMargin <= rf-rt {
		w, h := p.W-2.0*rt, p.H-2.0*rt
		if ctx.Offset.MinFeatureSize <= w && ctx.Offset.MinFeatureSize <= h {
			props := p.Props
			props.Role = RoleDrillMillingPath
			mill := NewObround(p.Center, w, h)
			mill.Props = props
			return DrillAction{Kind: DrillMill, Source: p, Paths: []*Primitive{mill}}
		}
	}

	classifyPeck(op, rf, rt)
	plunge := 1.0
	span := p.SlotLength() - 2.0*p.EndRadius() // distance between the two peck marks
	if span < 2.0*rt {
		op.Warn(Warning{Kind: WarnSlotProximity,
			Message: fmt.Sprintf("peck marks %.3fmm apart overlap with the %.3fmm tool, reducing plunge feed", span, 2.0*rt)})
		plunge = 0.5
	}
	a, b := p.SlotEndpoints()
	return DrillAction{Kind: DrillPeck, Source: p, Paths: []*Primitive{
		peckMark(p, a, rt, plunge),
		peckMark(p, b, rt, plunge),
	}}
}

func classifyPeck(op *Operation, rf, rt float64) {
	if toolSizeEpsilon < rt-rf {
		op.Warn(Warning{Kind: WarnOversizedTool,
			Message: fmt.Sprintf("tool diameter %.3fmm is larger than the %.3fmm hole", 2.0*rt, 2.0*rf)})
	} else if rf-rt < bindClearance {
		op.Warn(Warning{Kind: WarnUndersizedTool,
			Message: fmt.Sprintf("tool diameter %.3fmm is too close to the %.3fmm hole size", 2.0*rt, 2.0*rf)})
	}
}

func peckMark(src *Primitive, at Point, rt, plunge float64) *Primitive {
	props := src.Props
	props.Role = RolePeckMark
	props.PlungeFactor = plunge
	mark := NewCircle(at, rt)
	mark.Props = props
	return mark
}
