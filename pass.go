package easytrace

import (
	"fmt"
	"time"
)

// Pipeline drives the offset-first geometry pipeline for one operation at a
// time. It owns its curve registry and boolean engine, so isolated concurrent
// runs only need separate Pipeline values; a single Pipeline must not be
// shared between concurrent runs.
type Pipeline struct {
	engine  BooleanEngine
	reg     *CurveRegistry
	machine MachineSettings
}

// NewPipeline constructs a pipeline with a Clipper-backed boolean engine at
// the machine's integer scale. An engine construction error is fatal for the
// offset and boolean stages; peck-only drill planning does not need a
// pipeline.
func NewPipeline(machine MachineSettings) (*Pipeline, error) {
	engine, err := NewBooleanEngine(machine.Scale)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		engine:  engine,
		reg:     NewCurveRegistry(machine.Precision, machine.Scale),
		machine: machine,
	}, nil
}

// Registry exposes the pipeline's curve registry, valid until the next run
// clears it.
func (pl *Pipeline) Registry() *CurveRegistry {
	return pl.reg
}

// Run regenerates the operation's offset groups from its source primitives.
// The registry is cleared first, so re-running on unchanged input reproduces
// identical output. Cutout fragments are stitched before offsetting; drill
// operations go through the strategy planner instead of the offset passes.
func (pl *Pipeline) Run(op *Operation, ctx *ToolpathContext) error {
	pl.reg.Clear()
	op.ClearResults()

	switch op.Type {
	case Drill:
		return pl.runDrill(op, ctx)
	case Cutout:
		if err := pl.stitchOutline(op); err != nil {
			return err
		}
	}
	return pl.runOffsets(op, ctx)
}

// stitchOutline merges open outline fragments into one closed contour. On
// failure the operation keeps its unmerged fragments for diagnosis and the
// structured error is returned.
func (pl *Pipeline) stitchOutline(op *Operation) error {
	var open []*Primitive
	var rest []*Primitive
	for _, p := range op.Primitives {
		if p.Kind == KindArc || p.Kind == KindPath && !p.Closed {
			open = append(open, p)
		} else {
			rest = append(rest, p)
		}
	}
	if len(open) == 0 {
		return nil
	}

	stitched, err := NewStitcher(pl.machine.Precision).Stitch(open)
	if err != nil {
		return fmt.Errorf("operation %s: %w", op.ID, err)
	}
	stitched.Props.OperationID = op.ID
	stitched.Props.Role = RoleOutline
	op.Primitives = append(rest, stitched)
	logger().Debug("stitched outline", "operation", op.ID, "segments", len(open), "points", len(stitched.Points))
	return nil
}

func (pl *Pipeline) runDrill(op *Operation, ctx *ToolpathContext) error {
	actions := PlanDrill(op, ctx)
	group := &OffsetGroup{
		ToolDiameter: ctx.Tool.Diameter,
		Timestamp:    time.Now().UnixMilli(),
		SourceCount:  len(op.Primitives),
	}
	for _, action := range actions {
		group.Primitives = append(group.Primitives, action.Paths...)
	}
	group.FinalCount = len(group.Primitives)
	op.Offsets = append(op.Offsets, group)
	return nil
}

func (pl *Pipeline) runOffsets(op *Operation, ctx *ToolpathContext) error {
	for i, distance := range ctx.OffsetDistances {
		pl.runPass(op, ctx, i, distance)
	}
	if ctx.Combine && 1 < len(op.Offsets) {
		op.Offsets = []*OffsetGroup{combineGroups(op.Offsets)}
	}
	return nil
}

// runPass executes one offset pass: partition by polarity, offset, tessellate,
// union, subtract holes, reconstruct arcs, tag. A boolean failure degrades the
// pass to its pre-boolean tessellated polygons tagged UnionFailed; a single
// primitive's offset failure only drops that primitive.
func (pl *Pipeline) runPass(op *Operation, ctx *ToolpathContext, pass int, distance float64) {
	offsetter := NewOffsetter(pl.engine, pl.reg, ctx.Offset)

	var outers, holes []*Primitive
	for _, p := range op.Primitives {
		if p.Props.Polarity == Clear {
			holes = append(holes, p)
		} else {
			outers = append(outers, p)
		}
	}

	group := &OffsetGroup{
		Pass:         pass,
		Distance:     distance,
		OffsetType:   offsetType(distance),
		ToolDiameter: ctx.Tool.Diameter,
		Timestamp:    time.Now().UnixMilli(),
		SourceCount:  len(op.Primitives),
	}

	failed := 0
	offsetOuters := make([]*Primitive, 0, len(outers))
	for _, p := range outers {
		if qs := offsetter.OffsetPrimitive(p, distance); qs != nil {
			offsetOuters = append(offsetOuters, qs...)
		} else {
			failed++
		}
	}
	// insetting the outer boundary corresponds to outsetting its holes by the
	// same magnitude
	offsetHoles := make([]*Primitive, 0, len(holes))
	for _, p := range holes {
		if qs := offsetter.OffsetPrimitive(p, -distance); qs != nil {
			offsetHoles = append(offsetHoles, qs...)
		} else {
			failed++
		}
	}
	if 0 < failed {
		op.Warn(Warning{Kind: WarnDegradedPass,
			Message: fmt.Sprintf("pass %d: %d primitives failed to offset and were skipped", pass, failed)})
	}
	group.OffsetCount = len(offsetOuters) + len(offsetHoles)

	// a single analytic shape with no holes needs no boolean round-trip
	if len(offsetOuters) == 1 && len(offsetHoles) == 0 && offsetOuters[0].Analytic {
		group.Primitives = []*Primitive{tagPrimitive(offsetOuters[0], op, group)}
		group.UnionCount = 1
		group.FinalCount = 1
		op.Offsets = append(op.Offsets, group)
		return
	}

	subject := tessellateAll(offsetOuters, pl.reg, ctx.Offset.ArcTolerance)
	clip := tessellateAll(offsetHoles, pl.reg, ctx.Offset.ArcTolerance)

	result, err := pl.booleanPass(subject, clip)
	if err != nil {
		// degrade: ship the tessellated polygons, visibly marked
		op.Warn(Warning{Kind: WarnUnionFailed,
			Message: fmt.Sprintf("pass %d: boolean operation failed: %v", pass, err)})
		group.UnionFailed = true
		for _, ring := range subject {
			p := &Primitive{Kind: KindPath, Closed: true, Points: ring}
			props := p.Props
			props.UnionFailed = true
			p.Props = props
			group.Primitives = append(group.Primitives, tagPrimitive(p, op, group))
		}
		group.FinalCount = len(group.Primitives)
		op.Offsets = append(op.Offsets, group)
		return
	}
	group.UnionCount = len(result)

	prims := NewReconstructor(pl.reg).Reconstruct(result)
	for _, p := range prims {
		group.Primitives = append(group.Primitives, tagPrimitive(p, op, group))
	}
	group.FinalCount = len(group.Primitives)
	op.Offsets = append(op.Offsets, group)

	logger().Debug("offset pass complete", "operation", op.ID, "pass", pass,
		"distance", distance, "source", group.SourceCount, "offset", group.OffsetCount,
		"union", group.UnionCount, "final", group.FinalCount)
}

func (pl *Pipeline) booleanPass(subject, clip []Ring) ([]Ring, error) {
	merged, err := pl.engine.Union(subject, NonZero)
	if err != nil {
		return nil, err
	}
	if len(clip) == 0 {
		return merged, nil
	}
	holes, err := pl.engine.Union(clip, NonZero)
	if err != nil {
		return nil, err
	}
	return pl.engine.Difference(merged, holes)
}

func tessellateAll(prims []*Primitive, reg *CurveRegistry, tol float64) []Ring {
	var rings []Ring
	for _, p := range prims {
		if ring := p.Tessellate(reg, tol); 3 <= len(ring) {
			rings = append(rings, ring)
		}
	}
	return rings
}

func tagPrimitive(p *Primitive, op *Operation, group *OffsetGroup) *Primitive {
	props := p.Props
	props.OperationID = op.ID
	props.Pass = group.Pass
	props.Distance = group.Distance
	props.OffsetType = group.OffsetType
	if group.UnionFailed {
		props.UnionFailed = true
	}
	return p.WithProps(props)
}

func offsetType(distance float64) OffsetType {
	if distance < 0.0 {
		return OffsetInternal
	}
	return OffsetExternal
}

// combineGroups flattens every pass into one group so a single continuous
// toolpath can cover all stand-off distances.
func combineGroups(groups []*OffsetGroup) *OffsetGroup {
	combined := &OffsetGroup{
		Combined:     true,
		Distance:     groups[0].Distance,
		OffsetType:   groups[0].OffsetType,
		ToolDiameter: groups[0].ToolDiameter,
		Timestamp:    time.Now().UnixMilli(),
	}
	for _, g := range groups {
		combined.Primitives = append(combined.Primitives, g.Primitives...)
		combined.SourceCount += g.SourceCount
		combined.OffsetCount += g.OffsetCount
		combined.UnionCount += g.UnionCount
		combined.FinalCount += g.FinalCount
		if g.UnionFailed {
			combined.UnionFailed = true
		}
	}
	return combined
}
