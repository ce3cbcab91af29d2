package easytrace

import (
	"fmt"
	"math"
)

// depthEpsilon tolerates floating-point drift when stepping depth levels.
const depthEpsilon = 1e-6

// Tool describes the cutter resolved for one operation.
type Tool struct {
	Number   int
	Diameter float64
}

// ToolpathContext is the immutable snapshot of every parameter toolpath
// generation needs: resolved tool, feeds, strategies, computed offset
// distances and depth levels, and the global machine settings. It is built
// once per generation request and consumed read-only.
type ToolpathContext struct {
	OperationID string
	Type        OperationType

	Tool         Tool
	Feed         float64
	PlungeFeed   float64
	SpindleSpeed float64

	Passes   int
	StepOver float64
	Combine  bool

	MultiDepth   bool
	CutDepth     float64
	DepthPerPass float64

	AllowMilling     bool
	MinMillingMargin float64

	Tabs TabSettings

	OffsetDistances []float64
	DepthLevels     []float64

	Offset  OffsetSettings
	Machine MachineSettings
}

// BuildContext resolves the operation's settings and the global machine
// settings into a toolpath context. It is total and side-effect-free: neither
// the operation nor the settings are mutated, so contexts can be rebuilt
// freely after live parameter edits.
func BuildContext(op *Operation, machine MachineSettings) (*ToolpathContext, error) {
	s := op.Settings
	if s.ToolDiameter <= 0.0 {
		return nil, fmt.Errorf("operation %s: tool diameter %g must be positive", op.ID, s.ToolDiameter)
	}
	passes := s.Passes
	if passes < 1 {
		passes = 1
	}
	offset, def := s.Offset, DefaultOffsetSettings()
	if offset.ArcTolerance <= 0.0 {
		// a zero tolerance degenerates arc flattening into coarse polygons
		offset.ArcTolerance = def.ArcTolerance
	}
	if offset.MinFeatureSize <= 0.0 {
		offset.MinFeatureSize = def.MinFeatureSize
	}
	if offset.MiterLimit <= 0.0 {
		offset.MiterLimit = def.MiterLimit
	}

	ctx := &ToolpathContext{
		OperationID:      op.ID,
		Type:             op.Type,
		Tool:             Tool{Number: s.ToolNumber, Diameter: s.ToolDiameter},
		Feed:             s.Feed,
		PlungeFeed:       s.PlungeFeed,
		SpindleSpeed:     s.SpindleSpeed,
		Passes:           passes,
		StepOver:         s.StepOver,
		Combine:          s.CombineOffsets,
		MultiDepth:       s.MultiDepth,
		CutDepth:         s.CutDepth,
		DepthPerPass:     s.DepthPerPass,
		AllowMilling:     s.AllowMilling,
		MinMillingMargin: s.MinMillingMargin,
		Tabs:             s.Tabs,
		Offset:           offset,
		Machine:          machine,
	}
	ctx.OffsetDistances = offsetDistances(op.Type, s.ToolDiameter, passes, s.StepOver)
	ctx.DepthLevels = depthLevels(s.MultiDepth, s.CutDepth, s.DepthPerPass)
	return ctx, nil
}

// offsetDistances returns one stand-off distance per pass: half the tool
// diameter for the first pass, then stepping outward by the uncovered fraction
// of the tool. Clearing operations offset inward, all others outward.
func offsetDistances(typ OperationType, toolDiameter float64, passes int, stepOver float64) []float64 {
	sign := 1.0
	if typ == Clearing {
		sign = -1.0
	}
	step := toolDiameter * (1.0 - stepOver/100.0)
	distances := make([]float64, passes)
	for i := 0; i < passes; i++ {
		distances[i] = sign * (toolDiameter/2.0 + float64(i)*step)
	}
	return distances
}

// depthLevels returns the Z levels to cut at, stepping down by depthPerPass
// and always terminating exactly at cutDepth.
func depthLevels(multiDepth bool, cutDepth, depthPerPass float64) []float64 {
	if !multiDepth || math.Abs(cutDepth) <= depthPerPass || depthPerPass <= 0.0 {
		return []float64{cutDepth}
	}
	var levels []float64
	z := 0.0
	for depthPerPass+depthEpsilon < math.Abs(cutDepth-z) {
		z -= depthPerPass
		levels = append(levels, z)
	}
	return append(levels, cutDepth)
}
