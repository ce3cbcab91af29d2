package easytrace

import (
	"fmt"
	"testing"

	"github.com/tdewolff/test"
)

func TestOffsetDistances(t *testing.T) {
	tests := []struct {
		typ       OperationType
		tool      float64
		passes    int
		stepOver  float64
		distances []float64
	}{
		{Isolation, 0.2, 3, 50.0, []float64{0.1, 0.2, 0.3}},
		{Clearing, 0.2, 3, 50.0, []float64{-0.1, -0.2, -0.3}},
		{Isolation, 0.2, 1, 50.0, []float64{0.1}},
		{Isolation, 1.0, 2, 25.0, []float64{0.5, 1.25}},
		{Cutout, 2.0, 1, 50.0, []float64{1.0}},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			ds := offsetDistances(tt.typ, tt.tool, tt.passes, tt.stepOver)
			test.T(t, len(ds), len(tt.distances))
			for j := range ds {
				test.Float(t, ds[j], tt.distances[j])
			}
		})
	}
}

func TestDepthLevels(t *testing.T) {
	tests := []struct {
		multi bool
		cut   float64
		step  float64
		zs    []float64
	}{
		{true, -1.8, 0.5, []float64{-0.5, -1.0, -1.5, -1.8}},
		{false, -1.8, 0.5, []float64{-1.8}},
		{true, -1.0, 0.5, []float64{-0.5, -1.0}},
		{true, -0.3, 0.5, []float64{-0.3}},
		{true, -1.8, 0.0, []float64{-1.8}},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			zs := depthLevels(tt.multi, tt.cut, tt.step)
			test.T(t, len(zs), len(tt.zs))
			for j := range zs {
				test.Float(t, zs[j], tt.zs[j])
			}
		})
	}
}

func TestBuildContext(t *testing.T) {
	op := &Operation{ID: "iso", Type: Isolation, Settings: DefaultOperationSettings()}
	op.Settings.ToolDiameter = 0.2
	op.Settings.Passes = 3
	op.Settings.StepOver = 50.0

	ctx, err := BuildContext(op, DefaultMachineSettings())
	test.Error(t, err)
	test.T(t, ctx.Tool.Diameter, 0.2)
	test.T(t, len(ctx.OffsetDistances), 3)
	test.Float(t, ctx.OffsetDistances[2], 0.3)
	test.T(t, len(ctx.DepthLevels), 1)

	op.Settings.ToolDiameter = 0.0
	_, err = BuildContext(op, DefaultMachineSettings())
	test.That(t, err != nil)
}

func TestBuildContextClampsPasses(t *testing.T) {
	op := &Operation{ID: "iso", Type: Isolation, Settings: DefaultOperationSettings()}
	op.Settings.ToolDiameter = 0.2
	op.Settings.Passes = 0

	ctx, err := BuildContext(op, DefaultMachineSettings())
	test.Error(t, err)
	test.T(t, ctx.Passes, 1)
	test.T(t, len(ctx.OffsetDistances), 1)
}

func TestBuildContextDefaultsOffset(t *testing.T) {
	// decoded settings may leave the offset block entirely unset
	op := &Operation{ID: "iso", Type: Isolation, Settings: DefaultOperationSettings()}
	op.Settings.ToolDiameter = 0.2
	op.Settings.Offset = OffsetSettings{}

	ctx, err := BuildContext(op, DefaultMachineSettings())
	test.Error(t, err)
	def := DefaultOffsetSettings()
	test.Float(t, ctx.Offset.ArcTolerance, def.ArcTolerance)
	test.Float(t, ctx.Offset.MinFeatureSize, def.MinFeatureSize)
	test.Float(t, ctx.Offset.MiterLimit, def.MiterLimit)
}
