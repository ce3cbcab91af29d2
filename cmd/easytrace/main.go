package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tdewolff/argp"

	easytrace "github.com/RicardoJCMarques/EasyTrace5000-sub000"
	"github.com/RicardoJCMarques/EasyTrace5000-sub000/gcode"
)

type Run struct {
	Output  string `short:"o" desc:"Output G-code filename, - for stdout"`
	Post    string `default:"linuxcnc" desc:"Post-processor dialect: linuxcnc, grbl, marlin"`
	Inches  bool   `desc:"Emit coordinates in inches"`
	Spindle bool   `default:"true" desc:"Emit spindle start/stop"`
	Coolant bool   `desc:"Emit coolant on/off"`
	Vacuum  bool   `desc:"Emit vacuum on/off"`
	Pause   bool   `desc:"Pause for manual tool changes"`
	Verbose bool   `short:"v" desc:"Log pipeline progress"`
	Job     string `index:"0" desc:"Job file"`
}

type Check struct {
	Verbose bool   `short:"v" desc:"Log pipeline progress"`
	Job     string `index:"0" desc:"Job file"`
}

func main() {
	root := argp.New("PCB isolation routing toolpath generator")
	root.AddCmd(&Run{}, "run", "Generate G-code from a job file")
	root.AddCmd(&Check{}, "check", "Validate a job file and report warnings")
	root.Parse()
	root.PrintHelp()
}

func (cmd *Run) Run() error {
	if cmd.Job == "" {
		return argp.ShowUsage
	}
	if cmd.Verbose {
		easytrace.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	job, err := loadJob(cmd.Job)
	if err != nil {
		return err
	}
	plans, warnings, err := job.execute()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w.Message)
	}

	opts := gcode.Options{
		Precision: job.Machine.Precision,
		Spindle:   cmd.Spindle,
		Coolant:   cmd.Coolant,
		Vacuum:    cmd.Vacuum,
		ToolPause: cmd.Pause,
		Header:    "easytrace " + cmd.Job,
	}
	if cmd.Inches {
		opts.Units = gcode.UnitsInch
	}
	switch strings.ToLower(cmd.Post) {
	case "linuxcnc":
		opts.Dialect = gcode.DialectLinuxCNC
	case "grbl":
		opts.Dialect = gcode.DialectGRBL
	case "marlin":
		opts.Dialect = gcode.DialectMarlin
	default:
		return fmt.Errorf("unknown post-processor %q", cmd.Post)
	}

	out := os.Stdout
	if cmd.Output != "" && cmd.Output != "-" {
		f, err := os.Create(cmd.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return gcode.Write(out, opts, plans)
}

func (cmd *Check) Run() error {
	if cmd.Job == "" {
		return argp.ShowUsage
	}
	if cmd.Verbose {
		easytrace.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	job, err := loadJob(cmd.Job)
	if err != nil {
		return err
	}
	_, warnings, err := job.execute()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w.Message)
	}
	fmt.Printf("%d operations OK, %d warnings\n", len(job.Operations), len(warnings))
	return nil
}

////////////////////////////////////////////////////////////////

type jobFile struct {
	Machine    easytrace.MachineSettings `json:"machine"`
	Start      easytrace.MachinePosition `json:"start"`
	Operations []jobOperation            `json:"operations"`
}

type jobOperation struct {
	ID       string                      `json:"id"`
	Type     string                      `json:"type"` // isolation, clearing, drill, cutout
	Settings easytrace.OperationSettings `json:"settings"`
	Shapes   []jobShape                  `json:"shapes"`
}

// UnmarshalJSON seeds the operation settings with defaults so a job file only
// needs to list the parameters it overrides.
func (jop *jobOperation) UnmarshalJSON(b []byte) error {
	type alias jobOperation
	a := alias{Settings: easytrace.DefaultOperationSettings()}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*jop = jobOperation(a)
	return nil
}

type jobShape struct {
	Kind     string      `json:"kind"` // circle, rect, obround, path, arc
	Center   []float64   `json:"center,omitempty"`
	Radius   float64     `json:"radius,omitempty"`
	W        float64     `json:"w,omitempty"`
	H        float64     `json:"h,omitempty"`
	Points   [][]float64 `json:"points,omitempty"`
	Closed   bool        `json:"closed,omitempty"`
	Theta0   float64     `json:"theta0,omitempty"`
	Theta1   float64     `json:"theta1,omitempty"`
	CW       bool        `json:"cw,omitempty"`
	Polarity string      `json:"polarity,omitempty"` // dark (default), clear
	Role     string      `json:"role,omitempty"`     // hole, slot, outline
}

func loadJob(filename string) (*jobFile, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	job := &jobFile{Machine: easytrace.DefaultMachineSettings()}
	if err := json.Unmarshal(b, job); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if len(job.Operations) == 0 {
		return nil, fmt.Errorf("%s: no operations", filename)
	}
	job.Start.Z = job.Machine.SafeZ
	return job, nil
}

// execute runs the full pipeline for each operation in file order, threading
// the machine position across them.
func (job *jobFile) execute() ([]*easytrace.Plan, []easytrace.Warning, error) {
	pipeline, err := easytrace.NewPipeline(job.Machine)
	if err != nil {
		return nil, nil, err
	}
	optimizer := easytrace.NewOptimizer(job.Start)

	var plans []*easytrace.Plan
	var warnings []easytrace.Warning
	for i := range job.Operations {
		op, err := job.Operations[i].build()
		if err != nil {
			return nil, nil, err
		}
		ctx, err := easytrace.BuildContext(op, job.Machine)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op.ID, err)
		}
		if err := pipeline.Run(op, ctx); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op.ID, err)
		}
		warnings = append(warnings, op.Warnings...)
		plans = append(plans, optimizer.Process(op, ctx))
	}
	return plans, warnings, nil
}

func (jop *jobOperation) build() (*easytrace.Operation, error) {
	op := &easytrace.Operation{ID: jop.ID, Settings: jop.Settings}
	switch strings.ToLower(jop.Type) {
	case "isolation":
		op.Type = easytrace.Isolation
	case "clearing":
		op.Type = easytrace.Clearing
	case "drill":
		op.Type = easytrace.Drill
	case "cutout":
		op.Type = easytrace.Cutout
	default:
		return nil, fmt.Errorf("%s: unknown operation type %q", jop.ID, jop.Type)
	}
	for i := range jop.Shapes {
		p, err := jop.Shapes[i].build(op.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: shape %d: %w", jop.ID, i, err)
		}
		op.Primitives = append(op.Primitives, p)
	}
	if len(op.Primitives) == 0 {
		return nil, fmt.Errorf("%s: no shapes", jop.ID)
	}
	return op, nil
}

func (s *jobShape) build(typ easytrace.OperationType) (*easytrace.Primitive, error) {
	center := easytrace.Point{}
	if 2 <= len(s.Center) {
		center = easytrace.Point{X: s.Center[0], Y: s.Center[1]}
	}

	var p *easytrace.Primitive
	switch strings.ToLower(s.Kind) {
	case "circle":
		if s.Radius <= 0.0 {
			return nil, fmt.Errorf("circle needs a positive radius")
		}
		p = easytrace.NewCircle(center, s.Radius)
	case "rect":
		p = easytrace.NewRect(center, s.W, s.H)
	case "obround":
		p = easytrace.NewObround(center, s.W, s.H)
	case "arc":
		p = easytrace.NewArc(center, s.Radius, s.Theta0, s.Theta1, s.CW)
	case "path":
		if len(s.Points) < 2 {
			return nil, fmt.Errorf("path needs at least two points")
		}
		pts := make([]easytrace.Point, len(s.Points))
		for i, xy := range s.Points {
			if len(xy) != 2 {
				return nil, fmt.Errorf("point %d must be [x, y]", i)
			}
			pts[i] = easytrace.Point{X: xy[0], Y: xy[1]}
		}
		p = easytrace.NewPath(pts, s.Closed)
	default:
		return nil, fmt.Errorf("unknown shape kind %q", s.Kind)
	}

	if strings.ToLower(s.Polarity) == "clear" {
		p.Props.Polarity = easytrace.Clear
	}
	switch strings.ToLower(s.Role) {
	case "hole":
		p.Props.Role = easytrace.RoleDrillHole
	case "slot":
		p.Props.Role = easytrace.RoleDrillSlot
	case "outline":
		p.Props.Role = easytrace.RoleOutline
	case "":
		if typ == easytrace.Drill {
			if p.Kind == easytrace.KindObround {
				p.Props.Role = easytrace.RoleDrillSlot
			} else {
				p.Props.Role = easytrace.RoleDrillHole
			}
		}
	default:
		return nil, fmt.Errorf("unknown role %q", s.Role)
	}
	return p, nil
}
