// Package gcode serializes machine plans to RS-274 G-code.
package gcode

import (
	"fmt"
	"io"

	easytrace "github.com/RicardoJCMarques/EasyTrace5000-sub000"
)

// Dialect selects the post-processor flavor.
type Dialect int

const (
	// DialectLinuxCNC writes parenthesized comments and a G64 blend preamble.
	DialectLinuxCNC Dialect = iota
	// DialectGRBL writes semicolon comments and skips words GRBL rejects.
	DialectGRBL
	// DialectMarlin is GRBL-like but keeps the fan M-codes for the vacuum.
	DialectMarlin
)

// Units selects the output coordinate units.
type Units int

const (
	UnitsMM Units = iota
	UnitsInch
)

const mmPerInch = 25.4

// Options configures the serializer.
type Options struct {
	Dialect   Dialect
	Units     Units
	Precision int  // coordinate decimals, default 3
	Spindle   bool // M3/M5 around the job
	Coolant   bool // M8/M9 around the job
	Vacuum    bool // M7/M9 (Marlin: M106/M107) around the job
	ToolPause bool // M0 after each tool change
	Header    string
}

// Writer streams plans as G-code. Errors are sticky; check Err or the return
// of Flush-like calls once at the end.
type Writer struct {
	w    io.Writer
	opts Options
	err  error

	coord        string // fmt verb for coordinates
	feedOn       float64
	tool         int
	began        bool
	lastKind     easytrace.MoveKind
	fromX, fromY float64 // current XY in mm, for arc IJ offsets
}

// NewWriter returns a writer serializing to w.
func NewWriter(w io.Writer, opts Options) *Writer {
	if opts.Precision <= 0 {
		opts.Precision = 3
	}
	return &Writer{
		w:        w,
		opts:     opts,
		coord:    fmt.Sprintf("%%.%df", opts.Precision),
		tool:     -1,
		lastKind: -1,
	}
}

func (g *Writer) printf(format string, args ...interface{}) {
	if g.err != nil {
		return
	}
	_, g.err = fmt.Fprintf(g.w, format, args...)
}

func (g *Writer) comment(s string) {
	if g.opts.Dialect == DialectLinuxCNC {
		g.printf("(%s)\n", s)
	} else {
		g.printf("; %s\n", s)
	}
}

func (g *Writer) num(v float64) string {
	if g.opts.Units == UnitsInch {
		v /= mmPerInch
	}
	return fmt.Sprintf(g.coord, v)
}

// Preamble writes the job header: units, absolute mode, XY plane, and the
// configured accessory M-codes.
func (g *Writer) Preamble() {
	if g.opts.Header != "" {
		g.comment(g.opts.Header)
	}
	if g.opts.Units == UnitsInch {
		g.printf("G20\n")
	} else {
		g.printf("G21\n")
	}
	g.printf("G90\nG17\n")
	if g.opts.Dialect == DialectLinuxCNC {
		g.printf("G64 P%s\n", g.num(0.01))
	}
	if g.opts.Coolant {
		g.printf("M8\n")
	}
	if g.opts.Vacuum {
		if g.opts.Dialect == DialectMarlin {
			g.printf("M106\n")
		} else {
			g.printf("M7\n")
		}
	}
}

// Postamble stops the spindle and accessories and ends the program.
func (g *Writer) Postamble() error {
	if g.began && g.opts.Spindle {
		g.printf("M5\n")
	}
	if g.opts.Coolant || (g.opts.Vacuum && g.opts.Dialect != DialectMarlin) {
		g.printf("M9\n")
	}
	if g.opts.Vacuum && g.opts.Dialect == DialectMarlin {
		g.printf("M107\n")
	}
	g.printf("M2\n")
	return g.err
}

// WritePlan serializes one operation plan, inserting a tool change and
// spindle restart when the tool differs from the previous plan's.
func (g *Writer) WritePlan(plan *easytrace.Plan) error {
	if plan.OperationID != "" {
		g.comment(plan.OperationID)
	}
	g.toolChange(plan)

	for _, m := range plan.Moves {
		g.move(m)
	}
	return g.err
}

func (g *Writer) toolChange(plan *easytrace.Plan) {
	if plan.Tool.Number == g.tool && g.began {
		return
	}
	if g.began && g.opts.Spindle {
		g.printf("M5\n")
	}
	if plan.Tool.Number != g.tool && 0 < plan.Tool.Number {
		g.printf("T%d M6\n", plan.Tool.Number)
		if g.opts.ToolPause {
			g.printf("M0\n")
		}
	}
	if g.opts.Spindle {
		if 0.0 < plan.SpindleSpeed {
			g.printf("M3 S%.0f\n", plan.SpindleSpeed)
		} else {
			g.printf("M3\n")
		}
	}
	g.tool = plan.Tool.Number
	g.began = true
	g.lastKind = -1
	g.feedOn = 0.0
}

func (g *Writer) move(m easytrace.Move) {
	switch m.Kind {
	case easytrace.MoveRapid:
		g.printf("G0 X%s Y%s Z%s\n", g.num(m.To.X), g.num(m.To.Y), g.num(m.Z))

	case easytrace.MoveLinear:
		g.printf("G1 X%s Y%s Z%s%s\n", g.num(m.To.X), g.num(m.To.Y), g.num(m.Z), g.feed(m))

	case easytrace.MoveArcCW, easytrace.MoveArcCCW:
		code := "G2"
		if m.Kind == easytrace.MoveArcCCW {
			code = "G3"
		}
		i := m.Center.X - g.fromX
		j := m.Center.Y - g.fromY
		g.printf("%s X%s Y%s I%s J%s Z%s%s\n",
			code, g.num(m.To.X), g.num(m.To.Y), g.num(i), g.num(j), g.num(m.Z), g.feed(m))
	}
	g.lastKind = m.Kind
	g.fromX, g.fromY = m.To.X, m.To.Y
}

// feed emits the F word only when the feed rate changes. Rapids reset the
// modal feed on some controllers, so the first cut after a rapid repeats it.
func (g *Writer) feed(m easytrace.Move) string {
	if m.Feed <= 0.0 {
		return ""
	}
	if m.Feed == g.feedOn && g.lastKind != easytrace.MoveRapid {
		return ""
	}
	g.feedOn = m.Feed
	f := m.Feed
	if g.opts.Units == UnitsInch {
		f /= mmPerInch
	}
	return fmt.Sprintf(" F%.1f", f)
}

// Write serializes a whole job: preamble, each plan in order, postamble.
func Write(w io.Writer, opts Options, plans []*easytrace.Plan) error {
	g := NewWriter(w, opts)
	g.Preamble()
	for _, plan := range plans {
		if err := g.WritePlan(plan); err != nil {
			return err
		}
	}
	return g.Postamble()
}
