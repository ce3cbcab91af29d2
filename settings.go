package easytrace

// JoinType selects the corner treatment for polygon offsetting.
type JoinType int

const (
	JoinRound JoinType = iota
	JoinMiter
	JoinSquare
)

// OffsetSettings configures generic polygon offsetting for primitives that
// cannot be offset analytically.
type OffsetSettings struct {
	Join           JoinType
	MiterLimit     float64
	ArcTolerance   float64 // maximum sagitta deviation in mm when flattening round joins
	MinFeatureSize float64 // features smaller than this collapse to nothing
}

// DefaultOffsetSettings returns offset settings suited for 0.1..3mm tooling.
func DefaultOffsetSettings() OffsetSettings {
	return OffsetSettings{
		Join:           JoinRound,
		MiterLimit:     2.0,
		ArcTolerance:   0.005,
		MinFeatureSize: 0.01,
	}
}

// OperationSettings are the per-operation parameters resolved into a
// ToolpathContext before toolpath generation. They survive across sessions in
// an external key-value store; the core only consumes the decoded struct.
type OperationSettings struct {
	ToolDiameter float64 `json:"toolDiameter"`
	ToolNumber   int     `json:"toolNumber"`
	Passes       int     `json:"passes"`
	StepOver     float64 `json:"stepOver"` // percent overlap of the tool diameter, 0..100

	Feed         float64 `json:"feed"`
	PlungeFeed   float64 `json:"plungeFeed"`
	SpindleSpeed float64 `json:"spindleSpeed"`

	MultiDepth   bool    `json:"multiDepth"`
	CutDepth     float64 `json:"cutDepth"` // negative, mm below the surface
	DepthPerPass float64 `json:"depthPerPass"`

	CombineOffsets bool `json:"combineOffsets"`

	// drill strategy
	AllowMilling     bool    `json:"allowMilling"`
	MinMillingMargin float64 `json:"minMillingMargin"`

	// cutout tabs
	Tabs TabSettings `json:"tabs"`

	Offset OffsetSettings `json:"offset"`
}

// TabSettings configures holding tabs on cutout paths.
type TabSettings struct {
	Enabled    bool    `json:"enabled"`
	Height     float64 `json:"height"`     // tab height above the cut depth, mm
	Width      float64 `json:"width"`      // tab length along the path, mm
	MinSpacing float64 `json:"minSpacing"` // minimum spacing as a multiple of the tool diameter
	Spacing    float64 `json:"spacing"`    // desired spacing between tabs, mm
	CornerMax  float64 `json:"cornerMax"`  // skip tab positions where the path bends more than this, radians
}

// DefaultOperationSettings returns per-operation defaults for an isolation job
// with a 0.2mm V-bit.
func DefaultOperationSettings() OperationSettings {
	return OperationSettings{
		ToolDiameter:     0.2,
		ToolNumber:       1,
		Passes:           1,
		StepOver:         50.0,
		Feed:             120.0,
		PlungeFeed:       60.0,
		SpindleSpeed:     10000.0,
		MultiDepth:       false,
		CutDepth:         -0.1,
		DepthPerPass:     0.1,
		AllowMilling:     true,
		MinMillingMargin: 0.05,
		Tabs: TabSettings{
			Height:     0.5,
			Width:      2.0,
			MinSpacing: 10.0,
			Spacing:    40.0,
			CornerMax:  0.5,
		},
		Offset: DefaultOffsetSettings(),
	}
}

// MachineSettings are global parameters shared by all operations.
type MachineSettings struct {
	SafeZ   float64 `json:"safeZ"`   // full retract height, mm
	TravelZ float64 `json:"travelZ"` // reduced clearance height for short hops, mm

	// rapid hops shorter than this stay at TravelZ instead of SafeZ
	ShortTravel float64 `json:"shortTravel"`

	RapidFeed float64 `json:"rapidFeed"`

	// integer units per mm for the boolean engine
	Scale float64 `json:"scale"`

	// decimal places used to quantize stitcher endpoints and registry hashes
	Precision int `json:"precision"`
}

// DefaultMachineSettings returns machine defaults with the boolean engine at
// 10000 units/mm, ie. 0.0001mm resolution.
func DefaultMachineSettings() MachineSettings {
	return MachineSettings{
		SafeZ:       5.0,
		TravelZ:     1.0,
		ShortTravel: 5.0,
		RapidFeed:   1000.0,
		Scale:       1e4,
		Precision:   3,
	}
}
