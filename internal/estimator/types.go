package estimator

// InputMode selects whether SheetSize or BoxDimensions drives the sheet geometry.
type InputMode string

const (
	InputSheetSize     InputMode = "sheet_size"
	InputBoxDimensions InputMode = "box_dimensions"
)

// BoxType identifies the die layout used to unfold a box into a sheet.
type BoxType string

const (
	BoxUniversal     BoxType = "Universal"
	BoxBottomLocking BoxType = "Bottom_Locking"
	BoxMobileType    BoxType = "Mobile_Type"
	BoxRingFlap      BoxType = "Ring_Flap"
)

// PaperQuality is a paper grade. Its price per kg lives in a RateCard, not in the type.
type PaperQuality string

const (
	QualityKraft         PaperQuality = "Kraft"
	QualityKraft80       PaperQuality = "Kraft80"
	QualityDuplex        PaperQuality = "Duplex"
	QualityGolden        PaperQuality = "Golden"
	QualityDuplex160     PaperQuality = "Duplex160"
	QualityPrePrinted    PaperQuality = "PrePrinted"
	QualityGolden180     PaperQuality = "Golden180"
	QualityKraftImported PaperQuality = "KraftImported"
)

// PaperQualities lists every known grade in display order.
var PaperQualities = []PaperQuality{
	QualityKraft,
	QualityKraft80,
	QualityDuplex,
	QualityGolden,
	QualityDuplex160,
	QualityPrePrinted,
	QualityGolden180,
	QualityKraftImported,
}

// SheetSize is a flat corrugated sheet in centimetres.
type SheetSize struct {
	Length float64 `json:"length" yaml:"length"`
	Width  float64 `json:"width" yaml:"width"`
	Units  string  `json:"units,omitempty" yaml:"units,omitempty"`
}

// BoxDimensions is the finished box size in inches.
type BoxDimensions struct {
	Length float64 `json:"length" yaml:"length"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Units  string  `json:"units,omitempty" yaml:"units,omitempty"`
}

// PaperProperties describes the board plies ordered from backing to top.
type PaperProperties struct {
	PaperWeight  []float64      `json:"paper_weight" yaml:"paper_weight" validate:"required"`
	PaperQuality []PaperQuality `json:"paper_quality" yaml:"paper_quality" validate:"required"`
	PlyNum       int            `json:"ply_num" yaml:"ply_num" validate:"min=3"`
}

type OrderDetails struct {
	NumberOfBoxes int `json:"number_of_boxes" yaml:"number_of_boxes" validate:"min=1"`
	// BoxPerSheet of zero is treated as one.
	BoxPerSheet int `json:"box_per_sheet" yaml:"box_per_sheet" validate:"min=0"`
}

type ManufacturingProcesses struct {
	IsPasting    bool `json:"is_pasting" yaml:"is_pasting"`
	IsPunching   bool `json:"is_punching" yaml:"is_punching"`
	IsScoring    bool `json:"is_scoring" yaml:"is_scoring"`
	IsLaminated  bool `json:"is_laminated" yaml:"is_laminated"`
	IsPrinted    bool `json:"is_printed" yaml:"is_printed"`
	IsHandPasted bool `json:"is_hand_pasted" yaml:"is_hand_pasted"`
	IsNF         bool `json:"is_nf" yaml:"is_nf"`
	PinsPerBox   int  `json:"pins_per_box" yaml:"pins_per_box" validate:"min=0"`
}

type Costs struct {
	TransportationCostPerBox float64 `json:"transportation_cost_per_box" yaml:"transportation_cost_per_box" validate:"min=0"`
}

// BoxSpecification is the full physical and process description of a box order.
// The validate tags are a coarse pre-check for transports; Estimate enforces the full rules.
type BoxSpecification struct {
	InputMode              InputMode              `json:"input_type" yaml:"input_type" validate:"required,oneof=sheet_size box_dimensions"`
	SheetSize              *SheetSize             `json:"sheet_size,omitempty" yaml:"sheet_size,omitempty"`
	BoxDimensions          BoxDimensions          `json:"box_dimensions" yaml:"box_dimensions"`
	BoxType                BoxType                `json:"box_type" yaml:"box_type" validate:"required"`
	PaperProperties        PaperProperties        `json:"paper_properties" yaml:"paper_properties"`
	OrderDetails           OrderDetails           `json:"order_details" yaml:"order_details"`
	ManufacturingProcesses ManufacturingProcesses `json:"manufacturing_processes" yaml:"manufacturing_processes"`
	Costs                  Costs                  `json:"costs" yaml:"costs"`
}

// boxesPerSheet returns BoxPerSheet with the zero value defaulted to one.
func (o OrderDetails) boxesPerSheet() int {
	if o.BoxPerSheet == 0 {
		return 1
	}
	return o.BoxPerSheet
}
