package estimator

import "strconv"

// PlyCost is the weight and cost of one paper layer of a single sheet.
type PlyCost struct {
	Position        string       `json:"position"`
	Quality         PaperQuality `json:"quality"`
	WeightGSM       float64      `json:"weight_gsm"`
	WeightKg        float64      `json:"weight_kg"`
	QualityRate     float64      `json:"quality_rate"`
	MaterialCost    float64      `json:"material_cost"`
	Fluting         bool         `json:"fluting"`
	CorrugationCost float64      `json:"corrugation_cost"`
}

// Breakdown itemizes every cost contribution. Sheet-level amounts are per sheet;
// everything from SheetCostPerBox down is per box.
type Breakdown struct {
	MaterialCost    float64 `json:"material_cost"`
	CorrugationCost float64 `json:"corrugation_cost"`
	PastingCost     float64 `json:"pasting_cost"`
	RawSheetCost    float64 `json:"raw_sheet_cost"`
	WastageCost     float64 `json:"wastage_cost"`
	SheetCost       float64 `json:"sheet_cost"`

	SheetCostPerBox    float64 `json:"sheet_cost_per_box"`
	PunchingCost       float64 `json:"punching_cost"`
	ScoringCost        float64 `json:"scoring_cost"`
	LaminationCost     float64 `json:"lamination_cost"`
	PrintingCost       float64 `json:"printing_cost"`
	PrintingRunCost    float64 `json:"printing_run_cost"`
	HandPastingCost    float64 `json:"hand_pasting_cost"`
	PinCost            float64 `json:"pin_cost"`
	TransportationCost float64 `json:"transportation_cost"`
}

// Result is the outcome of one estimate. It is never mutated after Estimate returns.
type Result struct {
	Tier          int           `json:"tier"`
	InputMode     InputMode     `json:"input_mode"`
	BoxType       BoxType       `json:"box_type"`
	BoxDimensions BoxDimensions `json:"box_dimensions"`
	Sheet         Sheet         `json:"sheet"`
	NumberOfBoxes int           `json:"number_of_boxes"`
	BoxPerSheet   int           `json:"box_per_sheet"`

	Plies                []PlyCost `json:"plies"`
	TotalSheetWeightKg   float64   `json:"total_sheet_weight_kg"`
	Breakdown            Breakdown `json:"breakdown"`
	ManufacturingCostBox float64   `json:"manufacturing_cost_per_box"`
	TierMultiplier       float64   `json:"tier_multiplier"`
	CostPerBox           float64   `json:"cost_per_box"`
	TotalOrderCost       float64   `json:"total_order_cost"`
}

// plyPosition names ply i of an n-ply board, counted from the backing liner.
// Odd inner plies are fluting media, even inner plies are liners.
func plyPosition(i, n int) string {
	switch {
	case i == 0:
		return "backing"
	case i == n-1:
		return "top"
	}
	kind := "liner"
	if isFluting(i, n) {
		kind = "fluting"
	}
	// 1,2 -> first of their kind; 3,4 -> second.
	if nth := (i + 1) / 2; nth > 1 {
		return kind + "_" + strconv.Itoa(nth)
	}
	return kind
}

func isFluting(i, n int) bool {
	return i%2 == 1 && i != n-1
}
