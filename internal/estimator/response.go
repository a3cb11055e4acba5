package estimator

// SheetReport is the resolved sheet in both unit systems.
type SheetReport struct {
	LengthCm float64 `json:"length_cm"`
	WidthCm  float64 `json:"width_cm"`
	LengthIn float64 `json:"length_in"`
	WidthIn  float64 `json:"width_in"`
}

// CostBreakdown is the customer-facing itemization: per-ply rows plus every surcharge.
type CostBreakdown struct {
	Plies []PlyCost `json:"plies"`
	Breakdown
	TierMultiplier float64 `json:"tier_multiplier"`
}

// Response is the quote document returned to customers and stored with a quote.
type Response struct {
	UserID            string             `json:"user_id"`
	UserTier          int                `json:"user_tier"`
	InputMode         InputMode          `json:"input_mode"`
	BoxType           BoxType            `json:"box_type"`
	BoxDimensions     BoxDimensions      `json:"box_dimensions"`
	SheetSize         SheetReport        `json:"sheet_size"`
	SheetArea         float64            `json:"sheet_area"`
	SheetWeight       map[string]float64 `json:"sheet_weight"`
	CostBreakdown     CostBreakdown      `json:"cost_breakdown"`
	NumberOfBoxes     int                `json:"number_of_boxes"`
	ManufacturingCost float64            `json:"manufacturing_cost"`
	CostPerBox        float64            `json:"cost_per_box"`
	TotalOrderCost    float64            `json:"total_order_cost"`
}

// Response packages r for userID. Box dimensions are echoed exactly as supplied.
func (r Result) Response(userID string) Response {
	weights := make(map[string]float64, len(r.Plies))
	plies := make([]PlyCost, len(r.Plies))
	for i, p := range r.Plies {
		weights[p.Position] = p.WeightKg
		plies[i] = p
	}

	return Response{
		UserID:        userID,
		UserTier:      r.Tier,
		InputMode:     r.InputMode,
		BoxType:       r.BoxType,
		BoxDimensions: r.BoxDimensions,
		SheetSize: SheetReport{
			LengthCm: r.Sheet.LengthCm,
			WidthCm:  r.Sheet.WidthCm,
			LengthIn: r.Sheet.LengthIn,
			WidthIn:  r.Sheet.WidthIn,
		},
		SheetArea:   r.Sheet.AreaM2,
		SheetWeight: weights,
		CostBreakdown: CostBreakdown{
			Plies:          plies,
			Breakdown:      r.Breakdown,
			TierMultiplier: r.TierMultiplier,
		},
		NumberOfBoxes:     r.NumberOfBoxes,
		ManufacturingCost: r.ManufacturingCostBox,
		CostPerBox:        r.CostPerBox,
		TotalOrderCost:    r.TotalOrderCost,
	}
}
