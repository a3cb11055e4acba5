package estimator

import "math"

// MaxTier is the highest customer pricing tier.
const MaxTier = 4

// RateCard holds every price the estimator uses. An Estimator keeps its own deep
// copy, so a card handed to New can be reused or changed by the caller afterwards.
type RateCard struct {
	QualityRates             map[PaperQuality]float64 `json:"quality_rates" yaml:"quality_rates"`
	CorrugationCostPerKg     float64                  `json:"corrugation_cost_per_kg" yaml:"corrugation_cost_per_kg"`
	NFCorrugationCostPerKg   float64                  `json:"nf_corrugation_cost_per_kg" yaml:"nf_corrugation_cost_per_kg"`
	PastingSheetCostPerKg    float64                  `json:"pasting_sheet_cost_per_kg" yaml:"pasting_sheet_cost_per_kg"`
	WastageMultiplier        float64                  `json:"wastage_multiplier" yaml:"wastage_multiplier"`
	LaminationCostPer100SqIn float64                  `json:"lamination_cost_per_100_sq_in" yaml:"lamination_cost_per_100_sq_in"`
	PinningCostPerPin        float64                  `json:"pinning_cost_per_pin" yaml:"pinning_cost_per_pin"`
	ScoringCostPerBox        float64                  `json:"scoring_cost_per_box" yaml:"scoring_cost_per_box"`
	Punching                 TieredRateTable          `json:"punching" yaml:"punching"`
	HandPasting              TieredRateTable          `json:"hand_pasting" yaml:"hand_pasting"`
	Printing                 TieredRateTable          `json:"printing" yaml:"printing"`
	TierMultipliers          []float64                `json:"tier_multipliers" yaml:"tier_multipliers"`
}

// DefaultRateCard returns the published price list.
func DefaultRateCard() RateCard {
	return RateCard{
		QualityRates: map[PaperQuality]float64{
			QualityKraft:         35.50,
			QualityKraft80:       35.0,
			QualityDuplex:        46.0,
			QualityGolden:        37.5,
			QualityDuplex160:     38.5,
			QualityPrePrinted:    0.0,
			QualityGolden180:     39.5,
			QualityKraftImported: 75.0,
		},
		CorrugationCostPerKg:     8,
		NFCorrugationCostPerKg:   10,
		PastingSheetCostPerKg:    2,
		WastageMultiplier:        1.03,
		LaminationCostPer100SqIn: 0.35,
		PinningCostPerPin:        0.1,
		ScoringCostPerBox:        0,
		Punching: TieredRateTable{
			{UpTo: 500, Rate: 1.0},
			{UpTo: 1000, Rate: 0.5},
			{UpTo: 3000, Rate: 0.4},
			{UpTo: 0, Rate: 0.3},
		},
		// Keyed on box count like punching, at a much smaller scale.
		HandPasting: TieredRateTable{
			{UpTo: 10, Rate: 0.3},
			{UpTo: 20, Rate: 0.4},
			{UpTo: 30, Rate: 1.0},
			{UpTo: 0, Rate: 2.0},
		},
		// Total printing cost per run, not per box.
		Printing: TieredRateTable{
			{UpTo: 1000, Rate: 1600},
			{UpTo: 2000, Rate: 2000},
			{UpTo: 3000, Rate: 2400},
			{UpTo: 4000, Rate: 2800},
			{UpTo: 5000, Rate: 3200},
			{UpTo: 6000, Rate: 3600},
			{UpTo: 7000, Rate: 4200},
			{UpTo: 8000, Rate: 4800},
			{UpTo: 9000, Rate: 5400},
			{UpTo: 10000, Rate: 6000},
		},
		TierMultipliers: []float64{1.00, 1.05, 1.10, 1.15, 1.20},
	}
}

// QualityRate returns the price per kg of a paper grade.
func (c RateCard) QualityRate(q PaperQuality) (float64, bool) {
	rate, ok := c.QualityRates[q]
	return rate, ok
}

// TierMultiplier returns the margin multiplier for tier.
func (c RateCard) TierMultiplier(tier int) (float64, bool) {
	if tier < 0 || tier >= len(c.TierMultipliers) {
		return 0, false
	}
	return c.TierMultipliers[tier], true
}

// Validate reports the first inconsistency in the card as an InvalidConfigurationError.
func (c RateCard) Validate() error {
	for _, q := range PaperQualities {
		rate, ok := c.QualityRates[q]
		if !ok {
			return invalidf("rate card: missing rate for paper quality %s", q)
		}
		if !nonNegative(rate) {
			return invalidf("rate card: invalid rate %v for paper quality %s", rate, q)
		}
	}
	scalars := []struct {
		name  string
		value float64
	}{
		{"corrugation_cost_per_kg", c.CorrugationCostPerKg},
		{"nf_corrugation_cost_per_kg", c.NFCorrugationCostPerKg},
		{"pasting_sheet_cost_per_kg", c.PastingSheetCostPerKg},
		{"lamination_cost_per_100_sq_in", c.LaminationCostPer100SqIn},
		{"pinning_cost_per_pin", c.PinningCostPerPin},
		{"scoring_cost_per_box", c.ScoringCostPerBox},
	}
	for _, s := range scalars {
		if !nonNegative(s.value) {
			return invalidf("rate card: %s must be a non-negative number, got %v", s.name, s.value)
		}
	}
	if !nonNegative(c.WastageMultiplier) || c.WastageMultiplier < 1 {
		return invalidf("rate card: wastage_multiplier must be >= 1, got %v", c.WastageMultiplier)
	}
	tables := []struct {
		name  string
		table TieredRateTable
	}{
		{"punching", c.Punching},
		{"hand_pasting", c.HandPasting},
		{"printing", c.Printing},
	}
	for _, t := range tables {
		if err := t.table.validate(t.name); err != nil {
			return invalidf("rate card: %v", err)
		}
	}
	if len(c.TierMultipliers) != MaxTier+1 {
		return invalidf("rate card: expected %d tier multipliers, got %d", MaxTier+1, len(c.TierMultipliers))
	}
	for i, m := range c.TierMultipliers {
		if !nonNegative(m) {
			return invalidf("rate card: invalid multiplier %v for tier %d", m, i)
		}
		if i > 0 && m < c.TierMultipliers[i-1] {
			return invalidf("rate card: tier multipliers must be non-decreasing (tier %d)", i)
		}
	}
	return nil
}

// Clone returns a deep copy of the card.
func (c RateCard) Clone() RateCard {
	out := c
	out.QualityRates = make(map[PaperQuality]float64, len(c.QualityRates))
	for q, rate := range c.QualityRates {
		out.QualityRates[q] = rate
	}
	out.Punching = c.Punching.clone()
	out.HandPasting = c.HandPasting.clone()
	out.Printing = c.Printing.clone()
	out.TierMultipliers = append([]float64(nil), c.TierMultipliers...)
	return out
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
