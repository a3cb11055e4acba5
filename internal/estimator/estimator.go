// Package estimator prices corrugated box orders. It is pure: the same
// specification, tier and rate card always produce the same Result.
package estimator

// MinPlies is the thinnest board the estimator prices.
const MinPlies = 3

// Estimator prices box specifications against one immutable RateCard snapshot.
// It is safe for concurrent use.
type Estimator struct {
	card RateCard
}

// New validates card and returns an Estimator holding a private copy of it.
func New(card RateCard) (*Estimator, error) {
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{card: card.Clone()}, nil
}

var defaultEstimator = mustNew(DefaultRateCard())

func mustNew(card RateCard) *Estimator {
	e, err := New(card)
	if err != nil {
		panic(err)
	}
	return e
}

// Default returns the estimator for the published rate card.
func Default() *Estimator { return defaultEstimator }

// Estimate prices spec for tier with the published rate card.
func Estimate(spec BoxSpecification, tier int) (Result, error) {
	return defaultEstimator.Estimate(spec, tier)
}

// RateCard returns a copy of the card this estimator prices with.
func (e *Estimator) RateCard() RateCard { return e.card.Clone() }

// Estimate converts a box specification into a cost breakdown and tier-adjusted price.
// It fails with an InvalidConfigurationError and no partial result.
func (e *Estimator) Estimate(spec BoxSpecification, tier int) (Result, error) {
	multiplier, ok := e.card.TierMultiplier(tier)
	if !ok {
		return Result{}, invalidf("tier %d is outside [0,%d]", tier, MaxTier)
	}
	if err := validateOrder(spec); err != nil {
		return Result{}, err
	}

	sheet, err := resolveSheet(spec)
	if err != nil {
		return Result{}, err
	}

	plies, err := e.plyCosts(spec.PaperProperties, spec.ManufacturingProcesses.IsNF, sheet.AreaM2)
	if err != nil {
		return Result{}, err
	}

	boxes := spec.OrderDetails.NumberOfBoxes
	perSheet := spec.OrderDetails.boxesPerSheet()

	var b Breakdown
	var sheetWeight float64
	for _, p := range plies {
		b.MaterialCost += p.MaterialCost
		b.CorrugationCost += p.CorrugationCost
		sheetWeight += p.WeightKg
	}
	if spec.ManufacturingProcesses.IsPasting {
		b.PastingCost = sheetWeight * e.card.PastingSheetCostPerKg
	}
	b.RawSheetCost = b.MaterialCost + b.CorrugationCost + b.PastingCost
	b.SheetCost = b.RawSheetCost * e.card.WastageMultiplier
	b.WastageCost = b.SheetCost - b.RawSheetCost
	b.SheetCostPerBox = b.SheetCost / float64(perSheet)

	e.applyProcesses(&b, spec, sheet)

	manufacturing := b.SheetCostPerBox +
		b.PunchingCost +
		b.ScoringCost +
		b.LaminationCost +
		b.PrintingCost +
		b.HandPastingCost +
		b.PinCost +
		b.TransportationCost
	costPerBox := manufacturing * multiplier

	res := Result{
		Tier:                 tier,
		InputMode:            spec.InputMode,
		BoxType:              spec.BoxType,
		BoxDimensions:        spec.BoxDimensions,
		Sheet:                sheet,
		NumberOfBoxes:        boxes,
		BoxPerSheet:          perSheet,
		Plies:                plies,
		TotalSheetWeightKg:   sheetWeight,
		Breakdown:            b,
		ManufacturingCostBox: manufacturing,
		TierMultiplier:       multiplier,
		CostPerBox:           costPerBox,
		TotalOrderCost:       costPerBox * float64(boxes),
	}
	if !finite(res.CostPerBox) || !finite(res.TotalOrderCost) || res.TotalOrderCost < 0 {
		return Result{}, invalidf("computed price is not a finite non-negative number")
	}
	return res, nil
}

func validateOrder(spec BoxSpecification) error {
	o := spec.OrderDetails
	if o.NumberOfBoxes <= 0 {
		return invalidf("number_of_boxes must be > 0, got %d", o.NumberOfBoxes)
	}
	if o.BoxPerSheet < 0 {
		return invalidf("box_per_sheet must be > 0, got %d", o.BoxPerSheet)
	}
	if spec.ManufacturingProcesses.PinsPerBox < 0 {
		return invalidf("pins_per_box must be >= 0, got %d", spec.ManufacturingProcesses.PinsPerBox)
	}
	if !nonNegative(spec.Costs.TransportationCostPerBox) {
		return invalidf("transportation_cost_per_box must be >= 0, got %v", spec.Costs.TransportationCostPerBox)
	}
	return nil
}

// plyCosts computes weight, material cost and corrugation surcharge of every ply of one sheet.
func (e *Estimator) plyCosts(pp PaperProperties, isNF bool, areaM2 float64) ([]PlyCost, error) {
	n := pp.PlyNum
	if n < MinPlies {
		return nil, invalidf("ply_num must be at least %d, got %d", MinPlies, n)
	}
	if len(pp.PaperWeight) != n || len(pp.PaperQuality) != n {
		return nil, invalidf("expected %d paper weights and qualities, got %d and %d",
			n, len(pp.PaperWeight), len(pp.PaperQuality))
	}

	corrugationRate := e.card.CorrugationCostPerKg
	if isNF {
		corrugationRate = e.card.NFCorrugationCostPerKg
	}

	plies := make([]PlyCost, n)
	for i := 0; i < n; i++ {
		gsm := pp.PaperWeight[i]
		if !finite(gsm) || gsm <= 0 {
			return nil, invalidf("paper weight of ply %d must be positive, got %v", i+1, gsm)
		}
		quality := pp.PaperQuality[i]
		rate, ok := e.card.QualityRate(quality)
		if !ok {
			return nil, invalidf("unrecognized paper quality %q", quality)
		}

		weightKg := areaM2 * gsm / 1000.0
		p := PlyCost{
			Position:     plyPosition(i, n),
			Quality:      quality,
			WeightGSM:    gsm,
			WeightKg:     weightKg,
			QualityRate:  rate,
			MaterialCost: weightKg * rate,
			Fluting:      isFluting(i, n),
		}
		if p.Fluting {
			p.CorrugationCost = weightKg * corrugationRate
		}
		plies[i] = p
	}
	return plies, nil
}

// applyProcesses adds the per-box surcharges gated by the process flags.
func (e *Estimator) applyProcesses(b *Breakdown, spec BoxSpecification, sheet Sheet) {
	mp := spec.ManufacturingProcesses
	boxes := spec.OrderDetails.NumberOfBoxes

	if mp.IsPunching {
		b.PunchingCost = e.card.Punching.LookupOrLast(boxes)
	}
	if mp.IsHandPasted {
		b.HandPastingCost = e.card.HandPasting.LookupOrLast(boxes)
	}
	if mp.IsPrinted {
		b.PrintingRunCost = e.card.Printing.LookupOrLast(boxes)
		b.PrintingCost = b.PrintingRunCost / float64(boxes)
	}
	if mp.IsLaminated {
		b.LaminationCost = sqMToSqIn(sheet.AreaM2) / 100.0 * e.card.LaminationCostPer100SqIn
	}
	if mp.IsScoring {
		b.ScoringCost = e.card.ScoringCostPerBox
	}
	if mp.PinsPerBox > 0 {
		b.PinCost = float64(mp.PinsPerBox) * e.card.PinningCostPerPin
	}
	b.TransportationCost = spec.Costs.TransportationCostPerBox
}
