package estimator

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func kraftSheetSpec() BoxSpecification {
	return BoxSpecification{
		InputMode:     InputSheetSize,
		SheetSize:     &SheetSize{Length: 30, Width: 20, Units: "cm"},
		BoxDimensions: BoxDimensions{Length: 10, Width: 8, Height: 6, Units: "inch"},
		BoxType:       BoxUniversal,
		PaperProperties: PaperProperties{
			PaperWeight:  []float64{20, 20, 20},
			PaperQuality: []PaperQuality{QualityKraft, QualityKraft, QualityKraft},
			PlyNum:       3,
		},
		OrderDetails: OrderDetails{NumberOfBoxes: 1000, BoxPerSheet: 1},
	}
}

func mustEstimate(t *testing.T, spec BoxSpecification, tier int) Result {
	t.Helper()
	res, err := Estimate(spec, tier)
	if err != nil {
		t.Fatalf("Estimate returned error: %v", err)
	}
	return res
}

func TestEstimate_KraftSheetScenario(t *testing.T) {
	res := mustEstimate(t, kraftSheetSpec(), 0)

	nearlyEqual(t, "sheetArea", res.Sheet.AreaM2, 0.06)
	if len(res.Plies) != 3 {
		t.Fatalf("expected 3 plies, got %d", len(res.Plies))
	}
	for i, p := range res.Plies {
		nearlyEqual(t, "plyWeightKg", p.WeightKg, 0.0012)
		nearlyEqual(t, "plyCost", p.MaterialCost, 0.0426)
		if i == 1 {
			nearlyEqual(t, "fluting corrugation", p.CorrugationCost, 0.0096)
		} else if p.CorrugationCost != 0 {
			t.Fatalf("ply %d should not carry corrugation cost, got %v", i, p.CorrugationCost)
		}
	}
	nearlyEqual(t, "rawSheetCost", res.Breakdown.RawSheetCost, 0.1374)
	nearlyEqual(t, "sheetCost", res.Breakdown.SheetCost, 0.141522)
	nearlyEqual(t, "costPerBox", res.CostPerBox, 0.141522)
	nearlyEqual(t, "totalOrderCost", res.TotalOrderCost, 141.522)
}

func TestEstimate_IsDeterministic(t *testing.T) {
	spec := kraftSheetSpec()
	spec.ManufacturingProcesses = ManufacturingProcesses{IsPunching: true, IsPrinted: true, IsLaminated: true, PinsPerBox: 2}

	first := mustEstimate(t, spec, 3)
	for i := 0; i < 5; i++ {
		again := mustEstimate(t, spec, 3)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("estimate %d differs from first: %+v vs %+v", i, again, first)
		}
	}
}

func TestEstimate_ConcurrentCallsAgree(t *testing.T) {
	spec := kraftSheetSpec()
	want := mustEstimate(t, spec, 2)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Estimate(spec, 2)
			if err != nil {
				errs <- err
				return
			}
			if got.TotalOrderCost != want.TotalOrderCost {
				errs <- errors.New("concurrent estimate diverged")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestEstimate_TierMultipliersAreMonotonic(t *testing.T) {
	spec := kraftSheetSpec()
	want := []float64{1.00, 1.05, 1.10, 1.15, 1.20}

	base := mustEstimate(t, spec, 0)
	prev := 0.0
	for tier := 0; tier <= MaxTier; tier++ {
		res := mustEstimate(t, spec, tier)
		if res.CostPerBox < prev {
			t.Fatalf("tier %d price %v is lower than tier %d price %v", tier, res.CostPerBox, tier-1, prev)
		}
		nearlyEqual(t, "tier price", res.CostPerBox, base.ManufacturingCostBox*want[tier])
		nearlyEqual(t, "manufacturing cost", res.ManufacturingCostBox, base.ManufacturingCostBox)
		prev = res.CostPerBox
	}
}

func TestEstimate_TotalIsLinearInVolume(t *testing.T) {
	spec := kraftSheetSpec()
	spec.ManufacturingProcesses = ManufacturingProcesses{IsPunching: true, IsPrinted: true}

	for _, boxes := range []int{1, 499, 500, 501, 2999, 10000, 25000} {
		spec.OrderDetails.NumberOfBoxes = boxes
		res := mustEstimate(t, spec, 1)
		if res.TotalOrderCost != res.CostPerBox*float64(boxes) {
			t.Fatalf("boxes=%d: total %v != costPerBox %v * boxes", boxes, res.TotalOrderCost, res.CostPerBox)
		}
	}
}

func TestEstimate_PunchingBreakpoints(t *testing.T) {
	spec := kraftSheetSpec()
	spec.ManufacturingProcesses.IsPunching = true

	cases := map[int]float64{
		1:     1.0,
		500:   1.0,
		501:   0.5,
		1000:  0.5,
		1001:  0.4,
		3000:  0.4,
		3001:  0.3,
		50000: 0.3,
	}
	for boxes, want := range cases {
		spec.OrderDetails.NumberOfBoxes = boxes
		res := mustEstimate(t, spec, 0)
		nearlyEqual(t, "punching", res.Breakdown.PunchingCost, want)
	}
}

func TestEstimate_HandPastingBreakpointsAreLiteral(t *testing.T) {
	spec := kraftSheetSpec()
	spec.ManufacturingProcesses.IsHandPasted = true

	cases := map[int]float64{10: 0.3, 11: 0.4, 20: 0.4, 30: 1.0, 31: 2.0, 1000: 2.0}
	for boxes, want := range cases {
		spec.OrderDetails.NumberOfBoxes = boxes
		res := mustEstimate(t, spec, 0)
		nearlyEqual(t, "hand pasting", res.Breakdown.HandPastingCost, want)
	}
}

func TestEstimate_PrintingRoundsUpToNextBandAndSpreadsPerBox(t *testing.T) {
	spec := kraftSheetSpec()
	spec.ManufacturingProcesses.IsPrinted = true

	cases := []struct {
		boxes   int
		runCost float64
	}{
		{500, 1600},
		{1000, 1600},
		{1500, 2000},
		{5001, 3600},
		{10000, 6000},
		{20000, 6000},
	}
	for _, tc := range cases {
		spec.OrderDetails.NumberOfBoxes = tc.boxes
		res := mustEstimate(t, spec, 0)
		nearlyEqual(t, "printing run", res.Breakdown.PrintingRunCost, tc.runCost)
		nearlyEqual(t, "printing per box", res.Breakdown.PrintingCost, tc.runCost/float64(tc.boxes))
	}
}

func TestEstimate_LaminationPinsTransportAndScoring(t *testing.T) {
	spec := kraftSheetSpec()
	spec.ManufacturingProcesses = ManufacturingProcesses{IsLaminated: true, IsScoring: true, PinsPerBox: 3}
	spec.Costs.TransportationCostPerBox = 0.25

	res := mustEstimate(t, spec, 0)

	nearlyEqual(t, "lamination", res.Breakdown.LaminationCost, 0.06*1550.0031/100*0.35)
	nearlyEqual(t, "pins", res.Breakdown.PinCost, 0.3)
	nearlyEqual(t, "transport", res.Breakdown.TransportationCost, 0.25)
	nearlyEqual(t, "scoring", res.Breakdown.ScoringCost, 0)
	nearlyEqual(t, "manufacturing", res.ManufacturingCostBox, 0.141522+0.06*1550.0031/100*0.35+0.3+0.25)
}

func TestEstimate_NFUsesHigherCorrugationRate(t *testing.T) {
	spec := kraftSheetSpec()
	spec.ManufacturingProcesses.IsNF = true

	res := mustEstimate(t, spec, 0)

	nearlyEqual(t, "nf corrugation", res.Breakdown.CorrugationCost, 0.012)
	nearlyEqual(t, "costPerBox", res.CostPerBox, (3*0.0426+0.012)*1.03)
}

func TestEstimate_PastingChargesTotalPlyWeight(t *testing.T) {
	spec := kraftSheetSpec()
	spec.ManufacturingProcesses.IsPasting = true

	res := mustEstimate(t, spec, 0)

	nearlyEqual(t, "pasting", res.Breakdown.PastingCost, 2*0.0036)
	nearlyEqual(t, "costPerBox", res.CostPerBox, (0.1374+0.0072)*1.03)
}

func TestEstimate_WastageAppliedOnceAndSplitAcrossBoxesPerSheet(t *testing.T) {
	spec := kraftSheetSpec()
	spec.PaperProperties = PaperProperties{
		PaperWeight:  []float64{120, 100, 150, 100, 180},
		PaperQuality: []PaperQuality{QualityKraft, QualityKraft80, QualityDuplex, QualityGolden, QualityKraftImported},
		PlyNum:       5,
	}
	spec.OrderDetails.BoxPerSheet = 4

	res := mustEstimate(t, spec, 0)

	nearlyEqual(t, "wastage once", res.CostPerBox*4, res.Breakdown.RawSheetCost*1.03)
	nearlyEqual(t, "wastage cost", res.Breakdown.WastageCost, res.Breakdown.RawSheetCost*0.03)
}

func TestEstimate_BoxPerSheetZeroDefaultsToOne(t *testing.T) {
	spec := kraftSheetSpec()
	spec.OrderDetails.BoxPerSheet = 0

	res := mustEstimate(t, spec, 0)

	if res.BoxPerSheet != 1 {
		t.Fatalf("expected box_per_sheet 1, got %d", res.BoxPerSheet)
	}
	nearlyEqual(t, "costPerBox", res.CostPerBox, 0.141522)
}

func TestEstimate_FivePlyBoardChargesEveryFlute(t *testing.T) {
	spec := kraftSheetSpec()
	spec.PaperProperties = PaperProperties{
		PaperWeight:  []float64{20, 20, 20, 20, 20},
		PaperQuality: []PaperQuality{QualityKraft, QualityKraft, QualityKraft, QualityKraft, QualityKraft},
		PlyNum:       5,
	}

	res := mustEstimate(t, spec, 0)

	positions := make([]string, 0, len(res.Plies))
	for _, p := range res.Plies {
		positions = append(positions, p.Position)
	}
	want := []string{"backing", "fluting", "liner", "fluting_2", "top"}
	if !reflect.DeepEqual(positions, want) {
		t.Fatalf("positions = %v, want %v", positions, want)
	}
	nearlyEqual(t, "corrugation", res.Breakdown.CorrugationCost, 2*0.0096)
}

func TestEstimate_BoxDimensionsAreConvertedButEchoedUnchanged(t *testing.T) {
	spec := kraftSheetSpec()
	spec.InputMode = InputBoxDimensions
	spec.SheetSize = nil
	spec.BoxDimensions = BoxDimensions{Length: 10, Width: 8, Height: 6, Units: "inch"}

	res := mustEstimate(t, spec, 0)

	if res.BoxDimensions != spec.BoxDimensions {
		t.Fatalf("box dimensions changed: %+v", res.BoxDimensions)
	}
	nearlyEqual(t, "length in", res.Sheet.LengthIn, 37.5)
	nearlyEqual(t, "width in", res.Sheet.WidthIn, 14)
	nearlyEqual(t, "length cm", res.Sheet.LengthCm, 95.25)
	nearlyEqual(t, "width cm", res.Sheet.WidthCm, 35.56)
	nearlyEqual(t, "area", res.Sheet.AreaM2, 0.9525*0.3556)

	resp := res.Response("USR-1")
	if resp.BoxDimensions != spec.BoxDimensions {
		t.Fatalf("response box dimensions changed: %+v", resp.BoxDimensions)
	}
}

func TestEstimate_BoxTypesProduceDistinctBlanks(t *testing.T) {
	d := BoxDimensions{Length: 10, Width: 8, Height: 6}
	cases := map[BoxType][2]float64{
		BoxUniversal:     {37.5, 14},
		BoxBottomLocking: {37.5, 16},
		BoxMobileType:    {34, 35},
		BoxRingFlap:      {34, 20},
	}
	for boxType, want := range cases {
		l, w, err := unfold(boxType, d)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", boxType, err)
		}
		nearlyEqual(t, string(boxType)+" length", l, want[0])
		nearlyEqual(t, string(boxType)+" width", w, want[1])
	}
}

func TestEstimate_RejectsInvalidConfiguration(t *testing.T) {
	cases := map[string]func(*BoxSpecification) int{
		"tier above range": func(s *BoxSpecification) int { return 5 },
		"negative tier":    func(s *BoxSpecification) int { return -1 },
		"zero area sheet": func(s *BoxSpecification) int {
			s.SheetSize.Length = 0
			return 0
		},
		"nan sheet": func(s *BoxSpecification) int {
			s.SheetSize.Width = math.NaN()
			return 0
		},
		"missing sheet size": func(s *BoxSpecification) int {
			s.SheetSize = nil
			return 0
		},
		"zero box height": func(s *BoxSpecification) int {
			s.InputMode = InputBoxDimensions
			s.BoxDimensions.Height = 0
			return 0
		},
		"unknown input mode": func(s *BoxSpecification) int {
			s.InputMode = "volume"
			return 0
		},
		"unknown box type": func(s *BoxSpecification) int {
			s.BoxType = "Octagon"
			return 0
		},
		"mismatched ply arrays": func(s *BoxSpecification) int {
			s.PaperProperties.PaperWeight = []float64{20, 20}
			return 0
		},
		"too few plies": func(s *BoxSpecification) int {
			s.PaperProperties = PaperProperties{PaperWeight: []float64{20, 20}, PaperQuality: []PaperQuality{QualityKraft, QualityKraft}, PlyNum: 2}
			return 0
		},
		"unknown paper quality": func(s *BoxSpecification) int {
			s.PaperProperties.PaperQuality[2] = "Cardboard"
			return 0
		},
		"zero gsm": func(s *BoxSpecification) int {
			s.PaperProperties.PaperWeight[0] = 0
			return 0
		},
		"zero boxes": func(s *BoxSpecification) int {
			s.OrderDetails.NumberOfBoxes = 0
			return 0
		},
		"negative box per sheet": func(s *BoxSpecification) int {
			s.OrderDetails.BoxPerSheet = -2
			return 0
		},
		"negative pins": func(s *BoxSpecification) int {
			s.ManufacturingProcesses.PinsPerBox = -1
			return 0
		},
		"infinite transport": func(s *BoxSpecification) int {
			s.Costs.TransportationCostPerBox = math.Inf(1)
			return 0
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := kraftSheetSpec()
			tier := mutate(&spec)

			res, err := Estimate(spec, tier)
			if err == nil {
				t.Fatalf("expected error, got result %+v", res)
			}
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
			}
			var cfgErr *InvalidConfigurationError
			if !errors.As(err, &cfgErr) || cfgErr.Reason == "" {
				t.Fatalf("expected InvalidConfigurationError with reason, got %v", err)
			}
			if !reflect.DeepEqual(res, Result{}) {
				t.Fatalf("expected zero result on error, got %+v", res)
			}
		})
	}
}

func TestResponse_ReportsWeightsByPlyPosition(t *testing.T) {
	res := mustEstimate(t, kraftSheetSpec(), 2)

	resp := res.Response("USR-42")

	if resp.UserID != "USR-42" || resp.UserTier != 2 || resp.InputMode != InputSheetSize {
		t.Fatalf("unexpected echo fields: %+v", resp)
	}
	for _, key := range []string{"backing", "fluting", "top"} {
		nearlyEqual(t, "sheet weight "+key, resp.SheetWeight[key], 0.0012)
	}
	nearlyEqual(t, "sheet area", resp.SheetArea, 0.06)
	nearlyEqual(t, "sheet width in", resp.SheetSize.WidthIn, 20/2.54)
	nearlyEqual(t, "cost per box", resp.CostPerBox, 0.141522*1.10)
	nearlyEqual(t, "manufacturing", resp.ManufacturingCost, 0.141522)
	if len(resp.CostBreakdown.Plies) != 3 || resp.CostBreakdown.SheetCost != res.Breakdown.SheetCost {
		t.Fatalf("breakdown not carried through: %+v", resp.CostBreakdown)
	}
}
