// Package report renders estimates as plain text with amounts fixed to two decimals.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/boxquote/internal/estimator"
)

// Currency is the unit printed after every amount.
const Currency = "INR"

// Meta identifies a saved quote. Zero fields are left out of the header.
type Meta struct {
	QuoteID         int64
	CreatedAt       time.Time
	RateCardVersion int
}

// Money formats v with exactly two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Text renders resp as a customer-facing summary.
func Text(resp estimator.Response, meta Meta) string {
	bd := resp.CostBreakdown.Breakdown

	var b strings.Builder
	if meta.QuoteID != 0 {
		fmt.Fprintf(&b, "Quote #%d\n", meta.QuoteID)
	} else {
		b.WriteString("Estimate\n")
	}
	if !meta.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", meta.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}
	if resp.UserID != "" {
		fmt.Fprintf(&b, "Customer: %s (tier %d)\n", resp.UserID, resp.UserTier)
	} else {
		fmt.Fprintf(&b, "Tier: %d\n", resp.UserTier)
	}
	if meta.RateCardVersion != 0 {
		fmt.Fprintf(&b, "Rate card: v%d\n", meta.RateCardVersion)
	}
	b.WriteString("\n")

	b.WriteString("Box:\n")
	fmt.Fprintf(&b, "- Type: %s\n", resp.BoxType)
	if resp.InputMode == estimator.InputBoxDimensions {
		fmt.Fprintf(&b, "- Dimensions: %s x %s x %s in\n",
			Money(resp.BoxDimensions.Length), Money(resp.BoxDimensions.Width), Money(resp.BoxDimensions.Height))
	}
	fmt.Fprintf(&b, "- Sheet: %s x %s cm (%s x %s in)\n",
		Money(resp.SheetSize.LengthCm), Money(resp.SheetSize.WidthCm),
		Money(resp.SheetSize.LengthIn), Money(resp.SheetSize.WidthIn))
	fmt.Fprintf(&b, "- Plies: %d\n", len(resp.CostBreakdown.Plies))
	for _, p := range resp.CostBreakdown.Plies {
		fmt.Fprintf(&b, "  %s: %s %s GSM\n", p.Position, p.Quality, decimal.NewFromFloat(p.WeightGSM).String())
	}
	fmt.Fprintf(&b, "- Quantity: %d boxes\n\n", resp.NumberOfBoxes)

	b.WriteString("Per box:\n")
	lines := []struct {
		label string
		value float64
	}{
		{"Sheet", bd.SheetCostPerBox},
		{"Punching", bd.PunchingCost},
		{"Scoring", bd.ScoringCost},
		{"Lamination", bd.LaminationCost},
		{"Printing", bd.PrintingCost},
		{"Hand pasting", bd.HandPastingCost},
		{"Pins", bd.PinCost},
		{"Transport", bd.TransportationCost},
	}
	for _, line := range lines {
		if line.value == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s %s\n", line.label, Money(line.value), Currency)
	}
	fmt.Fprintf(&b, "Manufacturing cost: %s %s\n", Money(resp.ManufacturingCost), Currency)
	fmt.Fprintf(&b, "Tier multiplier: %s\n", Money(resp.CostBreakdown.TierMultiplier))
	fmt.Fprintf(&b, "Cost per box: %s %s\n\n", Money(resp.CostPerBox), Currency)
	fmt.Fprintf(&b, "Total: %s %s\n", Money(resp.TotalOrderCost), Currency)
	return b.String()
}
