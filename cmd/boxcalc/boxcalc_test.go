package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Simplici0/boxquote/internal/estimator"
	"github.com/Simplici0/boxquote/internal/report"
)

const specYAML = `
input_type: sheet_size
sheet_size:
  length: 30
  width: 20
  units: cm
box_type: Universal
paper_properties:
  paper_weight: [20, 20, 20]
  paper_quality: [Kraft, Kraft, Kraft]
  ply_num: 3
order_details:
  number_of_boxes: 1000
  box_per_sheet: 1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func expectedResponse(t *testing.T, tier int) estimator.Response {
	t.Helper()

	var spec estimator.BoxSpecification
	if err := yaml.Unmarshal([]byte(specYAML), &spec); err != nil {
		t.Fatalf("parse spec: %v", err)
	}
	res, err := estimator.Estimate(spec, tier)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	return res.Response("")
}

func TestEstimateText(t *testing.T) {
	path := writeFile(t, "box.yaml", specYAML)

	out, err := execute(t, "estimate", "-f", path, "--tier", "2")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}

	want := expectedResponse(t, 2)
	for _, line := range []string{
		"Estimate",
		"Tier: 2",
		"- Type: Universal",
		"Cost per box: " + report.Money(want.CostPerBox) + " INR",
		"Total: " + report.Money(want.TotalOrderCost) + " INR",
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("output missing %q:\n%s", line, out)
		}
	}
}

func TestEstimateJSONAcceptsJSONSpec(t *testing.T) {
	var spec map[string]any
	if err := yaml.Unmarshal([]byte(specYAML), &spec); err != nil {
		t.Fatalf("parse spec: %v", err)
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("encode spec: %v", err)
	}
	path := writeFile(t, "box.json", string(raw))

	out, err := execute(t, "estimate", "-f", path, "-o", "json", "--user", "USR-CLI")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}

	var got estimator.Response
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	want := expectedResponse(t, 0)
	if got.UserID != "USR-CLI" || got.CostPerBox != want.CostPerBox || got.NumberOfBoxes != 1000 {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestEstimateWithCustomRateCard(t *testing.T) {
	cardOut, err := execute(t, "rates")
	if err != nil {
		t.Fatalf("rates: %v", err)
	}

	var card estimator.RateCard
	if err := yaml.Unmarshal([]byte(cardOut), &card); err != nil {
		t.Fatalf("parse rates output: %v\n%s", err, cardOut)
	}
	card.QualityRates[estimator.QualityKraft] = 71

	edited, err := yaml.Marshal(card)
	if err != nil {
		t.Fatalf("encode card: %v", err)
	}
	ratesPath := writeFile(t, "card.yaml", string(edited))
	specPath := writeFile(t, "box.yaml", specYAML)

	out, err := execute(t, "estimate", "-f", specPath, "--rates", ratesPath, "-o", "json")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}

	var got estimator.Response
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if base := expectedResponse(t, 0); got.CostPerBox <= base.CostPerBox {
		t.Fatalf("custom card not applied: %v <= %v", got.CostPerBox, base.CostPerBox)
	}
}

func TestRatesJSONRoundTripsThroughEstimator(t *testing.T) {
	out, err := execute(t, "rates", "--output", "json")
	if err != nil {
		t.Fatalf("rates: %v", err)
	}

	var card estimator.RateCard
	if err := json.Unmarshal([]byte(out), &card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := card.Validate(); err != nil {
		t.Fatalf("printed card invalid: %v", err)
	}
}

func TestEstimateErrors(t *testing.T) {
	specPath := writeFile(t, "box.yaml", specYAML)
	badCard := writeFile(t, "card.yaml", "wastage_multiplier: 0.5\n")

	cases := map[string][]string{
		"missing file flag": {"estimate"},
		"unreadable spec":   {"estimate", "-f", filepath.Join(t.TempDir(), "nope.yaml")},
		"tier out of range": {"estimate", "-f", specPath, "--tier", "9"},
		"unknown output":    {"estimate", "-f", specPath, "-o", "xml"},
		"invalid rate card": {"estimate", "-f", specPath, "--rates", badCard},
		"unknown rates fmt": {"rates", "-o", "toml"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := execute(t, args...); err == nil {
				t.Fatalf("expected error for %v", args)
			}
		})
	}
}
