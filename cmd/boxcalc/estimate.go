package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/boxquote/internal/estimator"
	"github.com/Simplici0/boxquote/internal/report"
)

type estimateOptions struct {
	specFile  string
	ratesFile string
	tier      int
	output    string
	userID    string
}

func (c *cli) newEstimateCmd() *cobra.Command {
	opts := &estimateOptions{}

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Price a box specification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEstimate(opts)
		},
	}
	cmd.Flags().StringVarP(&opts.specFile, "file", "f", "", "box specification (YAML or JSON)")
	cmd.Flags().StringVar(&opts.ratesFile, "rates", "", "rate card file (defaults to the built-in card)")
	cmd.Flags().IntVar(&opts.tier, "tier", 0, fmt.Sprintf("pricing tier 0..%d", estimator.MaxTier))
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format (text, json)")
	cmd.Flags().StringVar(&opts.userID, "user", "", "customer id printed on the estimate")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (c *cli) runEstimate(opts *estimateOptions) error {
	if opts.output != "text" && opts.output != "json" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	var spec estimator.BoxSpecification
	if err := readYAML(opts.specFile, &spec); err != nil {
		return err
	}

	est := estimator.Default()
	if opts.ratesFile != "" {
		var card estimator.RateCard
		if err := readYAML(opts.ratesFile, &card); err != nil {
			return err
		}
		custom, err := estimator.New(card)
		if err != nil {
			return fmt.Errorf("rate card %s: %w", opts.ratesFile, err)
		}
		est = custom
		c.log.Debug("using custom rate card", zap.String("file", opts.ratesFile))
	}

	result, err := est.Estimate(spec, opts.tier)
	if err != nil {
		return err
	}
	resp := result.Response(opts.userID)
	c.log.Debug("estimate complete",
		zap.String("box_type", string(resp.BoxType)),
		zap.Int("tier", resp.UserTier),
		zap.Float64("cost_per_box", resp.CostPerBox))

	if opts.output == "json" {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	_, err = fmt.Fprint(c.out, report.Text(resp, report.Meta{}))
	return err
}

// readYAML decodes a YAML file into dst. JSON files parse too, JSON being YAML.
func readYAML(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
