package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/boxquote/internal/estimator"
)

func (c *cli) newRatesCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Print the built-in rate card",
		Long:  "Print the built-in rate card. The output can be edited and passed back with estimate --rates.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			card := estimator.DefaultRateCard()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(c.out)
				enc.SetIndent(2)
				if err := enc.Encode(card); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(card)
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml, json)")
	return cmd
}
