package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/boxquote/internal/logging"
)

type cli struct {
	out     io.Writer
	verbose bool
	log     *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out, log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "boxcalc",
		Short: "Estimate corrugated box manufacturing costs",
		Long: `boxcalc prices a corrugated box order from a YAML or JSON box specification.

Examples:
  boxcalc estimate -f box.yaml
  boxcalc estimate -f box.yaml --tier 2 --output json
  boxcalc estimate -f box.yaml --rates card.yaml
  boxcalc rates --output yaml > card.yaml`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if c.verbose {
				level = "debug"
			}
			c.log = logging.NewWithWriter(logging.Config{Level: level, Format: "console"}, cmd.ErrOrStderr())
		},
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.newEstimateCmd())
	root.AddCommand(c.newRatesCmd())
	return root
}
