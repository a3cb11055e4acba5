// Command boxcalc prices corrugated box orders offline with the same estimator the server uses.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
