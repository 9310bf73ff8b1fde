// Command featurepipe generates a synthetic feature table, stores it,
// trains and evaluates a classifier on it and saves the run's artifacts.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
