// Package main provides the ownkey CLI application.
package main

import (
	"os"

	"github.com/fatih/color"
)

// errorColor is disabled automatically when stderr is not a terminal.
var errorColor = color.New(color.FgRed)

func main() {
	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		os.Exit(1)
	}
}
