// Package main provides the entry point for the importlyrical CLI.
package main

import (
	"fmt"
	"os"

	"github.com/AnCIity/importlyrical/cmd/importlyrical/commands"
)

func main() {
	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
