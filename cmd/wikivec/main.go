// Package main provides the entry point for the wikivec CLI.
package main

import (
	"os"

	"github.com/wikivec/wikivec/cmd/wikivec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
