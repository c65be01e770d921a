// Package main provides the entry point for the shopsearch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/shopsearch/cmd/shopsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
