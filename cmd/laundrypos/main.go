// Package main provides the laundrypos CLI.
package main

import (
	"os"

	"github.com/freshpress/laundrypos/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
