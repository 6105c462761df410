// Package main provides the triage command-line client.
package main

import (
	"os"

	"github.com/Rohitw3code/ticket-triage-agent/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
