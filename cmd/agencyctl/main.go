// Command agencyctl is the command-line client for agencyd.
package main

import (
	"os"

	"github.com/talgya/studio-league/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
