package main

import (
	"os"

	"github.com/dev-mohitbeniwal/sentinel/cmd/sentinelctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
