package main

import (
	"os"

	"github.com/sakif/suggestion-board/internal/cli"
)

func main() {
	// Errors are already printed by the failing command.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
