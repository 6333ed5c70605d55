package main

import (
	"os"

	"github.com/randyrektor/obs-gameshow-overlay/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
