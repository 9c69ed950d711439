package main

import (
	"os"

	"github.com/unigest/unigest/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
