package main

import (
	"os"

	"github.com/briefkit/econdata/backend/cmd/econ/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
