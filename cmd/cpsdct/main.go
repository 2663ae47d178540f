package main

import (
	"os"

	"github.com/csg33k/cps-dct/cmd/cpsdct/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
