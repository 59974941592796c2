package main

import (
	"os"

	"github.com/telhawk-systems/hecrelay/cmd"
	"github.com/telhawk-systems/hecrelay/pkg/output"
)

func main() {
	if err := cmd.Execute(); err != nil {
		output.Error("%v", err)
		os.Exit(1)
	}
}
