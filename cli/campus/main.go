package main

import (
	"os"

	campuscmder "github.com/campusai/campus/cmd/campus"
)

func main() {
	cmd := campuscmder.NewCampusCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
