package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	servecmder "github.com/campusai/campus/cmd/campus/serve"
	"github.com/campusai/campus/pkg/config"
)

func main() {
	cmd := servecmder.NewServeCmd()

	cmd.Use = "campusgw"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .campus/ config directory")
	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return config.LoadDotEnv()
	}

	err := cmd.Execute()
	if err != nil {
		fmt.Printf("Error executing root command: %v\n", err)
		os.Exit(1)
	}
}
