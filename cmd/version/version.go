// Package versioncmder provides the version command.
package versioncmder

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/campusai/campus/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the campus version",
		Long:  "Display the version, commit and build time of this campus binary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\nSha: %s\nBuilt at: %s\nGo: %s\n",
				utils.Version, utils.Sha, utils.Buildtime, runtime.Version())
			return nil
		},
	}
}
