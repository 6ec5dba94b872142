// Package campuscmder assembles the campus command tree.
package campuscmder

import (
	"github.com/spf13/cobra"

	analyzecmder "github.com/campusai/campus/cmd/campus/analyze"
	authcmder "github.com/campusai/campus/cmd/campus/auth"
	chatcmder "github.com/campusai/campus/cmd/campus/chat"
	configcmder "github.com/campusai/campus/cmd/campus/config"
	newscmder "github.com/campusai/campus/cmd/campus/news"
	servecmder "github.com/campusai/campus/cmd/campus/serve"
	tokencmder "github.com/campusai/campus/cmd/campus/token"
	versioncmder "github.com/campusai/campus/cmd/version"
	"github.com/campusai/campus/pkg/config"
)

const campusLongDesc string = `Campus is an AI study companion for students.

Run the gateway:
  campus serve         Run the AI gateway

Talk to it:
  campus chat          Chat with a tutor persona
  campus analyze       Analyze previous year question papers
  campus news          Career news picked for your interests

Set up:
  campus token         Issue a gateway bearer token
  campus auth          Store the upstream API key
  campus config        Manage persistent configuration`

const campusShortDesc string = "Campus - AI study companion"

func NewCampusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "campus",
		Short:        campusShortDesc,
		Long:         campusLongDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.LoadDotEnv()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .campus/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(analyzecmder.NewAnalyzeCmd())
	cmd.AddCommand(newscmder.NewNewsCmd())
	cmd.AddCommand(tokencmder.NewTokenCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
