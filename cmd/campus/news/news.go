// Package newscmder provides the news command: career news recommendations
// from the gateway, plus add and list subcommands for the news store.
package newscmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campusai/campus/pkg/chat"
	"github.com/campusai/campus/pkg/cliui"
	"github.com/campusai/campus/pkg/config"
	"github.com/campusai/campus/pkg/logger"
	"github.com/campusai/campus/pkg/news"
	"github.com/campusai/campus/pkg/utils"
)

type newsCommander struct {
	gatewayTarget string
	token         string
	debug         bool

	out    io.Writer
	logger *slog.Logger
}

const newsLongDesc string = `Get career news picked for your interests.

The gateway offers the most recent career news to the news-advisor persona,
which chooses the items most relevant to the interests you give. Without
interests, "technology and career development" is used.

Use the add, list and show subcommands to manage the news store the gateway reads.

Examples:
  campus news
  campus news machine learning internships
  campus news add --title "Campus hiring drive" --category jobs --content "..."
  campus news list --sqlite news.db
  campus news show --sqlite news.db <id>`

const newsShortDesc string = "Career news recommendations"

func NewNewsCmd() *cobra.Command {
	cmder := &newsCommander{}

	cmd := &cobra.Command{
		Use:   "news [interests...]",
		Short: newsShortDesc,
		Long:  newsLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagGatewayTarget,
				config.FlagToken,
			})
			cfg := config.FromViper(v)
			cmder.gatewayTarget = cfg.Client.GatewayTarget
			cmder.token = cfg.Client.Token
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagGatewayTarget, &cmder.gatewayTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagToken, &cmder.token)

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

func (c *newsCommander) run(ctx context.Context, interests string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.logger == nil {
		c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))
	}

	client := chat.NewClient(chat.Config{
		GatewayURL: c.gatewayTarget,
		Token:      c.token,
		Logger:     c.logger,
	})

	fmt.Fprintln(c.out)
	var items []news.Item
	err := cliui.Step(c.out, "Finding career news", func() error {
		var err error
		items, err = client.News(ctx, interests)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out)

	printItems(c.out, items)
	return nil
}

func printItems(w io.Writer, items []news.Item) {
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s No news available.\n\n", cliui.DimStyle.Render("●"))
		return
	}

	for _, item := range items {
		fmt.Fprintf(w, "  %s  %s\n", cliui.NameStyle.Render(item.Title), cliui.DimStyle.Render(item.Category))
		if item.Content != "" {
			fmt.Fprintf(w, "  %s\n", cliui.ValueStyle.Render(utils.Truncate(item.Content, 200)))
		}
		fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render(item.ID+" · "+item.CreatedAt.Format("2006-01-02")))
	}
}
