// Package analyzecmder provides the analyze command for question paper
// analysis through the campus gateway.
package analyzecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/campusai/campus/pkg/analysis"
	"github.com/campusai/campus/pkg/chat"
	"github.com/campusai/campus/pkg/cliui"
	"github.com/campusai/campus/pkg/config"
	"github.com/campusai/campus/pkg/logger"
)

type analyzeCommander struct {
	gatewayTarget string
	token         string
	text          string
	raw           bool
	debug         bool

	stdin  io.Reader
	out    io.Writer
	logger *slog.Logger
}

const analyzeLongDesc string = `Analyze previous year question papers.

Files are read from disk and joined with any pasted text into a single
payload, which the gateway's pyq-analysis persona turns into a summary of
recurring topics, marks distribution and study priorities.

Accepted files: plain text (.txt) up to 30MB each. PDF, Word, Excel,
PowerPoint and image uploads are recognised but their text must be pasted
with --text.
The combined content may not exceed 100,000 characters.

Use "-" as a file name to read pasted text from stdin.

Examples:
  campus analyze physics-2023.txt physics-2024.txt
  campus analyze --text "Q1. Derive the lens maker's formula (5 marks)..."
  pbpaste | campus analyze -`

const analyzeShortDesc string = "Analyze question papers"

func NewAnalyzeCmd() *cobra.Command {
	cmder := &analyzeCommander{}

	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: analyzeShortDesc,
		Long:  analyzeLongDesc,
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
			cmder.stdin = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), args)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagGatewayTarget, &cmder.gatewayTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagToken, &cmder.token)
	cmd.Flags().StringVar(&cmder.text, "text", "", "Pasted question paper text")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the analysis as raw markdown")

	return cmd
}

func (c *analyzeCommander) run(ctx context.Context, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.logger == nil {
		c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr))
	}

	content, files, err := c.buildContent(paths)
	if err != nil {
		return err
	}

	client := chat.NewClient(chat.Config{
		GatewayURL: c.gatewayTarget,
		Token:      c.token,
		Logger:     c.logger,
	})

	fmt.Fprintln(c.out)
	var result string
	err = cliui.Step(c.out, "Analyzing "+analysis.Summary(files, content), func() error {
		var err error
		result, err = client.Analyze(ctx, content)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	if c.raw {
		fmt.Fprintln(c.out, result)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(result)
	if err != nil {
		c.logger.Debug("markdown rendering failed", "error", err)
	}
	fmt.Fprint(c.out, rendered)
	return nil
}

// buildContent assembles the payload from files and pasted text and
// returns it with the number of files included.
func (c *analyzeCommander) buildContent(paths []string) (string, int, error) {
	b := analysis.NewBuilder()
	pasted := c.text

	for _, p := range paths {
		if p == "-" {
			data, err := io.ReadAll(c.stdin)
			if err != nil {
				return "", 0, fmt.Errorf("reading stdin: %w", err)
			}
			if pasted != "" {
				pasted += "\n\n"
			}
			pasted += string(data)
			continue
		}
		if err := b.AddPath(p); err != nil {
			return "", 0, err
		}
	}
	b.SetPasted(pasted)

	if len(b.Files()) == 0 && pasted == "" {
		return "", 0, errors.New("nothing to analyze: pass files or --text")
	}

	content, err := b.Build()
	if err != nil {
		return "", 0, err
	}
	return content, len(b.Files()), nil
}
