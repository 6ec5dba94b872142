// Package chatcmder provides the chat command for talking to a campus tutor
// persona through the gateway.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/campusai/campus/pkg/apierr"
	"github.com/campusai/campus/pkg/chat"
	"github.com/campusai/campus/pkg/cliui"
	"github.com/campusai/campus/pkg/config"
	"github.com/campusai/campus/pkg/conversation"
	"github.com/campusai/campus/pkg/dotdir"
	"github.com/campusai/campus/pkg/logger"
	"github.com/campusai/campus/pkg/persona"
)

type chatCommander struct {
	gatewayTarget string
	token         string
	persona       string
	resume        bool
	plain         bool
	debug         bool
	configDir     string

	client *chat.Client
	view   *conversation.View
	dotdir *dotdir.Manager
	logger *slog.Logger
}

const chatLongDesc string = `Start an interactive chat session with a campus persona.

Messages are sent to the campus gateway, which attaches the persona's system
prompt and streams the reply back as it is generated.

Personas: tutor (default), exam-prep, career-guidance, pyq-analysis,
none.

After every completed reply the conversation is saved to
.campus/transcript.json. Use --resume to continue it.

In the terminal UI press Enter to send, Esc to stop a reply, Ctrl+L to
start over and Ctrl+C to quit. Without a terminal, type /reset to start
over and /exit or Ctrl+D to quit.

Examples:
  campus chat
  campus chat --persona exam-prep
  campus chat --resume
  echo "Explain Ohm's law" | campus chat --plain`

const chatShortDesc string = "Chat with a campus persona"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
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

			if _, err := persona.ParseChatTag(cmder.persona); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagGatewayTarget, &cmder.gatewayTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagToken, &cmder.token)
	cmd.Flags().StringVar(&cmder.persona, "persona", "", "Persona to chat with (default: the gateway's default persona)")
	cmd.Flags().BoolVarP(&cmder.resume, "resume", "r", false, "Continue the last saved conversation")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Use a plain line-based prompt instead of the terminal UI")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(os.Stderr), logger.WithComponent("chat"))
	c.dotdir = dotdir.NewManager()
	c.view = conversation.NewView()
	c.client = chat.NewClient(chat.Config{
		GatewayURL: c.gatewayTarget,
		Token:      c.token,
		Logger:     c.logger,
	})

	if c.token == "" {
		return errors.New("no gateway token: run 'campus token --save' or pass --token")
	}

	if c.resume {
		if err := c.restore(); err != nil {
			return err
		}
	}

	if !c.plain && isTerminal(in) && isTerminal(out) {
		return runTUI(ctx, c)
	}
	return c.runPlain(ctx, in, out)
}

// restore seeds the view with the saved transcript. The saved persona is
// reused unless --persona was given.
func (c *chatCommander) restore() error {
	t, err := c.dotdir.LoadTranscript(c.configDir)
	if err != nil {
		return fmt.Errorf("loading transcript: %w", err)
	}
	if t == nil {
		return nil
	}
	if c.persona == "" {
		c.persona = t.Persona
	}
	return c.view.Restore(t.Messages)
}

// save writes the current conversation to the transcript file. Failures are
// logged; losing a transcript never interrupts a chat.
func (c *chatCommander) save() {
	err := c.dotdir.SaveTranscript(&dotdir.Transcript{
		Persona:  c.persona,
		SavedAt:  time.Now().UTC(),
		Messages: c.view.Messages(),
	}, c.configDir)
	if err != nil {
		c.logger.Warn("could not save transcript", "error", err)
	}
}

func (c *chatCommander) reset() error {
	if err := c.view.Reset(); err != nil {
		return err
	}
	return c.dotdir.ClearTranscript(c.configDir)
}

func (c *chatCommander) personaLabel() string {
	if c.persona == "" {
		return "default"
	}
	return c.persona
}

func (c *chatCommander) runPlain(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out)
	if n := len(c.view.Messages()); n > 0 {
		fmt.Fprintf(out, "  %s Resuming conversation %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", n)),
		)
	} else {
		fmt.Fprintf(out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Fprintf(out, "  %s %s\n\n", cliui.KeyStyle.Render("Persona:"), cliui.NameStyle.Render(c.personaLabel()))
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /reset to start over, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, cliui.UserRoleStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(out)
			return nil
		case "/reset":
			if err := c.reset(); err != nil {
				return err
			}
			fmt.Fprintf(out, "  %s Conversation cleared\n\n", cliui.SuccessMark)
			continue
		}

		fmt.Fprint(out, cliui.AssistantRoleStyle.Render("assistant> "))
		printed := 0
		_, err := c.client.Send(ctx, c.view, c.persona, input, func(content string) {
			fmt.Fprint(out, content[printed:])
			printed = len(content)
		})
		fmt.Fprintln(out)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "  %s %s\n\n", cliui.FailMark, errorText(err))
			continue
		}
		fmt.Fprintln(out)
		c.save()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}

// errorText is the message shown for a failed turn.
func errorText(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Response stopped."
	}
	if errors.Is(err, conversation.ErrTurnInProgress) {
		return err.Error()
	}
	msg := apierr.As(err).UserMessage()
	if apierr.KindOf(err) == apierr.KindAuthenticationRequired {
		msg += " Run 'campus token --save' or pass --token."
	}
	return msg
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
