// Package tokencmder provides the token command that issues gateway bearer
// tokens.
package tokencmder

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/campusai/campus/pkg/auth"
	"github.com/campusai/campus/pkg/cliui"
	"github.com/campusai/campus/pkg/config"
)

type tokenCommander struct {
	subject string
	email   string
	role    string
	save    bool

	configDir string
	jwtSecret string
	issuer    string
	ttl       string
}

const tokenLongDesc string = `Issue a bearer token for the campus gateway.

Tokens are HS256 JWTs signed with auth.jwt_secret, the same secret the
gateway validates with. The token is printed to stdout; with --save it is
also stored as client.token so chat, analyze and news pick it up.

Roles: student (default), faculty, admin.

Examples:
  campus token --subject s-1024 --email asha@college.edu
  campus token --subject s-1024 --ttl 2h --save
  export CAMPUS_CLIENT_TOKEN=$(campus token --subject ci-bot --role admin)`

const tokenShortDesc string = "Issue a gateway bearer token"

func NewTokenCmd() *cobra.Command {
	cmder := &tokenCommander{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: tokenShortDesc,
		Long:  tokenLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagJWTSecret,
				config.FlagIssuer,
				config.FlagTokenTTL,
			})
			cfg := config.FromViper(v)
			cmder.jwtSecret = cfg.Auth.JWTSecret
			cmder.issuer = cfg.Auth.Issuer
			cmder.ttl = cfg.Auth.TokenTTL
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagJWTSecret, &cmder.jwtSecret)
	config.AddStringFlag(cmd, config.Flags, config.FlagIssuer, &cmder.issuer)
	config.AddStringFlag(cmd, config.Flags, config.FlagTokenTTL, &cmder.ttl)
	cmd.Flags().StringVar(&cmder.subject, "subject", "", "Subject (user ID) the token is issued to")
	cmd.Flags().StringVar(&cmder.email, "email", "", "Email claim")
	cmd.Flags().StringVar(&cmder.role, "role", auth.RoleStudent, "Role claim (student, faculty, admin)")
	cmd.Flags().BoolVar(&cmder.save, "save", false, "Store the token as client.token in config.toml")

	return cmd
}

func (c *tokenCommander) run(out, status io.Writer) error {
	if c.subject == "" {
		return errors.New("--subject is required")
	}
	if c.jwtSecret == "" {
		return errors.New("auth.jwt_secret is required: set --jwt-secret, CAMPUS_AUTH_JWT_SECRET or 'campus config set auth.jwt_secret'")
	}

	ttl, err := config.ParseTokenTTL(c.ttl)
	if err != nil {
		return err
	}

	issuer, err := auth.NewIssuer(c.jwtSecret, c.issuer, ttl)
	if err != nil {
		return err
	}

	token, err := issuer.Issue(c.subject, c.email, c.role)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, token)

	if !c.save {
		return nil
	}

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SetConfigValue("client.token", token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Fprintf(status, "\n  %s Saved token for %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(c.subject),
		cliui.DimStyle.Render("(expires in "+ttl.String()+")"),
	)
	return nil
}
