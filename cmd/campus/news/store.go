package newscmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campusai/campus/pkg/cliui"
	"github.com/campusai/campus/pkg/config"
	"github.com/campusai/campus/pkg/news"
	"github.com/campusai/campus/pkg/storage"
	storageutils "github.com/campusai/campus/pkg/storage/utils"
)

// storeFlags wires --sqlite and --postgres through the config precedence
// chain and opens the store they name.
type storeFlags struct {
	sqlitePath  string
	postgresDSN string
}

func (s *storeFlags) register(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &s.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &s.postgresDSN)
}

func (s *storeFlags) resolve(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	v, err := config.InitViper(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagSQLite, config.FlagPostgres})
	cfg := config.FromViper(v)
	s.sqlitePath = cfg.Storage.SQLitePath
	s.postgresDSN = cfg.Storage.PostgresDSN
	return nil
}

func (s *storeFlags) open(ctx context.Context) (storage.NewsDriver, error) {
	opts := &storageutils.NewNewsDriverOpts{
		SQLitePath:  s.sqlitePath,
		PostgresDSN: s.postgresDSN,
	}
	if opts.Kind() == "inmemory" {
		return nil, errors.New("no news store configured: set --sqlite, --postgres or storage.sqlite_path")
	}
	return storageutils.NewNewsDriver(ctx, opts)
}

const addLongDesc string = `Add a career news item to the news store.

The item gets a fresh ID and the current time, so it is immediately the
newest candidate for recommendations.

Examples:
  campus news add --sqlite news.db --title "Campus hiring drive" --category jobs \
    --content "Forty companies visit campus next week."`

func newAddCmd() *cobra.Command {
	var (
		store                    storeFlags
		title, category, content string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a news item to the store",
		Long:  addLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return store.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if title == "" {
				return errors.New("--title is required")
			}

			d, err := store.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			item := news.NewItem(title, category, content)
			if _, err := d.Put(cmd.Context(), item); err != nil {
				return fmt.Errorf("storing news item: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Added %s %s\n\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(item.Title),
				cliui.DimStyle.Render("("+item.ID+")"),
			)
			return nil
		},
	}

	store.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "Headline")
	cmd.Flags().StringVar(&category, "category", "", "Category, e.g. jobs, internships, exams")
	cmd.Flags().StringVar(&content, "content", "", "Article text")

	return cmd
}

func newListCmd() *cobra.Command {
	var (
		store storeFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest news items in the store",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return store.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := store.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			items, err := d.Latest(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing news: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout())
			printItems(cmd.OutOrStdout(), items)
			return nil
		},
	}

	store.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultLatestLimit, "Number of items to show")

	return cmd
}

func newShowCmd() *cobra.Command {
	var store storeFlags

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one news item from the store in full",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return store.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := store.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			item, err := d.Get(cmd.Context(), args[0])
			if err != nil {
				var notFound storage.NotFoundError
				if errors.As(err, &notFound) {
					return fmt.Errorf("no news item with ID %s", args[0])
				}
				return fmt.Errorf("loading news item: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n  %s  %s\n", cliui.NameStyle.Render(item.Title), cliui.DimStyle.Render(item.Category))
			fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render(item.ID+" · "+item.CreatedAt.Format("2006-01-02 15:04")))
			if item.Content != "" {
				fmt.Fprintf(out, "%s\n\n", item.Content)
			}
			return nil
		},
	}

	store.register(cmd)
	return cmd
}
