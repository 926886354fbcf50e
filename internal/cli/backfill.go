package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/bookcards/internal/config"
	"github.com/mrlokans/bookcards/internal/entrypoint"
	"github.com/mrlokans/bookcards/internal/migrate"
)

// BackfillCommand recomputes book identities and links legacy flashcards.
type BackfillCommand struct {
	DatabasePath string
	BatchSize    int

	Config *config.Config
	Out    io.Writer
}

func NewBackfillCommand(cfg *config.Config) *BackfillCommand {
	return &BackfillCommand{Config: cfg, Out: os.Stdout}
}

func (cmd *BackfillCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.Config.Database.Path, "Path to the database file")
	fs.IntVar(&cmd.BatchSize, "batch-size", cmd.Config.Backfill.BatchSize, "Books loaded per query")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s backfill [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Recompute normalized titles, slugs and languages for every book and link\n")
		fmt.Fprintf(os.Stderr, "flashcards that only reference their book by title. Safe to run repeatedly.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.BatchSize <= 0 {
		return fmt.Errorf("-batch-size must be positive")
	}
	return nil
}

func (cmd *BackfillCommand) Run(ctx context.Context) error {
	cfg := *cmd.Config
	cfg.Database.Path = cmd.DatabasePath
	cfg.Backfill.BatchSize = cmd.BatchSize

	app, err := entrypoint.NewApp(&cfg, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	return cmd.run(ctx, app.Backfill)
}

func (cmd *BackfillCommand) run(ctx context.Context, runner interface {
	Run(ctx context.Context) (*migrate.Stats, error)
}) error {
	fmt.Fprintln(cmd.Out, "Book Backfill")
	fmt.Fprintln(cmd.Out, "=============")

	stats, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Out, "Books scanned:            %d\n", stats.Books)
	fmt.Fprintf(cmd.Out, "Books updated:            %d\n", stats.Updated)
	fmt.Fprintf(cmd.Out, "Conflicts skipped:        %d\n", stats.Conflicts)
	fmt.Fprintf(cmd.Out, "Legacy flashcards linked: %d\n", stats.LegacyLinked)
	fmt.Fprintf(cmd.Out, "Unresolved legacy titles: %d\n", stats.LegacyOrphans)
	return nil
}
