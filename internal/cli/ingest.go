package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/bookcards/internal/config"
	"github.com/mrlokans/bookcards/internal/entrypoint"
	"github.com/mrlokans/bookcards/internal/ingest"
)

// IngestCommand generates flashcards for one title without starting the server.
type IngestCommand struct {
	Title        string
	DatabasePath string
	JSON         bool

	Config *config.Config
	Out    io.Writer
}

func NewIngestCommand(cfg *config.Config) *IngestCommand {
	return &IngestCommand{Config: cfg, Out: os.Stdout}
}

func (cmd *IngestCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)

	fs.StringVar(&cmd.Title, "title", "", "Book title to generate flashcards for (required)")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.Config.Database.Path, "Path to the database file")
	fs.BoolVar(&cmd.JSON, "json", false, "Print the result as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s ingest -title <title> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Ask the completion service for flashcards about a book and store them.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s ingest -title \"atomic habits\"\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Title == "" {
		return fmt.Errorf("required flag -title not provided")
	}
	return nil
}

func (cmd *IngestCommand) Run(ctx context.Context) error {
	cfg := *cmd.Config
	cfg.Database.Path = cmd.DatabasePath

	app, err := entrypoint.NewApp(&cfg, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	return cmd.run(ctx, app.Ingest)
}

func (cmd *IngestCommand) run(ctx context.Context, svc interface {
	Ingest(ctx context.Context, title string) (*ingest.Result, error)
}) error {
	result, err := svc.Ingest(ctx, cmd.Title)
	if err != nil {
		return err
	}

	if cmd.JSON {
		enc := json.NewEncoder(cmd.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	status := "existing book"
	if result.Created {
		status = "new book"
	}
	fmt.Fprintf(cmd.Out, "%s by %s (%s, slug %s)\n", result.Book.Title, result.Book.Author, status, result.Slug)
	fmt.Fprintf(cmd.Out, "Stored %d flashcards:\n", len(result.Flashcards))
	for i, card := range result.Flashcards {
		fmt.Fprintf(cmd.Out, "  %d. %s\n     %s\n", i+1, card.Question, card.Answer)
	}
	return nil
}
