package formstudio

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schardosin/formstudio/pkg/config"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/generator"
	"github.com/schardosin/formstudio/pkg/history"
	"github.com/schardosin/formstudio/pkg/launcher"
	"github.com/schardosin/formstudio/pkg/logging"
	"github.com/schardosin/formstudio/pkg/store"
	"github.com/schardosin/formstudio/pkg/transfer"
	"github.com/schardosin/formstudio/pkg/ui"
)

type generateOptions struct {
	prompt    string
	sessionID string
	edit      string
	output    string
	save      bool
	verbose   bool
}

func handleGenerateCommand(ctx context.Context, args []string, out io.Writer) error {
	genCmd := flag.NewFlagSet("generate", flag.ContinueOnError)
	configPath := configFlag(genCmd)
	var opts generateOptions
	genCmd.StringVar(&opts.sessionID, "session", "", "Continue this chat session")
	genCmd.StringVar(&opts.edit, "edit", "", "Form document to revise instead of starting from scratch")
	genCmd.StringVar(&opts.output, "o", "", "Write the generated form to this file (.json or .yaml)")
	genCmd.BoolVar(&opts.save, "save", false, "Save the generated form to the form store")
	genCmd.BoolVar(&opts.verbose, "verbose", false, "Show debug logs")

	if err := genCmd.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	opts.prompt = strings.TrimSpace(strings.Join(genCmd.Args(), " "))
	if opts.prompt == "" {
		return ferrors.New(ferrors.CodeInvalidInput, "describe the form to generate, e.g. formstudio generate a job application form")
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	return generate(ctx, cfg, opts, out)
}

func generate(ctx context.Context, cfg *config.AppConfig, opts generateOptions, out io.Writer) error {
	logger := cliLogger(opts.verbose)
	ctx = logging.WithLogger(ctx, logger)

	gen, err := launcher.NewGeneratorWith(ctx, cfg, generator.WithRetryHook(func(attempt, max int, reason error) {
		fmt.Fprintln(os.Stderr, ui.RenderRetryBadge(attempt, max, ferrors.UserMessage(reason)))
	}))
	if err != nil {
		return err
	}

	req := generator.Request{Prompt: opts.prompt}
	if opts.edit != "" {
		current, err := transfer.ImportFile(opts.edit)
		if err != nil {
			return err
		}
		req.Current = &current
	}

	hist := history.NewStore(history.NewFileKV(cfg.Storage.HistoryDir), logger)
	if opts.sessionID != "" {
		sess, err := hist.Get(opts.sessionID)
		if err != nil {
			return err
		}
		req.History = sess.Messages
	}

	var res generator.Result
	err = ui.RunWithSpinner(ctx, fmt.Sprintf("Generating with %s...", gen.Model()), func(ctx context.Context) error {
		var err error
		res, err = gen.Generate(ctx, req)
		return err
	})
	if err != nil {
		return err
	}

	schema := res.Schema
	sess, err := hist.Append(opts.sessionID,
		history.Message{Role: history.RoleUser, Content: opts.prompt},
		history.Message{Role: history.RoleAssistant, Content: res.Text, Schema: &schema},
	)
	if err != nil {
		logger.Warn("failed to record chat history", "err", err)
	}

	fmt.Fprint(out, ui.SmartRender(res.Text))
	fmt.Fprintln(out, ui.RenderTree(schema.Name, schema.Components))
	if sess.ID != "" {
		fmt.Fprintf(out, "Session %s (continue with --session %s)\n", sess.ID, sess.ID)
	}

	if opts.output != "" {
		if err := transfer.ExportFile(schema, opts.output); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", opts.output)
	}
	if opts.save {
		rec, err := saveGenerated(ctx, cfg, schema)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved form %q with id %d\n", rec.Name, rec.ID)
	}
	return nil
}

func saveGenerated(ctx context.Context, cfg *config.AppConfig, schema form.Schema) (store.Record, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
		return store.Record{}, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return store.Record{}, err
	}
	defer db.Close()

	in := store.InputFromSchema(schema)
	if in.Name == "" {
		in.Name = "Generated form"
	}
	return db.Create(ctx, in)
}
