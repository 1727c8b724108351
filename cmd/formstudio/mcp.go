package formstudio

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schardosin/formstudio/pkg/logging"
	"github.com/schardosin/formstudio/pkg/mcpserver"
	"github.com/schardosin/formstudio/pkg/store"
)

// handleMCPCommand serves the form tools on stdio. stdout carries the
// protocol, so logs go to stderr.
func handleMCPCommand(ctx context.Context, args []string) error {
	mcpCmd := flag.NewFlagSet("mcp", flag.ContinueOnError)
	configPath := configFlag(mcpCmd)
	if err := mcpCmd.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.General.LogLevel))

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("serving MCP tools on stdio", "db", cfg.Storage.DBPath)
	return mcpserver.Run(ctx, mcpserver.Config{
		Forms:   db,
		Policy:  cfg.Builder.Policy(),
		Version: Version,
		Logger:  logger,
	})
}
