package formstudio

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/schardosin/formstudio/pkg/launcher"
	"github.com/schardosin/formstudio/pkg/store"
	"github.com/schardosin/formstudio/pkg/transfer"
)

func handleBackupCommand(ctx context.Context, args []string, out io.Writer) error {
	backupCmd := flag.NewFlagSet("backup", flag.ContinueOnError)
	configPath := configFlag(backupCmd)
	dir := backupCmd.String("dir", "", "Backup directory (default: backup.dir)")
	format := backupCmd.String("format", "", "json or yaml (default: backup.format)")
	if err := backupCmd.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dir == "" {
		*dir = cfg.Backup.Dir
	}
	if *format == "" {
		*format = cfg.Backup.Format
	}
	f, err := transfer.ParseFormat(*format)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	target, n, err := launcher.BackupForms(ctx, db, *dir, f, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Backed up %d forms to %s\n", n, target)
	return nil
}
