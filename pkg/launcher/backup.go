package launcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	rcron "github.com/robfig/cron/v3"

	"github.com/schardosin/formstudio/pkg/config"
	"github.com/schardosin/formstudio/pkg/store"
	"github.com/schardosin/formstudio/pkg/transfer"
)

// backupDirLayout names the per-run directory under the backup dir.
const backupDirLayout = "20060102-150405"

// BackupForms exports every stored form into a fresh timestamped directory
// under dir and returns that directory and the number of files written.
func BackupForms(ctx context.Context, forms store.Forms, dir string, f transfer.Format, now time.Time) (string, int, error) {
	records, err := forms.List(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to list forms: %w", err)
	}
	target := filepath.Join(dir, now.UTC().Format(backupDirLayout))
	if err := os.MkdirAll(target, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create backup directory: %w", err)
	}

	written := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return target, written, err
		}
		schema := rec.Schema
		if schema.Name == "" {
			schema.Name = rec.Name
		}
		// ids keep same-named forms apart
		name := fmt.Sprintf("%d-%s", rec.ID, transfer.Filename(schema.Name, f))
		data, err := transfer.Marshal(schema, f)
		if err != nil {
			return target, written, fmt.Errorf("failed to encode form %d: %w", rec.ID, err)
		}
		if err := os.WriteFile(filepath.Join(target, name), data, 0644); err != nil {
			return target, written, fmt.Errorf("failed to write form %d: %w", rec.ID, err)
		}
		written++
	}
	return target, written, nil
}

// BackupScheduler runs BackupForms on the configured cron schedule and
// follows config changes.
type BackupScheduler struct {
	forms  store.Forms
	logger *log.Logger

	mu      sync.Mutex
	cron    *rcron.Cron
	current config.BackupConfig
}

func NewBackupScheduler(forms store.Forms, logger *log.Logger) *BackupScheduler {
	return &BackupScheduler{forms: forms, logger: logger}
}

// Apply (re)installs the backup job for cfg. A disabled backup stops the
// scheduler; an unchanged config is a no-op.
func (b *BackupScheduler) Apply(cfg config.BackupConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cron != nil && cfg == b.current {
		return nil
	}
	b.stopLocked()
	b.current = cfg
	if !cfg.Enabled {
		return nil
	}

	format, err := transfer.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	c := rcron.New()
	_, err = c.AddFunc(cfg.Schedule, func() {
		dir, n, err := BackupForms(context.Background(), b.forms, cfg.Dir, format, time.Now())
		if err != nil {
			b.logger.Error("form backup failed", "dir", dir, "err", err)
			return
		}
		b.logger.Info("forms backed up", "dir", dir, "count", n)
	})
	if err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", cfg.Schedule, err)
	}
	c.Start()
	b.cron = c
	b.logger.Info("backup scheduled", "schedule", cfg.Schedule, "dir", cfg.Dir, "format", format)
	return nil
}

// Stop waits for a running backup to finish and removes the job.
func (b *BackupScheduler) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *BackupScheduler) stopLocked() {
	if b.cron == nil {
		return
	}
	<-b.cron.Stop().Done()
	b.cron = nil
}

// Next reports when the job runs next. ok is false when no job is
// scheduled.
func (b *BackupScheduler) Next() (next time.Time, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cron == nil {
		return time.Time{}, false
	}
	entries := b.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}, false
	}
	return entries[0].Next, true
}
