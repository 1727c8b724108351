package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != DefaultPort || cfg.Server.Host != DefaultHost {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Builder.DragThreshold != DefaultDragThreshold || cfg.Builder.AllowNestedRows {
		t.Errorf("builder = %+v", cfg.Builder)
	}
	if cfg.Storage.DBPath != filepath.Join(dir, "forms.db") {
		t.Errorf("db path = %s", cfg.Storage.DBPath)
	}
	if cfg.Storage.HistoryDir != filepath.Join(dir, "history") || cfg.Backup.Dir != filepath.Join(dir, "backups") {
		t.Errorf("storage = %+v backup = %+v", cfg.Storage, cfg.Backup)
	}
	if cfg.Providers == nil {
		t.Error("expected an initialised providers map")
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
general:
  default_provider: openai
  default_model: gpt-4o-mini
  log_level: debug
providers:
  openai:
    api_key: sk-test-1234
server:
  port: 8080
storage:
  db_path: /var/lib/formstudio/forms.db
  history_dir: chats
builder:
  drag_threshold: 8
  allow_nested_rows: true
  max_depth: 6
backup:
  enabled: true
  schedule: "0 3 * * *"
  format: yaml
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.DefaultProvider != "openai" || cfg.General.LogLevel != "debug" {
		t.Errorf("general = %+v", cfg.General)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Storage.DBPath != "/var/lib/formstudio/forms.db" {
		t.Errorf("absolute db path rewritten: %s", cfg.Storage.DBPath)
	}
	if cfg.Storage.HistoryDir != filepath.Join(dir, "chats") {
		t.Errorf("relative history dir not resolved: %s", cfg.Storage.HistoryDir)
	}
	policy := cfg.Builder.Policy()
	if !policy.AllowNestedRows || policy.MaxDepth != 6 || cfg.Builder.DragThreshold != 8 {
		t.Errorf("builder = %+v", cfg.Builder)
	}
	if !cfg.Backup.Enabled || cfg.Backup.Schedule != "0 3 * * *" || cfg.Backup.Format != "yaml" {
		t.Errorf("backup = %+v", cfg.Backup)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_ = os.WriteFile(path, []byte("general: [oops"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &AppConfig{
		General:   GeneralConfig{DefaultProvider: "gemini", DefaultModel: "gemini-2.0-flash"},
		Providers: map[string]ProviderConfig{"gemini": {"api_key": "g-key"}},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(cfg.Providers, back.Providers); diff != "" {
		t.Errorf("providers mismatch (-want +got):\n%s", diff)
	}
	if back.General.DefaultModel != "gemini-2.0-flash" {
		t.Errorf("model = %s", back.General.DefaultModel)
	}
}

func TestProviderEnvFallback(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "from-env")
	t.Setenv("OPENAI_API_KEY", "env-openai")

	cfg := &AppConfig{Providers: map[string]ProviderConfig{
		"openai": {"api_key": "from-config"},
	}}

	if got := cfg.Provider("openai")["api_key"]; got != "from-config" {
		t.Errorf("openai api_key = %q, expected the config value", got)
	}
	if got := cfg.Provider("groq")["api_key"]; got != "from-env" {
		t.Errorf("groq api_key = %q, expected the env value", got)
	}
	if _, ok := cfg.Providers["groq"]; ok {
		t.Error("Provider must not modify the config")
	}
}

func TestMasking(t *testing.T) {
	p := ProviderConfig{"api_key": "sk-abcdef123456", "base_url": "http://localhost:11434"}
	masked := p.Masked()
	if masked["api_key"] != "****3456" || masked["base_url"] != p["base_url"] {
		t.Errorf("masked = %v", masked)
	}
	if MaskSecret("abc") != "****" {
		t.Errorf("short secret = %q", MaskSecret("abc"))
	}
	if !IsMasked(masked["api_key"]) || IsMasked("sk-real") {
		t.Error("IsMasked misclassified a value")
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 1000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *AppConfig, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *AppConfig) { changes <- c })
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("server:\n  port: 2000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Server.Port == 2000 {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch returned %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestHolderUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, _ := Load(path)
	h := NewHolder(path, cfg)

	err := h.Update(func(c *AppConfig) error {
		c.General.DefaultProvider = "ollama"
		c.Providers["ollama"] = ProviderConfig{"base_url": "http://gpu:11434"}
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if h.Current().General.DefaultProvider != "ollama" {
		t.Error("update not live")
	}
	onDisk, _ := Load(path)
	if onDisk.Providers["ollama"]["base_url"] != "http://gpu:11434" {
		t.Errorf("update not saved: %+v", onDisk.Providers)
	}

	// a failing update leaves the live config alone
	_ = h.Update(func(c *AppConfig) error {
		c.General.DefaultProvider = "broken"
		return os.ErrInvalid
	})
	if h.Current().General.DefaultProvider != "ollama" {
		t.Error("failed update leaked into the live config")
	}

	// callers get copies
	cur := h.Current()
	cur.Providers["ollama"]["base_url"] = "mutated"
	if h.Current().Providers["ollama"]["base_url"] != "http://gpu:11434" {
		t.Error("Current returned shared provider maps")
	}
}
