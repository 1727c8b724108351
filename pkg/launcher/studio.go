// Package launcher wires the studio together: config, storage, the REST
// API, the builder assets, config hot reload and scheduled backups.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/schardosin/formstudio/pkg/api"
	"github.com/schardosin/formstudio/pkg/config"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/generator"
	"github.com/schardosin/formstudio/pkg/history"
	"github.com/schardosin/formstudio/pkg/logging"
	"github.com/schardosin/formstudio/pkg/provider"
	"github.com/schardosin/formstudio/pkg/store"
	"github.com/schardosin/formstudio/web"
)

// shutdownTimeout bounds graceful shutdown. Request contexts derive from
// the studio context, so running generations abort as soon as it ends.
const shutdownTimeout = 10 * time.Second

// StudioOptions configures RunStudio.
type StudioOptions struct {
	// ConfigPath is the config file; empty means the default location.
	ConfigPath string
	// Port overrides server.port when non-zero.
	Port    int
	Version string
	Logger  *log.Logger
	// Ready, when set, receives the listen address once the server accepts
	// connections.
	Ready func(addr string)
}

// NewGenerator is the default api.GeneratorFactory: the configured default
// provider and model.
func NewGenerator(ctx context.Context, cfg *config.AppConfig) (*generator.Generator, error) {
	return NewGeneratorWith(ctx, cfg)
}

// NewGeneratorWith is NewGenerator with extra generator options, applied
// after the context logger.
func NewGeneratorWith(ctx context.Context, cfg *config.AppConfig, opts ...generator.Option) (*generator.Generator, error) {
	if cfg.General.DefaultProvider == "" {
		return nil, ferrors.New(ferrors.CodeInvalidInput, "no default provider configured; run 'formstudio setup'")
	}
	llm, err := provider.GetProvider(ctx, cfg.General.DefaultProvider, cfg.General.DefaultModel, cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]generator.Option{generator.WithLogger(logging.FromContext(ctx))}, opts...)
	return generator.New(llm, opts...)
}

// RunStudio serves the builder until ctx is cancelled.
func RunStudio(ctx context.Context, opts StudioOptions) error {
	path := opts.ConfigPath
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to locate config: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(os.Stderr, logging.ParseLevel(cfg.General.LogLevel))
	}
	ctx = logging.WithLogger(ctx, logger)

	holder := config.NewHolder(path, cfg)
	port := cfg.Server.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := &api.Server{
		Forms:        db,
		History:      history.NewStore(history.NewFileKV(cfg.Storage.HistoryDir), logger),
		Config:       holder,
		NewGenerator: NewGenerator,
		Logger:       logger,
		Version:      opts.Version,
	}

	backups := NewBackupScheduler(db, logger)
	if err := backups.Apply(cfg.Backup); err != nil {
		logger.Warn("backups disabled", "err", err)
	}
	defer backups.Stop()

	go func() {
		err := config.Watch(ctx, path, func(next *config.AppConfig) {
			holder.Set(next)
			logger.SetLevel(logging.ParseLevel(next.General.LogLevel))
			if err := backups.Apply(next.Backup); err != nil {
				logger.Warn("backup schedule not updated", "err", err)
			}
		})
		if err != nil {
			logger.Warn("config hot reload unavailable", "err", err)
		}
	}()

	router := mux.NewRouter()
	srv.RegisterRoutes(router)
	router.PathPrefix("/").Handler(assetHandler(cfg.Server.WebDir, logger))

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info("studio listening", "url", "http://"+ln.Addr().String(), "config", path, "db", cfg.Storage.DBPath)
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down studio")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// assetHandler serves the builder UI from webDir when set, the embedded
// build otherwise, and a placeholder page when neither exists.
func assetHandler(webDir string, logger *log.Logger) http.Handler {
	if webDir != "" {
		if info, err := os.Stat(filepath.Join(webDir, "index.html")); err == nil && !info.IsDir() {
			logger.Info("serving web assets from disk", "dir", webDir)
			return spaFileServer(http.Dir(webDir))
		}
		logger.Warn("web_dir has no index.html, using the embedded build", "dir", webDir)
	}
	if dist := web.GetDistFS(); dist != nil {
		return spaFileServer(http.FS(dist))
	}
	logger.Warn("no web assets found")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, placeholderPage)
	})
}

// spaFileServer serves files from fsys and falls back to index.html for
// client-side routes.
func spaFileServer(fsys http.FileSystem) http.Handler {
	fileServer := http.FileServer(fsys)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, err := fsys.Open(r.URL.Path)
		if err != nil {
			r.URL.Path = "/"
		} else {
			f.Close()
		}
		fileServer.ServeHTTP(w, r)
	})
}

const placeholderPage = `<!DOCTYPE html>
<html>
<head><title>Form Studio</title></head>
<body style="font-family: sans-serif; padding: 40px;">
<h1>Form Studio</h1>
<p>The builder UI is not bundled in this build. The API is available under <code>/api</code>.</p>
</body>
</html>`
