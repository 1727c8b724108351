package formstudio

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/schardosin/formstudio/pkg/config"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/logging"
	"github.com/schardosin/formstudio/pkg/placement"
)

// ServerEnv overrides the studio address used by the forms commands.
const ServerEnv = "FORMSTUDIO_SERVER"

func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "", "Path to config.yaml (default: the user config directory)")
}

// loadConfig loads the config at path, or at the default location when
// path is empty, and returns the path it used.
func loadConfig(path string) (*config.AppConfig, string, error) {
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, path, nil
}

// serverURL picks the studio address: the flag, then $FORMSTUDIO_SERVER,
// then the configured host and port.
func serverURL(flagValue, configPath string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(ServerEnv); env != "" {
		return env
	}
	host, port := config.DefaultHost, config.DefaultPort
	if cfg, _, err := loadConfig(configPath); err == nil {
		host, port = cfg.Server.Host, cfg.Server.Port
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// cliLogger logs warnings and errors to stderr, or everything with verbose.
func cliLogger(verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return logging.New(os.Stderr, level)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// parseTarget parses KIND[:NODE][:INDEX], for example "right-of:email",
// "inside-container:box:0", "root" or "root:2".
func parseTarget(s string) (placement.Target, error) {
	parts := strings.Split(s, ":")
	kind, err := placement.ParseKind(parts[0])
	if err != nil {
		return placement.Target{}, ferrors.Wrap(ferrors.CodeInvalidInput, err, "invalid target %q", s)
	}
	t := placement.Target{Kind: kind, Index: -1}
	rest := parts[1:]
	if kind != placement.KindRoot {
		if len(rest) == 0 || rest[0] == "" {
			return placement.Target{}, ferrors.New(ferrors.CodeInvalidInput, "target %q needs a node id, e.g. %s:<id>", s, parts[0])
		}
		t.NodeID, rest = rest[0], rest[1:]
	}
	if len(rest) > 1 {
		return placement.Target{}, ferrors.New(ferrors.CodeInvalidInput, "invalid target %q", s)
	}
	if len(rest) == 1 {
		idx, err := strconv.Atoi(rest[0])
		if err != nil {
			return placement.Target{}, ferrors.New(ferrors.CodeInvalidInput, "invalid index %q in target %q", rest[0], s)
		}
		t.Index = idx
	}
	return t, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ferrors.New(ferrors.CodeInvalidInput, "invalid form id %q", s)
	}
	return id, nil
}
