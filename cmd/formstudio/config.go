package formstudio

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/schardosin/formstudio/pkg/config"
)

func handleConfigCommand(args []string, out io.Writer) error {
	if len(args) < 1 || args[0] == "-h" || args[0] == "--help" {
		printConfigUsage(out)
		return nil
	}

	configCmd := flag.NewFlagSet("config "+args[0], flag.ContinueOnError)
	configPath := configFlag(configCmd)
	if err := configCmd.Parse(args[1:]); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	switch args[0] {
	case "edit":
		return handleConfigEdit(*configPath)
	case "show":
		return handleConfigShow(*configPath, out)
	case "directory":
		return handleConfigDirectory(*configPath, out)
	default:
		return fmt.Errorf("unknown config subcommand: %s", args[0])
	}
}

func printConfigUsage(out io.Writer) {
	fmt.Fprintln(out, "usage: formstudio config [-h] {edit,show,directory} [--config PATH]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "positional arguments:")
	fmt.Fprintln(out, "  {edit,show,directory}")
	fmt.Fprintln(out, "                        Configuration management commands")
	fmt.Fprintln(out, "    edit                Open config.yaml in default editor")
	fmt.Fprintln(out, "    show                Print the effective configuration, secrets masked")
	fmt.Fprintln(out, "    directory           Print the configuration directory path")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "options:")
	fmt.Fprintln(out, "  -h, --help            show this help message and exit")
}

func handleConfigEdit(path string) error {
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return openInEditor(path)
}

// handleConfigShow prints the config with defaults applied. A running
// studio picks up edits to the file without a restart.
func handleConfigShow(path string, out io.Writer) error {
	cfg, path, err := loadConfig(path)
	if err != nil {
		return err
	}
	shown := cfg.Clone()
	for name, p := range shown.Providers {
		shown.Providers[name] = p.Masked()
	}

	data, err := yaml.Marshal(shown)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(out, "# %s does not exist; showing defaults\n", path)
	} else {
		fmt.Fprintf(out, "# %s\n", path)
	}
	_, err = out.Write(data)
	return err
}

func handleConfigDirectory(path string, out io.Writer) error {
	if path != "" {
		fmt.Fprintln(out, filepath.Dir(path))
		return nil
	}
	dir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	fmt.Fprintln(out, dir)
	return nil
}
