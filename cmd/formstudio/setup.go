package formstudio

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/schardosin/formstudio/pkg/config"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/provider"
	"github.com/schardosin/formstudio/pkg/ui"
)

func handleSetupCommand(ctx context.Context, args []string, out io.Writer) error {
	setupCmd := flag.NewFlagSet("setup", flag.ContinueOnError)
	configPath := configFlag(setupCmd)
	if err := setupCmd.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	options := make([]ui.Option, 0)
	for _, id := range provider.GetProviderIDs() {
		options = append(options, ui.Option{Label: provider.GetProviderDisplayName(id), Value: id})
	}
	selected, err := ui.ReadSelection(options, "Select a provider to configure")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Configuring %s...\n", provider.GetProviderDisplayName(selected))

	if cfg.Providers[selected] == nil {
		cfg.Providers[selected] = make(config.ProviderConfig)
	}
	keys := make([]string, 0, len(config.ProviderEnvMapping[selected]))
	for key := range config.ProviderEnvMapping[selected] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		current := cfg.Providers[selected][key]
		value, err := ui.ReadInput(fmt.Sprintf("%s %s", provider.GetProviderDisplayName(selected), key), current, config.SecretKeys[key])
		if err != nil {
			return err
		}
		if value != "" {
			cfg.Providers[selected][key] = value
		}
	}

	cfg.General.DefaultProvider = selected
	model, err := chooseModel(ctx, cfg, selected)
	if err != nil {
		return err
	}
	if model != "" {
		cfg.General.DefaultModel = model
	}

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(out, "Default model set to %s/%s. Configuration saved to %s\n", selected, cfg.General.DefaultModel, path)
	return nil
}

// chooseModel offers the provider's model list when it can be fetched and
// falls back to free text otherwise.
func chooseModel(ctx context.Context, cfg *config.AppConfig, name string) (string, error) {
	var models []string
	err := ui.RunWithSpinner(ctx, "Fetching available models...", func(ctx context.Context) error {
		var err error
		models, err = provider.ListModels(ctx, name, cfg)
		return err
	})
	if err != nil || len(models) == 0 {
		if err != nil && !ferrors.IsAborted(err) {
			fmt.Println(ui.RenderError(err))
		}
		return ui.ReadInput("Default model", cfg.General.DefaultModel, false)
	}

	options := make([]ui.Option, len(models))
	for i, m := range models {
		options[i] = ui.Option{Label: m, Value: m}
	}
	return ui.ReadSelection(options, "Select the default model")
}
