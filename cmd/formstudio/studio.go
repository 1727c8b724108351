package formstudio

import (
	"context"
	"flag"
	"fmt"

	"github.com/schardosin/formstudio/pkg/launcher"
)

func handleStudioCommand(ctx context.Context, args []string) error {
	studioCmd := flag.NewFlagSet("studio", flag.ExitOnError)
	port := studioCmd.Int("port", 0, "Port to run the studio server on (default: server.port, 9393)")
	configPath := configFlag(studioCmd)
	studioCmd.Usage = printStudioUsage

	if err := studioCmd.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	return launcher.RunStudio(ctx, launcher.StudioOptions{
		ConfigPath: *configPath,
		Port:       *port,
		Version:    Version,
		Ready: func(addr string) {
			fmt.Printf("Form Studio is running at http://%s (press Ctrl+C to stop)\n", addr)
		},
	})
}

func printStudioUsage() {
	fmt.Println("usage: formstudio studio [-h] [--port PORT] [--config PATH]")
	fmt.Println("")
	fmt.Println("Launch the Form Studio visual builder")
	fmt.Println("")
	fmt.Println("options:")
	fmt.Println("  -h, --help            show this help message and exit")
	fmt.Println("  --port PORT           Port to run the studio server on (default: 9393)")
	fmt.Println("  --config PATH         Path to config.yaml")
}
