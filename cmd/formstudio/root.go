package formstudio

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Execute is the main entry point for the CLI
func Execute(ctx context.Context) error {
	return run(ctx, os.Args[1:], os.Stdout)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 || args[0] == "-h" || args[0] == "--help" {
		printUsage(out)
		if len(args) < 1 {
			return fmt.Errorf("no command provided")
		}
		return nil
	}

	command := args[0]
	switch command {
	case "studio":
		return handleStudioCommand(ctx, args[1:])
	case "forms":
		return handleFormsCommand(ctx, args[1:], out)
	case "generate":
		return handleGenerateCommand(ctx, args[1:], out)
	case "history":
		return handleHistoryCommand(args[1:], out)
	case "backup":
		return handleBackupCommand(ctx, args[1:], out)
	case "mcp":
		return handleMCPCommand(ctx, args[1:])
	case "setup":
		return handleSetupCommand(ctx, args[1:], out)
	case "config":
		return handleConfigCommand(args[1:], out)
	case "version", "--version":
		printVersion(out)
		return nil
	default:
		printUsage(out)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "usage: formstudio [-h] {studio,forms,generate,history,backup,mcp,setup,config,version} ...")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "positional arguments:")
	fmt.Fprintln(out, "  {studio,forms,generate,history,backup,mcp,setup,config,version}")
	fmt.Fprintln(out, "                        Form Studio commands")
	fmt.Fprintln(out, "    studio              Launch the visual form builder")
	fmt.Fprintln(out, "    forms               Manage saved forms through a running studio")
	fmt.Fprintln(out, "    generate            Generate a form from a description")
	fmt.Fprintln(out, "    history             Browse the AI chat history")
	fmt.Fprintln(out, "    backup              Export every saved form to a backup directory")
	fmt.Fprintln(out, "    mcp                 Serve the forms as MCP tools on stdio")
	fmt.Fprintln(out, "    setup               Run interactive setup")
	fmt.Fprintln(out, "    config              Manage configuration")
	fmt.Fprintln(out, "    version             Print version information")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "options:")
	fmt.Fprintln(out, "  -h, --help            show this help message and exit")
}
