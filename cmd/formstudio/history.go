package formstudio

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/history"
	"github.com/schardosin/formstudio/pkg/ui"
)

func handleHistoryCommand(args []string, out io.Writer) error {
	if len(args) < 1 || args[0] == "-h" || args[0] == "--help" {
		printHistoryUsage(out)
		return nil
	}

	histCmd := flag.NewFlagSet("history "+args[0], flag.ContinueOnError)
	configPath := configFlag(histCmd)
	if err := histCmd.Parse(args[1:]); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	hist := history.NewStore(history.NewFileKV(cfg.Storage.HistoryDir), nil)

	switch args[0] {
	case "list":
		return historyList(hist, out)
	case "show":
		if histCmd.NArg() != 1 {
			return ferrors.New(ferrors.CodeInvalidInput, "expected exactly one session id")
		}
		return historyShow(hist, histCmd.Arg(0), out)
	case "delete":
		if histCmd.NArg() != 1 {
			return ferrors.New(ferrors.CodeInvalidInput, "expected exactly one session id")
		}
		if err := hist.Delete(histCmd.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted session %s\n", histCmd.Arg(0))
		return nil
	case "clear":
		if err := hist.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Chat history cleared.")
		return nil
	default:
		return fmt.Errorf("unknown history subcommand: %s", args[0])
	}
}

func printHistoryUsage(out io.Writer) {
	fmt.Fprintln(out, "usage: formstudio history [-h] {list,show,delete,clear} [--config PATH] ...")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "positional arguments:")
	fmt.Fprintln(out, "  {list,show,delete,clear}")
	fmt.Fprintln(out, "    list                List chat sessions, most recent first")
	fmt.Fprintln(out, "    show ID             Print the messages of a session")
	fmt.Fprintln(out, "    delete ID           Delete a session")
	fmt.Fprintln(out, "    clear               Delete every session")
}

func historyList(hist *history.Store, out io.Writer) error {
	sessions, err := hist.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No chat sessions yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUPDATED\tMESSAGES\tSUMMARY")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.UpdatedAt.Local().Format("2006-01-02 15:04"), len(s.Messages), s.Summary)
	}
	return w.Flush()
}

func historyShow(hist *history.Store, id string, out io.Writer) error {
	sess, err := hist.Get(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n\n", sess.Summary)
	for _, m := range sess.Messages {
		fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), m.Role, m.Content)
		if m.Schema != nil {
			fmt.Fprintln(out, ui.RenderTree(m.Schema.Name, m.Schema.Components))
		}
	}
	return nil
}
