package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/schardosin/formstudio/cmd/formstudio"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/ui"
)

// exitInterrupted is the shell convention for a run stopped by SIGINT.
const exitInterrupted = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := report(formstudio.Execute(ctx), os.Stderr)
	stop()
	os.Exit(code)
}

// report prints the outcome of a command and returns the exit status. A
// cancelled command is reported as information, not as a failure.
func report(err error, w io.Writer) int {
	switch {
	case err == nil:
		return 0
	case ferrors.IsAborted(err):
		fmt.Fprintln(w, "Cancelled.")
		return exitInterrupted
	case ferrors.GetCode(err) != "":
		fmt.Fprint(w, ui.RenderError(err))
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return 1
}
