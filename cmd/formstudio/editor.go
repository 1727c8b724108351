package formstudio

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// fallbackEditors are tried in order when neither $VISUAL nor $EDITOR is set.
var fallbackEditors = []string{"nano", "vim", "vi", "notepad"}

// editorCommand resolves the user's editor. $VISUAL and $EDITOR may carry
// arguments, e.g. "code --wait".
func editorCommand() ([]string, error) {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields, nil
		}
	}
	for _, name := range fallbackEditors {
		if _, err := exec.LookPath(name); err == nil {
			return []string{name}, nil
		}
	}
	return nil, fmt.Errorf("no editor found; set the EDITOR environment variable")
}

func openInEditor(path string) error {
	argv, err := editorCommand()
	if err != nil {
		return err
	}
	cmd := exec.Command(argv[0], append(argv[1:], path)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s exited: %w", argv[0], err)
	}
	return nil
}
