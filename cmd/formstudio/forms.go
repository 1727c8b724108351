package formstudio

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/schardosin/formstudio/pkg/client"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/store"
	"github.com/schardosin/formstudio/pkg/transfer"
	"github.com/schardosin/formstudio/pkg/ui"
)

func handleFormsCommand(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 || args[0] == "-h" || args[0] == "--help" {
		printFormsUsage(out)
		return nil
	}

	switch args[0] {
	case "list":
		return handleFormsList(ctx, args[1:], out)
	case "show":
		return handleFormsShow(ctx, args[1:], out)
	case "export":
		return handleFormsExport(ctx, args[1:], out)
	case "import":
		return handleFormsImport(ctx, args[1:], out)
	case "delete":
		return handleFormsDelete(ctx, args[1:], out)
	case "place":
		return handleFormsPlace(ctx, args[1:], out)
	default:
		return fmt.Errorf("unknown forms subcommand: %s", args[0])
	}
}

func printFormsUsage(out io.Writer) {
	fmt.Fprintln(out, "usage: formstudio forms [-h] {list,show,export,import,delete,place} ...")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "positional arguments:")
	fmt.Fprintln(out, "  {list,show,export,import,delete,place}")
	fmt.Fprintln(out, "    list                List saved forms")
	fmt.Fprintln(out, "    show ID             Show a form and its component tree")
	fmt.Fprintln(out, "    export ID           Export a form as JSON or YAML")
	fmt.Fprintln(out, "    import FILE...      Import form documents")
	fmt.Fprintln(out, "    delete ID           Delete a form")
	fmt.Fprintln(out, "    place ID            Drop a new component onto a form")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Every subcommand accepts --server URL (default: $FORMSTUDIO_SERVER or the")
	fmt.Fprintln(out, "configured studio address) and --config PATH. Flags go before arguments.")
}

type formsFlags struct {
	fs         *flag.FlagSet
	server     *string
	configPath *string
}

func newFormsFlags(name string) formsFlags {
	fs := flag.NewFlagSet("forms "+name, flag.ContinueOnError)
	return formsFlags{
		fs:         fs,
		server:     fs.String("server", "", "Studio URL"),
		configPath: configFlag(fs),
	}
}

func (f formsFlags) parse(args []string) error {
	if err := f.fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	return nil
}

func (f formsFlags) client() *client.Client {
	return client.New(serverURL(*f.server, *f.configPath))
}

// idArg parses the single form id argument.
func (f formsFlags) idArg() (int64, error) {
	if f.fs.NArg() != 1 {
		return 0, ferrors.New(ferrors.CodeInvalidInput, "expected exactly one form id")
	}
	return parseID(f.fs.Arg(0))
}

func handleFormsList(ctx context.Context, args []string, out io.Writer) error {
	f := newFormsFlags("list")
	jsonOutput := f.fs.Bool("json", false, "Output in JSON format")
	if err := f.parse(args); err != nil {
		return err
	}

	records, err := f.client().ListForms(ctx)
	if err != nil {
		return err
	}
	if *jsonOutput {
		return writeJSON(out, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No forms saved yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCODE\tCOMPONENTS\tUPDATED")
	for _, rec := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", rec.ID, rec.Name, rec.Code,
			rec.Schema.Components.Count(), rec.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func handleFormsShow(ctx context.Context, args []string, out io.Writer) error {
	f := newFormsFlags("show")
	jsonOutput := f.fs.Bool("json", false, "Output the record as JSON")
	if err := f.parse(args); err != nil {
		return err
	}
	id, err := f.idArg()
	if err != nil {
		return err
	}

	rec, err := f.client().GetForm(ctx, id)
	if err != nil {
		return err
	}
	if *jsonOutput {
		return writeJSON(out, rec)
	}

	fmt.Fprint(out, ui.RenderCard(rec.Name, [][2]string{
		{"ID", strconv.FormatInt(rec.ID, 10)},
		{"Code", rec.Code},
		{"Description", rec.Description},
		{"Submit label", rec.Schema.Settings.SubmitLabel},
		{"Updated", rec.UpdatedAt.Local().Format("2006-01-02 15:04")},
	}))
	fmt.Fprintln(out, ui.RenderTree("Components", rec.Schema.Components))
	return nil
}

func handleFormsExport(ctx context.Context, args []string, out io.Writer) error {
	f := newFormsFlags("export")
	format := f.fs.String("format", "json", "Document format: json or yaml")
	output := f.fs.String("o", "", "Write to this file; the extension picks the format")
	if err := f.parse(args); err != nil {
		return err
	}
	id, err := f.idArg()
	if err != nil {
		return err
	}

	fmtValue, err := transfer.ParseFormat(*format)
	if err != nil {
		return err
	}
	if *output != "" {
		fmtValue = transfer.FormatFromFilename(*output)
	}

	data, filename, err := f.client().ExportForm(ctx, id, fmtValue)
	if err != nil {
		return err
	}
	if *output == "" {
		_, err := out.Write(data)
		return err
	}
	if err := os.WriteFile(*output, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *output, err)
	}
	fmt.Fprintf(out, "Exported %s to %s\n", filename, *output)
	return nil
}

func handleFormsImport(ctx context.Context, args []string, out io.Writer) error {
	f := newFormsFlags("import")
	if err := f.parse(args); err != nil {
		return err
	}
	files := f.fs.Args()
	if len(files) == 0 {
		return ferrors.New(ferrors.CodeInvalidInput, "expected at least one file to import")
	}
	c := f.client()

	importOne := func(path string) (store.Record, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return store.Record{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return c.ImportForm(ctx, data, transfer.FormatFromFilename(path))
	}

	if len(files) == 1 || !isTerminal(os.Stdout) {
		var failed int
		for _, path := range files {
			rec, err := importOne(path)
			if err != nil {
				if len(files) == 1 {
					return err
				}
				failed++
				fmt.Fprintf(out, "%s: %s\n", path, ferrors.UserMessage(err))
				continue
			}
			fmt.Fprintf(out, "Imported %s as %q (id %d)\n", path, rec.Name, rec.ID)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed to import", failed, len(files))
		}
		return nil
	}

	p := ui.NewProgressProgram(len(files), "Importing forms")
	go func() {
		for _, path := range files {
			_, err := importOne(path)
			if err != nil {
				err = fmt.Errorf("%s", ferrors.UserMessage(err))
			}
			p.Send(ui.ItemDoneMsg{Name: filepath.Base(path), Err: err})
		}
	}()
	final, err := p.Run()
	if err != nil {
		return err
	}
	if _, failed := final.(ui.ProgressModel).Processed(); failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, len(files))
	}
	return nil
}

func handleFormsDelete(ctx context.Context, args []string, out io.Writer) error {
	f := newFormsFlags("delete")
	yes := f.fs.Bool("yes", false, "Do not ask for confirmation")
	if err := f.parse(args); err != nil {
		return err
	}
	id, err := f.idArg()
	if err != nil {
		return err
	}
	c := f.client()

	if !*yes {
		if !isTerminal(os.Stdin) {
			return ferrors.New(ferrors.CodeInvalidInput, "refusing to delete without --yes when not interactive")
		}
		rec, err := c.GetForm(ctx, id)
		if err != nil {
			return err
		}
		ok, err := ui.Confirm(fmt.Sprintf("Delete form %q (id %d)?", rec.Name, rec.ID))
		if err != nil || !ok {
			return err
		}
	}

	if err := c.DeleteForm(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted form %d\n", id)
	return nil
}

func handleFormsPlace(ctx context.Context, args []string, out io.Writer) error {
	f := newFormsFlags("place")
	typ := f.fs.String("type", "", "Component type to create, e.g. input")
	targetSpec := f.fs.String("target", "root", "Drop target KIND[:NODE][:INDEX], e.g. right-of:email")
	label := f.fs.String("label", "", "Label of the new component")
	save := f.fs.Bool("save", false, "Save the result; otherwise only preview it")
	if err := f.parse(args); err != nil {
		return err
	}
	id, err := f.idArg()
	if err != nil {
		return err
	}
	if *typ == "" {
		return ferrors.New(ferrors.CodeInvalidInput, "--type is required")
	}
	target, err := parseTarget(*targetSpec)
	if err != nil {
		return err
	}
	c := f.client()

	rec, err := c.GetForm(ctx, id)
	if err != nil {
		return err
	}
	res, err := c.Resolve(ctx, rec.Schema.Components, form.ComponentType(*typ), target)
	if err != nil {
		return err
	}
	tree := res.Tree
	if *label != "" {
		tree, err = withLabel(tree, res.Node.ID, *label)
		if err != nil {
			return err
		}
	}

	if res.Target != target {
		fmt.Fprintf(out, "Placed %s %s (resolved to %s)\n", *typ, res.Node.ID, res.Target)
	} else {
		fmt.Fprintf(out, "Placed %s %s\n", *typ, res.Node.ID)
	}
	fmt.Fprintln(out, ui.RenderTree(rec.Name, tree))

	if !*save {
		fmt.Fprintln(out, "Preview only; pass --save to update the form.")
		return nil
	}
	in := store.Input{Code: rec.Code, Name: rec.Name, Description: rec.Description, Schema: rec.Schema.WithComponents(tree)}
	if _, err := c.UpdateForm(ctx, rec.ID, in); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved form %d\n", rec.ID)
	return nil
}

// withLabel sets the label of node id. The tree was decoded from the
// response, so nothing else shares its nodes.
func withLabel(t form.Tree, id, label string) (form.Tree, error) {
	n, err := t.Find(id)
	if err != nil {
		return t, err
	}
	if n.Props == nil {
		n.Props = map[string]any{}
	}
	n.Props["label"] = label
	return t, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
