package formstudio

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/schardosin/formstudio/pkg/api"
	"github.com/schardosin/formstudio/pkg/config"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/history"
	"github.com/schardosin/formstudio/pkg/logging"
	"github.com/schardosin/formstudio/pkg/placement"
	"github.com/schardosin/formstudio/pkg/store"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		input    string
		expected placement.Target
		wantErr  bool
	}{
		{"right-of:email", placement.RightOf("email"), false},
		{"bottom-of:r1", placement.BottomOf("r1"), false},
		{"inside-container:box", placement.InsideContainer("box", -1), false},
		{"inside-row:r1:0", placement.InsideRow("r1", 0), false},
		{"root", placement.AtRoot(-1), false},
		{"root:2", placement.AtRoot(2), false},
		{"right-of", placement.Target{}, true},
		{"inside-row:r1:first", placement.Target{}, true},
		{"left-of:a", placement.Target{}, true},
		{"root:1:2", placement.Target{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseTarget(tt.input)
			if tt.wantErr {
				if !ferrors.Is(err, ferrors.CodeInvalidInput) {
					t.Errorf("parseTarget(%q) error = %v, expected INVALID_INPUT", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTarget(%q): %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("parseTarget(%q) = %+v, expected %+v", tt.input, got, tt.expected)
			}
		})
	}
}

// newStudio serves the API over an in-memory store and points the forms
// commands at it.
func newStudio(t *testing.T) *store.SQLite {
	t.Helper()
	db, err := store.Open(store.MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	srv := &api.Server{
		Forms:   db,
		History: history.NewStore(&history.MemoryKV{}, nil),
		Config:  config.NewHolder("", nil),
		IDs:     &form.SequenceSource{Prefix: "n"},
		Logger:  logging.Discard(),
		Version: "test",
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Setenv(ServerEnv, ts.URL)
	return db
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFormsCommands(t *testing.T) {
	db := newStudio(t)
	dir := t.TempDir()

	out, err := runCLI(t, "forms", "list")
	if err != nil || !strings.Contains(out, "No forms saved yet.") {
		t.Fatalf("empty list = %q, %v", out, err)
	}

	contact := writeFile(t, dir, "contact.yaml", `
name: Contact
code: CT
components:
  - id: name
    type: input
    props:
      label: Name
  - id: msg
    type: textarea
`)
	out, err = runCLI(t, "forms", "import", contact)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, `as "Contact" (id 1)`) {
		t.Errorf("import output = %q", out)
	}

	out, err = runCLI(t, "forms", "list")
	if err != nil || !strings.Contains(out, "Contact") || !strings.Contains(out, "CT") {
		t.Errorf("list = %q, %v", out, err)
	}

	out, err = runCLI(t, "forms", "show", "1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Contact", "Components (2 components)", `input name "Name"`, "textarea msg"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output is missing %q:\n%s", want, out)
		}
	}

	exported := filepath.Join(dir, "out.json")
	if _, err := runCLI(t, "forms", "export", "-o", exported, "1"); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(exported)
	if err != nil || !strings.Contains(string(data), `"name": "Contact"`) {
		t.Errorf("exported file = %s, %v", data, err)
	}

	out, err = runCLI(t, "forms", "place", "--type", "date", "--target", "right-of:name", "--label", "When", "--save", "1")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if !strings.Contains(out, "Saved form 1") {
		t.Errorf("place output = %q", out)
	}
	rec, err := db.Get(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"n-2", "name", "n-1", "msg"}, rec.Schema.Components.IDs()); diff != "" {
		t.Errorf("placed tree mismatch (-expected +got):\n%s", diff)
	}
	if n, _ := rec.Schema.Components.Find("n-1"); n.Label() != "When" {
		t.Errorf("label = %q", n.Label())
	}

	if _, err := runCLI(t, "forms", "delete", "--yes", "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := runCLI(t, "forms", "show", "1"); !ferrors.Is(err, ferrors.CodeNotFound) {
		t.Errorf("show after delete = %v, expected NOT_FOUND", err)
	}
}

func TestFormsCommandErrors(t *testing.T) {
	newStudio(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		code ferrors.Code
	}{
		{"show without id", []string{"forms", "show"}, ferrors.CodeInvalidInput},
		{"bad id", []string{"forms", "show", "abc"}, ferrors.CodeInvalidInput},
		{"unknown form", []string{"forms", "show", "42"}, ferrors.CodeNotFound},
		{"place without type", []string{"forms", "place", "1"}, ferrors.CodeInvalidInput},
		{"import nothing", []string{"forms", "import"}, ferrors.CodeInvalidInput},
		{"import garbage", []string{"forms", "import", writeFile(t, dir, "bad.json", `{"name":"x"}`)}, ferrors.CodeParse},
		{"delete without confirmation", []string{"forms", "delete", "1"}, ferrors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			if !ferrors.Is(err, tt.code) {
				t.Errorf("err = %v, expected %s", err, tt.code)
			}
		})
	}
}

func TestPlaceRejectedDropLeavesFormUnchanged(t *testing.T) {
	db := newStudio(t)
	s := form.NewSchema("Grid")
	s.Components = form.NewTree(&form.Component{ID: "a", Type: form.TypeInput})
	if _, err := db.Create(context.Background(), store.InputFromSchema(s)); err != nil {
		t.Fatal(err)
	}

	_, err := runCLI(t, "forms", "place", "--type", "input", "--target", "inside-container:a", "--save", "1")
	if !ferrors.Is(err, ferrors.CodeInvalidTarget) {
		t.Fatalf("err = %v, expected INVALID_TARGET", err)
	}
	rec, _ := db.Get(context.Background(), 1)
	if diff := cmp.Diff([]string{"a"}, rec.Schema.Components.IDs()); diff != "" {
		t.Errorf("tree changed (-expected +got):\n%s", diff)
	}
}

func TestHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := config.Save(path, &config.AppConfig{}); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "history", "list", "--config", path)
	if err != nil || !strings.Contains(out, "No chat sessions yet.") {
		t.Fatalf("empty history = %q, %v", out, err)
	}

	hist := history.NewStore(history.NewFileKV(filepath.Join(dir, "history")), nil)
	schema := form.NewSchema("Login")
	schema.Components = form.NewTree(&form.Component{ID: "u", Type: form.TypeInput})
	sess, err := hist.Append("",
		history.Message{Role: history.RoleUser, Content: "a login form"},
		history.Message{Role: history.RoleAssistant, Content: "Done.", Schema: &schema},
	)
	if err != nil {
		t.Fatal(err)
	}

	out, err = runCLI(t, "history", "list", "--config", path)
	if err != nil || !strings.Contains(out, sess.ID) || !strings.Contains(out, "a login form") {
		t.Errorf("list = %q, %v", out, err)
	}

	out, err = runCLI(t, "history", "show", "--config", path, sess.ID)
	if err != nil || !strings.Contains(out, "user: a login form") || !strings.Contains(out, "input u") {
		t.Errorf("show = %q, %v", out, err)
	}

	if _, err := runCLI(t, "history", "delete", "--config", path, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := runCLI(t, "history", "delete", "--config", path, sess.ID); !ferrors.Is(err, ferrors.CodeNotFound) {
		t.Errorf("second delete = %v, expected NOT_FOUND", err)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := &config.AppConfig{Providers: map[string]config.ProviderConfig{
		"openai": {"api_key": "sk-secret-9876"},
	}}
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "sk-secret") || !strings.Contains(out, "****9876") {
		t.Errorf("secret not masked:\n%s", out)
	}
	if !strings.Contains(out, "port: 9393") {
		t.Errorf("defaults not shown:\n%s", out)
	}
}

func TestBackupCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := config.Save(path, &config.AppConfig{}); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		t.Fatal(err)
	}
	s := form.NewSchema("Survey")
	s.Components = form.NewTree(&form.Component{ID: "q", Type: form.TypeRadio})
	if _, err := db.Create(context.Background(), store.InputFromSchema(s)); err != nil {
		t.Fatal(err)
	}
	db.Close()

	out, err := runCLI(t, "backup", "--config", path, "--format", "yaml")
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if !strings.Contains(out, "Backed up 1 forms to "+filepath.Join(dir, "backups")) {
		t.Errorf("backup output = %q", out)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "backups", "*", "1-survey.yaml"))
	if len(matches) != 1 {
		t.Errorf("backup files = %v", matches)
	}
}

func TestUnknownCommand(t *testing.T) {
	out, err := runCLI(t, "frobnicate")
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(out, "usage: formstudio") {
		t.Errorf("usage not printed: %q", out)
	}
}
