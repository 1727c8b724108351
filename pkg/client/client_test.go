package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/schardosin/formstudio/pkg/api"
	"github.com/schardosin/formstudio/pkg/config"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/history"
	"github.com/schardosin/formstudio/pkg/logging"
	"github.com/schardosin/formstudio/pkg/placement"
	"github.com/schardosin/formstudio/pkg/store"
	"github.com/schardosin/formstudio/pkg/transfer"
)

func newStudio(t *testing.T) *Client {
	t.Helper()
	db, err := store.Open(store.MemoryPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := &api.Server{
		Forms:   db,
		History: history.NewStore(&history.MemoryKV{}, nil),
		Config:  config.NewHolder("", nil),
		IDs:     &form.SequenceSource{Prefix: "n"},
		Logger:  logging.Discard(),
		Version: "1.2.3",
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL + "/")
}

func signupInput() store.Input {
	s := form.NewSchema("Sign up")
	s.Components = form.NewTree(
		&form.Component{ID: "e", Type: form.TypeEmail, Props: map[string]any{"label": "Email"}},
		&form.Component{ID: "p", Type: form.TypePassword},
	)
	return store.InputFromSchema(s)
}

func TestFormLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newStudio(t)

	version, err := c.Health(ctx)
	if err != nil || version != "1.2.3" {
		t.Fatalf("Health = %q, %v", version, err)
	}

	rec, err := c.CreateForm(ctx, signupInput())
	if err != nil {
		t.Fatalf("CreateForm: %v", err)
	}
	got, err := c.GetForm(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetForm: %v", err)
	}
	if !got.Schema.Components.Equal(signupInput().Schema.Components) {
		t.Errorf("stored tree differs: %v", got.Schema.Components.IDs())
	}

	in := signupInput()
	in.Name = "Register"
	if _, err := c.UpdateForm(ctx, rec.ID, in); err != nil {
		t.Fatalf("UpdateForm: %v", err)
	}
	list, err := c.ListForms(ctx)
	if err != nil {
		t.Fatalf("ListForms: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Register" {
		t.Errorf("list = %+v", list)
	}

	if err := c.DeleteForm(ctx, rec.ID); err != nil {
		t.Fatalf("DeleteForm: %v", err)
	}
	_, err = c.GetForm(ctx, rec.ID)
	if !ferrors.Is(err, ferrors.CodeNotFound) {
		t.Errorf("GetForm after delete: %v, expected %s", err, ferrors.CodeNotFound)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	c := newStudio(t)

	rec, err := c.CreateForm(ctx, signupInput())
	if err != nil {
		t.Fatalf("CreateForm: %v", err)
	}
	data, filename, err := c.ExportForm(ctx, rec.ID, transfer.YAML)
	if err != nil {
		t.Fatalf("ExportForm: %v", err)
	}
	if filename != "sign-up.yaml" {
		t.Errorf("filename = %q", filename)
	}

	imported, err := c.ImportForm(ctx, data, transfer.YAML)
	if err != nil {
		t.Fatalf("ImportForm: %v", err)
	}
	if imported.ID == rec.ID {
		t.Error("import should create a new record")
	}
	if diff := cmp.Diff(rec.Schema.Components.IDs(), imported.Schema.Components.IDs()); diff != "" {
		t.Errorf("round trip changed the tree (-exported +imported):\n%s", diff)
	}

	_, err = c.ImportForm(ctx, []byte(`{"name":"nope"}`), transfer.JSON)
	if !ferrors.Is(err, ferrors.CodeParse) {
		t.Errorf("ImportForm of a non-form: %v, expected %s", err, ferrors.CodeParse)
	}
}

func TestResolve(t *testing.T) {
	c := newStudio(t)
	tree := form.NewTree(&form.Component{ID: "a", Type: form.TypePicture})

	resp, err := c.Resolve(context.Background(), tree, form.TypeInput, placement.RightOf("a"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	row := resp.Tree.Nodes()[0]
	if row.Type != form.TypeRow || len(row.Children) != 2 || row.Children[0].ID != "a" {
		t.Errorf("unexpected tree: %v", resp.Tree.IDs())
	}

	_, err = c.Resolve(context.Background(), tree, form.TypeInput, placement.BottomOf("missing"))
	if !ferrors.Is(err, ferrors.CodeInvalidTarget) {
		t.Errorf("Resolve with unknown target: %v, expected %s", err, ferrors.CodeInvalidTarget)
	}
}

func TestErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("unreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()
		_, err := New(url).ListForms(ctx)
		if !ferrors.Is(err, ferrors.CodeNetwork) {
			t.Errorf("err = %v, expected %s", err, ferrors.CodeNetwork)
		}
	})

	t.Run("no envelope", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer ts.Close()
		_, err := New(ts.URL).ListForms(ctx)
		if !ferrors.Is(err, ferrors.CodeNetwork) {
			t.Errorf("err = %v, expected %s", err, ferrors.CodeNetwork)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		release := make(chan struct{})
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer ts.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := New(ts.URL).ListForms(ctx)
		if !ferrors.IsAborted(err) {
			t.Errorf("err = %v, expected %s", err, ferrors.CodeAborted)
		}
	})

	t.Run("server message is kept", func(t *testing.T) {
		_, err := newStudio(t).CreateForm(ctx, store.Input{})
		if !ferrors.Is(err, ferrors.CodeInvalidInput) || ferrors.UserMessage(err) != "name is required" {
			t.Errorf("err = %v", err)
		}
	})
}

func TestGenerateReportsServerCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"requestId":"req-9","status":"aborted"}`))
	}))
	t.Cleanup(ts.Close)

	resp, err := New(ts.URL).Generate(context.Background(), api.GenerateRequest{Prompt: "x"})
	if !ferrors.IsAborted(err) {
		t.Fatalf("err = %v, expected %s", err, ferrors.CodeAborted)
	}
	if resp.RequestID != "req-9" {
		t.Errorf("RequestID = %q", resp.RequestID)
	}
}
