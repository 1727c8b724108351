package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	db.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func contactInput() Input {
	s := form.NewSchema("Contact")
	s.Components = form.NewTree(
		&form.Component{ID: "r1", Type: form.TypeRow, Children: []*form.Component{
			{ID: "i1", Type: form.TypeInput, Props: map[string]any{"label": "Name"}},
			{ID: "e1", Type: form.TypeEmail},
		}},
	)
	return Input{Code: "contact", Name: "Contact", Description: "Reach us", Schema: s}
}

func TestCreateGetList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	rec, err := db.Create(ctx, contactInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID == 0 || rec.Name != "Contact" || rec.CreatedAt.IsZero() {
		t.Errorf("unexpected record %+v", rec)
	}
	if !rec.Schema.Components.Equal(contactInput().Schema.Components) {
		t.Error("schema tree not stored verbatim")
	}

	got, err := db.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Code != "contact" || got.Description != "Reach us" {
		t.Errorf("unexpected record %+v", got)
	}

	second, _ := db.Create(ctx, Input{Name: "Second", Schema: form.NewSchema("Second")})
	list, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("expected the most recently updated first, got %d records", len(list))
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	rec, _ := db.Create(ctx, contactInput())
	first, _ := db.Create(ctx, Input{Name: "Other", Schema: form.NewSchema("Other")})

	in := contactInput()
	in.Name = "Contact v2"
	updated, err := db.Update(ctx, rec.ID, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Contact v2" || !updated.UpdatedAt.After(rec.UpdatedAt) || !updated.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("unexpected update %+v", updated)
	}

	list, _ := db.List(ctx)
	if list[0].ID != rec.ID || list[1].ID != first.ID {
		t.Error("expected the updated form to move to the front")
	}

	if _, err := db.Update(ctx, 999, in); !ferrors.Is(err, ferrors.CodeNotFound) {
		t.Errorf("Update(999) error = %v, expected NOT_FOUND", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	rec, _ := db.Create(ctx, contactInput())

	if err := db.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Get(ctx, rec.ID); !ferrors.Is(err, ferrors.CodeNotFound) {
		t.Errorf("Get after delete = %v, expected NOT_FOUND", err)
	}
	if err := db.Delete(ctx, rec.ID); !ferrors.Is(err, ferrors.CodeNotFound) {
		t.Errorf("second Delete = %v, expected NOT_FOUND", err)
	}
}

func TestCreateValidates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if _, err := db.Create(ctx, Input{Schema: form.NewSchema("")}); !ferrors.Is(err, ferrors.CodeInvalidInput) {
		t.Errorf("missing name: %v", err)
	}
	bad := contactInput()
	bad.Schema.Components = form.NewTree(&form.Component{ID: "a", Type: form.TypeInput}, &form.Component{ID: "a", Type: form.TypeInput})
	if _, err := db.Create(ctx, bad); !ferrors.Is(err, ferrors.CodeInvalidInput) {
		t.Errorf("duplicate ids: %v", err)
	}
}

func TestInputAcceptsStringSchema(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		nodes   int
		wantErr bool
	}{
		{"object", `{"name":"A","schema_json":{"name":"A","components":[{"id":"x","type":"input"}]}}`, 1, false},
		{"string", `{"name":"A","schema_json":"{\"name\":\"A\",\"components\":[{\"id\":\"x\",\"type\":\"input\"}]}"}`, 1, false},
		{"missing", `{"name":"A"}`, 0, false},
		{"garbage string", `{"name":"A","schema_json":"{oops"}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in Input
			err := json.Unmarshal([]byte(tt.body), &in)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if in.Schema.Components.Count() != tt.nodes {
				t.Errorf("count = %d, expected %d", in.Schema.Components.Count(), tt.nodes)
			}
			if in.Schema.Name != "A" {
				t.Errorf("schema name = %q", in.Schema.Name)
			}
		})
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "forms.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec, err := db.Create(context.Background(), contactInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	db.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(context.Background(), rec.ID); err != nil {
		t.Errorf("record lost after reopen: %v", err)
	}
}
