package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/schardosin/formstudio/pkg/ferrors"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLite is a Forms implementation on a single SQLite file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Forms = (*SQLite)(nil)

// Open opens (creating when needed) the database at path.
func Open(path string) (*SQLite, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: in-memory databases are per connection, and SQLite
	// serialises writers anyway
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, now: time.Now}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *SQLite) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			schema_json TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forms_updated ON forms(updated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const selectForms = `SELECT id, code, name, description, schema_json, created_at, updated_at FROM forms`

func (s *SQLite) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectForms+` ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, id int64) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectForms+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ferrors.New(ferrors.CodeNotFound, "form %d not found", id)
	}
	return rec, err
}

func (s *SQLite) Create(ctx context.Context, in Input) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, err
	}
	doc, err := json.Marshal(in.Schema)
	if err != nil {
		return Record{}, fmt.Errorf("encode schema: %w", err)
	}
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO forms (code, name, description, schema_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		in.Code, in.Name, in.Description, string(doc), formatTime(now), formatTime(now))
	if err != nil {
		return Record{}, fmt.Errorf("insert form: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("insert form: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *SQLite) Update(ctx context.Context, id int64, in Input) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, err
	}
	doc, err := json.Marshal(in.Schema)
	if err != nil {
		return Record{}, fmt.Errorf("encode schema: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE forms SET code = ?, name = ?, description = ?, schema_json = ?, updated_at = ? WHERE id = ?`,
		in.Code, in.Name, in.Description, string(doc), formatTime(s.now().UTC()), id)
	if err != nil {
		return Record{}, fmt.Errorf("update form %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Record{}, ferrors.New(ferrors.CodeNotFound, "form %d not found", id)
	}
	return s.Get(ctx, id)
}

func (s *SQLite) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete form %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ferrors.New(ferrors.CodeNotFound, "form %d not found", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec              Record
		doc              string
		created, updated string
	)
	if err := row.Scan(&rec.ID, &rec.Code, &rec.Name, &rec.Description, &doc, &created, &updated); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(doc), &rec.Schema); err != nil {
		return Record{}, ferrors.Wrap(ferrors.CodeParse, err, "form %d has an unreadable schema", rec.ID)
	}
	rec.CreatedAt = parseTime(created)
	rec.UpdatedAt = parseTime(updated)
	return rec, nil
}

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
