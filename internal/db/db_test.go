package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "creates new database",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "market.db")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "market.db")
			},
		},
		{
			name: "opens existing database",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "market.db")
				d, err := Open(path)
				if err != nil {
					t.Fatalf("setup: %v", err)
				}
				if err := d.Close(); err != nil {
					t.Fatalf("setup close: %v", err)
				}
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			d, err := Open(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() {
				if err := d.Close(); err != nil {
					t.Errorf("close: %v", err)
				}
			}()

			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Error("database file was not created")
			}
		})
	}
}

func TestWALMode(t *testing.T) {
	d := openTestDB(t)

	var mode string
	if err := d.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestForeignKeys(t *testing.T) {
	d := openTestDB(t)

	var fk int
	if err := d.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestMigrations(t *testing.T) {
	tests := []struct {
		name  string
		table string
		cols  []string
	}{
		{
			name:  "accounts table exists",
			table: "accounts",
			cols:  []string{"id", "email", "password_hash", "name", "confirmed", "created_at", "updated_at"},
		},
		{
			name:  "sessions table exists",
			table: "sessions",
			cols:  []string{"id", "user_id", "expires_at", "created_at"},
		},
		{
			name:  "property_images table exists",
			table: "property_images",
			cols:  []string{"property_id", "position", "object_key"},
		},
		{
			name:  "property_viewings table exists",
			table: "property_viewings",
			cols:  []string{"id", "property_id", "requester_id", "owner_id", "scheduled_at", "notes", "status", "created_at", "updated_at"},
		},
		{
			name:  "user_preferences table exists",
			table: "user_preferences",
			cols: []string{
				"id", "user_id", "catalogue_json", "favorites_json", "search_history_json",
				"price_min", "price_max", "preferred_locations_json", "created_at", "updated_at",
			},
		},
	}

	d := openTestDB(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := tableColumns(t, d, tt.table)
			if len(cols) != len(tt.cols) {
				t.Fatalf("got %d columns, want %d: %v", len(cols), len(tt.cols), cols)
			}
			for i, want := range tt.cols {
				if cols[i] != want {
					t.Errorf("column %d = %q, want %q", i, cols[i], want)
				}
			}
		})
	}
}

func TestPropertyStatusConstraint(t *testing.T) {
	d := openTestDB(t)

	insert := `INSERT INTO properties (id, owner_id, title, price, address, status) VALUES (?, 'owner', 'House', 100, '1 Main St', ?)`

	tests := []struct {
		status  string
		wantErr bool
	}{
		{"available", false},
		{"pending", false},
		{"sold", false},
		{"rented", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			_, err := d.Exec(insert, "p-"+tt.status, tt.status)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPreferenceUniquePerUser(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.Exec(`INSERT INTO user_preferences (id, user_id) VALUES ('a', 'u1')`); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := d.Exec(`INSERT INTO user_preferences (id, user_id) VALUES ('b', 'u1')`); err == nil {
		t.Fatal("expected unique violation for second preference row")
	}
}

func TestCascadeDelete(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.Exec(
		`INSERT INTO properties (id, owner_id, title, price, address) VALUES ('p1', 'owner', 'House', 100, '1 Main St')`,
	); err != nil {
		t.Fatalf("insert property: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := d.Exec(
			`INSERT INTO property_images (property_id, position, object_key) VALUES ('p1', ?, ?)`,
			i, "properties/p1/img",
		); err != nil {
			t.Fatalf("insert image %d: %v", i, err)
		}
	}

	if _, err := d.Exec(`DELETE FROM properties WHERE id = 'p1'`); err != nil {
		t.Fatalf("delete property: %v", err)
	}

	var count int
	if err := d.QueryRow(`SELECT COUNT(*) FROM property_images WHERE property_id = 'p1'`).Scan(&count); err != nil {
		t.Fatalf("count images: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 images after cascade delete, got %d", count)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.db")

	d1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := d1.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	d2, err := Open(path)
	if err != nil {
		t.Fatalf("second open (idempotency): %v", err)
	}
	defer func() {
		if err := d2.Close(); err != nil {
			t.Errorf("second close: %v", err)
		}
	}()

	v, err := Version(d2)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
}

func TestWithTx(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	if _, err := d.Exec("CREATE TABLE scratch (n INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	if err := WithTx(ctx, d, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO scratch (n) VALUES (1)")
		return err
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("boom")
	err := WithTx(ctx, d, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO scratch (n) VALUES (2)"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	var count int
	if err := d.QueryRow("SELECT COUNT(*) FROM scratch").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1 (second insert rolled back)", count)
	}
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Base(p) != "market.db" {
		t.Errorf("expected filename market.db, got %s", filepath.Base(p))
	}

	dir := filepath.Base(filepath.Dir(p))
	if dir != "hm" {
		t.Errorf("expected directory hm, got %s", dir)
	}
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close test db: %v", err)
		}
	})
	return d
}

// tableColumns returns column names for a table using PRAGMA table_info.
func tableColumns(t *testing.T, d *sql.DB, table string) []string {
	t.Helper()
	rows, err := d.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("pragma table_info(%s): %v", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			t.Errorf("close rows: %v", err)
		}
	}()

	var cols []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dflt *string
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}
