package db

import (
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestMigrateEmbedded(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "data", "app.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		if err := Migrate(conn, Migrations()); err != nil {
			t.Fatalf("Migrate run %d: %v", i+1, err)
		}
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("_migrations rows = %d, %v", n, err)
	}
	for _, table := range []string{"users", "daily_results", "daily_attempts"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestMigrateOrderAndSelfManaged(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	fsys := fstest.MapFS{
		"002_fill.sql": {Data: []byte(`BEGIN TRANSACTION; INSERT INTO t(v) VALUES ('b'); COMMIT;`)},
		"001_t.sql":    {Data: []byte(`CREATE TABLE t (v TEXT); INSERT INTO t(v) VALUES ('a');`)},
		"notes.txt":    {Data: []byte(`ignored`)},
	}
	if err := Migrate(conn, fsys); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("rows = %d, %v", n, err)
	}

	bad := fstest.MapFS{"003_bad.sql": {Data: []byte(`CREATE TABLE broken (`)}}
	if err := Migrate(conn, bad); err == nil {
		t.Fatal("expected error for broken migration")
	}
	if err := conn.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("_migrations rows = %d, %v", n, err)
	}
}
