package gormsqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildDSNIncludesPerConnectionPragmas(t *testing.T) {
	reader := buildDSN("./db.sqlite", true)
	writer := buildDSN("./db.sqlite", false)

	for _, want := range []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
	} {
		if !strings.Contains(reader, want) {
			t.Fatalf("reader dsn missing %q: %s", want, reader)
		}
		if !strings.Contains(writer, want) {
			t.Fatalf("writer dsn missing %q: %s", want, writer)
		}
	}

	if !strings.Contains(reader, "_pragma=query_only(1)") {
		t.Fatalf("reader dsn missing query_only(1): %s", reader)
	}
	if !strings.Contains(writer, "_pragma=query_only(0)") {
		t.Fatalf("writer dsn missing query_only(0): %s", writer)
	}
}

func TestOpenReadWriteSplit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "split.sqlite")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()

	err = db.WriteTX(ctx, func(tx *Tx) error {
		if err := tx.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)").Error; err != nil {
			return err
		}
		return tx.Exec("INSERT INTO notes (body) VALUES (?)", "hello").Error
	})
	if err != nil {
		t.Fatalf("write tx: %v", err)
	}

	var count int64
	err = db.ReadTX(ctx, func(tx *Tx) error {
		return tx.Table("notes").Count(&count).Error
	})
	if err != nil {
		t.Fatalf("read tx: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}

	// the read pool is query-only
	err = db.ReadTX(ctx, func(tx *Tx) error {
		return tx.Exec("INSERT INTO notes (body) VALUES (?)", "nope").Error
	})
	if err == nil {
		t.Fatal("expected write through reader to fail")
	}
}
