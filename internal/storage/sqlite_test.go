package storage

import (
	"context"
	"path/filepath"
	"testing"
)

const insertPassage = `INSERT INTO passage_vectors (collection, id, source, page, position, text_chunk, embedding)
	VALUES (?, 'p1', 'golang', 1, 0, 'goroutines', X'00000000')`

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_InMemoryByDefault(t *testing.T) {
	s := openTestStore(t)
	if s.Path() != InMemory {
		t.Errorf("Path() = %q, want %q", s.Path(), InMemory)
	}
	versions, err := s.Versions(context.Background())
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) == 0 || versions[0] != 1 {
		t.Errorf("versions = %v, want [1 ...]", versions)
	}
}

func TestOpen_ReopenKeepsMigrationsAndClearsPassages(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "index.db")

	s1, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := s1.DB().Exec(insertPassage, "c1"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	v1, _ := s1.Versions(ctx)
	s1.Close()

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()

	v2, err := s2.Versions(ctx)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
	var n int
	if err := s2.DB().QueryRow("SELECT COUNT(*) FROM passage_vectors").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d passages survived reopen, want 0", n)
	}
}

func TestLoadMigrations_Ordered(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("no embedded migrations")
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].version <= migrations[i-1].version {
			t.Errorf("migrations not ascending: %+v", migrations)
		}
	}
}

func TestCollectionIndexExists(t *testing.T) {
	s := openTestStore(t)

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?",
		"idx_passage_vectors_collection").Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if count != 1 {
		t.Error("index idx_passage_vectors_collection not found")
	}
}

// TestPassageVectorsTable verifies the table is keyed per collection.
func TestPassageVectorsTable(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.DB().Exec(insertPassage, "c1"); err != nil {
		t.Fatalf("insert into c1: %v", err)
	}
	if _, err := s.DB().Exec(insertPassage, "c2"); err != nil {
		t.Fatalf("same id in another collection should be allowed: %v", err)
	}
	if _, err := s.DB().Exec(insertPassage, "c1"); err == nil {
		t.Error("expected primary key violation for duplicate id in one collection")
	}

	var source, text string
	var page int
	err := s.DB().QueryRow(`SELECT source, page, text_chunk FROM passage_vectors WHERE collection = 'c2' AND id = 'p1'`).
		Scan(&source, &page, &text)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if source != "golang" || page != 1 || text != "goroutines" {
		t.Errorf("round-trip mismatch: source=%q page=%d text=%q", source, page, text)
	}
}
