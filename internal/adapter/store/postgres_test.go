package store

import (
	"context"
	"os"
	"testing"
)

// Runs against a real database when DEPTQA_TEST_DATABASE_URL points at a
// Postgres with the pgvector extension available.
func TestPostgresStore_RoundTrip(t *testing.T) {
	url := os.Getenv("DEPTQA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DEPTQA_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	s, err := NewPostgresStore(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	snap := testSnapshot(20)
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Info.ModelVersion != snap.Info.ModelVersion || got.Info.ChunkCount != 20 {
		t.Errorf("unexpected info %+v", got.Info)
	}
	if len(got.Entries) != 20 {
		t.Fatalf("expected 20 entries, got %d", len(got.Entries))
	}
	if got.Entries[7].Chunk != snap.Entries[7].Chunk {
		t.Errorf("chunk mismatch: %+v", got.Entries[7].Chunk)
	}
	if got.Entries[7].Vector[0] != 7 {
		t.Errorf("vector mismatch: %v", got.Entries[7].Vector)
	}
}
