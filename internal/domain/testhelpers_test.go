package domain

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rjsadow/aurora/internal/store"
)

// newTestMongo connects to AURORA_TEST_MONGODB_URI and returns a *store.Mongo
// scoped to a throwaway per-test database, skipping the test when the env
// var is unset (mirrors the teacher's SORTIE_TEST_POSTGRES_DSN skip pattern
// for tests that need a real backing store).
func newTestMongo(t *testing.T) *store.Mongo {
	t.Helper()

	uri := os.Getenv("AURORA_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("AURORA_TEST_MONGODB_URI not set; skipping Mongo-backed test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m, err := store.ConnectMongo(ctx, uri, "aurora_test_"+t.Name())
	if err != nil {
		t.Fatalf("ConnectMongo() error = %v", err)
	}
	t.Cleanup(func() {
		_ = m.Database.Drop(context.Background())
		_ = m.Close(context.Background())
	})
	return m
}
