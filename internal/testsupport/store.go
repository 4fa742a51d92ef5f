package testsupport

import (
	"context"
	"testing"

	"contentstudio/internal/config"
	"contentstudio/internal/objectkey"
	"contentstudio/internal/objectstore"
	"contentstudio/internal/objectstore/sqlitestore"
)

// MustOpenStore opens the configured sqlite bucket for tests and registers
// cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *sqlitestore.Store {
	t.Helper()

	store, err := sqlitestore.Open(sqlitestore.Options{
		Path:       cfg.Storage.SQLitePath,
		BaseURL:    cfg.Storage.LocalBaseURL,
		SigningKey: cfg.Storage.LocalSigningKey,
	})
	if err != nil {
		t.Fatalf("sqlitestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// PutBatch writes a batch.json document for batchID under the config prefix.
func PutBatch(t testing.TB, store objectstore.Store, cfg *config.Config, batchID, document string) string {
	t.Helper()

	key := objectkey.NewResolver(cfg.Storage.Prefix).BatchDocument(batchID)
	err := store.Write(context.Background(), key, []byte(document), objectstore.WriteOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("write %s: %v", key, err)
	}
	return key
}
