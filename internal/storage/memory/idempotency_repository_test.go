package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestIdempotencyRepository_CreateAndReplay(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	ttl := time.Now().UTC().Add(time.Hour)

	record, err := repo.CreateProcessing("key-1", "hash-1", ttl)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if record.Status != domain.IdempotencyStatusProcessing {
		t.Fatalf("expected processing, got %s", record.Status)
	}

	_, err = repo.CreateProcessing("key-1", "hash-1", ttl)
	if !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	_, err = repo.CreateProcessing("key-1", "hash-2", ttl)
	if !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected hash mismatch, got %v", err)
	}
}

func TestIdempotencyRepository_MarkDone(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	if _, err := repo.CreateProcessing("key-1", "hash-1", time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.MarkDone("key-1", []byte(`{"ok":true}`), 201); err != nil {
		t.Fatalf("mark done failed: %v", err)
	}

	record, err := repo.Get("key-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if record.Status != domain.IdempotencyStatusDone || record.HTTPStatus != 201 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if string(record.ResponseBody) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", record.ResponseBody)
	}
}

func TestIdempotencyRepository_DeleteExpired(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	if _, err := repo.CreateProcessing("expired", "hash", past); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := repo.CreateProcessing("alive", "hash", future); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	removed, err := repo.DeleteExpired(time.Now().UTC(), 0)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	if _, err := repo.Get("expired"); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected key removed, got %v", err)
	}
	if _, err := repo.Get("alive"); err != nil {
		t.Fatalf("expected alive key to remain: %v", err)
	}
}
