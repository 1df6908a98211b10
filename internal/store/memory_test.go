package store

import (
	"context"
	"errors"
	"testing"
)

const (
	addrAlice = "0xAaAa000000000000000000000000000000000001"
	addrBob   = "0xBbBb000000000000000000000000000000000002"
)

func TestUpsertPublicKeyLastWriteWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.UpsertPublicKey(ctx, addrAlice, "pub-k1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !first.CreatedAt.Equal(first.UpdatedAt) {
		t.Error("fresh record should have CreatedAt == UpdatedAt")
	}

	second, err := s.UpsertPublicKey(ctx, addrAlice, "pub-k2", "alice2")
	if err != nil {
		t.Fatal(err)
	}
	if second.PublicKey != "pub-k2" || second.Nickname != "alice2" {
		t.Fatalf("overwrite not applied: %+v", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("CreatedAt should survive overwrite")
	}

	records, err := s.ListPublicKeys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after two submissions, got %d", len(records))
	}
	if records[0].PublicKey != "pub-k2" {
		t.Fatalf("expected latest key, got %q", records[0].PublicKey)
	}

	count, err := s.CountPublicKeys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
}

func TestAppendMessageAssignsIDAndOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	m1, err := s.AppendMessage(ctx, addrAlice, addrBob, "ct1")
	if err != nil {
		t.Fatal(err)
	}
	if m1.ID == "" {
		t.Fatal("relay must assign an ID")
	}
	if m1.CreatedAt.IsZero() {
		t.Fatal("relay must assign CreatedAt")
	}

	m2, err := s.AppendMessage(ctx, addrBob, addrAlice, "ct2")
	if err != nil {
		t.Fatal(err)
	}
	if m2.ID == m1.ID {
		t.Fatal("message IDs must be unique")
	}

	messages, err := s.ListMessages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != m1.ID || messages[1].ID != m2.ID {
		t.Fatal("list must preserve append order")
	}
}

func TestAppendMessageRejectsSelfAddressed(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.AppendMessage(context.Background(), addrAlice, addrAlice, "ct")
	if !errors.Is(err, ErrSelfAddressed) {
		t.Fatalf("expected ErrSelfAddressed, got %v", err)
	}

	count, _ := s.CountMessages(context.Background())
	if count != 0 {
		t.Fatal("rejected message must not be stored")
	}
}

func TestListSnapshotsAreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.AppendMessage(ctx, addrAlice, addrBob, "ct1"); err != nil {
		t.Fatal(err)
	}

	snapshot, _ := s.ListMessages(ctx)
	snapshot[0].Ciphertext = "tampered"

	fresh, _ := s.ListMessages(ctx)
	if fresh[0].Ciphertext != "ct1" {
		t.Fatal("mutating a returned snapshot must not affect the store")
	}
}
