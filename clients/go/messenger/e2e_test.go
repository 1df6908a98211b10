package messenger

import (
	"context"
	"math/big"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/DimiKog/Encryption-Messenger/internal/api"
	"github.com/DimiKog/Encryption-Messenger/internal/api/middleware"
	"github.com/DimiKog/Encryption-Messenger/internal/store"
)

// TestConnectPublishSendReceive walks the whole flow against a real router:
// a token-holding wallet connects, passes the gate, publishes its key, sends
// a ciphertext, and the recipient's sync loop observes it.
func TestConnectPublishSendReceive(t *testing.T) {
	router := api.NewRouter(zerolog.Nop(), store.NewMemoryStore(), nil, middleware.RateLimiterConfig{})
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx := context.Background()
	client := NewClient(srv.URL)

	alice := "0xAaAa000000000000000000000000000000000001"
	bob := "0xBbBb000000000000000000000000000000000002"

	// Wallet connects; oracle reports balance 3.
	oracle := &fakeOracle{balances: map[string]int64{alice: 3}}
	gate := NewGate(oracle, true)
	defer gate.Close()

	if d, _ := gate.Decision(); d != DecisionDisconnected {
		t.Fatalf("expected disconnected before connect, got %s", d)
	}
	gate.AccountsChanged([]string{alice})
	if d := waitForSettled(t, gate); d != DecisionGranted {
		t.Fatalf("expected granted for balance 3, got %s", d)
	}

	// Publish the encryption key.
	rec, err := client.PublishKey(ctx, alice, "pub123", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if rec.PublicKey != "pub123" || rec.Nickname != "alice" {
		t.Fatalf("unexpected directory record: %+v", rec)
	}

	records, err := client.ListPublicKeys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range records {
		if strings.EqualFold(r.Address, alice) && r.PublicKey == "pub123" && r.Nickname == "alice" {
			found = true
		}
	}
	if !found {
		t.Fatalf("published key missing from directory: %+v", records)
	}

	// Send a ciphertext to bob.
	receipt, err := client.SendMessage(ctx, alice, bob, "ct1")
	if err != nil {
		t.Fatal(err)
	}
	if receipt.ID == "" {
		t.Fatal("relay must assign an envelope ID")
	}

	// Bob's sync loop picks it up within one interval.
	syncer := NewSyncer(client, bob, 20*time.Millisecond, zerolog.Nop())
	syncer.Start(ctx)
	defer syncer.Stop()

	waitFor(t, 2*time.Second, func() bool { return len(syncer.Messages()) == 1 })

	msg := syncer.Messages()[0]
	if !strings.EqualFold(msg.From, alice) || !strings.EqualFold(msg.To, bob) || msg.Ciphertext != "ct1" {
		t.Fatalf("unexpected envelope: %+v", msg)
	}

	// An uninvolved viewer sees nothing.
	all, err := client.ListMessages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	carol := "0xCcCc000000000000000000000000000000000003"
	if got := FilterForViewer(all, carol); len(got) != 0 {
		t.Fatalf("outsider must see no messages, got %+v", got)
	}
}

// TestGateRecheckAfterAcquiringToken exercises the denied path end to end:
// a wallet without the token is refused, acquires it, re-checks, and gets in.
func TestGateRecheckAfterAcquiringToken(t *testing.T) {
	oracle := &fakeOracle{balances: map[string]int64{}}
	gate := NewGate(oracle, true)
	defer gate.Close()

	wallet := "0xEeEe000000000000000000000000000000000005"
	gate.AccountsChanged([]string{wallet})
	if d := waitForSettled(t, gate); d != DecisionDenied {
		t.Fatalf("expected denied without the token, got %s", d)
	}

	oracle.set(wallet, 1)
	if err := gate.Recheck(); err != nil {
		t.Fatal(err)
	}
	if d := waitForSettled(t, gate); d != DecisionGranted {
		t.Fatalf("expected granted after acquiring the token, got %s", d)
	}

	// Sanity: balance type is chain-sized, not platform int.
	b, err := oracle.BalanceOf(context.Background(), wallet)
	if err != nil {
		t.Fatal(err)
	}
	if b.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("unexpected balance: %s", b)
	}
}
