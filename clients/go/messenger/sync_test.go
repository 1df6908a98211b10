package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// relayStub serves a mutable message list and counts polls.
type relayStub struct {
	mu       sync.Mutex
	messages []Message
	keys     []PublicKeyRecord
	failing  bool
	polls    int
}

func (s *relayStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/messages", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.polls++
		if s.failing {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(s.messages)
	})
	mux.HandleFunc("/public-keys", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		json.NewEncoder(w).Encode(s.keys)
	})
	return mux
}

func (s *relayStub) append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *relayStub) setFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

func (s *relayStub) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestSyncerObservesNewMessages(t *testing.T) {
	stub := &relayStub{}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	s := NewSyncer(NewClient(srv.URL), gateAlice, 20*time.Millisecond, zerolog.Nop())
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return stub.pollCount() > 0 && !s.LastSync().IsZero() })

	stub.append(Message{ID: "m1", From: gateBob, To: gateAlice, Ciphertext: "ct1", CreatedAt: time.Now()})
	stub.append(Message{ID: "m2", From: gateBob, To: "0xCcCc000000000000000000000000000000000003", Ciphertext: "ct2", CreatedAt: time.Now()})

	waitFor(t, time.Second, func() bool { return len(s.Messages()) == 1 })

	view := s.Messages()
	if view[0].ID != "m1" {
		t.Fatalf("expected only alice's message, got %+v", view)
	}
}

func TestSyncerSurvivesReadFailures(t *testing.T) {
	stub := &relayStub{messages: []Message{
		{ID: "m1", From: gateBob, To: gateAlice, Ciphertext: "ct1", CreatedAt: time.Now()},
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	s := NewSyncer(NewClient(srv.URL), gateAlice, 20*time.Millisecond, zerolog.Nop())
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return len(s.Messages()) == 1 })

	// Failing polls keep the previous snapshot and record the error.
	stub.setFailing(true)
	waitFor(t, time.Second, func() bool { return s.LastError() != nil })
	if len(s.Messages()) != 1 {
		t.Fatal("failed poll must not clear the snapshot")
	}

	// Recovery is implicit on the next cycle.
	stub.setFailing(false)
	waitFor(t, time.Second, func() bool { return s.LastError() == nil })
}

func TestSyncerStopIsDeterministic(t *testing.T) {
	stub := &relayStub{}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	s := NewSyncer(NewClient(srv.URL), gateAlice, 10*time.Millisecond, zerolog.Nop())
	s.Start(context.Background())

	waitFor(t, time.Second, func() bool { return stub.pollCount() > 0 })

	s.Stop()
	after := stub.pollCount()
	time.Sleep(50 * time.Millisecond)
	if stub.pollCount() != after {
		t.Fatal("polling continued after Stop")
	}

	// Stop twice is safe.
	s.Stop()
}

func TestSyncerRefreshDirectory(t *testing.T) {
	stub := &relayStub{keys: []PublicKeyRecord{
		{Address: gateBob, PublicKey: "pub-bob", Nickname: "bob"},
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	s := NewSyncer(NewClient(srv.URL), gateAlice, time.Hour, zerolog.Nop())

	if err := s.RefreshDirectory(context.Background()); err != nil {
		t.Fatal(err)
	}

	keys := s.PublicKeys()
	if len(keys) != 1 || keys[0].Nickname != "bob" {
		t.Fatalf("unexpected directory snapshot: %+v", keys)
	}
}
