package messenger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
)

// Decision is the gate's admission state. Exactly one decision is live per
// gate; it changes only through the transitions below.
type Decision int

const (
	// DecisionNoProvider means no wallet provider was detected at startup.
	// Terminal for the session.
	DecisionNoProvider Decision = iota
	// DecisionDisconnected means a provider is present but no address is bound.
	DecisionDisconnected
	// DecisionChecking means an ownership query is in flight.
	DecisionChecking
	// DecisionGranted means the bound address holds the token.
	DecisionGranted
	// DecisionDenied means the bound address holds no token, or the last
	// ownership query failed (see Gate.LastError).
	DecisionDenied
)

func (d Decision) String() string {
	switch d {
	case DecisionNoProvider:
		return "no-provider"
	case DecisionDisconnected:
		return "disconnected"
	case DecisionChecking:
		return "checking"
	case DecisionGranted:
		return "granted"
	case DecisionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Oracle answers token ownership queries for wallet addresses.
// NFTOracle implements it against a live chain; tests substitute fakes.
type Oracle interface {
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
}

var (
	// ErrOracleQuery wraps ownership query failures. A failed query denies
	// admission but is distinguishable from a clean zero balance.
	ErrOracleQuery = errors.New("ownership query failed")
	// ErrNoWallet is returned by Recheck when no address is bound.
	ErrNoWallet = errors.New("no wallet address bound")
	// ErrGateClosed is returned after Close.
	ErrGateClosed = errors.New("gate is closed")
)

// Gate is the admission state machine. It binds the session's wallet address,
// queries the Oracle, and exposes the current Decision.
//
// Supersession policy: last request wins. A Recheck or AccountsChanged
// arriving while a check is in flight starts a new check and discards the
// result of the old one, so the decision always reflects the most recently
// requested check. Failures are never retried automatically; callers trigger
// Recheck explicitly.
type Gate struct {
	oracle Oracle

	mu       sync.Mutex
	decision Decision
	address  string
	lastErr  error
	closed   bool

	// gen identifies the most recently requested check; a completing check
	// with a stale gen is discarded.
	gen         uint64
	checkCancel context.CancelFunc

	updates chan struct{}
}

// NewGate creates a gate. When providerPresent is false the gate starts (and
// stays) in DecisionNoProvider; otherwise it starts in DecisionDisconnected.
func NewGate(oracle Oracle, providerPresent bool) *Gate {
	g := &Gate{
		oracle:  oracle,
		updates: make(chan struct{}, 1),
	}
	if providerPresent {
		g.decision = DecisionDisconnected
	} else {
		g.decision = DecisionNoProvider
	}
	return g
}

// Decision returns the current decision and the bound address ("" when none).
func (g *Gate) Decision() (Decision, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision, g.address
}

// LastError returns the error from the most recent ownership query, or nil.
// A DecisionDenied with a non-nil LastError means the query failed rather
// than the balance being zero.
func (g *Gate) LastError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// Updates signals after every decision change. Signals are coalesced;
// consumers re-read Decision after each receive.
func (g *Gate) Updates() <-chan struct{} {
	return g.updates
}

// AccountsChanged feeds a wallet account-change event into the gate.
// An empty list (or an empty first account) unbinds the address and
// transitions to DecisionDisconnected; otherwise the first account is bound
// and a fresh check starts, whatever the current state.
func (g *Gate) AccountsChanged(accounts []string) {
	g.mu.Lock()
	if g.closed || g.decision == DecisionNoProvider {
		g.mu.Unlock()
		return
	}

	if len(accounts) == 0 || accounts[0] == "" {
		g.supersedeLocked()
		g.address = ""
		g.decision = DecisionDisconnected
		g.lastErr = nil
		g.mu.Unlock()
		g.notify()
		return
	}

	g.address = accounts[0]
	g.startCheckLocked()
}

// Recheck re-runs the ownership query for the bound address. It is the only
// recovery path after a failed query or a Denied decision.
func (g *Gate) Recheck() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrGateClosed
	}
	if g.decision == DecisionNoProvider {
		g.mu.Unlock()
		return ErrNoWallet
	}
	if g.address == "" {
		g.mu.Unlock()
		return ErrNoWallet
	}
	g.startCheckLocked()
	return nil
}

// Close cancels any in-flight check. The gate keeps its last decision but
// accepts no further events.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.supersedeLocked()
	g.closed = true
}

// supersedeLocked invalidates the in-flight check, if any.
func (g *Gate) supersedeLocked() {
	g.gen++
	if g.checkCancel != nil {
		g.checkCancel()
		g.checkCancel = nil
	}
}

// startCheckLocked begins a check for the currently bound address.
// Releases g.mu.
func (g *Gate) startCheckLocked() {
	g.supersedeLocked()

	ctx, cancel := context.WithCancel(context.Background())
	g.checkCancel = cancel
	myGen := g.gen
	addr := g.address

	g.decision = DecisionChecking
	g.lastErr = nil
	g.mu.Unlock()
	g.notify()

	go func() {
		balance, err := g.oracle.BalanceOf(ctx, addr)

		g.mu.Lock()
		if g.gen != myGen {
			// Superseded by a newer check or an account change.
			g.mu.Unlock()
			return
		}
		g.checkCancel = nil

		switch {
		case err != nil:
			g.decision = DecisionDenied
			g.lastErr = fmt.Errorf("%w: %v", ErrOracleQuery, err)
		case balance.Sign() > 0:
			g.decision = DecisionGranted
			g.lastErr = nil
		default:
			g.decision = DecisionDenied
			g.lastErr = nil
		}
		g.mu.Unlock()
		g.notify()
	}()
}

func (g *Gate) notify() {
	select {
	case g.updates <- struct{}{}:
	default:
	}
}
