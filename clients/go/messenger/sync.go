package messenger

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSyncInterval is how often the syncer re-reads the relay.
const DefaultSyncInterval = 5 * time.Second

// Syncer keeps a local view of the relay fresh by polling. Each cycle fetches
// the full message list and replaces the snapshot; staleness is bounded by
// one interval. Polls run sequentially on one goroutine, so a slow cycle
// delays the next rather than overlapping it. A failed poll keeps the
// previous snapshot and is retried implicitly on the next tick.
type Syncer struct {
	client   *Client
	viewer   string
	interval time.Duration
	logger   zerolog.Logger

	mu       sync.RWMutex
	messages []Message
	keys     []PublicKeyRecord
	lastErr  error
	lastSync time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSyncer creates a syncer for the given viewer address. Pass 0 for the
// default interval.
func NewSyncer(client *Client, viewer string, interval time.Duration, logger zerolog.Logger) *Syncer {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Syncer{
		client:   client,
		viewer:   viewer,
		interval: interval,
		logger:   logger,
	}
}

// Start begins polling until ctx is cancelled or Stop is called. It polls
// once immediately so the first view does not wait a full interval.
func (s *Syncer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.poll(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.poll(ctx)
			}
		}
	}()
}

// Stop cancels the polling loop and waits for it to exit, so no timer
// outlives the session.
func (s *Syncer) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// poll replaces the message snapshot with a fresh read of the relay.
func (s *Syncer) poll(ctx context.Context) {
	messages, err := s.client.ListMessages(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Warn().Err(err).Msg("message poll failed; keeping previous snapshot")
		return
	}

	view := FilterForViewer(messages, s.viewer)
	SortNewestFirst(view)

	s.mu.Lock()
	s.messages = view
	s.lastErr = nil
	s.lastSync = time.Now()
	s.mu.Unlock()
}

// RefreshDirectory fetches the public-key directory on demand and caches it.
func (s *Syncer) RefreshDirectory(ctx context.Context) error {
	keys, err := s.client.ListPublicKeys(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
	return nil
}

// Messages returns the viewer's current message view, newest first.
func (s *Syncer) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// PublicKeys returns the cached directory snapshot.
func (s *Syncer) PublicKeys() []PublicKeyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PublicKeyRecord, len(s.keys))
	copy(out, s.keys)
	return out
}

// LastError returns the most recent poll error, or nil after a clean poll.
func (s *Syncer) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// LastSync returns when the snapshot was last replaced.
func (s *Syncer) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}
