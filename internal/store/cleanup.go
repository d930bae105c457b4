package store

import (
	"context"
	"time"
)

// CleanupResult reports what a sweep removed.
type CleanupResult struct {
	TypingEvicted   int
	MessagesEvicted int
}

// Cleanup removes typing entries older than the expiry window, whether or not
// they were ever read, and re-applies the message bound.
func (s *Store) Cleanup() CleanupResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res CleanupResult
	now := s.now()
	for key, entry := range s.typing {
		if now.Sub(entry.Timestamp) > s.typingExpireAt {
			delete(s.typing, key)
			res.TypingEvicted++
		}
	}

	if over := len(s.messages) - s.maxMessages; over > 0 {
		s.messages = trimFront(s.messages, s.maxMessages)
		res.MessagesEvicted = over
	}
	return res
}

// RunCleanup calls Cleanup every interval until ctx is cancelled.
func (s *Store) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Cleanup sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Cleanup sweeper stopped")
			return
		case <-ticker.C:
			res := s.Cleanup()
			if res.TypingEvicted > 0 || res.MessagesEvicted > 0 {
				s.logger.Debug("Cleanup sweep",
					"typing_evicted", res.TypingEvicted,
					"messages_evicted", res.MessagesEvicted)
			}
		}
	}
}
