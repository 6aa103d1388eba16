package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MemoryRevocationList keeps revoked token ids in process memory. It only
// covers a single instance; use RedisRevocationList when running several.
type MemoryRevocationList struct {
	mu       sync.RWMutex
	revoked  map[string]time.Time
	now      func() time.Time
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewMemoryRevocationList creates a list whose expired entries are swept every interval
func NewMemoryRevocationList(interval time.Duration) *MemoryRevocationList {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &MemoryRevocationList{
		revoked:  make(map[string]time.Time),
		now:      time.Now,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (m *MemoryRevocationList) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if !until.After(m.now()) {
		return nil
	}
	m.mu.Lock()
	m.revoked[tokenID] = until
	m.mu.Unlock()
	return nil
}

func (m *MemoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	until, ok := m.revoked[tokenID]
	m.mu.RUnlock()
	return ok && m.now().Before(until), nil
}

// Start sweeps expired entries until ctx is done or Stop is called
func (m *MemoryRevocationList) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.done:
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()

	log.Debug().Dur("interval", m.interval).Msg("revocation sweeper started")
}

// Stop ends the sweeper. It is safe to call more than once.
func (m *MemoryRevocationList) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// sweep drops entries whose token has expired anyway
func (m *MemoryRevocationList) sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, until := range m.revoked {
		if !now.Before(until) {
			delete(m.revoked, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("swept expired revocations")
	}
	return removed
}

var _ RevocationList = (*MemoryRevocationList)(nil)
