package memory

import (
	"context"
	"sync"
	"time"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/logger"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/metrics"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/repository"
	"github.com/rs/zerolog/log"
)

const storeLabel = "memory"

var _ repository.TokenRepository = (*MemoryTokenRepository)(nil)

// MemoryTokenRepository implements TokenRepository in memory.
// Tokens do not survive a restart; they are re-issuable.
type MemoryTokenRepository struct {
	tokens   map[string]time.Time
	validFor time.Duration
	now      func() time.Time
	mutex    sync.Mutex
}

// NewMemoryTokenRepository creates an in-memory token repository accepting tokens for validFor.
// A nil clock defaults to time.Now.
func NewMemoryTokenRepository(validFor time.Duration, now func() time.Time) *MemoryTokenRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryTokenRepository{
		tokens:   make(map[string]time.Time),
		validFor: validFor,
		now:      now,
	}
}

func (r *MemoryTokenRepository) Generate(ctx context.Context, expire bool) (string, error) {
	token, err := repository.GenerateTokenValue()
	if err != nil {
		metrics.ObserveToken(storeLabel, "generate", metrics.ResultError)
		return "", err
	}
	if expire {
		r.mutex.Lock()
		r.tokens[token] = r.now().UTC()
		r.mutex.Unlock()
	}
	metrics.ObserveToken(storeLabel, "generate", metrics.ResultOK)
	return token, nil
}

func (r *MemoryTokenRepository) Check(ctx context.Context, token string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.checkLocked(token, "check")
}

func (r *MemoryTokenRepository) Delete(ctx context.Context, token string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, exists := r.tokens[token]
	if !exists {
		metrics.ObserveToken(storeLabel, "delete", metrics.ResultMissing)
		return false
	}
	delete(r.tokens, token)
	metrics.ObserveToken(storeLabel, "delete", metrics.ResultOK)
	return true
}

func (r *MemoryTokenRepository) Consume(ctx context.Context, token string) bool {
	r.mutex.Lock() // Lock for check and delete
	defer r.mutex.Unlock()

	if !r.checkLocked(token, "consume") {
		return false
	}
	delete(r.tokens, token)
	return true
}

// checkLocked must be called with the mutex held.
func (r *MemoryTokenRepository) checkLocked(token, operation string) bool {
	issuedAt, exists := r.tokens[token]
	if !exists {
		metrics.ObserveToken(storeLabel, operation, metrics.ResultMissing)
		return false
	}

	entry := models.TokenEntry{Token: token, IssuedAt: issuedAt}
	if entry.IsExpired(r.now().UTC(), r.validFor) {
		// Token expired, clean it up
		delete(r.tokens, token)
		metrics.TokensEvicted.WithLabelValues(storeLabel).Inc()
		metrics.ObserveToken(storeLabel, operation, metrics.ResultExpired)
		log.Debug().Str("tokenPrefix", logger.TokenPrefix(token)).Msg("Evicted expired token")
		return false
	}

	metrics.ObserveToken(storeLabel, operation, metrics.ResultOK)
	return true
}

// Sweep removes every expired token and returns how many were removed.
func (r *MemoryTokenRepository) Sweep() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now().UTC()
	removed := 0
	for token, issuedAt := range r.tokens {
		if (models.TokenEntry{Token: token, IssuedAt: issuedAt}).IsExpired(now, r.validFor) {
			delete(r.tokens, token)
			removed++
		}
	}
	if removed > 0 {
		metrics.TokensEvicted.WithLabelValues(storeLabel).Add(float64(removed))
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (r *MemoryTokenRepository) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 {
				log.Info().Int("removed", removed).Msg("Swept expired tokens")
			}
		}
	}
}

// Len returns the number of tracked tokens, expired ones included.
func (r *MemoryTokenRepository) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.tokens)
}
