package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/logger"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/metrics"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	tokenPrefix = "token:"
	storeLabel  = "redis"
)

var _ repository.TokenRepository = (*RedisTokenRepository)(nil)

// tokenRecord is the JSON value stored under a token key.
type tokenRecord struct {
	IssuedAt int64 `json:"issuedAt"` // unix milliseconds
}

// RedisTokenRepository implements TokenRepository using Redis.
// Keys carry a TTL of the validity window; the issuance time stored in the value stays authoritative.
type RedisTokenRepository struct {
	client   *redis.Client
	validFor time.Duration
	now      func() time.Time
}

// NewRedisTokenRepository creates a Redis-backed token repository. A nil clock defaults to time.Now.
func NewRedisTokenRepository(client *redis.Client, validFor time.Duration, now func() time.Time) *RedisTokenRepository {
	if now == nil {
		now = time.Now
	}
	return &RedisTokenRepository{
		client:   client,
		validFor: validFor,
		now:      now,
	}
}

// Helper to construct token key
func makeTokenKey(token string) string {
	return tokenPrefix + token
}

func (r *RedisTokenRepository) Generate(ctx context.Context, expire bool) (string, error) {
	token, err := repository.GenerateTokenValue()
	if err != nil {
		metrics.ObserveToken(storeLabel, "generate", metrics.ResultError)
		return "", err
	}
	if !expire {
		metrics.ObserveToken(storeLabel, "generate", metrics.ResultOK)
		return token, nil
	}

	jsonData, err := json.Marshal(tokenRecord{IssuedAt: r.now().UTC().UnixMilli()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token record: %w", err)
	}

	if err := r.client.Set(ctx, makeTokenKey(token), jsonData, r.validFor).Err(); err != nil {
		metrics.ObserveToken(storeLabel, "generate", metrics.ResultError)
		return "", fmt.Errorf("failed to store token in redis: %w", err)
	}
	metrics.ObserveToken(storeLabel, "generate", metrics.ResultOK)
	return token, nil
}

func (r *RedisTokenRepository) Check(ctx context.Context, token string) bool {
	key := makeTokenKey(token)

	jsonData, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.ObserveToken(storeLabel, "check", metrics.ResultMissing)
		return false
	}
	if err != nil {
		log.Warn().Err(err).Str("tokenPrefix", logger.TokenPrefix(token)).Msg("Failed to read token from redis")
		metrics.ObserveToken(storeLabel, "check", metrics.ResultError)
		return false
	}

	if !r.isLive(token, jsonData) {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			log.Warn().Err(err).Str("tokenPrefix", logger.TokenPrefix(token)).Msg("Failed to evict expired token")
		}
		metrics.TokensEvicted.WithLabelValues(storeLabel).Inc()
		metrics.ObserveToken(storeLabel, "check", metrics.ResultExpired)
		return false
	}

	metrics.ObserveToken(storeLabel, "check", metrics.ResultOK)
	return true
}

func (r *RedisTokenRepository) Delete(ctx context.Context, token string) bool {
	deleted, err := r.client.Del(ctx, makeTokenKey(token)).Result()
	if err != nil {
		log.Warn().Err(err).Str("tokenPrefix", logger.TokenPrefix(token)).Msg("Failed to delete token from redis")
		metrics.ObserveToken(storeLabel, "delete", metrics.ResultError)
		return false
	}
	if deleted == 0 {
		metrics.ObserveToken(storeLabel, "delete", metrics.ResultMissing)
		return false
	}
	metrics.ObserveToken(storeLabel, "delete", metrics.ResultOK)
	return true
}

func (r *RedisTokenRepository) Consume(ctx context.Context, token string) bool {
	key := makeTokenKey(token)

	// GET and DEL in one MULTI so only one caller sees the value.
	pipe := r.client.TxPipeline()
	getCmd := pipe.Get(ctx, key)
	pipe.Del(ctx, key)

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		log.Warn().Err(err).Str("tokenPrefix", logger.TokenPrefix(token)).Msg("Failed to execute consume token transaction")
		metrics.ObserveToken(storeLabel, "consume", metrics.ResultError)
		return false
	}

	jsonData, getErr := getCmd.Bytes()
	if getErr == redis.Nil {
		metrics.ObserveToken(storeLabel, "consume", metrics.ResultMissing)
		return false
	}
	if getErr != nil {
		log.Warn().Err(getErr).Str("tokenPrefix", logger.TokenPrefix(token)).Msg("Failed to read consumed token")
		metrics.ObserveToken(storeLabel, "consume", metrics.ResultError)
		return false
	}

	if !r.isLive(token, jsonData) {
		metrics.TokensEvicted.WithLabelValues(storeLabel).Inc()
		metrics.ObserveToken(storeLabel, "consume", metrics.ResultExpired)
		return false
	}
	metrics.ObserveToken(storeLabel, "consume", metrics.ResultOK)
	return true
}

// isLive decodes a stored record and reports whether it is inside the validity window.
// Undecodable records count as expired.
func (r *RedisTokenRepository) isLive(token string, jsonData []byte) bool {
	var record tokenRecord
	if err := json.Unmarshal(jsonData, &record); err != nil {
		log.Warn().Err(err).Str("tokenPrefix", logger.TokenPrefix(token)).Msg("Malformed token record in redis")
		return false
	}
	entry := models.TokenEntry{Token: token, IssuedAt: time.UnixMilli(record.IssuedAt).UTC()}
	return !entry.IsExpired(r.now().UTC(), r.validFor)
}
