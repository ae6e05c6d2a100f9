package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/config"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultPBKDF2Iterations = 600000
	DefaultBcryptCost       = 12
	DefaultArgon2Time       = 1

	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
	saltLength    = 16
	keyLength     = 32

	pbkdf2Prefix   = config.HashPBKDF2SHA256 + "$"
	argon2idPrefix = "$argon2id$"

	// Upper bounds on parameters read back from a digest
	maxPBKDF2Iterations = 10000000
	maxArgon2Memory     = 1 << 21
	maxArgon2Time       = 64
)

var b64 = base64.RawStdEncoding

var _ CredentialHasher = (*Hasher)(nil)

// Hasher issues digests with one algorithm and verifies digests of any supported algorithm.
type Hasher struct {
	algorithm string
	cost      int
}

// NewCredentialHasher creates a hasher for cfg. Unknown algorithms fall back to pbkdf2-sha256
// and out-of-range costs to the algorithm default.
func NewCredentialHasher(cfg config.HashingConfig) *Hasher {
	h := &Hasher{algorithm: cfg.Algorithm, cost: cfg.Cost}
	switch h.algorithm {
	case config.HashPBKDF2SHA256:
		if h.cost <= 0 {
			h.cost = DefaultPBKDF2Iterations
		}
	case config.HashBcrypt:
		if h.cost == 0 {
			h.cost = DefaultBcryptCost
		} else if h.cost < bcrypt.MinCost || h.cost > bcrypt.MaxCost {
			log.Warn().Int("cost", h.cost).Msgf("bcrypt cost out of range, defaulting to %d", DefaultBcryptCost)
			h.cost = DefaultBcryptCost
		}
	case config.HashArgon2id:
		if h.cost <= 0 || h.cost > maxArgon2Time {
			h.cost = DefaultArgon2Time
		}
	default:
		log.Warn().Str("algorithm", cfg.Algorithm).Msgf("Unknown hashing algorithm, defaulting to %s", config.HashPBKDF2SHA256)
		h.algorithm = config.HashPBKDF2SHA256
		h.cost = DefaultPBKDF2Iterations
	}
	return h
}

// Algorithm returns the algorithm new digests are issued with.
func (h *Hasher) Algorithm() string { return h.algorithm }

// Cost returns the effective cost parameter.
func (h *Hasher) Cost() int { return h.cost }

func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyCredential
	}
	timer := prometheus.NewTimer(metrics.CredentialHashDuration.WithLabelValues(h.algorithm, "hash"))
	defer timer.ObserveDuration()

	switch h.algorithm {
	case config.HashBcrypt:
		digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(digest), nil
	case config.HashArgon2id:
		salt, err := newSalt()
		if err != nil {
			return "", err
		}
		key := argon2.IDKey([]byte(plaintext), salt, uint32(h.cost), argon2Memory, argon2Threads, keyLength)
		return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s", argon2idPrefix, argon2.Version,
			argon2Memory, h.cost, argon2Threads, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
	default:
		salt, err := newSalt()
		if err != nil {
			return "", err
		}
		key := pbkdf2.Key([]byte(plaintext), salt, h.cost, keyLength, sha256.New)
		return fmt.Sprintf("%s%d$%s$%s", pbkdf2Prefix, h.cost,
			b64.EncodeToString(salt), b64.EncodeToString(key)), nil
	}
}

func (h *Hasher) Verify(digest, plaintext string) bool {
	if digest == "" || plaintext == "" {
		return false
	}

	switch {
	case strings.HasPrefix(digest, pbkdf2Prefix):
		defer prometheus.NewTimer(metrics.CredentialHashDuration.WithLabelValues(config.HashPBKDF2SHA256, "verify")).ObserveDuration()
		return verifyPBKDF2(digest, plaintext)
	case strings.HasPrefix(digest, argon2idPrefix):
		defer prometheus.NewTimer(metrics.CredentialHashDuration.WithLabelValues(config.HashArgon2id, "verify")).ObserveDuration()
		return verifyArgon2id(digest, plaintext)
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		defer prometheus.NewTimer(metrics.CredentialHashDuration.WithLabelValues(config.HashBcrypt, "verify")).ObserveDuration()
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
	}
	log.Debug().Msg("Digest has an unknown format")
	return false
}

func verifyPBKDF2(digest, plaintext string) bool {
	// pbkdf2-sha256$<iterations>$<salt>$<key>
	parts := strings.Split(strings.TrimPrefix(digest, pbkdf2Prefix), "$")
	if len(parts) != 3 {
		return false
	}
	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 || iterations > maxPBKDF2Iterations {
		return false
	}
	salt, err := b64.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := b64.DecodeString(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(plaintext), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func verifyArgon2id(digest, plaintext string) bool {
	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	if memory == 0 || memory > maxArgon2Memory || time == 0 || time > maxArgon2Time || threads == 0 {
		return false
	}
	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := b64.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}
	got := argon2.IDKey([]byte(plaintext), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
