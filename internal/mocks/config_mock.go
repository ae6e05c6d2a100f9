package mocks

import (
	"time"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/config"
)

// CreateTestConfig returns a self-contained configuration: memory token store,
// in-memory sqlite and cheap hashing.
func CreateTestConfig() *config.Config {
	return &config.Config{
		Port:     "0",
		AppEnv:   "test",
		LogLevel: "error",
		Token: config.TokenConfig{
			ValidFor:      24 * time.Hour,
			Store:         config.TokenStoreMemory,
			SweepInterval: time.Minute,
		},
		Hashing: config.HashingConfig{
			Algorithm: config.HashPBKDF2SHA256,
			Cost:      1000,
		},
		Mail: config.MailConfig{
			BaseURL:    "https://auth.example.com",
			SenderName: "The Accounts Team",
			SenderSite: "https://example.com",
		},
		SMTP: config.SmtpConfig{
			Host:     "smtp.example.com",
			Port:     "587",
			User:     "noreply@example.com",
			Password: "test-smtp-password",
		},
		DatabaseDriver:   "sqlite3",
		DatabaseSettings: "file:authmail_test?mode=memory&cache=shared&_fk=1",
		RedisSettings: config.RedisSettings{
			Address: "localhost:6379",
		},
	}
}
