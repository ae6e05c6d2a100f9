package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported credential hashing algorithms.
const (
	HashPBKDF2SHA256 = "pbkdf2-sha256"
	HashBcrypt       = "bcrypt"
	HashArgon2id     = "argon2id"
)

// Supported token store backends.
const (
	TokenStoreMemory = "memory"
	TokenStoreRedis  = "redis"
)

type TokenConfig struct {
	// How long an issued confirmation/reset token is accepted. Default to 24h.
	ValidFor time.Duration
	// Backend holding outstanding tokens: memory or redis
	Store string
	// How often the memory store evicts expired tokens. Zero disables the sweeper.
	SweepInterval time.Duration
}

type HashingConfig struct {
	// One of pbkdf2-sha256, bcrypt, argon2id. Default to pbkdf2-sha256
	Algorithm string
	// pbkdf2 iterations, bcrypt cost or argon2 time. Zero picks the algorithm default.
	Cost int
}

type MailConfig struct {
	// Base of the callback links, e.g. https://auth.example.com
	BaseURL    string
	SenderName string
	SenderSite string
	// Resolve MX records of registering addresses
	CheckDeliverability bool
}

type RedisSettings struct {
	Address  string
	Password string
	DB       int
}

type SmtpConfig struct {
	Host       string `mapstructure:"SMTP_HOST"`
	Port       string `mapstructure:"SMTP_PORT"`
	User       string `mapstructure:"SMTP_USER"`
	Password   string `mapstructure:"SMTP_PASSWORD"`
	NOTLS      bool   `mapstructure:"SMTP_NOTLS"`
	MaxRetries int    `mapstructure:"SMTP_MAX_RETRIES"`
}

type Config struct {
	// Ops server port (health, metrics)
	Port     string
	AppEnv   string
	LogLevel string
	Token    TokenConfig
	Hashing  HashingConfig
	Mail     MailConfig
	SMTP     SmtpConfig `mapstructure:",squash"`
	// sqlite3 or postgres
	DatabaseDriver string
	// sqlite: file:<name>?mode=memory&cache=shared&_fk=1
	// postgres: host=<host> port=<port> user=<user> dbname=<database> password=<pass> sslmode=<enable/disable>
	DatabaseSettings string
	RedisSettings    RedisSettings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TOKEN_VALID_HOURS", 24)
	v.SetDefault("TOKEN_STORE", TokenStoreMemory)
	v.SetDefault("TOKEN_SWEEP_INTERVAL", "10m")
	v.SetDefault("HASHING_ALGORITHM", HashPBKDF2SHA256)
	v.SetDefault("HASHING_COST", 0)
	v.SetDefault("EMAIL_CHECK_DELIVERABILITY", false)
	v.SetDefault("MAIL_BASE_URL", "http://localhost:8080")
	v.SetDefault("MAIL_SENDER_NAME", "The Accounts Team")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_MAX_RETRIES", 3)
	v.SetDefault("DATABASE_DRIVER", "sqlite3")
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	// Load configuration
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Token Configuration
	validHours := v.GetInt("TOKEN_VALID_HOURS")
	if validHours <= 0 {
		log.Printf("Invalid token validity '%s', defaulting to 24 hours", v.GetString("TOKEN_VALID_HOURS"))
		validHours = 24
	}

	tokenStore := strings.ToLower(v.GetString("TOKEN_STORE"))
	switch tokenStore {
	case TokenStoreMemory, TokenStoreRedis:
	default:
		log.Printf("Invalid token store '%s', defaulting to '%s'", tokenStore, TokenStoreMemory)
		tokenStore = TokenStoreMemory
	}

	sweepInterval := v.GetDuration("TOKEN_SWEEP_INTERVAL")
	if sweepInterval < 0 {
		sweepInterval = 0
	}

	// Hashing Configuration
	hashingAlgorithm := strings.ToLower(v.GetString("HASHING_ALGORITHM"))
	switch hashingAlgorithm {
	case HashPBKDF2SHA256, HashBcrypt, HashArgon2id:
	default:
		log.Printf("Invalid hashing algorithm '%s', defaulting to %s", hashingAlgorithm, HashPBKDF2SHA256)
		hashingAlgorithm = HashPBKDF2SHA256
	}

	hashingCost := v.GetInt("HASHING_COST")
	if hashingCost < 0 {
		log.Printf("Invalid hashing cost %d, using the algorithm default", hashingCost)
		hashingCost = 0
	}

	// Database Configuration
	databaseDriver := v.GetString("DATABASE_DRIVER")
	databaseSettings := v.GetString("DATABASE_DSN")
	if databaseSettings == "" {
		if databaseDriver == "sqlite3" {
			databaseSettings = "file:authmail?mode=memory&cache=shared&_fk=1"
		} else {
			databaseSettings = fmt.Sprintf(
				"host=%s port=%d user=%s dbname=%s password=%s sslmode=%s",
				v.GetString("DB_HOST"),
				v.GetInt("DB_PORT"),
				v.GetString("DB_USER"),
				v.GetString("DB_NAME"),
				v.GetString("DB_PASS"),
				v.GetString("DB_SSL_MODE"),
			)
		}
	}

	smtpRetries := v.GetInt("SMTP_MAX_RETRIES")
	if smtpRetries < 0 {
		smtpRetries = 0
	}

	return &Config{
		Port:     v.GetString("APP_PORT"),
		AppEnv:   v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Token: TokenConfig{
			ValidFor:      time.Duration(validHours) * time.Hour,
			Store:         tokenStore,
			SweepInterval: sweepInterval,
		},
		Hashing: HashingConfig{
			Algorithm: hashingAlgorithm,
			Cost:      hashingCost,
		},
		Mail: MailConfig{
			BaseURL:             strings.TrimRight(v.GetString("MAIL_BASE_URL"), "/"),
			SenderName:          v.GetString("MAIL_SENDER_NAME"),
			SenderSite:          v.GetString("MAIL_SENDER_SITE"),
			CheckDeliverability: v.GetBool("EMAIL_CHECK_DELIVERABILITY"),
		},
		SMTP: SmtpConfig{
			Host:       v.GetString("SMTP_HOST"),
			Port:       v.GetString("SMTP_PORT"),
			User:       v.GetString("SMTP_USER"),
			Password:   v.GetString("SMTP_PASSWORD"),
			NOTLS:      v.GetBool("SMTP_NOTLS"),
			MaxRetries: smtpRetries,
		},
		DatabaseDriver:   databaseDriver,
		DatabaseSettings: databaseSettings,
		RedisSettings: RedisSettings{
			Address:  v.GetString("REDIS_ADDRESS"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
	}, nil
}
