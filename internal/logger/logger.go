package logger

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const tokenPrefixLen = 6

// Init initializes the global zerolog logger and redirects the standard logger into it.
func Init(logLevelStr string, appEnv string) {
	log.Logger = New(os.Stdout, logLevelStr, appEnv)

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// New builds a logger writing to out. Development environments get the console writer.
func New(out io.Writer, logLevelStr string, appEnv string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(logLevelStr))
	if err != nil || parsedLevel == zerolog.NoLevel {
		parsedLevel = zerolog.InfoLevel
		log.Warn().Err(err).Msgf("Invalid log level '%s', defaulting to 'info'", logLevelStr)
	}
	zerolog.SetGlobalLevel(parsedLevel)

	env := strings.ToLower(appEnv)
	if env == "development" || env == "dev" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).With().Timestamp().Str("service", "authmail").Logger()
}

// TokenPrefix returns the loggable head of a secret. Full tokens never reach the logs.
func TokenPrefix(token string) string {
	if len(token) > tokenPrefixLen {
		return token[:tokenPrefixLen] + "..."
	}
	return token
}
