package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/config"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const defaultRetryBase = 500 * time.Millisecond

var _ MailTransport = (*SMTPEmailService)(nil)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPEmailService implements MailTransport over an authenticated SMTP relay.
type SMTPEmailService struct {
	cfg        *config.SmtpConfig
	senderName string
	sendMail   sendMailFunc
	retryBase  time.Duration
	now        func() time.Time
}

// unencryptedAuth lets PLAIN auth run against relays without STARTTLS.
type unencryptedAuth struct {
	smtp.Auth
}

func (a unencryptedAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	s := *server
	s.TLS = true
	return a.Auth.Start(&s)
}

// NewSMTPEmailService creates a new SMTPEmailService sending as senderName.
func NewSMTPEmailService(smtpCfg *config.SmtpConfig, senderName string) *SMTPEmailService {
	if smtpCfg == nil {
		log.Warn().Msg("SMTP configuration is nil. Email sending will likely fail.")
		smtpCfg = &config.SmtpConfig{}
	}
	return &SMTPEmailService{
		cfg:        smtpCfg,
		senderName: senderName,
		sendMail:   smtp.SendMail,
		retryBase:  defaultRetryBase,
		now:        time.Now,
	}
}

// Send delivers msg, retrying transient failures with exponential backoff.
// 5xx replies from the relay are permanent and end the attempt.
func (s *SMTPEmailService) Send(ctx context.Context, msg models.MailMessage) error {
	if s.cfg.Host == "" || s.cfg.User == "" || s.cfg.Port == "" {
		log.Error().Str("toEmail", msg.To).Msg("SMTP host, user, or port not configured. Cannot send email.")
		return ErrSMTPNotConfigured
	}
	if msg.Subject == "" || msg.Body == "" {
		return ErrEmptyMessage
	}

	raw, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	if s.cfg.NOTLS {
		auth = unencryptedAuth{auth}
	}
	addr := s.cfg.Host + ":" + s.cfg.Port

	backoff := retry.WithMaxRetries(uint64(s.cfg.MaxRetries), retry.NewExponential(s.retryBase))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		sendErr := s.sendMail(addr, auth, s.cfg.User, []string{msg.To}, raw)
		if sendErr == nil {
			return nil
		}
		if isPermanent(sendErr) {
			return sendErr
		}
		log.Warn().Err(sendErr).Str("toEmail", msg.To).Int("attempt", attempt).Msg("Transient SMTP failure, retrying")
		return retry.RetryableError(sendErr)
	})
	if err != nil {
		log.Error().Err(err).Str("toEmail", msg.To).Int("attempts", attempt).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info().Str("toEmail", msg.To).Str("subject", msg.Subject).Msg("Email sent")
	return nil
}

func (s *SMTPEmailService) buildMessage(msg models.MailMessage) ([]byte, error) {
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return nil, fmt.Errorf("invalid header value for %q", msg.To)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	from := mail.Address{Name: s.senderName, Address: s.cfg.User}

	var b strings.Builder
	header := func(key, value string) {
		b.WriteString(key + ": " + value + "\r\n")
	}
	header("From", from.String())
	header("To", to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", s.now().UTC().Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), s.cfg.Host))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String()), nil
}

func isPermanent(err error) bool {
	var protoErr *textproto.Error
	return errors.As(err, &protoErr) && protoErr.Code >= 500
}
