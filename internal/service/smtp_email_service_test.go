package service

import (
	"context"
	"errors"
	"net/smtp"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/config"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMail struct {
	addr string
	from string
	to   []string
	msg  string
	auth smtp.Auth
}

type fakeRelay struct {
	mu    sync.Mutex
	sent  []recordedMail
	fails []error // returned in order before succeeding
}

func (r *fakeRelay) send(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.fails) > 0 {
		err := r.fails[0]
		r.fails = r.fails[1:]
		if err != nil {
			return err
		}
	}
	r.sent = append(r.sent, recordedMail{addr: addr, from: from, to: to, msg: string(msg), auth: a})
	return nil
}

func newTestSMTP(cfg config.SmtpConfig, relay *fakeRelay) *SMTPEmailService {
	s := NewSMTPEmailService(&cfg, "The Accounts Team")
	s.sendMail = relay.send
	s.retryBase = time.Millisecond
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

var testSMTPConfig = config.SmtpConfig{
	Host:       "smtp.example.com",
	Port:       "587",
	User:       "noreply@example.com",
	Password:   "pw",
	MaxRetries: 2,
}

var testMessage = models.MailMessage{
	To:      "bob@example.com",
	Subject: "Password Reset Request",
	Body:    "Hello bob,\n\nClick the link.",
}

func TestSMTPEmailService_Send(t *testing.T) {
	relay := &fakeRelay{}
	s := newTestSMTP(testSMTPConfig, relay)

	require.NoError(t, s.Send(context.Background(), testMessage))
	require.Len(t, relay.sent, 1)

	sent := relay.sent[0]
	assert.Equal(t, "smtp.example.com:587", sent.addr)
	assert.Equal(t, "noreply@example.com", sent.from)
	assert.Equal(t, []string{"bob@example.com"}, sent.to)
	assert.Contains(t, sent.msg, "From: \"The Accounts Team\" <noreply@example.com>\r\n")
	assert.Contains(t, sent.msg, "To: <bob@example.com>\r\n")
	assert.Contains(t, sent.msg, "Subject: Password Reset Request\r\n")
	assert.Contains(t, sent.msg, "Date: Fri, 01 Mar 2024 12:00:00 +0000\r\n")
	assert.Contains(t, sent.msg, "Message-ID: <")
	assert.Contains(t, sent.msg, "@smtp.example.com>\r\n")
	assert.Contains(t, sent.msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.True(t, strings.HasSuffix(sent.msg, "\r\n\r\nHello bob,\r\n\r\nClick the link."))
	_, plain := sent.auth.(unencryptedAuth)
	assert.False(t, plain)
}

func TestSMTPEmailService_NoTLSWrapsAuth(t *testing.T) {
	relay := &fakeRelay{}
	cfg := testSMTPConfig
	cfg.NOTLS = true
	require.NoError(t, newTestSMTP(cfg, relay).Send(context.Background(), testMessage))
	require.Len(t, relay.sent, 1)
	_, ok := relay.sent[0].auth.(unencryptedAuth)
	assert.True(t, ok)
}

func TestSMTPEmailService_RetriesTransientFailures(t *testing.T) {
	relay := &fakeRelay{fails: []error{
		errors.New("connection reset by peer"),
		&textproto.Error{Code: 421, Msg: "try again later"},
	}}
	require.NoError(t, newTestSMTP(testSMTPConfig, relay).Send(context.Background(), testMessage))
	assert.Len(t, relay.sent, 1)
	assert.Empty(t, relay.fails)
}

func TestSMTPEmailService_GivesUpAfterMaxRetries(t *testing.T) {
	relay := &fakeRelay{fails: []error{
		errors.New("timeout"), errors.New("timeout"), errors.New("timeout"), errors.New("timeout"),
	}}
	err := newTestSMTP(testSMTPConfig, relay).Send(context.Background(), testMessage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Empty(t, relay.sent)
	assert.Len(t, relay.fails, 1, "one attempt plus two retries")
}

func TestSMTPEmailService_PermanentFailureIsNotRetried(t *testing.T) {
	relay := &fakeRelay{fails: []error{
		&textproto.Error{Code: 550, Msg: "mailbox unavailable"},
		errors.New("never reached"),
	}}
	err := newTestSMTP(testSMTPConfig, relay).Send(context.Background(), testMessage)
	var protoErr *textproto.Error
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, 550, protoErr.Code)
	assert.Len(t, relay.fails, 1)
}

func TestSMTPEmailService_Rejects(t *testing.T) {
	relay := &fakeRelay{}

	err := newTestSMTP(config.SmtpConfig{Host: "smtp.example.com"}, relay).Send(context.Background(), testMessage)
	assert.ErrorIs(t, err, ErrSMTPNotConfigured)

	s := newTestSMTP(testSMTPConfig, relay)
	err = s.Send(context.Background(), models.MailMessage{To: "bob@example.com"})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	injected := testMessage
	injected.Subject = "Hi\r\nBcc: eve@example.com"
	assert.Error(t, s.Send(context.Background(), injected))

	assert.Empty(t, relay.sent)
}

func TestNewSMTPEmailService_NilConfig(t *testing.T) {
	s := NewSMTPEmailService(nil, "")
	assert.ErrorIs(t, s.Send(context.Background(), testMessage), ErrSMTPNotConfigured)
}
