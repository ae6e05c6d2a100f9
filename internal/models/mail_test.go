package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseMailTask(t *testing.T) {
	cases := map[string]MailTask{
		"confirm":                   MailTaskConfirm,
		"account-confirm":           MailTaskConfirm,
		"Account-Confirmation":      MailTaskConfirm,
		"email-change-confirmation": MailTaskConfirmEmail,
		"confirm-email":             MailTaskConfirmEmail,
		" reset ":                   MailTaskReset,
		"password-reset":            MailTaskReset,
	}
	for name, want := range cases {
		got, ok := ParseMailTask(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := ParseMailTask("welcome")
	assert.False(t, ok)
}

func TestMailTask_Valid(t *testing.T) {
	assert.True(t, MailTaskConfirm.Valid())
	assert.True(t, MailTaskConfirmEmail.Valid())
	assert.True(t, MailTaskReset.Valid())
	assert.False(t, MailTask("welcome").Valid())
	assert.False(t, MailTask("").Valid())
}

func TestTokenEntry_IsExpired(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	entry := TokenEntry{Token: "abc", IssuedAt: issued}

	assert.False(t, entry.IsExpired(issued, time.Hour))
	assert.False(t, entry.IsExpired(issued.Add(time.Hour), time.Hour), "the window is inclusive")
	assert.True(t, entry.IsExpired(issued.Add(time.Hour+time.Nanosecond), time.Hour))
}
