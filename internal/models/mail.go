package models

import "strings"

// MailTask selects the email template and the callback path of the link.
type MailTask string

const (
	MailTaskConfirm      MailTask = "confirm"       // Account confirmation
	MailTaskConfirmEmail MailTask = "confirm-email" // Email change confirmation
	MailTaskReset        MailTask = "reset"         // Password reset
)

var mailTaskAliases = map[string]MailTask{
	"confirm":                   MailTaskConfirm,
	"account-confirm":           MailTaskConfirm,
	"account-confirmation":      MailTaskConfirm,
	"confirm-email":             MailTaskConfirmEmail,
	"email-change-confirmation": MailTaskConfirmEmail,
	"reset":                     MailTaskReset,
	"password-reset":            MailTaskReset,
}

// ParseMailTask maps a task name, canonical or long form, to its MailTask.
func ParseMailTask(name string) (MailTask, bool) {
	task, ok := mailTaskAliases[strings.ToLower(strings.TrimSpace(name))]
	return task, ok
}

// Valid reports whether t is one of the known tasks.
func (t MailTask) Valid() bool {
	switch t {
	case MailTaskConfirm, MailTaskConfirmEmail, MailTaskReset:
		return true
	}
	return false
}

// MailMessage is a composed email ready for a MailTransport.
type MailMessage struct {
	To      string
	Subject string
	Body    string
}
