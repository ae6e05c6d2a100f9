package service

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/config"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	"github.com/rs/zerolog/log"
)

const signature = `Best regards,

{{.SenderName}}{{if .SenderSite}}
{{.SenderSite}}{{end}}`

var mailTemplates = map[models.MailTask]struct {
	subject string
	body    *template.Template
}{
	models.MailTaskConfirm: {
		subject: "Account Confirmation Link",
		body: template.Must(template.New("confirm").Parse(`Hello {{.Username}},

Thank you for signing up! You can now use your credentials across every project that supports accounts. To complete your registration, please click the link below within the next {{.ValidHours}} hours:

{{.Link}}

If you forgot clicking the link, register again.

If you did not request this registration or have any questions, please ignore this message.

` + signature)),
	},
	models.MailTaskConfirmEmail: {
		subject: "Email Change Confirmation Link",
		body: template.Must(template.New("confirm-email").Parse(`Hello {{.Username}},

You asked to use {{.Email}} for your account. To confirm the new address, please click the link below within the next {{.ValidHours}} hours:

{{.Link}}

If you did not request this change, please ignore this message, and your account will keep its current address.

` + signature)),
	},
	models.MailTaskReset: {
		subject: "Password Reset Request",
		body: template.Must(template.New("reset").Parse(`Hello {{.Username}},

To complete the process of resetting your password, please click the link below within the next {{.ValidHours}} hours:

{{.Link}}

If you did not request a password reset, please ignore this message, and your account will remain secure.

` + signature)),
	},
}

type mailData struct {
	Username   string
	Email      string
	Link       string
	ValidHours int
	SenderName string
	SenderSite string
}

var _ Composer = (*MailComposer)(nil)

// MailComposer renders confirmation and reset emails. It performs no I/O.
type MailComposer struct {
	cfg        config.MailConfig
	validHours int
}

func NewMailComposer(cfg config.MailConfig, validFor time.Duration) *MailComposer {
	return &MailComposer{
		cfg:        cfg,
		validHours: int(validFor / time.Hour),
	}
}

// Link builds the callback URL a recipient visits to redeem token.
// Long task names are reduced to their short path.
func (c *MailComposer) Link(task models.MailTask, userID int64, redirectURL, token string) string {
	if resolved, ok := models.ParseMailTask(string(task)); ok {
		task = resolved
	}
	return fmt.Sprintf("%s/%s?id=%d&token=%s&then=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), task, userID,
		url.QueryEscape(token), url.QueryEscape(redirectURL))
}

// Compose selects the template for task, given by its short or long name.
// Unknown tasks yield an empty subject and body.
func (c *MailComposer) Compose(task models.MailTask, userID int64, username, email, redirectURL, token string) models.MailMessage {
	msg := models.MailMessage{To: email}

	if resolved, ok := models.ParseMailTask(string(task)); ok {
		task = resolved
	}
	tmpl, ok := mailTemplates[task]
	if !ok {
		log.Warn().Str("task", string(task)).Int64("userID", userID).Msg("Unknown mail task, composing an empty message")
		return msg
	}

	var body strings.Builder
	err := tmpl.body.Execute(&body, mailData{
		Username:   username,
		Email:      email,
		Link:       c.Link(task, userID, redirectURL, token),
		ValidHours: c.validHours,
		SenderName: c.cfg.SenderName,
		SenderSite: c.cfg.SenderSite,
	})
	if err != nil {
		log.Error().Err(err).Str("task", string(task)).Msg("Failed to render mail template")
		return msg
	}

	msg.Subject = tmpl.subject
	msg.Body = body.String()
	return msg
}
