package main

import (
	"fmt"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/config"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/repository"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/service"
	"github.com/spf13/cobra"
)

type composeConfig struct {
	task        string
	userID      int64
	username    string
	email       string
	redirectURL string
	token       string
}

// NewComposeCmd creates the compose subcommand.
func NewComposeCmd() *cobra.Command {
	cfg := &composeConfig{}

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Print the email a task would send",
		Long: `Render the confirmation, email change or password reset message for a user.
A fresh untracked token is used unless --token is given. Nothing is sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompose(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.task, "task", string(models.MailTaskConfirm), "confirm, confirm-email or reset")
	cmd.Flags().Int64Var(&cfg.userID, "id", 0, "user id embedded in the link")
	cmd.Flags().StringVar(&cfg.username, "username", "", "greeting name")
	cmd.Flags().StringVar(&cfg.email, "email", "", "recipient address")
	cmd.Flags().StringVar(&cfg.redirectURL, "then", "", "where the link redirects afterwards")
	cmd.Flags().StringVar(&cfg.token, "token", "", "token to embed")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runCompose(cmd *cobra.Command, cfg *composeConfig) error {
	task, ok := models.ParseMailTask(cfg.task)
	if !ok {
		return fmt.Errorf("unknown mail task %q", cfg.task)
	}

	appCfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	token := cfg.token
	if token == "" {
		if token, err = repository.GenerateTokenValue(); err != nil {
			return err
		}
	}

	msg := service.NewMailComposer(appCfg.Mail, appCfg.Token.ValidFor).
		Compose(task, cfg.userID, cfg.username, cfg.email, cfg.redirectURL, token)
	fmt.Fprintf(cmd.OutOrStdout(), "To: %s\nSubject: %s\n\n%s\n", msg.To, msg.Subject, msg.Body)
	return nil
}
