package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the authmail CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authmail",
		Short: "Token and credential manager for account emails",
		Long: `authmail issues single-use confirmation and reset tokens, hashes
credentials and composes the emails that carry the links.

Configuration is read from a .env file in . or ./config and from the environment.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHashCmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewComposeCmd())

	return cmd
}
