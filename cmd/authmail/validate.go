package main

import (
	"fmt"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/validation"
	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate subcommand and its email and username children.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an email address or username",
	}

	var checkDeliverability bool
	email := &cobra.Command{
		Use:   "email <address>",
		Short: "Print the canonical form of an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized, err := validation.ValidateEmail(cmd.Context(), args[0], checkDeliverability)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), normalized)
			return nil
		},
	}
	email.Flags().BoolVar(&checkDeliverability, "check-deliverability", false, "require the domain to accept email (DNS lookup)")

	username := &cobra.Command{
		Use:   "username <name>",
		Short: "Check that a username only contains letters and digits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := validation.ValidateUsername(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}

	cmd.AddCommand(email, username)
	return cmd
}
