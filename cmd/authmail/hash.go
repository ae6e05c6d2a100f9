package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/config"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/service"
	"github.com/spf13/cobra"
)

var errNoMatch = errors.New("credential does not match digest")

type hashConfig struct {
	algorithm string
	cost      int
}

// NewHashCmd creates the hash subcommand.
func NewHashCmd() *cobra.Command {
	cfg := &hashConfig{}

	cmd := &cobra.Command{
		Use:   "hash [credential]",
		Short: "Hash a password or API key",
		Long: `Print the digest of a credential using the configured algorithm.
The credential is read from stdin when no argument is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hasher, err := newHasher(cfg)
			if err != nil {
				return err
			}
			credential, err := credentialArg(cmd, args, 0)
			if err != nil {
				return err
			}
			digest, err := hasher.Hash(credential)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.algorithm, "algorithm", "", "pbkdf2-sha256, bcrypt or argon2id (default from HASHING_ALGORITHM)")
	cmd.Flags().IntVar(&cfg.cost, "cost", 0, "algorithm cost, 0 for the configured value")

	return cmd
}

// NewVerifyCmd creates the verify subcommand.
func NewVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <digest> [credential]",
		Short: "Check a credential against a digest",
		Long: `Check a credential against a digest of any supported algorithm.
The credential is read from stdin when omitted. Exits non-zero on mismatch.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			credential, err := credentialArg(cmd, args, 1)
			if err != nil {
				return err
			}
			hasher := service.NewCredentialHasher(config.HashingConfig{Algorithm: config.HashPBKDF2SHA256})
			if !hasher.Verify(args[0], credential) {
				return errNoMatch
			}
			fmt.Fprintln(cmd.OutOrStdout(), "match")
			return nil
		},
	}
}

func newHasher(cfg *hashConfig) (*service.Hasher, error) {
	appCfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	hashing := appCfg.Hashing
	if cfg.algorithm != "" {
		hashing.Algorithm = strings.ToLower(cfg.algorithm)
		hashing.Cost = 0
	}
	if cfg.cost != 0 {
		hashing.Cost = cfg.cost
	}
	return service.NewCredentialHasher(hashing), nil
}

func credentialArg(cmd *cobra.Command, args []string, index int) (string, error) {
	if len(args) > index {
		return args[index], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	credential := strings.TrimRight(line, "\r\n")
	if credential == "" {
		return "", service.ErrEmptyCredential
	}
	return credential, nil
}
