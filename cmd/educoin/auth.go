package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmerrifield20/educoin/internal/auth"
	"github.com/spf13/cobra"
)

var errChainInvalid = errors.New("chain failed verification")

func (a *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <teacher>",
		Short: "Exchange the teacher secret for a token and save it",
		Long: `Log in as a teacher. The secret is read from EDUCOIN_TEACHER_SECRET or
from standard input. The token is written to the config file so later
'educoin reward' calls are authorised.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("EDUCOIN_TEACHER_SECRET")
			if secret == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "teacher secret: ")
				s, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				secret = s
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.Login(cmd.Context(), args[0], secret)
			if err != nil {
				return err
			}

			path := a.configPath()
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			a.v.Set("server_url", a.server)
			a.v.Set("token", res.Token)
			if err := a.v.WriteConfigAs(path); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("logged in as %s; token saved to %s", args[0], path))
			return nil
		},
	}
}

func hashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret",
		Short: "Print a bcrypt hash for auth.teacher_secret_hash",
		Long:  `Reads the shared teacher secret from standard input and prints its bcrypt hash.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if secret == "" {
				return errors.New("secret must not be empty")
			}
			hash, err := auth.HashSecret(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
