package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmerrifield20/educoin/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

const defaultServer = "http://localhost:8080"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli carries the global flags and per-invocation config.
type cli struct {
	server  string
	cfgFile string
	token   string
	v       *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "educoin",
		Short: "EduCoin classroom ledger CLI",
		Long: `educoin talks to an educoind server.

Teachers reward students with coins, students pay each other, and anyone can
browse the chain and check that no block has been tampered with.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ~/.educoin/config.yaml)")
	root.PersistentFlags().StringVar(&a.server, "server", "", "educoind URL (default "+defaultServer+")")
	root.PersistentFlags().StringVar(&a.token, "token", "", "teacher token (default from config)")

	root.AddCommand(
		a.rewardCmd(),
		a.transferCmd(),
		a.balanceCmd(),
		a.leaderboardCmd(),
		a.chainCmd(),
		a.blockCmd(),
		a.verifyCmd(),
		a.historyCmd(),
		a.loginCmd(),
		hashSecretCmd(),
		versionCmd(),
	)
	return root
}

func (a *cli) loadConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, _ := os.UserHomeDir()
		a.v.AddConfigPath(filepath.Join(home, ".educoin"))
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}
	a.v.SetEnvPrefix("educoin")
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if a.server == "" {
		a.server = a.v.GetString("server_url")
	}
	if a.server == "" {
		a.server = defaultServer
	}
	if a.token == "" {
		a.token = a.v.GetString("token")
	}
	return nil
}

// configPath is where login persists the token.
func (a *cli) configPath() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		return used
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".educoin", "config.yaml")
}

func (a *cli) client() (*client.Client, error) {
	var opts []client.Option
	if a.token != "" {
		opts = append(opts, client.WithBearerToken(a.token))
	}
	return client.New(a.server, opts...)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "educoin %s\n", version)
		},
	}
}
