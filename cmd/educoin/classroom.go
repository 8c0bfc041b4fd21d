package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *cli) rewardCmd() *cobra.Command {
	var teacher string
	cmd := &cobra.Command{
		Use:   "reward <student> <amount>",
		Short: "Issue coins to a student",
		Long: `Issue new coins to a student. The reward is sealed into its own block.

When the server requires teacher auth, run 'educoin login' first; the
teacher name then comes from the token and --teacher is ignored.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			b, err := c.Reward(cmd.Context(), teacher, args[0], amount)
			if err != nil {
				return err
			}
			printSealed(cmd.OutOrStdout(), fmt.Sprintf("rewarded %s %d", args[0], amount), b)
			return nil
		},
	}
	cmd.Flags().StringVar(&teacher, "teacher", "", "name of the issuing teacher")
	return cmd
}

func (a *cli) transferCmd() *cobra.Command {
	var teacher string
	cmd := &cobra.Command{
		Use:   "transfer <from> <to> <amount>",
		Short: "Move coins between students",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			b, err := c.Transfer(cmd.Context(), teacher, args[0], args[1], amount)
			if err != nil {
				return err
			}
			printSealed(cmd.OutOrStdout(), fmt.Sprintf("%s paid %s %d", args[0], args[1], amount), b)
			return nil
		},
	}
	cmd.Flags().StringVar(&teacher, "teacher", "", "name of the supervising teacher")
	return cmd
}

func (a *cli) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [participant]",
		Short: "Show one balance, or every balance when no name is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				bal, err := c.Balance(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", args[0], bal)
				return nil
			}
			all, err := c.Balances(cmd.Context())
			if err != nil {
				return err
			}
			return renderBalances(cmd.OutOrStdout(), all)
		},
	}
}

func (a *cli) leaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank participants by balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			board, err := c.Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderLeaderboard(cmd.OutOrStdout(), board)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of rows; 0 shows everyone")
	return cmd
}

func (a *cli) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show reward or transfer history",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rewards",
		Short: "Every reward in issue order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			rows, err := c.Rewards(cmd.Context())
			if err != nil {
				return err
			}
			return renderRewards(cmd.OutOrStdout(), rows)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "transfers",
		Short: "Every transfer in submission order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			rows, err := c.Transfers(cmd.Context())
			if err != nil {
				return err
			}
			return renderTransfers(cmd.OutOrStdout(), rows)
		},
	})
	return cmd
}

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a whole number", s)
	}
	return n, nil
}
