package main

import (
	"fmt"
	"strconv"

	"github.com/jmerrifield20/educoin/pkg/client"
	"github.com/spf13/cobra"
)

func (a *cli) chainCmd() *cobra.Command {
	var oldestFirst bool
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "List blocks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			blocks, err := c.Blocks(cmd.Context(), !oldestFirst)
			if err != nil {
				return err
			}
			return renderBlocks(cmd.OutOrStdout(), blocks)
		},
	}
	cmd.Flags().BoolVar(&oldestFirst, "oldest-first", false, "list from genesis forward")
	return cmd
}

func (a *cli) blockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <index>",
		Short: "Show one block and its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil || idx < 1 {
				return fmt.Errorf("index %q must be a positive integer", args[0])
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			b, err := c.Block(cmd.Context(), idx)
			if err != nil {
				return err
			}
			return renderBlock(cmd.OutOrStdout(), b)
		},
	}
}

func (a *cli) verifyCmd() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the chain for tampering",
		Long: `Ask the server to walk its chain. With --local the blocks are fetched
and every hash and link is recomputed on this machine instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if local {
				blocks, err := c.Blocks(cmd.Context(), false)
				if err != nil {
					return err
				}
				if err := client.VerifyLocal(blocks); err != nil {
					printFailure(out, "chain invalid: "+err.Error())
					return errChainInvalid
				}
				printSuccess(out, fmt.Sprintf("chain valid (%d blocks, checked locally)", len(blocks)))
				return nil
			}

			v, err := c.Verify(cmd.Context())
			if err != nil {
				return err
			}
			if !v.Valid {
				printFailure(out, "chain invalid: "+v.Error)
				return errChainInvalid
			}
			printSuccess(out, "chain valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "recompute hashes client-side")
	return cmd
}
