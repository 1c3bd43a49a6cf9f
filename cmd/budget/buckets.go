package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/bucket-ledger/budget"
)

func (c *cli) bucketsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "Manage buckets",
		Long:  `List, create, rename, override and delete buckets. None of these log a transaction.`,
	}

	cmd.AddCommand(c.listBucketsCmd())
	cmd.AddCommand(c.createBucketCmd())
	cmd.AddCommand(c.renameBucketCmd())
	cmd.AddCommand(c.setBalanceCmd())
	cmd.AddCommand(c.deleteBucketCmd())

	return cmd
}

func (c *cli) listBucketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all buckets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			buckets, err := c.engine.Buckets.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(buckets) == 0 {
				fmt.Fprintln(out, "No buckets yet. Use 'budget buckets create <name>' to add one.")
				return nil
			}
			printBuckets(out, buckets)
			return nil
		},
	}
}

func (c *cli) createBucketCmd() *cobra.Command {
	var balance string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var initial budget.Money
			if balance != "" {
				m, err := budget.ParseMoney(balance)
				if err != nil {
					return err
				}
				initial = m
			}
			b, err := c.engine.Buckets.Create(cmd.Context(), args[0], initial)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created bucket %q (%s) with balance %s\n", b.Name, b.ID, b.Balance)
			return nil
		},
	}
	cmd.Flags().StringVar(&balance, "balance", "", "starting balance")
	return cmd
}

func (c *cli) renameBucketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <bucket> <new-name>",
		Short: "Rename a bucket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := resolveBucket(cmd.Context(), c.engine, args[0])
			if err != nil {
				return err
			}
			updated, err := c.engine.Buckets.Rename(cmd.Context(), b.ID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %q to %q\n", b.Name, updated.Name)
			return nil
		},
	}
}

func (c *cli) setBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-balance <bucket> <amount>",
		Short: "Override a bucket balance without logging a transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := resolveBucket(cmd.Context(), c.engine, args[0])
			if err != nil {
				return err
			}
			amount, err := budget.ParseMoney(args[1])
			if err != nil {
				return err
			}
			updated, err := c.engine.Buckets.SetBalance(cmd.Context(), b.ID, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s balance set to %s (was %s)\n", updated.Name, updated.Balance, b.Balance)
			return nil
		},
	}
}

func (c *cli) deleteBucketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <bucket>",
		Short: "Delete a bucket; its balance is dropped and its history kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := resolveBucket(cmd.Context(), c.engine, args[0])
			if err != nil {
				return err
			}
			if err := c.engine.Buckets.Delete(cmd.Context(), b.ID); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deleted bucket %q\n", b.Name)
			if b.Balance.IsPositive() {
				fmt.Fprintf(out, "Warning: its balance of %s was dropped\n", b.Balance)
			}
			return nil
		},
	}
}
