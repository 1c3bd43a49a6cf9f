package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/bucket-ledger/budget"
)

// =============================================================================
// RICH MODEL
// =============================================================================

func (c *cli) incomeCmd() *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:     "income <amount>",
		Short:   "Record income into the free-money pool",
		Example: "  budget income 2500 -d salary",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := budget.ParseMoney(args[0])
			if err != nil {
				return err
			}
			res, err := c.engine.Income(cmd.Context(), amount, desc)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	addDescriptionFlag(cmd, &desc)
	return cmd
}

func (c *cli) allocateCmd() *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:     "allocate <bucket> <amount>",
		Short:   "Move money from the free pool into a bucket",
		Example: "  budget allocate Rent 1200",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.bucketOp(cmd, args[0], args[1], func(id budget.BucketID, amount budget.Money) (budget.Result, error) {
				return c.engine.Allocate(cmd.Context(), id, amount, desc)
			})
		},
	}
	addDescriptionFlag(cmd, &desc)
	return cmd
}

func (c *cli) expenseCmd() *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:     "expense <bucket> <amount>",
		Short:   "Spend money from a bucket",
		Example: "  budget expense Groceries 62.35 -d \"weekly shop\"",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.bucketOp(cmd, args[0], args[1], func(id budget.BucketID, amount budget.Money) (budget.Result, error) {
				return c.engine.Expense(cmd.Context(), id, amount, desc)
			})
		},
	}
	addDescriptionFlag(cmd, &desc)
	return cmd
}

func (c *cli) transferCmd() *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:     "transfer <from> <to> <amount>",
		Short:   "Move money between two buckets",
		Example: "  budget transfer Savings Dining 50",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			from, err := resolveBucket(ctx, c.engine, args[0])
			if err != nil {
				return err
			}
			to, err := resolveBucket(ctx, c.engine, args[1])
			if err != nil {
				return err
			}
			amount, err := budget.ParseMoney(args[2])
			if err != nil {
				return err
			}
			res, err := c.engine.Transfer(ctx, from.ID, to.ID, amount, desc)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	addDescriptionFlag(cmd, &desc)
	return cmd
}

// =============================================================================
// LEGACY MODEL
// =============================================================================

func (c *cli) depositCmd() *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Raise the legacy total balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := budget.ParseMoney(args[0])
			if err != nil {
				return err
			}
			res, err := c.engine.Deposit(cmd.Context(), amount, desc)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	addDescriptionFlag(cmd, &desc)
	return cmd
}

func (c *cli) paymentCmd() *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:   "payment <bucket> <amount>",
		Short: "Pay from a bucket and the legacy total balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.bucketOp(cmd, args[0], args[1], func(id budget.BucketID, amount budget.Money) (budget.Result, error) {
				return c.engine.Payment(cmd.Context(), id, amount, desc)
			})
		},
	}
	addDescriptionFlag(cmd, &desc)
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

func addDescriptionFlag(cmd *cobra.Command, desc *string) {
	cmd.Flags().StringVarP(desc, "description", "d", "", "free-text note stored with the transaction")
}

// bucketOp resolves a bucket reference and an amount, then runs op.
func (c *cli) bucketOp(cmd *cobra.Command, ref, rawAmount string, op func(budget.BucketID, budget.Money) (budget.Result, error)) error {
	b, err := resolveBucket(cmd.Context(), c.engine, ref)
	if err != nil {
		return err
	}
	amount, err := budget.ParseMoney(rawAmount)
	if err != nil {
		return err
	}
	res, err := op(b.ID, amount)
	if err != nil {
		return fmt.Errorf("%s %s: %w", cmd.Name(), b.Name, err)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}
