package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/bucket-ledger/budget"
)

func (c *cli) transactionsCmd() *cobra.Command {
	var (
		bucketRef string
		types     []string
		limit     int
	)
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"log"},
		Short:   "Show the transaction log, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			filter := budget.TransactionFilter{Limit: limit}
			if bucketRef != "" {
				// Deleted buckets can only be matched by id.
				b, err := resolveBucket(ctx, c.engine, bucketRef)
				switch {
				case err == nil:
					filter.BucketID = b.ID
				case errors.Is(err, budget.ErrBucketNotFound):
					filter.BucketID = budget.BucketID(bucketRef)
				default:
					return err
				}
			}
			for _, t := range types {
				typ := budget.TransactionType(strings.ToLower(strings.TrimSpace(t)))
				if !typ.Valid() {
					return fmt.Errorf("%w: unknown transaction type %q", budget.ErrInvalidInput, t)
				}
				filter.Types = append(filter.Types, typ)
			}

			txs, err := c.engine.Log.List(ctx, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(txs) == 0 {
				fmt.Fprintln(out, "No transactions found.")
				return nil
			}
			printTransactions(out, txs)
			return nil
		},
	}
	cmd.Flags().StringVar(&bucketRef, "bucket", "", "only entries touching this bucket (id or name)")
	cmd.Flags().StringSliceVar(&types, "type", nil, "only these types (income, allocation, expense, transfer, deposit, payment)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries to show (0 = all)")
	return cmd
}

func (c *cli) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show free money, bucket totals and the legacy total balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum, err := c.engine.Summary(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
}
