package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/warp/bucket-ledger/budget"
)

// resolveBucket accepts a bucket id, or a name matched case-insensitively
// when exactly one bucket carries it.
func resolveBucket(ctx context.Context, e *budget.Engine, ref string) (budget.Bucket, error) {
	buckets, err := e.Buckets.List(ctx)
	if err != nil {
		return budget.Bucket{}, err
	}
	var matches []budget.Bucket
	for _, b := range buckets {
		if string(b.ID) == ref {
			return b, nil
		}
		if strings.EqualFold(b.Name, strings.TrimSpace(ref)) {
			matches = append(matches, b)
		}
	}
	switch len(matches) {
	case 0:
		return budget.Bucket{}, &budget.BucketNotFoundError{ID: budget.BucketID(ref)}
	case 1:
		return matches[0], nil
	}
	return budget.Bucket{}, fmt.Errorf("%w: %d buckets are named %q, use the id", budget.ErrInvalidInput, len(matches), ref)
}

func printResult(w io.Writer, res budget.Result) {
	tx := res.Transaction
	fmt.Fprintf(w, "%s %s", tx.Type, tx.Amount)
	switch {
	case tx.From != nil && tx.To != nil:
		fmt.Fprintf(w, " from %s to %s", tx.From.Name, tx.To.Name)
	case tx.Bucket != nil:
		fmt.Fprintf(w, " %s %s", bucketPreposition(tx.Type), tx.Bucket.Name)
	}
	fmt.Fprintf(w, " recorded (%s)\n", tx.ID)

	if res.Bucket != nil {
		fmt.Fprintf(w, "  %s: %s\n", res.Bucket.Name, res.Bucket.Balance)
	}
	if res.From != nil && res.To != nil {
		fmt.Fprintf(w, "  %s: %s\n  %s: %s\n", res.From.Name, res.From.Balance, res.To.Name, res.To.Balance)
	}
	switch tx.Type {
	case budget.TxDeposit, budget.TxPayment:
		fmt.Fprintf(w, "  total balance: %s\n", res.TotalBalance)
	default:
		fmt.Fprintf(w, "  free money: %s\n", res.FreeMoney)
	}
}

func bucketPreposition(t budget.TransactionType) string {
	if t == budget.TxAllocation {
		return "to"
	}
	return "from"
}

func printBuckets(w io.Writer, buckets []budget.Bucket) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	defer tw.Flush()

	fmt.Fprintln(tw, "NAME\tBALANCE\tID\t")
	var total budget.Money
	for _, b := range buckets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", b.Name, b.Balance, b.ID)
		total += b.Balance
	}
	fmt.Fprintf(tw, "%s\t%s\t\t\n", "TOTAL", total)
}

func printTransactions(w io.Writer, txs []budget.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "TIME\tTYPE\tAMOUNT\tBUCKETS\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tx.Timestamp.Local().Format(time.DateTime),
			tx.Type,
			tx.Amount,
			describeBuckets(tx),
			tx.Description)
	}
}

func describeBuckets(tx budget.Transaction) string {
	switch {
	case tx.From != nil && tx.To != nil:
		return tx.From.Name + " -> " + tx.To.Name
	case tx.Bucket != nil:
		return tx.Bucket.Name
	}
	return "-"
}

func printSummary(w io.Writer, s budget.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	defer tw.Flush()

	fmt.Fprintf(tw, "Free money\t%s\t\n", s.FreeMoney)
	fmt.Fprintf(tw, "In buckets (%d)\t%s\t\n", s.BucketCount, s.Allocated)
	fmt.Fprintf(tw, "Net worth\t%s\t\n", s.NetWorth)
	fmt.Fprintf(tw, "Total balance\t%s\t\n", s.TotalBalance)
	fmt.Fprintf(tw, "Unallocated\t%s\t\n", s.Unallocated)
}
