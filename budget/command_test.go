package budget_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/bucket-ledger/budget"
)

func TestParseAction(t *testing.T) {
	a, err := budget.ParseAction(" Transfer ")
	require.NoError(t, err)
	assert.Equal(t, budget.ActionTransfer, a)

	_, err = budget.ParseAction("refund")
	assert.ErrorIs(t, err, budget.ErrInvalidInput)
}

func TestCommand_Validate(t *testing.T) {
	tests := []struct {
		name string
		cmd  budget.Command
		want error
	}{
		{"income ok", budget.Command{Action: budget.ActionIncome, Amount: budget.Units(1)}, nil},
		{"unknown action", budget.Command{Action: "refund", Amount: budget.Units(1)}, budget.ErrInvalidInput},
		{"upper case action", budget.Command{Action: "INCOME", Amount: budget.Units(1)}, budget.ErrInvalidInput},
		{"zero amount", budget.Command{Action: budget.ActionIncome}, budget.ErrInvalidAmount},
		{"allocate needs bucket", budget.Command{Action: budget.ActionAllocate, Amount: budget.Units(1)}, budget.ErrInvalidInput},
		{"payment needs bucket", budget.Command{Action: budget.ActionPayment, Amount: budget.Units(1)}, budget.ErrInvalidInput},
		{"transfer needs both", budget.Command{Action: budget.ActionTransfer, Amount: budget.Units(1), FromBucketID: "a"}, budget.ErrInvalidInput},
		{"transfer ok", budget.Command{Action: budget.ActionTransfer, Amount: budget.Units(1), FromBucketID: "a", ToBucketID: "b"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEngine_ApplyDispatches(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	a := createBucket(t, e, "A", 0)
	b := createBucket(t, e, "B", 0)

	cmds := []budget.Command{
		{Action: budget.ActionIncome, Amount: budget.Units(100)},
		{Action: budget.ActionAllocate, Amount: budget.Units(40), BucketID: a.ID},
		{Action: budget.ActionTransfer, Amount: budget.Units(15), FromBucketID: a.ID, ToBucketID: b.ID},
		{Action: budget.ActionExpense, Amount: budget.Units(5), BucketID: b.ID, Description: "lunch"},
		{Action: budget.ActionDeposit, Amount: budget.Units(50)},
		{Action: budget.ActionPayment, Amount: budget.Units(10), BucketID: a.ID},
	}
	want := []budget.TransactionType{
		budget.TxIncome, budget.TxAllocation, budget.TxTransfer, budget.TxExpense, budget.TxDeposit, budget.TxPayment,
	}
	for i, c := range cmds {
		res, err := e.Apply(ctx, c)
		require.NoError(t, err, c.Action)
		assert.Equal(t, want[i], res.Transaction.Type)
		assert.Equal(t, c.Amount, res.Transaction.Amount)
		assert.Equal(t, c.Description, res.Transaction.Description)
	}

	assert.Equal(t, budget.Units(15), bucketBalance(t, e, a.ID))
	assert.Equal(t, budget.Units(10), bucketBalance(t, e, b.ID))

	_, err := e.Apply(ctx, budget.Command{Action: "refund", Amount: budget.Units(1)})
	assert.ErrorIs(t, err, budget.ErrInvalidInput)
}
