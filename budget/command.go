package budget

import (
	"context"
	"fmt"
	"strings"
)

// Action selects an engine operation for Apply.
type Action string

const (
	ActionIncome   Action = "income"
	ActionAllocate Action = "allocate"
	ActionExpense  Action = "expense"
	ActionTransfer Action = "transfer"
	ActionDeposit  Action = "deposit"
	ActionPayment  Action = "payment"
)

// ParseAction accepts an action name case-insensitively.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionIncome, ActionAllocate, ActionExpense, ActionTransfer, ActionDeposit, ActionPayment:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidInput, s)
}

// Command is a tagged request for one ledger operation.
type Command struct {
	Action       Action
	Amount       Money
	BucketID     BucketID
	FromBucketID BucketID
	ToBucketID   BucketID
	Description  string
}

// Validate checks the fields the action needs are present. Balance checks
// are left to the engine.
func (c Command) Validate() error {
	switch c.Action {
	case ActionIncome, ActionAllocate, ActionExpense, ActionTransfer, ActionDeposit, ActionPayment:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, c.Action)
	}
	if err := checkAmount(c.Amount); err != nil {
		return err
	}
	switch c.Action {
	case ActionAllocate, ActionExpense, ActionPayment:
		if c.BucketID == "" {
			return fmt.Errorf("%w: bucket id is required for %s", ErrInvalidInput, c.Action)
		}
	case ActionTransfer:
		if c.FromBucketID == "" || c.ToBucketID == "" {
			return fmt.Errorf("%w: from and to bucket ids are required for transfer", ErrInvalidInput)
		}
	}
	return nil
}

// Apply dispatches c to the matching operation.
func (e *Engine) Apply(ctx context.Context, c Command) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, err
	}
	switch c.Action {
	case ActionIncome:
		return e.Income(ctx, c.Amount, c.Description)
	case ActionAllocate:
		return e.Allocate(ctx, c.BucketID, c.Amount, c.Description)
	case ActionExpense:
		return e.Expense(ctx, c.BucketID, c.Amount, c.Description)
	case ActionTransfer:
		return e.Transfer(ctx, c.FromBucketID, c.ToBucketID, c.Amount, c.Description)
	case ActionDeposit:
		return e.Deposit(ctx, c.Amount, c.Description)
	case ActionPayment:
		return e.Payment(ctx, c.BucketID, c.Amount, c.Description)
	}
	return Result{}, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, c.Action)
}
