/*
scenarios.go - Demo scenario loaders for demonstrations

PURPOSE:

	Provides pre-built scenarios that populate an empty ledger with realistic
	data for demos. Each scenario creates buckets and runs ordinary engine
	operations, so every movement lands in the transaction log.

AVAILABLE SCENARIOS:

	monthly-budget:   Salary split across rent, groceries and fun money
	envelope-shuffle: Moving money between buckets after overspending
	legacy-balance:   Deposit and payment against the legacy total balance

HOW SCENARIOS WORK:
 1. Refuse unless the ledger has no buckets and no transactions
 2. Create buckets
 3. Run income, allocations, expenses, transfers

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "monthly-budget"}

NOTE:

	A scenario is a sequence of operations, not one atomic unit. If a step
	fails the earlier steps stay applied. Loads are serialized by the
	handler, but ordinary requests arriving mid-load are not held back.

SEE ALSO:
  - handlers.go: Response helpers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/bucket-ledger/budget"
)

// ScenarioDTO describes a loadable demo.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, e *budget.Engine) error
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "monthly-budget",
			Name:        "Monthly Budget",
			Description: "Salary split across rent, groceries and fun money",
		},
		load: loadMonthlyBudget,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "envelope-shuffle",
			Name:        "Envelope Shuffle",
			Description: "Dining overspent, covered by a transfer from savings",
		},
		load: loadEnvelopeShuffle,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "legacy-balance",
			Name:        "Legacy Balance",
			Description: "Deposit into the total balance and pay a bill from a bucket",
		},
		load: loadLegacyBalance,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario loads a predefined scenario into an empty ledger.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_input", err)
		return
	}
	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), "not_found", nil)
		return
	}

	ctx := r.Context()
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	empty, err := ledgerIsEmpty(ctx, h.Engine)
	if err != nil {
		h.fail(w, r, "Failed to inspect ledger", err)
		return
	}
	if !empty {
		writeError(w, http.StatusConflict, "Scenarios can only be loaded into an empty ledger", "ledger_not_empty", nil)
		return
	}

	if err := s.load(ctx, h.Engine); err != nil {
		h.fail(w, r, fmt.Sprintf("Failed to load scenario %s", s.ID), err)
		return
	}
	h.logger.InfoContext(ctx, "scenario loaded", "scenario", s.ID)

	sum, err := h.Engine.Summary(ctx)
	if err != nil {
		h.fail(w, r, "Failed to read balance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario": s.ScenarioDTO,
		"summary":  toSummaryDTO(sum),
	})
}

func ledgerIsEmpty(ctx context.Context, e *budget.Engine) (bool, error) {
	sum, err := e.Summary(ctx)
	if err != nil {
		return false, err
	}
	if sum.BucketCount > 0 || !sum.FreeMoney.IsZero() || !sum.TotalBalance.IsZero() {
		return false, nil
	}
	txs, err := e.Log.List(ctx, budget.TransactionFilter{Limit: 1})
	if err != nil {
		return false, err
	}
	return len(txs) == 0, nil
}

// =============================================================================
// LOADERS
// =============================================================================

// scenarioRun stops at the first failing step.
type scenarioRun struct {
	ctx context.Context
	e   *budget.Engine
	err error
}

func (s *scenarioRun) bucket(name string) budget.BucketID {
	if s.err != nil {
		return ""
	}
	b, err := s.e.Buckets.Create(s.ctx, name)
	s.err = err
	return b.ID
}

func (s *scenarioRun) do(fn func() (budget.Result, error)) {
	if s.err != nil {
		return
	}
	_, s.err = fn()
}

func loadMonthlyBudget(ctx context.Context, e *budget.Engine) error {
	s := &scenarioRun{ctx: ctx, e: e}
	rent := s.bucket("Rent")
	groceries := s.bucket("Groceries")
	fun := s.bucket("Fun Money")

	s.do(func() (budget.Result, error) { return e.Income(ctx, budget.Units(3000), "Salary") })
	s.do(func() (budget.Result, error) { return e.Allocate(ctx, rent, budget.Units(1200), "") })
	s.do(func() (budget.Result, error) { return e.Allocate(ctx, groceries, budget.Units(400), "") })
	s.do(func() (budget.Result, error) { return e.Allocate(ctx, fun, budget.Units(150), "") })
	s.do(func() (budget.Result, error) { return e.Expense(ctx, rent, budget.Units(1200), "October rent") })
	s.do(func() (budget.Result, error) { return e.Expense(ctx, groceries, budget.Cents(6235), "Weekly shop") })
	return s.err
}

func loadEnvelopeShuffle(ctx context.Context, e *budget.Engine) error {
	s := &scenarioRun{ctx: ctx, e: e}
	dining := s.bucket("Dining Out")
	savings := s.bucket("Savings")

	s.do(func() (budget.Result, error) { return e.Income(ctx, budget.Units(500), "Freelance invoice") })
	s.do(func() (budget.Result, error) { return e.Allocate(ctx, dining, budget.Units(100), "") })
	s.do(func() (budget.Result, error) { return e.Allocate(ctx, savings, budget.Units(300), "") })
	s.do(func() (budget.Result, error) { return e.Expense(ctx, dining, budget.Units(95), "Birthday dinner") })
	s.do(func() (budget.Result, error) { return e.Transfer(ctx, savings, dining, budget.Units(50), "Cover dining") })
	return s.err
}

func loadLegacyBalance(ctx context.Context, e *budget.Engine) error {
	s := &scenarioRun{ctx: ctx, e: e}
	bills := s.bucket("Bills")

	s.do(func() (budget.Result, error) { return e.Deposit(ctx, budget.Units(2000), "Paycheck") })
	if s.err == nil {
		_, s.err = e.Buckets.SetBalance(ctx, bills, budget.Units(300))
	}
	s.do(func() (budget.Result, error) { return e.Payment(ctx, bills, budget.Units(120), "Electricity") })
	return s.err
}
