/*
handlers_test.go - HTTP tests for the ledger API

Tests run the full router against an in-memory SQLite store, so every
request goes through decoding, validation, the engine and persistence.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bucket-ledger/budget"
	"github.com/warp/bucket-ledger/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type testServer struct {
	t      *testing.T
	router http.Handler
	engine *budget.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := budget.NewEngine(store)
	h := NewHandler(engine, nil)
	return &testServer{
		t:      t,
		router: NewRouter(h, RouterOptions{AllowedOrigins: []string{"http://localhost:5173"}}),
		engine: engine,
	}
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) createBucket(name string) BucketDTO {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/buckets", map[string]any{"name": name})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[BucketDTO](ts.t, rec)
}

func (ts *testServer) ledger(body map[string]any) (int, LedgerResponse) {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/ledger", body)
	return rec.Code, decode[LedgerResponse](ts.t, rec)
}

// =============================================================================
// BUCKETS
// =============================================================================

func TestBuckets_CreateListGet(t *testing.T) {
	// GIVEN: An empty ledger
	ts := newTestServer(t)

	// WHEN: Two buckets are created
	rent := ts.createBucket("Rent")
	ts.createBucket("  Groceries  ")

	// THEN: Both are listed in creation order with zero balance
	rec := ts.do(http.MethodGet, "/api/buckets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]BucketDTO](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "Rent", list[0].Name)
	assert.Equal(t, "Groceries", list[1].Name)
	assert.Zero(t, list[0].Balance)

	rec = ts.do(http.MethodGet, "/api/buckets/"+rent.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, rent.ID, decode[BucketDTO](t, rec).ID)
}

func TestBuckets_CreateWithBalance(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/buckets", map[string]any{"name": "Savings", "balance": "250.50"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.InDelta(t, 250.50, decode[BucketDTO](t, rec).Balance, 1e-9)
}

func TestBuckets_CreateRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
		code string
	}{
		{"empty name", map[string]any{"name": "   "}, "invalid_input"},
		{"negative balance", map[string]any{"name": "X", "balance": -5}, "invalid_amount"},
		{"sub-cent balance", map[string]any{"name": "X", "balance": "1.005"}, "invalid_amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/buckets", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestBuckets_GetUnknownIs404(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/buckets/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "bucket_not_found", decode[ErrorResponse](t, rec).Code)
}

func TestBuckets_UpdateRenameKeepsTransactionSnapshot(t *testing.T) {
	// GIVEN: A bucket with an allocation logged under its old name
	ts := newTestServer(t)
	b := ts.createBucket("Food")
	ts.ledger(map[string]any{"action": "income", "amount": 100})
	code, _ := ts.ledger(map[string]any{"action": "allocate", "amount": 40, "bucket_id": b.ID})
	require.Equal(t, http.StatusOK, code)

	// WHEN: The bucket is renamed and its balance overridden
	rec := ts.do(http.MethodPut, "/api/buckets/"+b.ID, map[string]any{"name": "Groceries", "balance": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[BucketDTO](t, rec)
	assert.Equal(t, "Groceries", updated.Name)
	assert.Equal(t, 10.0, updated.Balance)

	// THEN: The logged allocation still carries the old name and no entry was added
	rec = ts.do(http.MethodGet, "/api/transactions", nil)
	txs := decode[[]TransactionDTO](t, rec)
	require.Len(t, txs, 2)
	assert.Equal(t, "allocation", txs[0].Type)
	assert.Equal(t, "Food", txs[0].BucketName)

	// AND: Free money is untouched by the override
	rec = ts.do(http.MethodGet, "/api/free-money", nil)
	assert.Equal(t, 60.0, decode[FreeMoneyDTO](t, rec).Amount)
}

func TestBuckets_UpdateNeedsAField(t *testing.T) {
	ts := newTestServer(t)
	b := ts.createBucket("Food")

	rec := ts.do(http.MethodPut, "/api/buckets/"+b.ID, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuckets_DeleteKeepsHistory(t *testing.T) {
	ts := newTestServer(t)
	b := ts.createBucket("Fun")
	ts.ledger(map[string]any{"action": "income", "amount": 20})
	ts.ledger(map[string]any{"action": "allocate", "amount": 20, "bucket_id": b.ID})

	rec := ts.do(http.MethodDelete, "/api/buckets/"+b.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/buckets/"+b.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/transactions?bucket_id="+b.ID, nil)
	txs := decode[[]TransactionDTO](t, rec)
	require.Len(t, txs, 1)
	assert.Equal(t, "Fun", txs[0].BucketName)

	rec = ts.do(http.MethodDelete, "/api/buckets/"+b.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// LEDGER
// =============================================================================

func TestLedger_IncomeAllocateExpense(t *testing.T) {
	ts := newTestServer(t)
	b := ts.createBucket("Groceries")

	code, res := ts.ledger(map[string]any{"action": "income", "amount": 100, "description": "salary"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)
	assert.Equal(t, 100.0, res.FreeMoney)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, "income", res.Transaction.Type)
	assert.Equal(t, "salary", res.Transaction.Description)

	code, res = ts.ledger(map[string]any{"action": "allocate", "amount": "40", "bucket_id": b.ID})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 60.0, res.FreeMoney)
	require.NotNil(t, res.Bucket)
	assert.Equal(t, 40.0, res.Bucket.Balance)

	code, res = ts.ledger(map[string]any{"action": "expense", "amount": 15.25, "bucket_id": b.ID})
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 24.75, res.Bucket.Balance, 1e-9)
	assert.Equal(t, 60.0, res.FreeMoney)
	assert.Equal(t, "Groceries", res.Transaction.BucketName)
}

func TestLedger_AllocateInsufficientFunds(t *testing.T) {
	// GIVEN: Free money of 50
	ts := newTestServer(t)
	b := ts.createBucket("Rent")
	ts.ledger(map[string]any{"action": "income", "amount": 50})

	// WHEN: Allocating 80
	code, res := ts.ledger(map[string]any{"action": "allocate", "amount": 80, "bucket_id": b.ID})

	// THEN: 422 with nothing changed
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.False(t, res.Success)
	assert.Equal(t, "insufficient_funds", res.Code)
	assert.NotEmpty(t, res.Error)

	rec := ts.do(http.MethodGet, "/api/free-money", nil)
	assert.Equal(t, 50.0, decode[FreeMoneyDTO](t, rec).Amount)
	rec = ts.do(http.MethodGet, "/api/transactions", nil)
	assert.Len(t, decode[[]TransactionDTO](t, rec), 1)
}

func TestLedger_Transfer(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createBucket("A")
	b := ts.createBucket("B")
	ts.ledger(map[string]any{"action": "income", "amount": 100})
	ts.ledger(map[string]any{"action": "allocate", "amount": 70, "bucket_id": a.ID})

	code, res := ts.ledger(map[string]any{
		"action": "transfer", "amount": 25, "from_bucket_id": a.ID, "to_bucket_id": b.ID,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 45.0, res.FromBucket.Balance)
	assert.Equal(t, 25.0, res.ToBucket.Balance)
	assert.Equal(t, 30.0, res.FreeMoney)
	assert.Equal(t, "A", res.Transaction.FromBucketName)
	assert.Equal(t, "B", res.Transaction.ToBucketName)

	code, res = ts.ledger(map[string]any{
		"action": "transfer", "amount": 1, "from_bucket_id": a.ID, "to_bucket_id": a.ID,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", res.Code)
}

func TestLedger_RejectsBadRequests(t *testing.T) {
	ts := newTestServer(t)
	b := ts.createBucket("A")

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"unknown action", map[string]any{"action": "steal", "amount": 1}, http.StatusBadRequest, "invalid_input"},
		{"legacy action on ledger", map[string]any{"action": "deposit", "amount": 1}, http.StatusBadRequest, "invalid_input"},
		{"missing amount", map[string]any{"action": "income"}, http.StatusBadRequest, "invalid_input"},
		{"zero amount", map[string]any{"action": "income", "amount": 0}, http.StatusBadRequest, "invalid_amount"},
		{"negative amount", map[string]any{"action": "income", "amount": -10}, http.StatusBadRequest, "invalid_amount"},
		{"sub-cent amount", map[string]any{"action": "income", "amount": "10.001"}, http.StatusBadRequest, "invalid_amount"},
		{"huge exponent amount", map[string]any{"action": "income", "amount": json.RawMessage("1e1000000")}, http.StatusBadRequest, "invalid_amount"},
		{"non-numeric amount", map[string]any{"action": "income", "amount": "ten"}, http.StatusBadRequest, "invalid_input"},
		{"allocate without bucket", map[string]any{"action": "allocate", "amount": 1}, http.StatusBadRequest, "invalid_input"},
		{"transfer without target", map[string]any{"action": "transfer", "amount": 1, "from_bucket_id": b.ID}, http.StatusBadRequest, "invalid_input"},
		{"expense unknown bucket", map[string]any{"action": "expense", "amount": 1, "bucket_id": "ghost"}, http.StatusNotFound, "bucket_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, res := ts.ledger(tt.body)
			assert.Equal(t, tt.status, code)
			assert.False(t, res.Success)
			assert.Equal(t, tt.code, res.Code)
			assert.Less(t, len(res.Error), 200)
		})
	}

	rec := ts.do(http.MethodGet, "/api/transactions", nil)
	assert.Empty(t, decode[[]TransactionDTO](t, rec))
}

// =============================================================================
// LEGACY BALANCE
// =============================================================================

func TestBalance_DepositAndPayment(t *testing.T) {
	ts := newTestServer(t)
	b := ts.createBucket("Bills")

	rec := ts.do(http.MethodPost, "/api/balance", map[string]any{"action": "deposit", "amount": 500})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500.0, decode[BalanceResponse](t, rec).Balance)

	rec = ts.do(http.MethodPut, "/api/buckets/"+b.ID, map[string]any{"balance": 200})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/balance", map[string]any{"action": "payment", "amount": 75, "bucket_id": b.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[BalanceResponse](t, rec)
	assert.Equal(t, 425.0, res.Balance)
	assert.Equal(t, "payment", res.Transaction.Type)
	assert.Equal(t, 125.0, res.Bucket.Balance)

	rec = ts.do(http.MethodGet, "/api/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[SummaryDTO](t, rec)
	assert.Equal(t, 425.0, sum.TotalBalance)
	assert.Equal(t, 125.0, sum.Allocated)
	assert.Equal(t, 300.0, sum.Unallocated)
	assert.Equal(t, 1, sum.BucketCount)
}

func TestBalance_PaymentExceedingBucket(t *testing.T) {
	ts := newTestServer(t)
	b := ts.createBucket("Bills")
	ts.do(http.MethodPost, "/api/balance", map[string]any{"action": "deposit", "amount": 500})

	rec := ts.do(http.MethodPost, "/api/balance", map[string]any{"action": "payment", "amount": 10, "bucket_id": b.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_funds", decode[ErrorResponse](t, rec).Code)

	rec = ts.do(http.MethodPost, "/api/balance", map[string]any{"action": "income", "amount": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestTransactions_FilterAndLimit(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createBucket("A")
	b := ts.createBucket("B")
	ts.ledger(map[string]any{"action": "income", "amount": 100})
	ts.ledger(map[string]any{"action": "allocate", "amount": 30, "bucket_id": a.ID})
	ts.ledger(map[string]any{"action": "allocate", "amount": 30, "bucket_id": b.ID})
	ts.ledger(map[string]any{"action": "transfer", "amount": 5, "from_bucket_id": a.ID, "to_bucket_id": b.ID})

	rec := ts.do(http.MethodGet, "/api/transactions", nil)
	all := decode[[]TransactionDTO](t, rec)
	require.Len(t, all, 4)
	assert.Equal(t, "transfer", all[0].Type)
	assert.Equal(t, "income", all[3].Type)

	rec = ts.do(http.MethodGet, "/api/transactions?bucket_id="+a.ID, nil)
	assert.Len(t, decode[[]TransactionDTO](t, rec), 2)

	rec = ts.do(http.MethodGet, "/api/transactions?type=allocation", nil)
	assert.Len(t, decode[[]TransactionDTO](t, rec), 2)

	rec = ts.do(http.MethodGet, "/api/transactions?type=income,transfer&limit=1", nil)
	limited := decode[[]TransactionDTO](t, rec)
	require.Len(t, limited, 1)
	assert.Equal(t, "transfer", limited[0].Type)

	rec = ts.do(http.MethodGet, "/api/transactions/"+all[3].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, all[3], decode[TransactionDTO](t, rec))
}

func TestTransactions_BadQueries(t *testing.T) {
	ts := newTestServer(t)

	for _, q := range []string{"?type=bogus", "?limit=-1", "?limit=abc"} {
		rec := ts.do(http.MethodGet, "/api/transactions"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec := ts.do(http.MethodGet, "/api/transactions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "transaction_not_found", decode[ErrorResponse](t, rec).Code)
}

// =============================================================================
// MISC
// =============================================================================

func TestScenarios_LoadOnlyIntoEmptyLedger(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ScenarioDTO](t, rec), len(scenarios))

	rec = ts.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "monthly-budget"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/balance", nil)
	sum := decode[SummaryDTO](t, rec)
	assert.Equal(t, 1250.0, sum.FreeMoney)
	assert.Equal(t, 3, sum.BucketCount)
	assert.InDelta(t, 487.65, sum.Allocated, 1e-9)

	rec = ts.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "envelope-shuffle"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenarios_ConcurrentLoadsApplyOnce(t *testing.T) {
	// GIVEN: An empty ledger
	ts := newTestServer(t)

	// WHEN: Several loads race each other
	const racers = 8
	codes := make([]int, racers)
	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := ts.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "monthly-budget"})
			codes[i] = rec.Code
		}()
	}
	wg.Wait()

	// THEN: Exactly one is applied and the rest see a non-empty ledger
	ok, conflict := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, racers-1, conflict)

	rec := ts.do(http.MethodGet, "/api/balance", nil)
	sum := decode[SummaryDTO](t, rec)
	assert.Equal(t, 3, sum.BucketCount)
	assert.Equal(t, 1250.0, sum.FreeMoney)
}

func TestScenarios_AllLoadWithoutError(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: s.ID})
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}
