/*
handlers.go - HTTP API handlers for the bucket ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, boundary validation, and delegates to budget.Engine.

ENDPOINTS:
  Buckets:
    GET    /api/buckets           List buckets in creation order
    POST   /api/buckets           Create bucket
    GET    /api/buckets/{id}      Get bucket
    PUT    /api/buckets/{id}      Rename and/or override balance
    DELETE /api/buckets/{id}      Delete bucket

  Ledger:
    POST   /api/ledger            income | allocate | expense | transfer
    GET    /api/free-money        Free-money pool

  Legacy balance:
    GET    /api/balance           Ledger summary
    POST   /api/balance           deposit | payment

  Transactions:
    GET    /api/transactions      Newest first, ?bucket_id=&type=&limit=
    GET    /api/transactions/{id} Single entry

REQUEST FLOW:
  1. Decode JSON body
  2. Validate input (action, amount precision, required ids)
  3. Call engine
  4. Serialize response

ERROR HANDLING:
  - 400: Validation errors, invalid input or amount
  - 404: Bucket or transaction not found
  - 422: Insufficient funds
  - 500: Storage failure

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/bucket-ledger/budget"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *budget.Engine
	logger *slog.Logger

	// scenarioMu serializes scenario loads so the empty-ledger check and the
	// load cannot interleave with another load.
	scenarioMu sync.Mutex
}

// NewHandler creates a new handler around the given engine.
func NewHandler(engine *budget.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{Engine: engine, logger: logger.With("component", "api")}
}

// =============================================================================
// BUCKET HANDLERS
// =============================================================================

// ListBuckets returns all buckets.
func (h *Handler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.Engine.Buckets.List(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list buckets", err)
		return
	}

	dtos := make([]BucketDTO, len(buckets))
	for i, b := range buckets {
		dtos[i] = toBucketDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBucket returns a single bucket.
func (h *Handler) GetBucket(w http.ResponseWriter, r *http.Request) {
	id := budget.BucketID(chi.URLParam(r, "id"))

	b, err := h.Engine.Buckets.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get bucket", err)
		return
	}
	writeJSON(w, http.StatusOK, toBucketDTO(b))
}

// CreateBucket creates a new bucket, optionally with a starting balance.
func (h *Handler) CreateBucket(w http.ResponseWriter, r *http.Request) {
	var req CreateBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_input", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Bucket name is required", "invalid_input", nil)
		return
	}

	var balance budget.Money
	if req.Balance != nil {
		m, err := budget.MoneyFromDecimal(*req.Balance)
		if err != nil {
			h.fail(w, r, "Invalid balance", err)
			return
		}
		balance = m
	}

	b, err := h.Engine.Buckets.Create(r.Context(), req.Name, balance)
	if err != nil {
		h.fail(w, r, "Failed to create bucket", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBucketDTO(b))
}

// UpdateBucket renames a bucket and/or overrides its balance. Neither logs a
// transaction.
func (h *Handler) UpdateBucket(w http.ResponseWriter, r *http.Request) {
	id := budget.BucketID(chi.URLParam(r, "id"))

	var req UpdateBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_input", err)
		return
	}
	if req.Name == nil && req.Balance == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update: provide name and/or balance", "invalid_input", nil)
		return
	}

	patch := budget.BucketPatch{Name: req.Name}
	if req.Balance != nil {
		m, err := budget.MoneyFromDecimal(*req.Balance)
		if err != nil {
			h.fail(w, r, "Invalid balance", err)
			return
		}
		patch.Balance = &m
	}

	b, err := h.Engine.Buckets.Update(r.Context(), id, patch)
	if err != nil {
		h.fail(w, r, "Failed to update bucket", err)
		return
	}
	writeJSON(w, http.StatusOK, toBucketDTO(b))
}

// DeleteBucket removes a bucket. Its transactions stay in the log.
func (h *Handler) DeleteBucket(w http.ResponseWriter, r *http.Request) {
	id := budget.BucketID(chi.URLParam(r, "id"))

	if err := h.Engine.Buckets.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete bucket", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

var ledgerActions = map[budget.Action]bool{
	budget.ActionIncome:   true,
	budget.ActionAllocate: true,
	budget.ActionExpense:  true,
	budget.ActionTransfer: true,
}

// ApplyLedger performs income, allocate, expense or transfer.
func (h *Handler) ApplyLedger(w http.ResponseWriter, r *http.Request) {
	var req LedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "Invalid request body", "invalid_input")
		return
	}

	cmd, err := buildCommand(req.Action, req.Amount, ledgerActions)
	if err != nil {
		writeLedgerError(w, statusFor(err), err.Error(), budget.Code(err))
		return
	}
	cmd.BucketID = budget.BucketID(req.BucketID)
	cmd.FromBucketID = budget.BucketID(req.FromBucketID)
	cmd.ToBucketID = budget.BucketID(req.ToBucketID)
	cmd.Description = req.Description

	res, err := h.Engine.Apply(r.Context(), cmd)
	if err != nil {
		h.logFailure(r, "ledger operation failed", err)
		writeLedgerError(w, statusFor(err), err.Error(), budget.Code(err))
		return
	}

	tx := toTransactionDTO(res.Transaction)
	writeJSON(w, http.StatusOK, LedgerResponse{
		Success:     true,
		Transaction: &tx,
		FreeMoney:   res.FreeMoney.Float64(),
		Bucket:      toBucketDTOPtr(res.Bucket),
		FromBucket:  toBucketDTOPtr(res.From),
		ToBucket:    toBucketDTOPtr(res.To),
	})
}

// GetFreeMoney returns the free-money pool.
func (h *Handler) GetFreeMoney(w http.ResponseWriter, r *http.Request) {
	free, err := h.Engine.FreeMoney(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to read free money", err)
		return
	}
	writeJSON(w, http.StatusOK, FreeMoneyDTO{Amount: free.Float64()})
}

// =============================================================================
// LEGACY BALANCE HANDLERS
// =============================================================================

var balanceActions = map[budget.Action]bool{
	budget.ActionDeposit: true,
	budget.ActionPayment: true,
}

// GetBalance returns the ledger summary including the legacy total balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Engine.Summary(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to read balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(sum))
}

// ApplyBalance performs a deposit or a payment.
func (h *Handler) ApplyBalance(w http.ResponseWriter, r *http.Request) {
	var req BalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_input", err)
		return
	}

	cmd, err := buildCommand(req.Action, req.Amount, balanceActions)
	if err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}
	cmd.BucketID = budget.BucketID(req.BucketID)
	cmd.Description = req.Description

	res, err := h.Engine.Apply(r.Context(), cmd)
	if err != nil {
		h.fail(w, r, fmt.Sprintf("Failed to process %s", cmd.Action), err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Balance:     res.TotalBalance.Float64(),
		Transaction: toTransactionDTO(res.Transaction),
		Bucket:      toBucketDTOPtr(res.Bucket),
	})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns log entries newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_input", nil)
		return
	}

	txs, err := h.Engine.Log.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// GetTransaction returns a single log entry.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := budget.TransactionID(chi.URLParam(r, "id"))

	tx, err := h.Engine.Log.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// Health reports whether the store answers reads.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Engine.FreeMoney(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Store unavailable", "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

// buildCommand validates the action against the endpoint's allowed set and
// converts the amount to cents.
func buildCommand(action string, amount *decimal.Decimal, allowed map[budget.Action]bool) (budget.Command, error) {
	a, err := budget.ParseAction(action)
	if err != nil || !allowed[a] {
		return budget.Command{}, fmt.Errorf("%w: unsupported action %q", budget.ErrInvalidInput, action)
	}
	if amount == nil {
		return budget.Command{}, fmt.Errorf("%w: amount is required", budget.ErrInvalidInput)
	}
	m, err := budget.MoneyFromDecimal(*amount)
	if err != nil {
		return budget.Command{}, err
	}
	if !m.IsPositive() {
		return budget.Command{}, fmt.Errorf("%w: amount must be positive, got %s", budget.ErrInvalidAmount, m)
	}
	return budget.Command{Action: a, Amount: m}, nil
}

func parseTransactionFilter(r *http.Request) (budget.TransactionFilter, error) {
	q := r.URL.Query()
	filter := budget.TransactionFilter{BucketID: budget.BucketID(q.Get("bucket_id"))}

	if raw := q.Get("type"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			typ := budget.TransactionType(strings.ToLower(strings.TrimSpace(part)))
			if !typ.Valid() {
				return filter, fmt.Errorf("unknown transaction type %q", part)
			}
			filter.Types = append(filter.Types, typ)
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = n
	}
	return filter, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeLedgerError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, LedgerResponse{Success: false, Error: message, Code: code})
}

// fail maps an engine error to its status and writes it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logFailure(r, message, err)
	writeError(w, statusFor(err), message, budget.Code(err), err)
}

func (h *Handler) logFailure(r *http.Request, message string, err error) {
	if budget.IsInternal(err) {
		h.logger.ErrorContext(r.Context(), message, "path", r.URL.Path, "error", err)
		return
	}
	h.logger.DebugContext(r.Context(), message, "path", r.URL.Path, "error", err)
}

func statusFor(err error) int {
	switch {
	case budget.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, budget.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case budget.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
