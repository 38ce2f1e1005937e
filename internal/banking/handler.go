package banking

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/eretailgoals/books-backend/internal/platform/httpx"
	"github.com/eretailgoals/books-backend/internal/shared"
)

// Handler wires HTTP endpoints for bank accounts and transactions.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountAccountRoutes registers bank account routes.
func (h *Handler) MountAccountRoutes(r chi.Router) {
	r.Get("/", h.listAccounts)
	r.Post("/", h.createAccount)
	r.Get("/{id}", h.getAccount)
	r.Put("/{id}", h.updateAccount)
	r.Delete("/{id}", h.deleteAccount)
	r.Post("/{id}/activate", h.activateAccount)
	r.Post("/{id}/deactivate", h.deactivateAccount)
}

// MountTransactionRoutes registers transaction routes.
func (h *Handler) MountTransactionRoutes(r chi.Router) {
	r.Get("/", h.listTransactions)
	r.Post("/", h.recordTransaction)
	r.Post("/transfer", h.transfer)
	r.Get("/{id}", h.getTransaction)
	r.Delete("/{id}", h.deleteTransaction)
	r.Post("/{id}/reconcile", h.reconcile)
	r.Post("/{id}/unreconcile", h.unreconcile)
}

type createAccountRequest struct {
	AdminID        int64           `json:"admin_id"`
	AccountName    string          `json:"account_name" validate:"required,max=100"`
	AccountType    string          `json:"account_type" validate:"omitempty,oneof=CURRENT SAVINGS CREDIT_CARD LOAN"`
	AccountNumber  string          `json:"account_number" validate:"required,max=34"`
	SortCode       string          `json:"sort_code" validate:"omitempty,max=20"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type updateAccountRequest struct {
	AccountName string `json:"account_name" validate:"required,max=100"`
	AccountType string `json:"account_type" validate:"omitempty,oneof=CURRENT SAVINGS CREDIT_CARD LOAN"`
	SortCode    string `json:"sort_code" validate:"omitempty,max=20"`
}

type recordTransactionRequest struct {
	AdminID         int64           `json:"admin_id"`
	BankAccountID   int64           `json:"bank_account_id" validate:"required"`
	Date            time.Time       `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type" validate:"required,oneof=RECEIVE PAYMENT DEPOSIT WITHDRAWAL FEE INTEREST"`
	ExpenseType     string          `json:"expense_type"`
	ReferenceNumber string          `json:"reference_number"`
	Note            string          `json:"note"`
	UserID          *int64          `json:"user_id"`
	InvoiceID       *int64          `json:"invoice_id"`
}

type transferRequest struct {
	AdminID       int64           `json:"admin_id"`
	FromAccountID int64           `json:"from_account_id" validate:"required"`
	ToAccountID   int64           `json:"to_account_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note"`
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	accounts, err := h.service.ListAccounts(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("list bank accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.CreateAccount(r.Context(), CreateAccountInput{
		AdminID:        req.AdminID,
		AccountName:    req.AccountName,
		AccountType:    AccountType(req.AccountType),
		AccountNumber:  req.AccountNumber,
		SortCode:       req.SortCode,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.UpdateAccount(r.Context(), id, UpdateAccountInput{
		AccountName: req.AccountName,
		AccountType: AccountType(req.AccountType),
		SortCode:    req.SortCode,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activateAccount(w http.ResponseWriter, r *http.Request) {
	h.setAccountActive(w, r, true)
}

func (h *Handler) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	h.setAccountActive(w, r, false)
}

func (h *Handler) setAccountActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetAccountActive(r.Context(), id, active); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "is_active": active})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	accountID, _ := strconv.ParseInt(q.Get("bank_account_id"), 10, 64)
	userID, _ := strconv.ParseInt(q.Get("user_id"), 10, 64)
	invoiceID, _ := strconv.ParseInt(q.Get("invoice_id"), 10, 64)

	filters := TransactionFilters{
		BankAccountID: accountID,
		UserID:        userID,
		InvoiceID:     invoiceID,
		Type:          TransactionType(q.Get("type")),
		Page:          page,
		PerPage:       perPage,
	}
	if v := q.Get("reconciled"); v != "" {
		reconciled := v == "true"
		filters.IsReconciled = &reconciled
	}
	if from, err := time.Parse("2006-01-02", q.Get("from")); err == nil {
		filters.From = &from
	}
	if to, err := time.Parse("2006-01-02", q.Get("to")); err == nil {
		filters.To = &to
	}

	txns, pagination, err := h.service.ListTransactions(r.Context(), filters)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"pagination":   pagination,
	})
}

func (h *Handler) recordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	txn, err := h.service.RecordTransaction(r.Context(), RecordTransactionInput{
		AdminID:         req.AdminID,
		BankAccountID:   req.BankAccountID,
		Date:            req.Date,
		Amount:          req.Amount,
		Type:            TransactionType(req.Type),
		ExpenseType:     req.ExpenseType,
		ReferenceNumber: req.ReferenceNumber,
		Note:            req.Note,
		UserID:          req.UserID,
		InvoiceID:       req.InvoiceID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, txn)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	legs, err := h.service.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount, req.Note, req.AdminID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"transactions": legs})
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	txn, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTransaction(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	h.setReconciled(w, r, true)
}

func (h *Handler) unreconcile(w http.ResponseWriter, r *http.Request) {
	h.setReconciled(w, r, false)
}

func (h *Handler) setReconciled(w http.ResponseWriter, r *http.Request, reconciled bool) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetReconciled(r.Context(), id, reconciled); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "is_reconciled": reconciled})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", shared.ErrValidation.Error())
		return 0, false
	}
	return id, true
}
