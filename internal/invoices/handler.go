package invoices

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

// Handler wires HTTP endpoints for invoices.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/next-number", h.nextNumber)
	r.Get("/overdue", h.listOverdue)
	r.Get("/outstanding", h.listOutstanding)
	r.Get("/recent", h.listRecent)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/payments", h.addPayment)
	r.Post("/{id}/items", h.addItem)
	r.Delete("/{id}/items/{itemID}", h.removeItem)
}

type itemRequest struct {
	Description     string          `json:"description" validate:"required"`
	Quantity        int64           `json:"quantity" validate:"required,min=1"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	VATRatePercent  decimal.Decimal `json:"vat_rate_percent"`
	ItemCode        string          `json:"item_code"`
	Unit            string          `json:"unit"`
}

func (req itemRequest) toInput() ItemInput {
	return ItemInput{
		Description:     req.Description,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		DiscountPercent: req.DiscountPercent,
		VATRatePercent:  req.VATRatePercent,
		ItemCode:        req.ItemCode,
		Unit:            req.Unit,
	}
}

type createInvoiceRequest struct {
	AdminID     int64           `json:"admin_id"`
	Number      string          `json:"invoice_number" validate:"required,max=50"`
	InvoiceDate time.Time       `json:"invoice_date"`
	DueDate     *time.Time      `json:"due_date"`
	Type        string          `json:"invoice_type"`
	Note        string          `json:"invoice_note"`
	Amount      decimal.Decimal `json:"invoice_amount"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
	UserID      int64           `json:"user_id" validate:"required"`
	Items       []itemRequest   `json:"items" validate:"dive"`
}

type updateInvoiceRequest struct {
	Number      string          `json:"invoice_number" validate:"omitempty,max=50"`
	InvoiceDate time.Time       `json:"invoice_date"`
	DueDate     *time.Time      `json:"due_date"`
	Type        string          `json:"invoice_type"`
	Note        string          `json:"invoice_note"`
	Amount      decimal.Decimal `json:"invoice_amount"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	userID, _ := strconv.ParseInt(q.Get("user_id"), 10, 64)
	adminID, _ := strconv.ParseInt(q.Get("admin_id"), 10, 64)

	filters := ListFilters{
		UserID:  userID,
		AdminID: adminID,
		Status:  Status(q.Get("status")),
		Search:  q.Get("search"),
		Page:    page,
		PerPage: perPage,
	}
	if from, err := time.Parse("2006-01-02", q.Get("from")); err == nil {
		filters.From = &from
	}
	if to, err := time.Parse("2006-01-02", q.Get("to")); err == nil {
		filters.To = &to
	}

	invs, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices":   invs,
		"pagination": pagination,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateInvoiceInput{
		AdminID:     req.AdminID,
		Number:      req.Number,
		InvoiceDate: req.InvoiceDate,
		DueDate:     req.DueDate,
		Type:        Type(req.Type),
		Note:        req.Note,
		Amount:      req.Amount,
		VATAmount:   req.VATAmount,
		UserID:      req.UserID,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, item.toInput())
	}

	inv, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var req updateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	inv, err := h.service.Update(r.Context(), id, UpdateInvoiceInput{
		Number:      req.Number,
		InvoiceDate: req.InvoiceDate,
		DueDate:     req.DueDate,
		Type:        Type(req.Type),
		Note:        req.Note,
		Amount:      req.Amount,
		VATAmount:   req.VATAmount,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	inv, err := h.service.AddPayment(r.Context(), id, req.Amount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.AddItem(r.Context(), id, req.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := h.parseID(w, r, "itemID")
	if !ok {
		return
	}
	inv, err := h.service.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) nextNumber(w http.ResponseWriter, r *http.Request) {
	number, err := h.service.NextNumber(r.Context())
	if err != nil {
		h.logger.Error("next invoice number", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"invoice_number": number})
}

func (h *Handler) listOverdue(w http.ResponseWriter, r *http.Request) {
	invs, err := h.service.ListOverdue(r.Context(), time.Now())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invs})
}

func (h *Handler) listRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	invs, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invs})
}

func (h *Handler) listOutstanding(w http.ResponseWriter, r *http.Request) {
	invs, err := h.service.ListOutstanding(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invs})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", shared.ErrValidation.Error())
		return 0, false
	}
	return id, true
}
