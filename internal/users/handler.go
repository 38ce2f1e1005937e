package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/eretailgoals/books-backend/internal/platform/httpx"
	"github.com/eretailgoals/books-backend/internal/shared"
)

// Handler wires HTTP endpoints for users.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/activate", h.activate)
	r.Post("/{id}/deactivate", h.deactivate)
	r.Post("/{id}/password", h.changePassword)
}

type createUserRequest struct {
	AdminID          int64  `json:"admin_id"`
	FirstName        string `json:"first_name" validate:"required,max=100"`
	LastName         string `json:"last_name" validate:"required,max=100"`
	Email            string `json:"email" validate:"required,email"`
	CompanyName      string `json:"company_name"`
	Username         string `json:"username" validate:"omitempty,max=50"`
	Password         string `json:"password" validate:"omitempty,min=8"`
	Address          string `json:"address"`
	Postcode         string `json:"postcode"`
	ShippingAddress  string `json:"shipping_address"`
	ShippingPostcode string `json:"shipping_postcode"`
	PhoneOffice      string `json:"phone_office"`
	PhoneHome        string `json:"phone_home"`
	Mobile           string `json:"mobile"`
	VATNumber        string `json:"vat_number"`
	Fax              string `json:"fax"`
	Type             string `json:"user_type" validate:"omitempty,oneof=ADMIN SUPPLIER CLIENT"`
}

type updateUserRequest struct {
	FirstName        string `json:"first_name" validate:"required,max=100"`
	LastName         string `json:"last_name" validate:"required,max=100"`
	Email            string `json:"email" validate:"required,email"`
	CompanyName      string `json:"company_name"`
	Username         string `json:"username" validate:"omitempty,max=50"`
	Address          string `json:"address"`
	Postcode         string `json:"postcode"`
	ShippingAddress  string `json:"shipping_address"`
	ShippingPostcode string `json:"shipping_postcode"`
	PhoneOffice      string `json:"phone_office"`
	PhoneHome        string `json:"phone_home"`
	Mobile           string `json:"mobile"`
	VATNumber        string `json:"vat_number"`
	Fax              string `json:"fax"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	Force           bool   `json:"force"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	filters := ListFilters{
		Type:    UserType(q.Get("type")),
		Search:  q.Get("search"),
		Page:    page,
		PerPage: perPage,
	}
	if v := q.Get("active"); v != "" {
		active := v == "true"
		filters.IsActive = &active
	}

	users, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":      users,
		"pagination": pagination,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	u, err := h.service.Create(r.Context(), CreateUserInput{
		AdminID:          req.AdminID,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		CompanyName:      req.CompanyName,
		Username:         req.Username,
		Password:         req.Password,
		Address:          req.Address,
		Postcode:         req.Postcode,
		ShippingAddress:  req.ShippingAddress,
		ShippingPostcode: req.ShippingPostcode,
		PhoneOffice:      req.PhoneOffice,
		PhoneHome:        req.PhoneHome,
		Mobile:           req.Mobile,
		VATNumber:        req.VATNumber,
		Fax:              req.Fax,
		Type:             UserType(req.Type),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	u, err := h.service.Update(r.Context(), id, UpdateUserInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		CompanyName:      req.CompanyName,
		Username:         req.Username,
		Address:          req.Address,
		Postcode:         req.Postcode,
		ShippingAddress:  req.ShippingAddress,
		ShippingPostcode: req.ShippingPostcode,
		PhoneOffice:      req.PhoneOffice,
		PhoneHome:        req.PhoneHome,
		Mobile:           req.Mobile,
		VATNumber:        req.VATNumber,
		Fax:              req.Fax,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetActive(r.Context(), id, active); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "is_active": active})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword, req.Force); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", shared.ErrValidation.Error())
		return 0, false
	}
	return id, true
}
