package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/eretailgoals/books-backend/internal/banking"
	"github.com/eretailgoals/books-backend/internal/invoices"
	"github.com/eretailgoals/books-backend/internal/reports"
	"github.com/eretailgoals/books-backend/internal/users"
	"github.com/eretailgoals/books-backend/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	UsersHandler    *users.Handler
	InvoicesHandler *invoices.Handler
	BankingHandler  *banking.Handler
	ReportsHandler  *reports.Handler
	JobsHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
		r.Route("/bank-accounts", params.BankingHandler.MountAccountRoutes)
		r.Route("/transactions", params.BankingHandler.MountTransactionRoutes)
		r.Route("/reports", params.ReportsHandler.MountRoutes)
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
