package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ClientBalance is one row of the top clients report.
type ClientBalance struct {
	UserID      int64           `json:"user_id"`
	Name        string          `json:"name"`
	CompanyName string          `json:"company_name,omitempty"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Invoices    int64           `json:"invoices"`
}

// Repository runs cross-table report queries.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TopClients ranks clients by outstanding balance across unsettled invoices.
func (r *Repository) TopClients(ctx context.Context, limit int) ([]ClientBalance, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.first_name || ' ' || u.last_name, u.company_name,
			COALESCE(SUM(i.invoice_amount + i.vat_amount - i.invoice_paid_amount), 0),
			COUNT(i.id)
		 FROM users u
		 JOIN invoices i ON i.user_id = u.id
		 WHERE i.invoice_status IN ('OPEN','PARTIAL_PAID','OVERDUE')
		 GROUP BY u.id, u.first_name, u.last_name, u.company_name
		 ORDER BY 4 DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClientBalance
	for rows.Next() {
		var c ClientBalance
		if err := rows.Scan(&c.UserID, &c.Name, &c.CompanyName, &c.Outstanding, &c.Invoices); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
