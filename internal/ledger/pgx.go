package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"apfeed/internal/logger"
	"apfeed/pkg/models"
)

// DefaultQuery selects ledger payment rows for a list of invoice numbers. Any
// replacement must take the invoice numbers as $1 and return the Columns in
// order, all as text.
const DefaultQuery = `
SELECT doc_num
     , vendor_id
     , vendor_name
     , invoice_num
     , COALESCE(check_num, '')
     , pay_amt::text
     , COALESCE(to_char(pay_date, 'YYYYMMDD'), '')
     , doc_type
  FROM ap_payments
 WHERE invoice_num = ANY($1)
 ORDER BY doc_num`

// Querier is the subset of *pgxpool.Pool used by PgxSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgxSource reads payment rows from a Postgres mirror of the ledger.
type PgxSource struct {
	db    Querier
	query string
	log   zerolog.Logger
}

// NewPgxSource creates a source over db. An empty query means DefaultQuery.
func NewPgxSource(db Querier, query string) *PgxSource {
	if query == "" {
		query = DefaultQuery
	}
	return &PgxSource{
		db:    db,
		query: query,
		log:   logger.WithComponent("ledger-pgx"),
	}
}

// Connect opens a connection pool for databaseURL.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	const op = "Connect"

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to reach ledger database: %w", op, err)
	}
	return pool, nil
}

// Payments returns the ledger rows for invoiceNumbers in query order.
func (s *PgxSource) Payments(ctx context.Context, invoiceNumbers []string) ([]models.PaymentRecord, error) {
	const op = "PgxSource.Payments"

	if len(invoiceNumbers) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, s.query, invoiceNumbers)
	if err != nil {
		return nil, fmt.Errorf("%s: query failed: %w", op, err)
	}
	defer rows.Close()

	var out []models.PaymentRecord
	for rows.Next() {
		vals := make([]string, len(Columns))
		dest := make([]any, len(vals))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%s: scan failed: %w", op, err)
		}

		rec, err := ParseRow(vals)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug().
		Int("invoice_numbers", len(invoiceNumbers)).
		Int("rows", len(out)).
		Msg("Fetched ledger payment rows")

	return out, nil
}
