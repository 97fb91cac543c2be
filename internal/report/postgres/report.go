package postgres

import (
	"context"
	"fmt"
	"strings"

	transactionDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/transaction"
	"github.com/frahmantamala/pocket-ledger/internal/report"
	"github.com/jmoiron/sqlx"
	"golang.org/x/text/cases"
)

const listTransactionsQuery = `
SELECT t.id, t.timestamp_ms, t.payment_method, t.category_id, t.amount, t.reason,
       c.name AS category_name
FROM transactions t
JOIN categories c ON c.id = t.category_id`

type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) report.RepositoryAPI {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) ListTransactions(ctx context.Context, q report.Query) ([]*transactionDatamodel.Transaction, error) {
	query, args := buildListQuery(q)

	rows := make([]*transactionDatamodel.Transaction, 0)
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if q.Search == "" {
		return rows, nil
	}
	return filterReason(rows, q.Search, q.Limit), nil
}

// filterReason keeps rows whose reason contains search under Unicode case
// folding. SQLite's LOWER only folds ASCII, so the match runs here for both
// backends and the limit is applied afterwards.
func filterReason(rows []*transactionDatamodel.Transaction, search string, limit int) []*transactionDatamodel.Transaction {
	fold := cases.Fold()
	needle := fold.String(search)

	out := make([]*transactionDatamodel.Transaction, 0, len(rows))
	for _, row := range rows {
		if row.Reason == nil || !strings.Contains(fold.String(*row.Reason), needle) {
			continue
		}
		out = append(out, row)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func buildListQuery(q report.Query) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if q.FromMs != nil {
		conds = append(conds, "t.timestamp_ms >= ?")
		args = append(args, *q.FromMs)
	}
	if q.ToMs != nil {
		conds = append(conds, "t.timestamp_ms <= ?")
		args = append(args, *q.ToMs)
	}
	if q.PaymentMethod != "" {
		conds = append(conds, "t.payment_method = ?")
		args = append(args, q.PaymentMethod)
	}
	if q.Category != "" {
		conds = append(conds, "c.name = ?")
		args = append(args, q.Category)
	}
	if q.Search != "" {
		conds = append(conds, "t.reason IS NOT NULL AND t.reason <> ''")
	}

	var b strings.Builder
	b.WriteString(listTransactionsQuery)
	if len(conds) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString("\nORDER BY t.timestamp_ms DESC, t.id DESC")
	if q.Limit > 0 && q.Search == "" {
		b.WriteString("\nLIMIT ?")
		args = append(args, q.Limit)
	}
	return b.String(), args
}
