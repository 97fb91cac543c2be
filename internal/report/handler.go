package report

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/ledger"
	"github.com/frahmantamala/pocket-ledger/internal/transport"
)

const maxLimit = 1000

type ServiceAPI interface {
	ListTransactions(ctx context.Context, f Filter) ([]*ledger.Transaction, error)
	MonthlySummary(ctx context.Context, year int, month time.Month, f Filter) (*MonthlySummary, error)
	BudgetStatus(ctx context.Context, year int, month time.Month) ([]BudgetLine, error)
	Location() *time.Location
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

type TransactionsResponse struct {
	Transactions []*ledger.Transaction `json:"transactions"`
}

type BudgetsResponse struct {
	Year    int          `json:"year"`
	Month   int          `json:"month"`
	Budgets []BudgetLine `json:"budgets"`
}

// ListTransactions answers GET /transactions with the filtered entries,
// newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := h.parseFilter(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	txns, err := h.Service.ListTransactions(r.Context(), f)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, TransactionsResponse{Transactions: txns})
}

func (h *Handler) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, month, err := h.parseMonth(q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	f, err := h.parseFilter(q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	summary, err := h.Service.MonthlySummary(r.Context(), year, month, f)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetBudgets(w http.ResponseWriter, r *http.Request) {
	year, month, err := h.parseMonth(r.URL.Query())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	lines, err := h.Service.BudgetStatus(r.Context(), year, month)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, BudgetsResponse{Year: year, Month: int(month), Budgets: lines})
}

func (h *Handler) parseFilter(q url.Values) (Filter, error) {
	loc := h.Service.Location()
	start, err := ParseDate("start_date", q.Get("start_date"), loc)
	if err != nil {
		return Filter{}, err
	}
	end, err := ParseDate("end_date", q.Get("end_date"), loc)
	if err != nil {
		return Filter{}, err
	}

	f := Filter{
		StartDate:     start,
		EndDate:       end,
		PaymentMethod: q.Get("payment_method"),
		Category:      q.Get("category"),
		SearchText:    q.Get("search"),
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLimit {
			return Filter{}, appErrors.NewValidationFieldError("limit", "limit must be between 1 and 1000", appErrors.ErrCodeInvalidFilter)
		}
		f.Limit = limit
	}
	return f, nil
}

// parseMonth reads year and month, defaulting to the current month.
func (h *Handler) parseMonth(q url.Values) (int, time.Month, error) {
	now := time.Now().In(h.Service.Location())
	year, month := now.Year(), now.Month()

	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, appErrors.NewValidationFieldError("year", "year must be a number", appErrors.ErrCodeInvalidDate)
		}
		year = y
	}
	if raw := strings.TrimSpace(q.Get("month")); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, appErrors.NewValidationFieldError("month", "month must be a number", appErrors.ErrCodeInvalidDate)
		}
		month = time.Month(m)
	}
	if err := validateMonth(year, month); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}
