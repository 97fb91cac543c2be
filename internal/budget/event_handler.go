package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/pocket-ledger/internal/category"
	"github.com/frahmantamala/pocket-ledger/internal/core/events"
	"github.com/frahmantamala/pocket-ledger/internal/core/metrics"
	"github.com/shopspring/decimal"
)

type CategoryGetter interface {
	GetByID(ctx context.Context, id int64) (*category.Category, error)
}

type SpendReader interface {
	// CategorySpend sums a category's expenses over the month containing at.
	CategorySpend(ctx context.Context, categoryName string, at time.Time) (decimal.Decimal, error)
}

// Overrun describes a category whose monthly spend passed its limit.
type Overrun struct {
	CategoryID   int64
	CategoryName string
	Limit        decimal.Decimal
	Spent        decimal.Decimal
	Month        time.Time
}

// EventHandler watches ledger writes and warns when a category goes over its
// monthly limit.
type EventHandler struct {
	categories CategoryGetter
	spend      SpendReader
	metrics    *metrics.Metrics
	logger     *slog.Logger
	// OnOverrun, when set, is called for every overrun found.
	OnOverrun func(Overrun)
}

func NewEventHandler(categories CategoryGetter, spend SpendReader, m *metrics.Metrics, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		categories: categories,
		spend:      spend,
		metrics:    m,
		logger:     logger,
	}
}

func (h *EventHandler) HandleTransactionWritten(ctx context.Context, event events.Event) error {
	txnEvent, ok := event.(*events.TransactionEvent)
	if !ok {
		h.logger.Error("invalid event type for budget handler", "event_type", event.EventType())
		return fmt.Errorf("expected TransactionEvent, got %T", event)
	}
	current := txnEvent.Current
	if current == nil || category.IsGainName(current.CategoryName) {
		return nil
	}

	cat, err := h.categories.GetByID(ctx, current.CategoryID)
	if err != nil {
		// the category may have been deleted after the write committed
		h.logger.Debug("budget check skipped", "category_id", current.CategoryID, "error", err)
		return nil
	}
	if !cat.HasLimit() {
		return nil
	}

	at := time.UnixMilli(current.TimestampMs)
	spent, err := h.spend.CategorySpend(ctx, cat.Name, at)
	if err != nil {
		return fmt.Errorf("budget check for category %d: %w", cat.ID, err)
	}
	if !spent.GreaterThan(*cat.MonthlyLimit) {
		return nil
	}

	overrun := Overrun{
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Limit:        *cat.MonthlyLimit,
		Spent:        spent,
		Month:        time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, at.Location()),
	}
	h.logger.Warn("monthly budget exceeded",
		"category_id", cat.ID,
		"category", cat.Name,
		"limit", overrun.Limit.String(),
		"spent", spent.String(),
		"month", overrun.Month.Format("2006-01"),
		"transaction_id", current.ID,
		"event_id", txnEvent.EventID())
	h.metrics.IncrBudgetOverrun(cat.Name)
	if h.OnOverrun != nil {
		h.OnOverrun(overrun)
	}
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(h.HandleTransactionWritten, events.EventTypeTransactionCreated, events.EventTypeTransactionUpdated)

	h.logger.Info("budget event handlers registered",
		"handlers", []string{events.EventTypeTransactionCreated, events.EventTypeTransactionUpdated})
}
