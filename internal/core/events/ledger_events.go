package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeTransactionCreated = "transaction.created"
	EventTypeTransactionUpdated = "transaction.updated"
	EventTypeTransactionDeleted = "transaction.deleted"
)

// TransactionSnapshot is the committed state of one ledger row.
type TransactionSnapshot struct {
	ID            string          `json:"id"`
	TimestampMs   int64           `json:"timestamp"`
	PaymentMethod string          `json:"payment_method"`
	CategoryID    int64           `json:"category_id"`
	CategoryName  string          `json:"category_name"`
	Amount        decimal.Decimal `json:"amount"`
	Effect        decimal.Decimal `json:"effect"`
}

// TransactionEvent is published after a ledger mutation commits. Previous is
// set for updates and deletes, Current for creates and updates.
type TransactionEvent struct {
	BaseEvent
	Previous *TransactionSnapshot `json:"previous,omitempty"`
	Current  *TransactionSnapshot `json:"current,omitempty"`
}

func NewTransactionCreatedEvent(current TransactionSnapshot) *TransactionEvent {
	return newTransactionEvent(EventTypeTransactionCreated, nil, &current)
}

func NewTransactionUpdatedEvent(previous, current TransactionSnapshot) *TransactionEvent {
	return newTransactionEvent(EventTypeTransactionUpdated, &previous, &current)
}

func NewTransactionDeletedEvent(previous TransactionSnapshot) *TransactionEvent {
	return newTransactionEvent(EventTypeTransactionDeleted, &previous, nil)
}

func newTransactionEvent(eventType string, previous, current *TransactionSnapshot) *TransactionEvent {
	data := map[string]interface{}{}
	if current != nil {
		data["transaction_id"] = current.ID
		data["payment_method"] = current.PaymentMethod
		data["category_id"] = current.CategoryID
		data["amount"] = current.Amount.String()
	} else if previous != nil {
		data["transaction_id"] = previous.ID
		data["payment_method"] = previous.PaymentMethod
		data["category_id"] = previous.CategoryID
		data["amount"] = previous.Amount.String()
	}

	return &TransactionEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data:      data,
		},
		Previous: previous,
		Current:  current,
	}
}
