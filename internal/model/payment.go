package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Reference codes for the payment records the manual workflow writes.
const (
	PaymentEventPaid    = "Paid"
	PaymentSourceManual = "manual"
)

// PaymentEventType names a kind of payment event (paid, refunded, ...).
type PaymentEventType struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Code string `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name string `gorm:"size:128;not null" json:"name"`
}

func (PaymentEventType) TableName() string { return "payment_event_types" }

// PaymentEvent marks money movement against an order.
type PaymentEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID       uint            `gorm:"not null;index" json:"order_id"`
	EventTypeID   uint            `gorm:"not null" json:"event_type_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reference     string          `gorm:"size:128;not null" json:"reference"`
	ProcessorName string          `gorm:"size:64;not null" json:"processor_name"`
}

func (PaymentEvent) TableName() string { return "payment_events" }

// PaymentEventQuantity ties a payment event to an order line.
type PaymentEventQuantity struct {
	ID       uint `gorm:"primarykey" json:"id"`
	EventID  uint `gorm:"not null;index" json:"event_id"`
	LineID   uint `gorm:"not null;index" json:"line_id"`
	Quantity int  `gorm:"not null;default:1" json:"quantity"`
}

func (PaymentEventQuantity) TableName() string { return "payment_event_quantities" }

// PaymentSourceType names a payment method.
type PaymentSourceType struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Code string `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name string `gorm:"size:128;not null" json:"name"`
}

func (PaymentSourceType) TableName() string { return "payment_source_types" }

// PaymentSource records where an order's money came from and how much
// of it was allocated, debited and refunded.
type PaymentSource struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID         uint            `gorm:"not null;index" json:"order_id"`
	SourceTypeID    uint            `gorm:"not null" json:"source_type_id"`
	Currency        string          `gorm:"size:8;not null" json:"currency"`
	AmountAllocated decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_allocated"`
	AmountDebited   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_debited"`
	AmountRefunded  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_refunded"`
	Reference       string          `gorm:"size:128;not null" json:"reference"`
	Label           string          `gorm:"size:128;not null" json:"label"`
	CardType        string          `gorm:"size:32" json:"card_type"`
}

func (PaymentSource) TableName() string { return "payment_sources" }

// PaymentProcessorResponse is a free-form audit payload for a payment
// interaction. Manual purchases use it to record who ran the command,
// when, and with what options.
type PaymentProcessorResponse struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ProcessorName string         `gorm:"size:64;not null;index" json:"processor_name"`
	TransactionID string         `gorm:"size:128;not null;index" json:"transaction_id"`
	BasketID      uint           `gorm:"not null;index" json:"basket_id"`
	Response      datatypes.JSON `gorm:"not null" json:"response"`
}

func (PaymentProcessorResponse) TableName() string { return "payment_processor_responses" }
