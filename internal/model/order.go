package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderComplete is the terminal status synthetic purchases are written
// in, bypassing the normal fulfillment transitions.
const OrderComplete = "Complete"

// Order is the durable purchase record.
type Order struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Number       string          `gorm:"size:64;uniqueIndex;not null" json:"number"`
	BasketID     uint            `gorm:"not null;index" json:"basket_id"`
	SiteID       uint            `gorm:"not null;index" json:"site_id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	Currency     string          `gorm:"size:8;not null" json:"currency"`
	TotalExclTax decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_excl_tax"`
	TotalInclTax decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_incl_tax"`
	DatePlaced   time.Time       `gorm:"not null;index" json:"date_placed"`
	Status       string          `gorm:"size:32;not null" json:"status"`

	Lines []OrderLine `gorm:"foreignKey:OrderID" json:"lines,omitempty"`
}

func (Order) TableName() string { return "orders" }

// OrderLine mirrors the basket line it was placed from.
type OrderLine struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderID       uint   `gorm:"not null;index" json:"order_id"`
	PartnerID     uint   `gorm:"not null" json:"partner_id"`
	PartnerName   string `gorm:"size:128;not null" json:"partner_name"`
	PartnerSKU    string `gorm:"size:128;not null;index" json:"partner_sku"`
	ProductID     uint   `gorm:"not null;index" json:"product_id"`
	StockRecordID uint   `gorm:"not null" json:"stock_record_id"`
	Title         string `gorm:"size:255;not null" json:"title"`
	Quantity      int    `gorm:"not null;default:1" json:"quantity"`

	LinePriceExclTax                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_price_excl_tax"`
	LinePriceInclTax                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_price_incl_tax"`
	LinePriceBeforeDiscountsExclTax decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_price_before_discounts_excl_tax"`
	LinePriceBeforeDiscountsInclTax decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_price_before_discounts_incl_tax"`
	UnitPriceExclTax                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price_excl_tax"`
	UnitPriceInclTax                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price_incl_tax"`
	Status                          string          `gorm:"size:32;not null" json:"status"`
}

func (OrderLine) TableName() string { return "order_lines" }

// OrderLinePrice is the per-quantity price breakdown of a line.
type OrderLinePrice struct {
	ID uint `gorm:"primarykey" json:"id"`

	OrderID      uint            `gorm:"not null;index" json:"order_id"`
	LineID       uint            `gorm:"not null;index" json:"line_id"`
	Quantity     int             `gorm:"not null;default:1" json:"quantity"`
	PriceExclTax decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_excl_tax"`
	PriceInclTax decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_incl_tax"`
}

func (OrderLinePrice) TableName() string { return "order_line_prices" }
