package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Basket lifecycle. The manual purchase path writes baskets straight to
// Submitted; Open only exists for completeness of the state set.
const (
	BasketOpen      = "Open"
	BasketSubmitted = "Submitted"
)

// BasketAttributeEmailOptIn is the one attribute type this service sets.
const BasketAttributeEmailOptIn = "email_opt_in"

// Basket is a cart aggregate. For synthetic purchases it is created
// already submitted.
type Basket struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Status        string     `gorm:"size:16;not null;default:Open" json:"status"`
	OwnerID       uint       `gorm:"not null;index" json:"owner_id"`
	SiteID        uint       `gorm:"not null;index" json:"site_id"`
	DateSubmitted *time.Time `json:"date_submitted"`
}

func (Basket) TableName() string { return "baskets" }

// BasketAttributeType names an attribute baskets may carry.
type BasketAttributeType struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"size:128;uniqueIndex;not null" json:"name"`
}

func (BasketAttributeType) TableName() string { return "basket_attribute_types" }

// BasketAttribute is a typed key/value on a basket.
type BasketAttribute struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	BasketID        uint   `gorm:"not null;index" json:"basket_id"`
	AttributeTypeID uint   `gorm:"not null" json:"attribute_type_id"`
	ValueText       string `gorm:"size:255;not null" json:"value_text"`
}

func (BasketAttribute) TableName() string { return "basket_attributes" }

// BasketLine is one product in a basket at an agreed price.
type BasketLine struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BasketID      uint            `gorm:"not null;index" json:"basket_id"`
	LineReference string          `gorm:"size:128;not null" json:"line_reference"`
	ProductID     uint            `gorm:"not null" json:"product_id"`
	StockRecordID uint            `gorm:"not null" json:"stock_record_id"`
	Quantity      int             `gorm:"not null;default:1" json:"quantity"`
	PriceCurrency string          `gorm:"size:8;not null" json:"price_currency"`
	PriceExclTax  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_excl_tax"`
	PriceInclTax  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_incl_tax"`
}

func (BasketLine) TableName() string { return "basket_lines" }
