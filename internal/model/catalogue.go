package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product structures. A parent groups per-channel child variants; a
// standalone product has no variants at all.
const (
	ProductStandalone = "standalone"
	ProductParent     = "parent"
	ProductChild      = "child"
)

// ProductClassSeat is the classification for purchasable course seats.
const ProductClassSeat = "seat"

// CertificateTypeVerified marks seats that carry a verified certificate.
const CertificateTypeVerified = "verified"

// Course is a single course run, keyed by the run identifier
// (e.g. course-v1:Org+Course+Run).
type Course struct {
	ID        string    `gorm:"primarykey;size:255" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name                 string     `gorm:"size:255;not null" json:"name"`
	VerificationDeadline *time.Time `json:"verification_deadline"`
}

func (Course) TableName() string { return "courses" }

// Product is a sellable catalogue entry, typically a course seat.
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Structure    string `gorm:"size:16;not null;default:standalone" json:"structure"`
	ParentID     *uint  `gorm:"index" json:"parent_id"`
	ProductClass string `gorm:"size:64;not null;index" json:"product_class"`
	CourseID     string `gorm:"size:255;index" json:"course_id"`
	Title        string `gorm:"size:255;not null" json:"title"`
	// CertificateType is the one catalogue attribute this service reads.
	CertificateType string     `gorm:"size:64" json:"certificate_type"`
	Expires         *time.Time `gorm:"index" json:"expires"`
	IsPublic        bool       `gorm:"not null;default:true" json:"is_public"`
}

func (Product) TableName() string { return "products" }

// StockRecord binds a product to a partner's sellable inventory.
type StockRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductID     uint                `gorm:"not null;index" json:"product_id"`
	PartnerID     uint                `gorm:"not null;uniqueIndex:idx_partner_sku" json:"partner_id"`
	PartnerSKU    string              `gorm:"size:128;not null;uniqueIndex:idx_partner_sku" json:"partner_sku"`
	PriceCurrency string              `gorm:"size:8;not null" json:"price_currency"`
	Price         decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"price"`
	PriceRetail   decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"price_retail"`
}

func (StockRecord) TableName() string { return "stock_records" }
