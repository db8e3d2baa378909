package model

import "time"

// Site is a storefront tenant, resolved by domain.
type Site struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Domain string `gorm:"size:128;uniqueIndex;not null" json:"domain"`
	Name   string `gorm:"size:128;not null" json:"name"`
}

func (Site) TableName() string { return "sites" }

// Partner is a selling entity. At most one partner claims a site as its
// default, which is how the purchase workflow resolves it.
type Partner struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name          string `gorm:"size:128;not null" json:"name"`
	ShortCode     string `gorm:"size:16;uniqueIndex;not null" json:"short_code"`
	DefaultSiteID uint   `gorm:"uniqueIndex;not null" json:"default_site_id"`
}

func (Partner) TableName() string { return "partners" }
