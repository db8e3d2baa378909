package model

import "time"

// User is a purchaser. LMSUserID is the identifier in the external
// learning platform; it is deliberately not unique here so the lookup
// can detect duplicated accounts instead of silently picking one.
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username  string `gorm:"size:128;uniqueIndex;not null" json:"username"`
	Email     string `gorm:"size:254;not null" json:"email"`
	LMSUserID int64  `gorm:"index;not null" json:"lms_user_id"`
}

func (User) TableName() string { return "users" }
