package account

import (
	"time"
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusClosed    = "closed"
)

// Account is the user record consumed by the investment and referral
// services. The referral service owns ReferralCode, ReferredBy and
// ReferralRewards; identity fields are read-only to both engines.
type Account struct {
	ID              string    `gorm:"column:id;primaryKey" json:"id"`
	Email           string    `gorm:"column:email;uniqueIndex" json:"email"`
	FullName        string    `gorm:"column:full_name" json:"full_name"`
	Status          string    `gorm:"column:status" json:"status"`
	ReferralCode    string    `gorm:"column:referral_code" json:"referral_code"`
	ReferredBy      string    `gorm:"column:referred_by" json:"referred_by"`
	ReferralRewards float64   `gorm:"column:referral_rewards" json:"referral_rewards"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// DisplayName is what referral validation surfaces to the referred user.
func (a *Account) DisplayName() string {
	if a.FullName != "" {
		return a.FullName
	}
	return a.Email
}
