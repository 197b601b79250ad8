package referral

import (
	"time"
)

// Code is one owner's referral code. An owner has at most one code; the code
// string itself is unique across the platform.
type Code struct {
	ID                 string    `gorm:"column:id;primaryKey" json:"id"`
	Code               string    `gorm:"column:code;uniqueIndex" json:"code"`
	OwnerID            string    `gorm:"column:owner_id;uniqueIndex" json:"owner_id"`
	UsageCount         int64     `gorm:"column:usage_count" json:"usage_count"`
	TotalRewardsEarned float64   `gorm:"column:total_rewards_earned" json:"total_rewards_earned"`
	CreatedAt          time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Code) TableName() string {
	return "referral_codes"
}

// Usage records that a referred account used a code. The (code, referred)
// pair is unique, which is what makes duplicate referrals impossible to
// credit twice.
type Usage struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	Code        string    `gorm:"column:code;uniqueIndex:idx_referral_usage_code_referred" json:"code"`
	ReferredID  string    `gorm:"column:referred_id;uniqueIndex:idx_referral_usage_code_referred" json:"referred_id"`
	BonusAmount float64   `gorm:"column:bonus_amount" json:"bonus_amount"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Usage) TableName() string {
	return "referral_usages"
}

// Validation is the outcome of checking a code before signup.
type Validation struct {
	Valid        bool   `json:"valid"`
	Code         string `json:"code,omitempty"`
	ReferrerID   string `json:"referrer_id,omitempty"`
	ReferrerName string `json:"referrer_name,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Stats is the owner-facing summary of a referral code.
type Stats struct {
	Code               string  `json:"code"`
	UsageCount         int64   `json:"usage_count"`
	TotalRewardsEarned float64 `json:"total_rewards_earned"`
	PendingRewards     float64 `json:"pending_rewards"`
}
