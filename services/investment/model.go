package investment

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusRejected  = "rejected"
)

// Investment is one position in a plan. Plan terms are copied onto the row at
// creation so later catalog changes never alter an existing position.
type Investment struct {
	ID              string         `gorm:"column:id;primaryKey" json:"id"`
	Code            string         `gorm:"column:code;uniqueIndex" json:"code"`
	OwnerID         string         `gorm:"column:owner_id;index" json:"owner_id"`
	PlanID          string         `gorm:"column:plan_id" json:"plan_id"`
	PlanName        string         `gorm:"column:plan_name" json:"plan_name"`
	Amount          float64        `gorm:"column:amount" json:"amount"`
	Status          string         `gorm:"column:status;index" json:"status"`
	ReturnRate      float64        `gorm:"column:return_rate" json:"return_rate"`
	DurationDays    int            `gorm:"column:duration_days" json:"duration_days"`
	StartDate       *time.Time     `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate         *time.Time     `gorm:"column:end_date" json:"end_date,omitempty"`
	RejectionReason string         `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	Metadata        datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Investment) TableName() string {
	return "investments"
}

// AccruedReturnAt computes the return earned by `at`. Only active investments
// accrue. Elapsed whole days are prorated against the 30-day rate period and
// capped at the plan duration, and the result is floored to the cent.
func (i *Investment) AccruedReturnAt(at time.Time) float64 {
	if i.Status != StatusActive || i.StartDate == nil {
		return 0
	}

	days := int(at.Sub(*i.StartDate) / (24 * time.Hour))
	if days < 0 {
		days = 0
	}
	if days > i.DurationDays {
		days = i.DurationDays
	}

	monthly := i.Amount * i.ReturnRate / 100
	accrued := monthly * float64(days) / 30

	return math.Floor(accrued*100) / 100
}
