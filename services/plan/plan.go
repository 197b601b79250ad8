package plan

import (
	"github.com/gosimple/slug"
)

// Plan is an investment product. ReturnRate is the percentage yield per
// 30-day period; accrual is prorated daily against it.
type Plan struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	MinAmount    float64 `json:"min_amount"`
	MaxAmount    float64 `json:"max_amount"`
	ReturnRate   float64 `json:"return_rate"`
	DurationDays int     `json:"duration_days"`
	Description  string  `json:"description"`
}

// Allows reports whether amount falls inside the plan's inclusive range.
func (p Plan) Allows(amount float64) bool {
	return amount >= p.MinAmount && amount <= p.MaxAmount
}

func New(name string, minAmount, maxAmount, returnRate float64, durationDays int, description string) Plan {
	return Plan{
		ID:           slug.Make(name),
		Name:         name,
		MinAmount:    minAmount,
		MaxAmount:    maxAmount,
		ReturnRate:   returnRate,
		DurationDays: durationDays,
		Description:  description,
	}
}

// DefaultPlans is the production catalog.
func DefaultPlans() []Plan {
	return []Plan{
		New("Starter", 100, 1000, 5, 30, "Entry plan for first-time investors"),
		New("Professional", 1000, 10000, 8, 60, "Mid-tier plan with higher monthly yield"),
		New("Premium", 10000, 100000, 12, 90, "Top-tier plan for large positions"),
	}
}
