package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a gorm query before execution.
type QueryOption func(*gorm.DB) *gorm.DB

// Operator is a SQL comparison operator usable in a Condition.
type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

// Condition expresses `field <op> value` for ApplyOperator.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// QuerySortBy sorts by SortBy when it is allow-listed, falling back to
// created_at otherwise. OrderBy is normalised to ASC/DESC.
type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		column := "created_at"
		if sort.SortBy != "" && sort.Allow[sort.SortBy] {
			column = sort.SortBy
		}

		direction := "ASC"
		if strings.EqualFold(sort.OrderBy, "desc") {
			direction = "DESC"
		}

		return tx.Order(fmt.Sprintf("%s %s", column, direction))
	}
}

func WithLimit(limit int) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return tx
		}
		return tx.Limit(limit)
	}
}

// ApplyOperator adds comparison conditions that a struct query cannot express.
func ApplyOperator(conditions ...Condition) QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		for _, c := range conditions {
			tx = tx.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
		}
		return tx
	}
}

// WithLockingUpdate acquires a row-level lock (SELECT ... FOR UPDATE) for a
// single query.
func WithLockingUpdate() QueryOption {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
}

// LockingUpdate is a gorm scope variant of WithLockingUpdate, meant to be
// applied once on a transaction so every query inside it locks the rows it
// touches.
func LockingUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
