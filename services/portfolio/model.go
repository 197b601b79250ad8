package portfolio

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	EntryTypeCredit = "credit"
	EntryTypeDebit  = "debit"
)

// Balance is the running portfolio balance per account, maintained alongside
// the entry chain.
type Balance struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	AccountID string    `gorm:"column:account_id;uniqueIndex" json:"account_id"`
	Balance   float64   `gorm:"column:balance" json:"balance"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Balance) TableName() string {
	return "portfolio_balances"
}

// Entry is one movement on an account's portfolio. Entries are hash-chained
// per account: Hash covers the entry fields plus PreviousHash, so any
// tampering breaks chain verification.
type Entry struct {
	ID            string         `gorm:"column:id;primaryKey" json:"id"`
	AccountID     string         `gorm:"column:account_id;index" json:"account_id"`
	Type          string         `gorm:"column:type" json:"type"`
	Amount        float64        `gorm:"column:amount" json:"amount"`
	TransactionID string         `gorm:"column:transaction_id" json:"transaction_id"`
	ReferenceID   string         `gorm:"column:reference_id;index" json:"reference_id"`
	Description   string         `gorm:"column:description" json:"description"`
	PreviousHash  string         `gorm:"column:previous_hash" json:"previous_hash"`
	Hash          string         `gorm:"column:hash" json:"hash"`
	Metadata      datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Entry) TableName() string {
	return "portfolio_entries"
}

type EntryParams struct {
	EntryID       string
	AccountID     string
	Type          string
	Amount        float64
	TransactionID string
	ReferenceID   string
	Description   string
	PreviousHash  string
	Metadata      datatypes.JSON
}

func NewEntry(p EntryParams) *Entry {
	return &Entry{
		ID:            p.EntryID,
		AccountID:     p.AccountID,
		Type:          p.Type,
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
		ReferenceID:   p.ReferenceID,
		Description:   p.Description,
		PreviousHash:  p.PreviousHash,
		Metadata:      p.Metadata,
	}
}

func (e *Entry) HashFields() map[string]string {
	return map[string]string{
		"id":             e.ID,
		"account_id":     e.AccountID,
		"type":           e.Type,
		"amount":         fmt.Sprintf("%.2f", e.Amount),
		"transaction_id": e.TransactionID,
		"reference_id":   e.ReferenceID,
		"description":    e.Description,
		"created_at":     e.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash":  e.PreviousHash,
	}
}

func (e *Entry) GenerateHash() string {
	fields := e.HashFields()
	var keys []string
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(hash[:])
}

func GenerateTransactionID() (string, error) {
	datePart := time.Now().Format("20060102")

	r := make([]byte, 3) // 3 bytes = 6 hex chars
	_, err := rand.Read(r)
	if err != nil {
		return "", err
	}
	randomPart := strings.ToUpper(fmt.Sprintf("%x", r))

	return fmt.Sprintf("%s-%s", datePart, randomPart), nil
}
