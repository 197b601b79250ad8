package portfolio

import (
	"context"
	"time"

	"coinvest-platform/pkg/db/option"
	"coinvest-platform/pkg/db/pagination"
	"coinvest-platform/pkg/errutil"
	"coinvest-platform/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	entries repository.Repository[Entry]
	balance repository.Repository[Balance]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		entries: repository.ProvideStore[Entry](p.DB),
		balance: repository.ProvideStore[Balance](p.DB),
	}
}

type MovementParams struct {
	AccountID   string
	Amount      float64
	ReferenceID string
	Description string
	Metadata    datatypes.JSON
}

// Credit appends a credit entry and bumps the balance, all inside one locked
// transaction. Duplicate reference IDs are rejected so retried credits stay
// idempotent.
func (s *Service) Credit(ctx context.Context, p MovementParams) (*Entry, error) {
	var entry *Entry
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		tx = tx.Scopes(option.LockingUpdate)

		var err error
		entry, err = s.creditInTx(ctx, tx, p)
		return err
	}); err != nil {
		return nil, err
	}

	return entry, nil
}

// CreditInTx is Credit running inside a caller-owned transaction, used when
// another service needs the credit atomically with its own writes. tx must
// already carry the locking scope.
func (s *Service) CreditInTx(ctx context.Context, tx *gorm.DB, p MovementParams) (*Entry, error) {
	return s.creditInTx(ctx, tx, p)
}

func (s *Service) creditInTx(ctx context.Context, tx *gorm.DB, p MovementParams) (*Entry, error) {
	if p.Amount <= 0 {
		return nil, errutil.BadRequest("amount must be > 0 for credit", nil)
	}

	entryTx := s.entries.WithTrx(tx)
	balanceTx := s.balance.WithTrx(tx)

	if p.ReferenceID != "" {
		if exist, err := entryTx.FindOne(ctx, &Entry{AccountID: p.AccountID, ReferenceID: p.ReferenceID}); err != nil {
			return nil, err
		} else if exist != nil {
			zap.L().Warn("reference_id already exists", zap.String("reference_id", p.ReferenceID))
			return nil, errutil.BadRequest("reference_id already exists", nil)
		}
	}

	lastEntry, err := s.lastEntry(ctx, tx, p.AccountID)
	if err != nil {
		return nil, err
	}

	balance, err := balanceTx.FindOne(ctx, &Balance{AccountID: p.AccountID})
	if err != nil {
		return nil, err
	}

	transactionID, err := GenerateTransactionID()
	if err != nil {
		return nil, err
	}

	entry := NewEntry(EntryParams{
		EntryID:       s.node.Generate().String(),
		AccountID:     p.AccountID,
		Type:          EntryTypeCredit,
		Amount:        p.Amount,
		TransactionID: transactionID,
		ReferenceID:   p.ReferenceID,
		Description:   p.Description,
		Metadata:      p.Metadata,
	})

	previousHash := "GENESIS"
	if lastEntry != nil {
		previousHash = lastEntry.Hash
	}

	entry.CreatedAt = time.Now().UTC()
	entry.PreviousHash = previousHash
	entry.Hash = entry.GenerateHash()

	if err := entryTx.Create(ctx, entry); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if balance == nil {
		if err := balanceTx.Create(ctx, &Balance{
			ID:        s.node.Generate().String(),
			AccountID: p.AccountID,
			Balance:   p.Amount,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return nil, err
		}
	} else {
		updates := map[string]any{
			"balance":    gorm.Expr("balance + ?", p.Amount),
			"updated_at": now,
		}
		if err := balanceTx.Update(ctx, balance.ID, updates); err != nil {
			return nil, err
		}
	}

	return entry, nil
}

// Debit appends a debit entry after an insufficient-funds guard under the
// same row lock.
func (s *Service) Debit(ctx context.Context, p MovementParams) (*Entry, error) {
	if p.Amount <= 0 {
		return nil, errutil.BadRequest("amount must be > 0 for debit", nil)
	}

	var entry *Entry
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		tx = tx.Scopes(option.LockingUpdate)

		entryTx := s.entries.WithTrx(tx)
		balanceTx := s.balance.WithTrx(tx)

		balance, err := balanceTx.FindOne(ctx, &Balance{AccountID: p.AccountID})
		if err != nil {
			return err
		}

		if balance == nil || balance.Balance < p.Amount {
			return errutil.BadRequest("insufficient balance", nil)
		}

		lastEntry, err := s.lastEntry(ctx, tx, p.AccountID)
		if err != nil {
			return err
		}

		transactionID, err := GenerateTransactionID()
		if err != nil {
			return err
		}

		entry = NewEntry(EntryParams{
			EntryID:       s.node.Generate().String(),
			AccountID:     p.AccountID,
			Type:          EntryTypeDebit,
			Amount:        p.Amount,
			TransactionID: transactionID,
			ReferenceID:   p.ReferenceID,
			Description:   p.Description,
			Metadata:      p.Metadata,
		})

		previousHash := "GENESIS"
		if lastEntry != nil {
			previousHash = lastEntry.Hash
		}

		entry.CreatedAt = time.Now().UTC()
		entry.PreviousHash = previousHash
		entry.Hash = entry.GenerateHash()

		if err := entryTx.Create(ctx, entry); err != nil {
			return err
		}

		updates := map[string]any{
			"balance":    gorm.Expr("balance - ?", p.Amount),
			"updated_at": time.Now().UTC(),
		}
		return balanceTx.Update(ctx, balance.ID, updates)
	}); err != nil {
		return nil, err
	}

	return entry, nil
}

// lastEntry finds the chain tip. Entries sort by snowflake ID, which is
// monotonic even when two entries land on the same timestamp.
func (s *Service) lastEntry(ctx context.Context, tx *gorm.DB, accountID string) (*Entry, error) {
	return s.entries.WithTrx(tx).FindOne(ctx, &Entry{AccountID: accountID}, option.WithSortBy(
		option.QuerySortBy{
			SortBy:  "id",
			OrderBy: "desc",
			Allow: map[string]bool{
				"id": true,
			},
		},
	), option.WithLockingUpdate())
}

// GetBalance returns the current balance, zero-valued when the account has no
// movements yet.
func (s *Service) GetBalance(ctx context.Context, accountID string) (*Balance, error) {
	balance, err := s.balance.FindOne(ctx, &Balance{AccountID: accountID})
	if err != nil {
		zap.L().Error("failed to query balance", zap.String("account_id", accountID), zap.Error(err))
		return nil, err
	}

	if balance == nil {
		return &Balance{AccountID: accountID}, nil
	}

	return balance, nil
}

func (s *Service) ListEntries(ctx context.Context, accountID string) ([]*Entry, error) {
	return s.entries.Find(ctx, &Entry{AccountID: accountID}, option.WithSortBy(
		option.QuerySortBy{
			SortBy:  "id",
			OrderBy: "asc",
			Allow: map[string]bool{
				"id": true,
			},
		},
	))
}

// ListEntriesPage is the cursor-paged variant used by the HTTP API. The
// cursor carries the last entry ID of the previous page.
func (s *Service) ListEntriesPage(ctx context.Context, accountID string, page pagination.Pagination) ([]*Entry, *pagination.PageInfo, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = 10
	}

	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "id",
			OrderBy: "asc",
			Allow: map[string]bool{
				"id": true,
			},
		}),
		option.WithLimit(limit + 1),
	}

	if page.Cursor != "" {
		cursor, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		opts = append(opts, option.ApplyOperator(option.Condition{
			Field:    "id",
			Operator: option.GT,
			Value:    cursor.ID,
		}))
	}

	entries, err := s.entries.Find(ctx, &Entry{AccountID: accountID}, opts...)
	if err != nil {
		return nil, nil, err
	}

	info := pagination.BuildCursorPageInfo(entries, int32(limit), func(e *Entry) string {
		c, err := pagination.EncodeCursor(pagination.Cursor{ID: e.ID})
		if err != nil {
			return ""
		}
		return c
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, info, nil
}

// VerifyChain recomputes every entry hash for the account and checks the
// links between consecutive entries.
func (s *Service) VerifyChain(ctx context.Context, accountID string) (bool, error) {
	entries, err := s.ListEntries(ctx, accountID)
	if err != nil {
		return false, err
	}

	lastHash := "GENESIS"
	for _, entry := range entries {
		if entry.Hash != entry.GenerateHash() || entry.PreviousHash != lastHash {
			return false, nil
		}
		lastHash = entry.Hash
	}

	return true, nil
}
