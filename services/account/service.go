package account

import (
	"context"
	"strings"
	"time"

	"coinvest-platform/pkg/errutil"
	"coinvest-platform/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	accounts repository.Repository[Account]
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

		accounts: repository.ProvideStore[Account](p.DB),
	}
}

type CreateParams struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*Account, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, errutil.BadRequest("email is required", nil)
	}

	existing, err := s.accounts.FindOne(ctx, &Account{Email: email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.Conflict("email already registered", nil)
	}

	now := time.Now().UTC()
	acct := &Account{
		ID:        s.node.Generate().String(),
		Email:     email,
		FullName:  strings.TrimSpace(p.FullName),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, err
	}

	return acct, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	acct, err := s.accounts.FindOne(ctx, &Account{ID: id})
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, errutil.NotFound("account not found", nil)
	}
	return acct, nil
}
