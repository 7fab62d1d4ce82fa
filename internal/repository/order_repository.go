package repository

import (
	"context"

	"production-service/internal/domain"
)

// OrderRepository persists production orders. FindByID returns (nil, nil)
// when the id is unknown; writes report domain.ErrNotFound instead.
type OrderRepository interface {
	List(ctx context.Context) ([]domain.ProductionOrder, error)
	FindByID(ctx context.Context, id string) (*domain.ProductionOrder, error)
	FindChildren(ctx context.Context, parentID string) ([]domain.ProductionOrder, error)
	Create(ctx context.Context, order *domain.ProductionOrder) error
	Update(ctx context.Context, order *domain.ProductionOrder) error
	Reorder(ctx context.Context, ids []string) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
