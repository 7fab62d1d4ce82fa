package mocks

import (
	"context"

	"production-service/internal/domain"
	"production-service/internal/infra"

	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct {
	mock.Mock
}

type MockModelClient struct {
	mock.Mock
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, pattern string, data any) error {
	args := m.Called(ctx, pattern, data)
	return args.Error(0)
}

func (m *MockModelClient) GetModelByID(ctx context.Context, id string) (*infra.ProductModel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.ProductModel), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context) ([]domain.ProductionOrder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProductionOrder), args.Error(1)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id string) (*domain.ProductionOrder, error) {
	args := m.Called(ctx, id)
	if fn, ok := args.Get(0).(func(context.Context, string) *domain.ProductionOrder); ok {
		return fn(ctx, id), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductionOrder), args.Error(1)
}

func (m *MockOrderRepository) FindChildren(ctx context.Context, parentID string) ([]domain.ProductionOrder, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProductionOrder), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.ProductionOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.ProductionOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Reorder(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
