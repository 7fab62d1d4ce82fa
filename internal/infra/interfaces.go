package infra

import "context"

type ModelClientInterface interface {
	GetModelByID(ctx context.Context, id string) (*ProductModel, error)
}

var _ ModelClientInterface = (*ModelClient)(nil)
