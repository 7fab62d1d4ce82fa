package mysql

import (
	"context"
	"fmt"

	"production-service/internal/domain"
	"production-service/internal/normalize"
	"production-service/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type orderRepo struct {
	db   *gorm.DB
	norm *normalize.Normalizer
	log  *zap.Logger
}

func NewOrderRepository(db *gorm.DB, norm *normalize.Normalizer, log *zap.Logger) repository.OrderRepository {
	if log == nil {
		log = zap.NewNop()
	}
	if norm == nil {
		norm = normalize.NewNormalizer(log, nil)
	}
	return &orderRepo{db: db, norm: norm, log: log}
}

// List returns every order by sortOrder, newest first within a sortOrder.
// The read is not wrapped in a transaction.
func (r *orderRepo) List(ctx context.Context) ([]domain.ProductionOrder, error) {
	var rows []orderRow
	err := r.db.WithContext(ctx).
		Order("sortOrder ASC").
		Order("createdAt DESC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		r.log.Error("list orders", zap.Error(err))
		return nil, translateError(err)
	}
	return r.decodeRows(rows)
}

func (r *orderRepo) FindByID(ctx context.Context, id string) (*domain.ProductionOrder, error) {
	var rows []orderRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		r.log.Error("find order", zap.String("id", id), zap.Error(err))
		return nil, translateError(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	o, err := fromRow(&rows[0])
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindChildren(ctx context.Context, parentID string) ([]domain.ProductionOrder, error) {
	var rows []orderRow
	err := r.db.WithContext(ctx).
		Where("parentOrderId = ?", parentID).
		Order("sortOrder ASC").
		Order("createdAt DESC").
		Find(&rows).Error
	if err != nil {
		r.log.Error("find child orders", zap.String("parent_id", parentID), zap.Error(err))
		return nil, translateError(err)
	}
	return r.decodeRows(rows)
}

// Create validates and normalizes order in place, then inserts it in a
// single statement.
func (r *orderRepo) Create(ctx context.Context, order *domain.ProductionOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}
	order.OrderDate = r.norm.Date("orderDate", order.OrderDate)
	order.DeliveryDate = r.norm.Date("deliveryDate", order.DeliveryDate)
	order.CreatedAt = r.norm.Timestamp("createdAt", order.CreatedAt)

	row, err := toRow(order)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		r.log.Error("create order", zap.String("id", order.ID), zap.Error(err))
		return translateError(err)
	}
	if row.UpdatedAt != nil {
		order.UpdatedAt = row.UpdatedAt.Format(normalize.TimestampLayout)
	}
	r.log.Debug("order created", zap.String("id", order.ID))
	return nil
}

// Update overwrites every mutable column of order.ID in one statement.
// createdAt is never rewritten. Concurrent updates are last-writer-wins.
func (r *orderRepo) Update(ctx context.Context, order *domain.ProductionOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}
	order.OrderDate = r.norm.Date("orderDate", order.OrderDate)
	order.DeliveryDate = r.norm.Date("deliveryDate", order.DeliveryDate)

	row, err := toRow(&domain.ProductionOrder{
		ID:            order.ID,
		OrderDate:     order.OrderDate,
		DeliveryDate:  order.DeliveryDate,
		BOM:           order.BOM,
		Details:       order.Details,
		Stages:        order.Stages,
		StatusHistory: order.StatusHistory,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	now := r.norm.Now()

	res := r.db.WithContext(ctx).Model(&orderRow{}).Where("id = ?", order.ID).Updates(map[string]any{
		"orderCode":      order.OrderCode,
		"itemCode":       order.ItemCode,
		"modelId":        order.ModelID,
		"customerId":     order.CustomerID,
		"customerName":   order.CustomerName,
		"gender":         string(order.Gender),
		"totalQuantity":  order.TotalQuantity,
		"orderDate":      row.OrderDate,
		"deliveryDate":   row.DeliveryDate,
		"productImage":   order.ProductImage,
		"generalNote":    order.GeneralNote,
		"bom":            row.BOM,
		"details":        row.Details,
		"stages":         row.Stages,
		"priority":       string(order.Priority),
		"priorityReason": order.PriorityReason,
		"status":         string(order.Status),
		"statusNote":     order.StatusNote,
		"statusHistory":  row.StatusHistory,
		"sortOrder":      order.SortOrder,
		"parentOrderId":  order.ParentOrderID,
		"updatedAt":      now,
	})
	if res.Error != nil {
		r.log.Error("update order", zap.String("id", order.ID), zap.Error(res.Error))
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		if err := r.mustExist(r.db.WithContext(ctx), order.ID); err != nil {
			return err
		}
	}
	order.UpdatedAt = now.Format(normalize.TimestampLayout)
	return nil
}

// Reorder assigns sortOrder = position for each id, atomically.
func (r *orderRepo) Reorder(ctx context.Context, ids []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			res := tx.Model(&orderRow{}).Where("id = ?", id).Update("sortOrder", i)
			if res.Error != nil {
				r.log.Error("reorder order", zap.String("id", id), zap.Error(res.Error))
				return translateError(res.Error)
			}
			if res.RowsAffected == 0 {
				if err := r.mustExist(tx, id); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Delete removes one row. Orders whose parentOrderId points at it are
// left as they are.
func (r *orderRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&orderRow{})
	if res.Error != nil {
		r.log.Error("delete order", zap.String("id", id), zap.Error(res.Error))
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *orderRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return translateError(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectionUnavailable, err)
	}
	return nil
}

func (r *orderRepo) mustExist(db *gorm.DB, id string) error {
	var n int64
	if err := db.Model(&orderRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return translateError(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *orderRepo) decodeRows(rows []orderRow) ([]domain.ProductionOrder, error) {
	out := make([]domain.ProductionOrder, 0, len(rows))
	for i := range rows {
		o, err := fromRow(&rows[i])
		if err != nil {
			r.log.Error("decode order", zap.String("id", rows[i].ID), zap.Error(err))
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
