package mysql

import (
	"encoding/json"
	"fmt"
	"time"

	"production-service/internal/domain"
	"production-service/internal/normalize"

	"gorm.io/gorm"
)

// orderRow is the at-rest shape of a ProductionOrder: scalar columns plus
// the nested documents as JSON text.
type orderRow struct {
	ID             string     `gorm:"column:id;primaryKey;size:64"`
	OrderCode      string     `gorm:"column:orderCode;size:100;not null"`
	ItemCode       string     `gorm:"column:itemCode;size:100;not null"`
	ModelID        *string    `gorm:"column:modelId;size:64"`
	CustomerID     string     `gorm:"column:customerId;size:64;not null;index"`
	CustomerName   string     `gorm:"column:customerName;size:255;not null"`
	Gender         string     `gorm:"column:gender;size:20;not null"`
	TotalQuantity  int        `gorm:"column:totalQuantity;not null"`
	OrderDate      time.Time  `gorm:"column:orderDate;type:date"`
	DeliveryDate   time.Time  `gorm:"column:deliveryDate;type:date"`
	ProductImage   string     `gorm:"column:productImage;type:text"`
	GeneralNote    string     `gorm:"column:generalNote;type:text"`
	BOM            *string    `gorm:"column:bom;type:longtext"`
	Details        *string    `gorm:"column:details;type:longtext"`
	Stages         *string    `gorm:"column:stages;type:longtext"`
	Priority       string     `gorm:"column:priority;size:20;not null"`
	PriorityReason string     `gorm:"column:priorityReason;type:text"`
	Status         string     `gorm:"column:status;size:20;not null;index"`
	StatusNote     string     `gorm:"column:statusNote;type:text"`
	StatusHistory  *string    `gorm:"column:statusHistory;type:longtext"`
	SortOrder      int        `gorm:"column:sortOrder;not null;default:0;index"`
	CreatedAt      time.Time  `gorm:"column:createdAt;type:datetime"`
	UpdatedAt      *time.Time `gorm:"column:updatedAt;type:datetime"`
	ParentOrderID  *string    `gorm:"column:parentOrderId;size:64;index"`
}

func (orderRow) TableName() string { return "production_orders" }

// AutoMigrate creates or updates the production_orders table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&orderRow{})
}

// toRow expects o's dates to be canonical already.
func toRow(o *domain.ProductionOrder) (*orderRow, error) {
	orderDate, err := time.ParseInLocation(normalize.DateLayout, o.OrderDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("orderDate: %w", err)
	}
	deliveryDate, err := time.ParseInLocation(normalize.DateLayout, o.DeliveryDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("deliveryDate: %w", err)
	}
	var createdAt time.Time
	if o.CreatedAt != "" {
		if createdAt, err = time.ParseInLocation(normalize.TimestampLayout, o.CreatedAt, time.Local); err != nil {
			return nil, fmt.Errorf("createdAt: %w", err)
		}
	}

	bom, err := encodeJSON(o.BOM)
	if err != nil {
		return nil, fmt.Errorf("bom: %w", err)
	}
	details, err := encodeJSON(nonNil(o.Details))
	if err != nil {
		return nil, fmt.Errorf("details: %w", err)
	}
	stages, err := encodeJSON(nonNil(o.Stages))
	if err != nil {
		return nil, fmt.Errorf("stages: %w", err)
	}
	history, err := encodeJSON(nonNil(o.StatusHistory))
	if err != nil {
		return nil, fmt.Errorf("statusHistory: %w", err)
	}

	return &orderRow{
		ID:             o.ID,
		OrderCode:      o.OrderCode,
		ItemCode:       o.ItemCode,
		ModelID:        o.ModelID,
		CustomerID:     o.CustomerID,
		CustomerName:   o.CustomerName,
		Gender:         string(o.Gender),
		TotalQuantity:  o.TotalQuantity,
		OrderDate:      orderDate,
		DeliveryDate:   deliveryDate,
		ProductImage:   o.ProductImage,
		GeneralNote:    o.GeneralNote,
		BOM:            bom,
		Details:        details,
		Stages:         stages,
		Priority:       string(o.Priority),
		PriorityReason: o.PriorityReason,
		Status:         string(o.Status),
		StatusNote:     o.StatusNote,
		StatusHistory:  history,
		SortOrder:      o.SortOrder,
		CreatedAt:      createdAt,
		ParentOrderID:  o.ParentOrderID,
	}, nil
}

// fromRow decodes the nested columns; an absent column becomes an empty
// document, an undecodable one is an ErrSerializationFault.
func fromRow(r *orderRow) (domain.ProductionOrder, error) {
	o := domain.ProductionOrder{
		ID:             r.ID,
		OrderCode:      r.OrderCode,
		ItemCode:       r.ItemCode,
		ModelID:        r.ModelID,
		CustomerID:     r.CustomerID,
		CustomerName:   r.CustomerName,
		Gender:         domain.Gender(r.Gender),
		TotalQuantity:  r.TotalQuantity,
		OrderDate:      r.OrderDate.Format(normalize.DateLayout),
		DeliveryDate:   r.DeliveryDate.Format(normalize.DateLayout),
		ProductImage:   r.ProductImage,
		GeneralNote:    r.GeneralNote,
		Priority:       domain.Priority(r.Priority),
		PriorityReason: r.PriorityReason,
		Status:         domain.OrderStatus(r.Status),
		StatusNote:     r.StatusNote,
		SortOrder:      r.SortOrder,
		CreatedAt:      r.CreatedAt.Format(normalize.TimestampLayout),
		ParentOrderID:  r.ParentOrderID,
	}
	if r.UpdatedAt != nil {
		o.UpdatedAt = r.UpdatedAt.Format(normalize.TimestampLayout)
	}

	if err := decodeJSON(r.ID, "bom", r.BOM, &o.BOM); err != nil {
		return o, err
	}
	if err := decodeJSON(r.ID, "details", r.Details, &o.Details); err != nil {
		return o, err
	}
	if err := decodeJSON(r.ID, "stages", r.Stages, &o.Stages); err != nil {
		return o, err
	}
	if err := decodeJSON(r.ID, "statusHistory", r.StatusHistory, &o.StatusHistory); err != nil {
		return o, err
	}
	o.Details = nonNil(o.Details)
	o.Stages = nonNil(o.Stages)
	o.StatusHistory = nonNil(o.StatusHistory)
	return o, nil
}

func encodeJSON(v any) (*string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func decodeJSON[T any](id, column string, raw *string, dst *T) error {
	if raw == nil || *raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(*raw), dst); err != nil {
		return fmt.Errorf("%w: order %s column %s: %v", domain.ErrSerializationFault, id, column, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
