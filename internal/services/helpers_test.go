package services

import (
	"testing"
	"time"

	"production-service/internal/domain"
	"production-service/internal/infra"
	"production-service/internal/normalize"
	mysqlrepo "production-service/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local)

func testNormalizer() *normalize.Normalizer {
	return normalize.NewNormalizer(zap.NewNop(), func() time.Time { return testNow })
}

func CreateTestOrder(id string) *domain.ProductionOrder {
	return &domain.ProductionOrder{
		ID:            id,
		OrderCode:     "PO191225",
		ItemCode:      "B0137",
		CustomerID:    "cust-1",
		CustomerName:  "LA CAMIE",
		Gender:        domain.GenderFemale,
		TotalQuantity: 252,
		OrderDate:     "2025-12-19",
		DeliveryDate:  "2026-01-15",
		ProductImage:  "order.png",
		Priority:      domain.PriorityMedium,
		Status:        domain.StatusActive,
	}
}

func CreateTestModel(id string) *infra.ProductModel {
	return &infra.ProductModel{
		ID:           id,
		ItemCode:     "B0137",
		ProductImage: "model.png",
		Gender:       domain.GenderFemale,
		BOM:          domain.BOM{KnifeCode: "B0137", FormCode: "BV.049"},
	}
}

// newStoreService wires the service to an in-memory sqlite store.
func newStoreService(t *testing.T) *OrderService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := mysqlrepo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	norm := testNormalizer()
	repo := mysqlrepo.NewOrderRepository(db, norm, zap.NewNop())
	return NewOrderService(repo, nil, nil, norm, zap.NewNop())
}
