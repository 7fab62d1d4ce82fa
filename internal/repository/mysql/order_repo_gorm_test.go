package mysql

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"production-service/internal/domain"
	"production-service/internal/normalize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local)

func openTestDB(t *testing.T) *gorm.DB {
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
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestRepo(t *testing.T) (*orderRepo, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	norm := normalize.NewNormalizer(zap.NewNop(), func() time.Time { return testNow })
	return NewOrderRepository(db, norm, zap.NewNop()).(*orderRepo), db
}

func intp(v int) *int { return &v }

func strp(v string) *string { return &v }

func sampleOrder(id string) *domain.ProductionOrder {
	return &domain.ProductionOrder{
		ID:            id,
		OrderCode:     "PO191225",
		ItemCode:      "B0137",
		CustomerID:    "cust-1",
		CustomerName:  "LA CAMIE",
		Gender:        domain.GenderFemale,
		TotalQuantity: 252,
		OrderDate:     "2025-12-30",
		DeliveryDate:  "2026-01-29",
		ProductImage:  "https://picsum.photos/seed/shoes1/400/400",
		GeneralNote:   "KABE HẬU+MŨI 0.2",
		BOM: domain.BOM{
			KnifeCode: "B0137",
			FormCode:  "BV.049",
			Heel:      "TTP-190 SƠN",
			Extra:     map[string]json.RawMessage{"insole": json.RawMessage(`{"code":"X1"}`)},
		},
		Details: []domain.DetailRow{
			{ID: "d2", Color: "Đen", Lining: "Lót đen", Sizes: domain.SizeBreakdown{Size35: intp(10), Size36: intp(20)}, Total: 30},
			{ID: "d1", Color: "Nâu XC 0913-3", Lining: "Lót nâu 6", Sizes: domain.SizeBreakdown{Size37: intp(56)}, Total: 56},
		},
		Stages:   domain.DefaultStages(),
		Priority: domain.PriorityMedium,
		Status:   domain.StatusActive,
		StatusHistory: []domain.StatusEntry{
			{Status: domain.StatusSuspended, Date: "2026-01-02 08:00:00", Reason: "thiếu đế"},
			{Status: domain.StatusActive, Date: "2026-01-05 08:00:00", Reason: "đã có đế", Actor: "admin"},
		},
		CreatedAt: "2025-12-30T08:15:00.000Z",
	}
}

func TestOrderRepo_CreateAndFind_RoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	in := sampleOrder("o-1")
	require.NoError(t, repo.Create(ctx, in))
	assert.Equal(t, "2025-12-30 08:15:00", in.CreatedAt)

	got, err := repo.FindByID(ctx, "o-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, in.BOM, got.BOM)
	assert.Equal(t, in.Details, got.Details)
	assert.Equal(t, in.Stages, got.Stages)
	assert.Equal(t, in.StatusHistory, got.StatusHistory)
	assert.Equal(t, "2025-12-30", got.OrderDate)
	assert.Equal(t, "2026-01-29", got.DeliveryDate)
	assert.Equal(t, "2025-12-30 08:15:00", got.CreatedAt)
	assert.Equal(t, in.GeneralNote, got.GeneralNote)
	assert.Nil(t, got.ParentOrderID)
	assert.Nil(t, got.ModelID)
}

func TestOrderRepo_RoundTripKeepsEmptyBOMKeys(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	bom := `{"knifeCode":"B0137","formCode":"","soleCode":"","frameCode":"","heel":"TTP-190","accessory":"","talong":"","technicalNote":"","insole":{"code":"X1"}}`
	in := sampleOrder("o-1")
	require.NoError(t, json.Unmarshal([]byte(bom), &in.BOM))
	require.NoError(t, repo.Create(ctx, in))

	got, err := repo.FindByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, in.BOM, got.BOM)

	out, err := json.Marshal(got.BOM)
	require.NoError(t, err)
	assert.JSONEq(t, bom, string(out))
}

func TestOrderRepo_FindByID_Missing(t *testing.T) {
	repo, _ := newTestRepo(t)
	got, err := repo.FindByID(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderRepo_Create_NormalizesDates(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	o := sampleOrder("o-dates")
	o.OrderDate = "Sun, 04 Jan 2026 00:00:00 GMT"
	o.DeliveryDate = "01/02/2026"
	o.CreatedAt = ""
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.FindByID(ctx, "o-dates")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-04", got.OrderDate)
	assert.Equal(t, "2026-02-01", got.DeliveryDate)
	assert.Equal(t, "2026-10-19 09:00:00", got.CreatedAt)
}

func TestOrderRepo_Create_UnparseableDateFallsBackToToday(t *testing.T) {
	repo, _ := newTestRepo(t)
	o := sampleOrder("o-bad-date")
	o.DeliveryDate = "sometime in spring"
	require.NoError(t, repo.Create(context.Background(), o))
	assert.Equal(t, "2026-10-19", o.DeliveryDate)
}

func TestOrderRepo_Create_Duplicate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleOrder("o-1")))
	err := repo.Create(ctx, sampleOrder("o-1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
}

func TestOrderRepo_Create_MissingField(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	o := sampleOrder("o-1")
	o.CustomerID = ""
	err := repo.Create(ctx, o)
	assert.ErrorIs(t, err, domain.ErrMissingField)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOrderRepo_List_Ordering(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	a := sampleOrder("a")
	a.SortOrder, a.CreatedAt = 3, "2026-01-01 10:00:00"
	b := sampleOrder("b")
	b.SortOrder, b.CreatedAt = 1, "2026-01-03 10:00:00"
	c := sampleOrder("c")
	c.SortOrder, c.CreatedAt = 1, "2026-01-02 10:00:00"
	for _, o := range []*domain.ProductionOrder{a, b, c} {
		require.NoError(t, repo.Create(ctx, o))
	}

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestOrderRepo_List_EmptyDefaults(t *testing.T) {
	repo, db := newTestRepo(t)
	row := &orderRow{
		ID: "raw", OrderCode: "PO1", ItemCode: "I1", CustomerID: "c", CustomerName: "C",
		Gender: string(domain.GenderMale), TotalQuantity: 1, Priority: "Low", Status: "active",
		OrderDate: testNow, DeliveryDate: testNow, CreatedAt: testNow,
	}
	require.NoError(t, db.Create(row).Error)

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].BOM.IsZero())
	assert.NotNil(t, got[0].Details)
	assert.Empty(t, got[0].Details)
	assert.NotNil(t, got[0].Stages)
	assert.NotNil(t, got[0].StatusHistory)

	out, err := json.Marshal(got[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"bom":{}`)
	assert.Contains(t, string(out), `"details":[]`)
}

func TestOrderRepo_List_SerializationFault(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleOrder("o-1")))
	require.NoError(t, db.Model(&orderRow{}).Where("id = ?", "o-1").Update("stages", "[{broken").Error)

	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, domain.ErrSerializationFault)

	_, err = repo.FindByID(ctx, "o-1")
	assert.ErrorIs(t, err, domain.ErrSerializationFault)
}

func TestOrderRepo_Update_ReplacesDocument(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleOrder("o-1")))

	next := sampleOrder("o-1")
	next.CustomerName = "LA CAMIE 2"
	next.BOM = domain.BOM{SoleCode: "TH-01"}
	next.Details = next.Details[:1]
	next.Stages[0].Status = domain.StageDone
	next.GeneralNote = ""
	next.OrderDate = "2026-02-03T00:00:00Z"
	next.CreatedAt = "1999-01-01 00:00:00"
	require.NoError(t, repo.Update(ctx, next))

	got, err := repo.FindByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, "LA CAMIE 2", got.CustomerName)
	assert.Equal(t, domain.BOM{SoleCode: "TH-01"}, got.BOM)
	assert.Len(t, got.Details, 1)
	assert.Equal(t, domain.StageDone, got.Stages[0].Status)
	assert.Empty(t, got.GeneralNote)
	assert.Equal(t, "2026-02-03", got.OrderDate)
	assert.Equal(t, "2025-12-30 08:15:00", got.CreatedAt)
	assert.Equal(t, "2026-10-19 09:00:00", got.UpdatedAt)
}

func TestOrderRepo_Update_IdenticalResubmit(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleOrder("o-1")))
	require.NoError(t, repo.Update(ctx, sampleOrder("o-1")))
	require.NoError(t, repo.Update(ctx, sampleOrder("o-1")))
}

func TestOrderRepo_Update_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	err := repo.Update(context.Background(), sampleOrder("ghost"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepo_Update_HistoryOnlyGrows(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	o := sampleOrder("o-1")
	o.StatusHistory = nil
	require.NoError(t, repo.Create(ctx, o))

	previous := []domain.StatusEntry{}
	for i, st := range []domain.OrderStatus{domain.StatusSuspended, domain.StatusActive, domain.StatusCompleted} {
		cur, err := repo.FindByID(ctx, "o-1")
		require.NoError(t, err)
		cur.Status = st
		cur.StatusHistory = append(cur.StatusHistory, domain.StatusEntry{
			Status: st, Date: time.Date(2026, 1, i+1, 0, 0, 0, 0, time.Local).Format(normalize.TimestampLayout),
		})
		require.NoError(t, repo.Update(ctx, cur))

		after, err := repo.FindByID(ctx, "o-1")
		require.NoError(t, err)
		require.Len(t, after.StatusHistory, i+1)
		assert.Equal(t, previous, after.StatusHistory[:len(previous)])
		previous = after.StatusHistory
	}
}

func TestOrderRepo_Delete_DoesNotCascade(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	parent := sampleOrder("parent")
	child := sampleOrder("child")
	child.ParentOrderID = strp("parent")
	require.NoError(t, repo.Create(ctx, parent))
	require.NoError(t, repo.Create(ctx, child))

	require.NoError(t, repo.Delete(ctx, "parent"))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "child", all[0].ID)
	require.NotNil(t, all[0].ParentOrderID)
	assert.Equal(t, "parent", *all[0].ParentOrderID)

	assert.ErrorIs(t, repo.Delete(ctx, "parent"), domain.ErrNotFound)
}

func TestOrderRepo_FindChildren(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleOrder("p")))
	for _, id := range []string{"c1", "c2"} {
		c := sampleOrder(id)
		c.ParentOrderID = strp("p")
		require.NoError(t, repo.Create(ctx, c))
	}
	require.NoError(t, repo.Create(ctx, sampleOrder("other")))

	kids, err := repo.FindChildren(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, kids, 2)
}

func TestOrderRepo_Reorder(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	for _, id := range []string{"x", "y", "z"} {
		require.NoError(t, repo.Create(ctx, sampleOrder(id)))
	}

	require.NoError(t, repo.Reorder(ctx, []string{"z", "x", "y"}))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "x", "y"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, 0, all[0].SortOrder)
	assert.Equal(t, 2, all[2].SortOrder)

	err = repo.Reorder(ctx, []string{"y", "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	all, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "z", all[0].ID)
}

func TestOrderRepo_Ping(t *testing.T) {
	repo, db := newTestRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))

	sqlDB, _ := db.DB()
	require.NoError(t, sqlDB.Close())
	assert.ErrorIs(t, repo.Ping(context.Background()), domain.ErrConnectionUnavailable)
}
