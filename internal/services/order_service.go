package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"production-service/internal/domain"
	"production-service/internal/infra"
	rabbit "production-service/internal/infra/rabbitmq"
	"production-service/internal/normalize"
	"production-service/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	listCacheKey = "orders:list"
	listGenKey   = "orders:list:gen"

	// maxParentDepth bounds the parent walk so a corrupted chain cannot
	// loop forever.
	maxParentDepth = 64

	remakeSuffix       = "-BÙ"
	remakeReasonPrefix = "Làm bù cho hàng lỗi: "
)

type OrderService struct {
	repo        repository.OrderRepository
	models      infra.ModelClientInterface
	publisher   rabbit.PublisherInterface
	redisClient *redis.Client
	listTTL     time.Duration
	norm        *normalize.Normalizer
	log         *zap.Logger

	group    singleflight.Group
	writes   atomic.Uint64
	inflight sync.WaitGroup
}

var errListSuperseded = errors.New("list snapshot superseded")

func NewOrderService(r repository.OrderRepository, m infra.ModelClientInterface, pub rabbit.PublisherInterface, norm *normalize.Normalizer, log *zap.Logger) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	if pub == nil {
		pub = rabbit.NopPublisher{}
	}
	if norm == nil {
		norm = normalize.NewNormalizer(log, nil)
	}
	return &OrderService{
		repo:      r,
		models:    m,
		publisher: pub,
		norm:      norm,
		log:       log,
	}
}

// SetRedisClient enables the list snapshot cache. Every write drops the
// snapshot and bumps a generation counter; a load that overlapped a write
// is not cached.
func (u *OrderService) SetRedisClient(client *redis.Client, ttl time.Duration) {
	u.redisClient = client
	u.listTTL = ttl
}

// Wait blocks until every event publish started so far has finished.
func (u *OrderService) Wait() {
	u.inflight.Wait()
}

// ListOrders returns the point-in-time order list. Concurrent callers share
// one load; a caller that gives up does not cancel it for the others.
func (u *OrderService) ListOrders(ctx context.Context) ([]domain.ProductionOrder, error) {
	if orders, ok := u.cachedList(ctx); ok {
		return orders, nil
	}

	// a load started before this instance's last write is not joined
	key := listCacheKey + ":" + strconv.FormatUint(u.writes.Load(), 10)
	ch := u.group.DoChan(key, func() (any, error) {
		return u.loadList(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.ProductionOrder), nil
	}
}

func (u *OrderService) loadList(ctx context.Context) ([]domain.ProductionOrder, error) {
	gen, cacheable := u.listGeneration(ctx)
	orders, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if cacheable {
		u.storeList(ctx, gen, orders)
	}
	return orders, nil
}

func (u *OrderService) cachedList(ctx context.Context) ([]domain.ProductionOrder, bool) {
	if u.redisClient == nil {
		return nil, false
	}
	cached, err := u.redisClient.Get(ctx, listCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			u.log.Debug("list cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var orders []domain.ProductionOrder
	if err := json.Unmarshal(cached, &orders); err != nil {
		u.log.Warn("list cache entry unreadable", zap.Error(err))
		return nil, false
	}
	return orders, true
}

func (u *OrderService) listGeneration(ctx context.Context) (int64, bool) {
	if u.redisClient == nil {
		return 0, false
	}
	gen, err := u.redisClient.Get(ctx, listGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		u.log.Debug("list generation read failed", zap.Error(err))
		return 0, false
	}
	return gen, true
}

// storeList caches orders unless a write bumped the generation since gen
// was read. WATCH makes the check and the SET atomic against INCR.
func (u *OrderService) storeList(ctx context.Context, gen int64, orders []domain.ProductionOrder) {
	data, err := json.Marshal(orders)
	if err != nil {
		return
	}
	err = u.redisClient.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, listGenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errListSuperseded
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, listCacheKey, data, u.listTTL)
			return nil
		})
		return err
	}, listGenKey)
	switch {
	case err == nil:
	case errors.Is(err, errListSuperseded), errors.Is(err, redis.TxFailedErr):
		u.log.Debug("list snapshot superseded by a write")
	default:
		u.log.Debug("list cache write failed", zap.Error(err))
	}
}

func (u *OrderService) invalidateList(ctx context.Context) {
	u.writes.Add(1)
	if u.redisClient == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	_, err := u.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, listGenKey)
		pipe.Del(ctx, listCacheKey)
		return nil
	})
	if err != nil {
		u.log.Warn("list cache invalidation failed", zap.Error(err))
	}
}

func (u *OrderService) GetOrder(ctx context.Context, id string) (*domain.ProductionOrder, error) {
	o, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return o, nil
}

// CreateOrder stores a new order. An order without stages gets the default
// workflow; one that names a model but carries no BOM copies it from the
// model service.
func (u *OrderService) CreateOrder(ctx context.Context, order *domain.ProductionOrder) (*domain.ProductionOrder, error) {
	if len(order.Stages) == 0 {
		order.Stages = domain.DefaultStages()
	}
	u.applyModel(ctx, order)

	if err := u.checkParent(ctx, order); err != nil {
		return nil, err
	}
	if err := u.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	u.invalidateList(ctx)
	u.publish(domain.EventOrderCreated, order)
	return order, nil
}

func (u *OrderService) applyModel(ctx context.Context, order *domain.ProductionOrder) {
	if u.models == nil || order.ModelID == nil || *order.ModelID == "" || !order.BOM.IsZero() {
		return
	}
	m, err := u.models.GetModelByID(ctx, *order.ModelID)
	if err != nil {
		u.log.Warn("model lookup failed", zap.String("model_id", *order.ModelID), zap.Error(err))
		return
	}
	if m == nil {
		u.log.Info("order references unknown model", zap.String("model_id", *order.ModelID))
		return
	}
	order.BOM = m.BOM.Clone()
	if order.ProductImage == "" {
		order.ProductImage = m.ProductImage
	}
	if order.ItemCode == "" {
		order.ItemCode = m.ItemCode
	}
	if order.Gender == "" {
		order.Gender = m.Gender
	}
}

// UpdateOrder replaces the stored document with order. The stored status
// history must be a prefix of the submitted one.
func (u *OrderService) UpdateOrder(ctx context.Context, id string, order *domain.ProductionOrder) (*domain.ProductionOrder, error) {
	if order.ID != "" && order.ID != id {
		return nil, &domain.FieldError{Field: "id", Err: domain.ErrInvalidPayload}
	}
	order.ID = id

	current, err := u.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.HasHistoryPrefix(current.StatusHistory) {
		return nil, &domain.FieldError{Field: "statusHistory", Err: domain.ErrInvalidPayload}
	}
	if err := u.checkParent(ctx, order); err != nil {
		return nil, err
	}
	return u.replace(ctx, order, current.CreatedAt, domain.EventOrderUpdated)
}

func (u *OrderService) replace(ctx context.Context, order *domain.ProductionOrder, createdAt, event string) (*domain.ProductionOrder, error) {
	if err := u.repo.Update(ctx, order); err != nil {
		return nil, err
	}
	order.CreatedAt = createdAt

	u.invalidateList(ctx)
	u.publish(event, order)
	return order, nil
}

func (u *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if err := u.repo.Delete(ctx, id); err != nil {
		return err
	}
	u.invalidateList(ctx)
	u.publish(domain.EventOrderDeleted, &domain.ProductionOrder{ID: id})
	return nil
}

// ChangeStatus moves the order to status and records the transition in its
// history.
func (u *OrderService) ChangeStatus(ctx context.Context, id string, status domain.OrderStatus, reason, actor string) (*domain.ProductionOrder, error) {
	if !status.Valid() {
		return nil, &domain.FieldError{Field: "status", Err: domain.ErrInvalidPayload}
	}
	order, err := u.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	order.StatusHistory = append(order.StatusHistory, domain.StatusEntry{
		Status: status,
		Date:   u.norm.Now().Format(normalize.TimestampLayout),
		Reason: reason,
		Actor:  actor,
	})
	order.Status = status
	order.StatusNote = reason
	return u.replace(ctx, order, order.CreatedAt, domain.EventOrderStatusChanged)
}

// UpdateStage sets one stage's status. Moving to in_progress stamps the
// start date, moving to done stamps the end date.
func (u *OrderService) UpdateStage(ctx context.Context, id, stageID string, status domain.StageStatus) (*domain.ProductionOrder, error) {
	if !status.Valid() {
		return nil, &domain.FieldError{Field: "status", Err: domain.ErrInvalidPayload}
	}
	order, err := u.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusActive {
		return nil, domain.ErrOrderLocked
	}
	stage := order.Stage(stageID)
	if stage == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStageNotFound, stageID)
	}

	now := u.norm.Now().Format(normalize.TimestampLayout)
	stage.Status = status
	switch status {
	case domain.StageInProgress:
		stage.StartDate = now
	case domain.StageDone:
		stage.EndDate = now
	}
	return u.replace(ctx, order, order.CreatedAt, domain.EventOrderUpdated)
}

// ReorderOrders gives each listed order its position as sortOrder.
func (u *OrderService) ReorderOrders(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return &domain.FieldError{Field: "ids", Err: domain.ErrMissingField}
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			return &domain.FieldError{Field: "ids", Err: domain.ErrInvalidPayload}
		}
		seen[id] = struct{}{}
	}
	if err := u.repo.Reorder(ctx, ids); err != nil {
		return err
	}
	u.invalidateList(ctx)
	return nil
}

// CreateRemake derives a high-priority child order that reproduces the
// returned goods of parentID.
func (u *OrderService) CreateRemake(ctx context.Context, parentID string, ret domain.ReturnLog) (*domain.ProductionOrder, error) {
	if strings.TrimSpace(ret.Color) == "" {
		return nil, &domain.FieldError{Field: "color", Err: domain.ErrMissingField}
	}
	if ret.Size < domain.MinSize || ret.Size > domain.MaxSize {
		return nil, &domain.FieldError{Field: "size", Err: domain.ErrInvalidPayload}
	}
	if ret.Quantity <= 0 {
		return nil, &domain.FieldError{Field: "quantity", Err: domain.ErrInvalidPayload}
	}

	parent, err := u.GetOrder(ctx, parentID)
	if err != nil {
		return nil, err
	}

	child := *parent
	child.ID = uuid.NewString()
	child.OrderCode = parent.OrderCode + remakeSuffix
	child.ParentOrderID = &parent.ID
	child.TotalQuantity = ret.Quantity
	child.Priority = domain.PriorityHigh
	child.PriorityReason = remakeReasonPrefix + ret.Reason
	child.Status = domain.StatusActive
	child.StatusNote = ""
	child.StatusHistory = nil
	child.Stages = domain.DefaultStages()
	child.BOM = parent.BOM.Clone()
	child.Details = remakeDetails(parent.Details, ret)
	child.CreatedAt = ""
	child.UpdatedAt = ""

	if err := u.repo.Create(ctx, &child); err != nil {
		return nil, err
	}
	u.log.Info("remake order created",
		zap.String("id", child.ID),
		zap.String("parent_id", parent.ID),
		zap.String("color", ret.Color),
		zap.Int("size", ret.Size),
		zap.Int("quantity", ret.Quantity))

	u.invalidateList(ctx)
	u.publish(domain.EventOrderCreated, &child)
	return &child, nil
}

// remakeDetails keeps the rows of the returned color with only the
// returned size set.
func remakeDetails(details []domain.DetailRow, ret domain.ReturnLog) []domain.DetailRow {
	var out []domain.DetailRow
	for _, d := range details {
		if d.Color != ret.Color {
			continue
		}
		row := d
		row.Sizes = domain.SizeBreakdown{}
		row.Sizes.Set(ret.Size, ret.Quantity)
		row.Total = ret.Quantity
		out = append(out, row)
	}
	return out
}

func (u *OrderService) ListChildren(ctx context.Context, parentID string) ([]domain.ProductionOrder, error) {
	if _, err := u.GetOrder(ctx, parentID); err != nil {
		return nil, err
	}
	return u.repo.FindChildren(ctx, parentID)
}

func (u *OrderService) Health(ctx context.Context) error {
	return u.repo.Ping(ctx)
}

// checkParent walks the parent chain of order and rejects it when the
// chain leads back to order. A missing ancestor ends the walk.
func (u *OrderService) checkParent(ctx context.Context, order *domain.ProductionOrder) error {
	if order.ParentOrderID == nil {
		return nil
	}
	cycle := &domain.FieldError{Field: "parentOrderId", Err: domain.ErrParentCycle}

	next := *order.ParentOrderID
	for depth := 0; depth < maxParentDepth; depth++ {
		if next == order.ID {
			return cycle
		}
		parent, err := u.repo.FindByID(ctx, next)
		if err != nil {
			return err
		}
		if parent == nil || parent.ParentOrderID == nil {
			return nil
		}
		next = *parent.ParentOrderID
	}
	return cycle
}

func (u *OrderService) publish(event string, order *domain.ProductionOrder) {
	evt := domain.OrderEvent{
		OrderID:       order.ID,
		OrderCode:     order.OrderCode,
		Status:        order.Status,
		ParentOrderID: order.ParentOrderID,
		OccurredAt:    u.norm.Now(),
	}

	u.inflight.Add(1)
	go func() {
		defer u.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := u.publisher.Publish(ctx, event, evt); err != nil {
			u.log.Warn("failed to publish event", zap.String("event", event), zap.String("order_id", evt.OrderID), zap.Error(err))
			return
		}
		u.log.Debug("event published", zap.String("event", event), zap.String("order_id", evt.OrderID))
	}()
}
