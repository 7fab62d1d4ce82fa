package main

import (
	"context"
	"fmt"
	"time"

	"production-service/internal/config"
	"production-service/internal/infra"
	mmysql "production-service/internal/infra/mysql"
	"production-service/internal/infra/rabbitmq"
	"production-service/internal/normalize"
	mysqlrepo "production-service/internal/repository/mysql"
	"production-service/internal/services"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// app holds the wired service and everything that must be closed with it.
type app struct {
	service *services.OrderService
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp connects storage and the optional collaborators. Missing or
// unreachable RabbitMQ, Redis and model service are logged and skipped.
func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{}

	db, err := mmysql.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	a.closers = append(a.closers, func() { sqlDB.Close() })

	norm := normalize.NewNormalizer(log.Named("normalize"), nil)
	repo := mysqlrepo.NewOrderRepository(db, norm, log.Named("repository"))

	var models infra.ModelClientInterface
	if cfg.ModelService.URL != "" {
		models = infra.NewModelClient(cfg.ModelService.URL, cfg.ModelService.Timeout)
	}

	var publisher rabbitmq.PublisherInterface = rabbitmq.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log.Named("rabbitmq"))
		if err != nil {
			log.Warn("event publishing disabled", zap.Error(err))
		} else {
			publisher = p
			a.closers = append(a.closers, p.Close)
		}
	}

	svc := services.NewOrderService(repo, models, publisher, norm, log.Named("orders"))
	a.closers = append(a.closers, svc.Wait)

	if addr := cfg.Redis.Addr(); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Warn("redis not reachable, list cache disabled", zap.String("addr", addr), zap.Error(err))
			rdb.Close()
		} else {
			svc.SetRedisClient(rdb, cfg.Redis.ListTTL)
			a.closers = append(a.closers, func() { rdb.Close() })
		}
	}

	a.service = svc
	return a, nil
}
