package di

import (
	"github.com/red2n/modern-reservation-sub006/internal/handler"
	"github.com/red2n/modern-reservation-sub006/internal/tenantcache"
	"github.com/red2n/modern-reservation-sub006/pkg/config"
	"github.com/red2n/modern-reservation-sub006/pkg/database"
	"github.com/red2n/modern-reservation-sub006/pkg/logger"
	"github.com/red2n/modern-reservation-sub006/pkg/redisclient"
)

// Container holds all dependencies for the tenant sync service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redisclient.Client

	// Cache subsystem
	Store    tenantcache.CacheStore
	Applier  *tenantcache.Applier
	Reader   *tenantcache.CacheReader
	Consumer *tenantcache.Consumer

	// Handlers
	HealthHandler *handler.HealthHandler
}

// ContainerConfig contains dependencies for building the container
type ContainerConfig struct {
	Config *config.Config
	DB     *database.PostgresDB
	Redis  *redisclient.Client // optional, nil disables the reader hot cache
	Logger *logger.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) (*Container, error) {
	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
	}

	c.Store = tenantcache.NewPostgresStore(cfg.DB.Pool())
	c.Applier = tenantcache.NewApplier(c.Store, cfg.Logger)
	c.Reader = tenantcache.NewCacheReader(c.Store, cfg.Redis, cfg.Logger, &tenantcache.ReaderConfig{
		StaleThreshold: cfg.Config.Cache.StaleThreshold,
		OperationalTTL: cfg.Config.Cache.OperationalTTL,
	})

	consumer, err := tenantcache.NewConsumer(&tenantcache.ConsumerConfig{
		Brokers:       cfg.Config.Kafka.Brokers,
		ConsumerGroup: cfg.Config.Kafka.ConsumerGroup,
		ClientID:      cfg.Config.Kafka.ClientID,
		Workers:       cfg.Config.Kafka.Workers,
	}, c.Applier, cfg.Logger)
	if err != nil {
		return nil, err
	}
	c.Consumer = consumer

	c.HealthHandler = handler.NewHealthHandler(cfg.DB)

	return c, nil
}
