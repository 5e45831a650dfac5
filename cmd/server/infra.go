package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"flightsurety/internal/events"
	"flightsurety/internal/journal"
	"flightsurety/internal/platform/config"
	"flightsurety/internal/platform/kafka"
	"flightsurety/internal/platform/redis"
	"flightsurety/internal/ratelimit"
	"flightsurety/internal/surety/service"
	"flightsurety/pkg/platform/circuit"
)

const connectTimeout = 5 * time.Second

// openJournal uses Postgres when DATABASE_URL is set, otherwise an in-memory
// journal that does not survive a restart.
func openJournal(ctx context.Context, cfg config.Server, log *slog.Logger) (service.JournalStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, journal is in memory")
		return journal.NewInMemoryStore(), nopClose, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := journal.NewPostgres(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate journal: %w", err)
	}
	return store, func() { _ = db.Close() }, nil
}

type eventBus struct {
	publisher service.EventPublisher
	redis     *redis.Client
	kafka     *kafka.Client
}

func (b *eventBus) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.kafka != nil {
		b.kafka.Close()
	}
}

// limitStore shares rate limit windows through Redis whenever it is configured.
func (b *eventBus) limitStore(cfg config.Server) ratelimit.Store {
	if b.redis != nil {
		return ratelimit.NewRedisStore(b.redis.Client, cfg.Redis.ChannelPrefix)
	}
	return ratelimit.NewInMemoryStore()
}

// openEventBus connects the configured bus. Redis and Kafka are guarded by a
// breaker that diverts events to a bounded in-memory buffer while the bus is
// down; the buffer is replayed once the bus recovers.
// A Redis connection is opened whenever REDIS_URL is set, since the rate
// limiter uses it too.
func openEventBus(ctx context.Context, cfg config.Server, reg prometheus.Registerer, log *slog.Logger) (*eventBus, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	bus := &eventBus{}
	if cfg.Redis.URL != "" {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		bus.redis = client
	}

	var primary events.Publisher
	switch cfg.EventBus {
	case config.EventBusRedis:
		primary = events.NewRedisPublisher(bus.redis.Client, cfg.Redis.ChannelPrefix)
	case config.EventBusKafka:
		client, err := kafka.New(ctx, cfg.Kafka)
		if err != nil {
			bus.close()
			return nil, err
		}
		bus.kafka = client
		if err := events.EnsureTopic(ctx, client.Admin(), cfg.Kafka.Topic, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			bus.close()
			return nil, fmt.Errorf("ensure kafka topic: %w", err)
		}
		primary = events.NewKafkaPublisher(client.Client, client.Topic)
	}

	m := events.NewMetrics(reg)
	buffer := events.NewInMemoryPublisher(
		events.WithCapacity(cfg.EventBufferCapacity),
		events.WithBufferMetrics(m),
	)
	if primary == nil {
		bus.publisher = buffer
		return bus, nil
	}
	bus.publisher = events.NewGuardedPublisher(primary, buffer, circuit.New("event-bus"), log,
		events.WithGuardMetrics(m))
	return bus, nil
}
