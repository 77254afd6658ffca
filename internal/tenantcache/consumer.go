package tenantcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/red2n/modern-reservation-sub006/pkg/logger"
	"github.com/red2n/modern-reservation-sub006/pkg/telemetry"
)

// ConsumerConfig holds event consumer settings.
type ConsumerConfig struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string
	// Workers bounds how many partitions are processed concurrently.
	// Events within one partition are always processed sequentially.
	Workers int
	// RetryBackoff is the pause before re-polling after an apply failure,
	// so a down store is not hammered with redeliveries.
	RetryBackoff time.Duration
}

// DefaultConsumerConfig returns the default consumer configuration.
func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:       []string{"localhost:9092"},
		ConsumerGroup: "tenant-cache-sync",
		ClientID:      "tenant-sync",
		Workers:       3,
		RetryBackoff:  time.Second,
	}
}

// Consumer pulls tenant events from the stream and drives the
// Applier -> CacheStore pipeline. Delivery is at-least-once: an event's
// offset is committed only after it has been applied, and every apply is
// idempotent, so reprocessing after a crash is safe.
type Consumer struct {
	client       *kgo.Client
	applier      *Applier
	log          *logger.Logger
	workers      int
	retryBackoff time.Duration

	// commit seam, kgo.Client.CommitRecords in production
	commitRecords func(ctx context.Context, rs ...*kgo.Record) error

	eventsProcessed *telemetry.Counter
	eventsFailed    *telemetry.Counter
	applyDuration   *telemetry.Histogram
}

// NewConsumer creates a consumer group member subscribed to all tenant
// lifecycle topics. Auto-commit is disabled; offsets are committed
// explicitly after successful application.
func NewConsumer(cfg *ConsumerConfig, applier *Applier, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = DefaultConsumerConfig()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ClientID(cfg.ClientID),
		kgo.ConsumeTopics(Topics...),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	c := &Consumer{
		client:       client,
		applier:      applier,
		log:          log,
		workers:      cfg.Workers,
		retryBackoff: cfg.RetryBackoff,
	}
	c.commitRecords = client.CommitRecords

	c.eventsProcessed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "tenant_cache.events.processed",
		Description: "Tenant events processed, labeled by apply result",
		Unit:        "{event}",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create events counter: %w", err)
	}
	c.eventsFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "tenant_cache.events.failed",
		Description: "Tenant events that failed to apply and await redelivery",
		Unit:        "{event}",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create failures counter: %w", err)
	}
	c.applyDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "tenant_cache.apply.duration",
		Description: "Time spent applying a tenant event",
		Unit:        "ms",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create apply duration histogram: %w", err)
	}

	return c, nil
}

// Run polls and processes events until ctx is cancelled. An in-flight batch
// is applied and committed before Run returns, so progress is never lost to
// a shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("tenant cache consumer started",
		zap.Strings("topics", Topics),
		zap.Int("workers", c.workers),
	)

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			c.log.Error("fetch error",
				zap.String("topic", topic),
				zap.Int32("partition", partition),
				zap.Error(err),
			)
		})

		rewinds := c.processFetches(ctx, fetches)
		if len(rewinds) > 0 {
			// The client's fetch position has already advanced past the
			// whole batch. Rewind each failed partition to its failed
			// offset so that record and everything fetched after it are
			// redelivered; otherwise the next commit on that partition
			// would implicitly commit the failed offset and the skipped
			// ones behind it.
			c.client.SetOffsets(rewinds)
		}
		c.client.AllowRebalance()

		if ctx.Err() != nil {
			c.log.Info("tenant cache consumer stopping")
			return ctx.Err()
		}

		if len(rewinds) > 0 {
			select {
			case <-ctx.Done():
				c.log.Info("tenant cache consumer stopping")
				return ctx.Err()
			case <-time.After(c.retryBackoff):
			}
		}
	}
}

// Close releases the kafka client. Call after Run has returned.
func (c *Consumer) Close() {
	c.client.Close()
}

// processFetches applies each partition's records in order, partitions in
// parallel bounded by the worker count, then commits everything applied.
// The returned map holds, per failed partition, the offset the client must
// be rewound to before the next poll.
func (c *Consumer) processFetches(ctx context.Context, fetches kgo.Fetches) map[string]map[int32]kgo.EpochOffset {
	var partitions []kgo.FetchTopicPartition
	fetches.EachPartition(func(p kgo.FetchTopicPartition) {
		if len(p.Records) > 0 {
			partitions = append(partitions, p)
		}
	})
	if len(partitions) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		applied []*kgo.Record
		rewinds map[string]map[int32]kgo.EpochOffset
		wg      sync.WaitGroup
		sem     = make(chan struct{}, c.workers)
	)

	for _, partition := range partitions {
		wg.Add(1)
		sem <- struct{}{}
		go func(p kgo.FetchTopicPartition) {
			defer wg.Done()
			defer func() { <-sem }()

			records, failed := c.processPartition(ctx, p)
			mu.Lock()
			applied = append(applied, records...)
			if failed != nil {
				if rewinds == nil {
					rewinds = make(map[string]map[int32]kgo.EpochOffset)
				}
				if rewinds[failed.Topic] == nil {
					rewinds[failed.Topic] = make(map[int32]kgo.EpochOffset)
				}
				rewinds[failed.Topic][failed.Partition] = kgo.EpochOffset{
					Epoch:  failed.LeaderEpoch,
					Offset: failed.Offset,
				}
			}
			mu.Unlock()
		}(partition)
	}
	wg.Wait()

	if len(applied) > 0 {
		// Commit with a fresh context so a shutdown does not lose the
		// progress of a batch that was already applied.
		commitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.commitRecords(commitCtx, applied...); err != nil {
			// Uncommitted records are redelivered; application is idempotent.
			c.log.Error("offset commit failed, events will be redelivered",
				zap.Int("records", len(applied)),
				zap.Error(err),
			)
		}
	}

	return rewinds
}

// processPartition applies records strictly in arrival order. On the first
// failure it stops and returns the records applied so far plus the failed
// record: committing a later offset would implicitly commit the failed one,
// so the caller rewinds the partition to the failed offset instead.
func (c *Consumer) processPartition(ctx context.Context, p kgo.FetchTopicPartition) ([]*kgo.Record, *kgo.Record) {
	applied := make([]*kgo.Record, 0, len(p.Records))

	for _, record := range p.Records {
		if ctx.Err() != nil {
			return applied, nil
		}
		if err := c.processRecord(ctx, record); err != nil {
			c.eventsFailed.Inc(ctx, attribute.String("topic", record.Topic))
			c.log.Error("failed to apply tenant event, rewinding partition for redelivery",
				zap.String("topic", record.Topic),
				zap.Int32("partition", record.Partition),
				zap.Int64("offset", record.Offset),
				zap.String("key", string(record.Key)),
				zap.Error(err),
			)
			return applied, record
		}
		applied = append(applied, record)
	}

	return applied, nil
}

// processRecord decodes and applies a single event.
func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) error {
	ctx, span := telemetry.StartSpan(ctx, "consumer.tenant_event.apply")
	defer span.End()

	event := &TenantEvent{}
	if err := json.Unmarshal(record.Value, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "undecodable payload")
		return &MalformedEventError{Field: "payload", Reason: err.Error()}
	}
	if event.EventType == "" {
		event.EventType = EventTypeForTopic(record.Topic)
	}

	span.SetAttributes(
		attribute.String("tenant_id", event.TenantID),
		attribute.String("event_type", string(event.EventType)),
		attribute.String("topic", record.Topic),
		attribute.Int64("offset", record.Offset),
	)

	c.log.Info("applying tenant event",
		zap.String("tenant_id", event.TenantID),
		zap.String("event_type", string(event.EventType)),
		zap.String("topic", record.Topic),
		zap.Int32("partition", record.Partition),
		zap.Int64("offset", record.Offset),
	)

	start := time.Now()
	result, err := c.applier.Apply(ctx, event)
	c.applyDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
		attribute.String("event_type", string(event.EventType)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.eventsProcessed.Inc(ctx,
		attribute.String("event_type", string(event.EventType)),
		attribute.String("result", result.String()),
	)
	span.SetStatus(codes.Ok, "")

	return nil
}
