package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	recordDomain "github.com/davicafu/querylab/internal/record/domain"
	sharedEvents "github.com/davicafu/querylab/shared/events"
	sharedCache "github.com/davicafu/querylab/shared/platform/cache"
	sharedUtils "github.com/davicafu/querylab/shared/utils"
)

// RecordConsumer reacciona a los eventos de integración del topic de records.
// Su única responsabilidad es mantener coherente la caché local de lecturas.
type RecordConsumer struct {
	cache sharedCache.Cache
	log   *zap.Logger
}

func NewRecordConsumer(cache sharedCache.Cache, logger *zap.Logger) *RecordConsumer {
	return &RecordConsumer{
		cache: cache,
		log:   logger,
	}
}

func (c *RecordConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event", zap.String("key", key), zap.Error(err))
		return
	}

	switch base.Type {
	case recordDomain.RecordCreated:
		sharedUtils.UnmarshalAndHandle[sharedEvents.RecordCreated](c.log, base.Data, func(evt sharedEvents.RecordCreated) {
			c.log.Info("Record created via event",
				zap.String("record_id", evt.ID.String()),
				zap.String("name", evt.Name),
			)
		})

	case recordDomain.RecordUpdated:
		sharedUtils.UnmarshalAndHandle[sharedEvents.RecordUpdated](c.log, base.Data, func(evt sharedEvents.RecordUpdated) {
			c.invalidate(ctx, evt.ID, "Record updated, cache invalidated")
		})

	case recordDomain.RecordDeleted:
		sharedUtils.UnmarshalAndHandle[sharedEvents.RecordDeleted](c.log, base.Data, func(evt sharedEvents.RecordDeleted) {
			c.invalidate(ctx, evt.ID, "Record deleted, cache invalidated")
		})

	default:
		c.log.Warn("Unknown event type", zap.String("type", base.Type))
	}
}

// invalidate borra la entrada cacheada con un contexto acotado.
func (c *RecordConsumer) invalidate(ctx context.Context, id uuid.UUID, successMsg string) {
	if c.cache == nil {
		return
	}

	ctxCache, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if err := c.cache.Delete(ctxCache, recordDomain.RecordCacheKeyByID(id)); err != nil {
		c.log.Warn("Failed to invalidate cached record",
			zap.String("record_id", id.String()),
			zap.Error(err),
		)
		return
	}
	c.log.Info(successMsg, zap.String("record_id", id.String()))
}

func BackgroundConsumerChan(ctx context.Context, ch <-chan interface{}, consumer *RecordConsumer) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				consumer.log.Info("RecordConsumer stopped")
				return
			case msg := <-ch:
				if payload, ok := msg.([]byte); ok {
					consumer.HandleMessage(ctx, "", payload)
				}
			}
		}
	}()
}
