// Package event consumes product and activity domain events and feeds them
// into index maintenance.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/service"
	pkgkafka "github.com/elanq/ecommerce-search/pkg/kafka"
)

// Kafka topic constants for domain events consumed by the search service.
const (
	TopicProductCreated   = "ecommerce.product.created"
	TopicProductUpdated   = "ecommerce.product.updated"
	TopicProductDeleted   = "ecommerce.product.deleted"
	TopicActivityRecorded = "ecommerce.activity.recorded"
)

// ProductEventData represents the payload from product domain events.
type ProductEventData struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	WeightGrams   int       `json:"weight_grams"`
	OwnerID       string    `json:"owner_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductDeletedData represents the payload from a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// ActivityEventData represents the payload from an activity.recorded event.
type ActivityEventData struct {
	ProductID    string `json:"product_id"`
	UserID       string `json:"user_id"`
	ActivityType string `json:"activity_type"`
}

// Consumer routes domain events into the index writer, the activity
// service and the cached product read path.
type Consumer struct {
	writer     *service.IndexWriter
	activities *service.ActivityService
	resolver   *service.ProductResolver
	logger     *slog.Logger
}

// NewConsumer creates a new event consumer for the search service.
func NewConsumer(
	writer *service.IndexWriter,
	activities *service.ActivityService,
	resolver *service.ProductResolver,
	logger *slog.Logger,
) *Consumer {
	return &Consumer{
		writer:     writer,
		activities: activities,
		resolver:   resolver,
		logger:     logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		return c.handleProductUpserted(ctx, event)
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	case TopicActivityRecorded:
		return c.handleActivityRecorded(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleProductUpserted queues a re-index for a created or updated product
// and drops its cached response.
func (c *Consumer) handleProductUpserted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	product := &domain.Product{
		ID:            data.ID,
		Name:          data.Name,
		Description:   data.Description,
		Price:         data.Price,
		StockQuantity: data.StockQuantity,
		WeightGrams:   data.WeightGrams,
		OwnerID:       data.OwnerID,
		CreatedAt:     data.CreatedAt,
		UpdatedAt:     data.UpdatedAt,
	}

	c.resolver.Invalidate(ctx, data.ID)
	c.writer.ScheduleIndex(product)

	c.logger.InfoContext(ctx, "queued product index from event",
		slog.String("event_type", event.EventType),
		slog.String("product_id", data.ID),
	)
	return nil
}

// handleProductDeleted queues removal of a deleted product from the index.
func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}

	c.resolver.Invalidate(ctx, data.ID)
	c.writer.ScheduleRemove(data.ID)

	c.logger.InfoContext(ctx, "queued product removal from deleted event",
		slog.String("product_id", data.ID),
	)
	return nil
}

// handleActivityRecorded records an activity coming from another service.
func (c *Consumer) handleActivityRecorded(ctx context.Context, event *pkgkafka.Event) error {
	var data ActivityEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal activity.recorded data: %w", err)
	}

	if err := c.activities.Track(ctx, data.ProductID, data.UserID, domain.ActivityType(data.ActivityType)); err != nil {
		// Malformed activity events are logged and skipped, not retried.
		c.logger.WarnContext(ctx, "invalid activity event skipped",
			slog.String("product_id", data.ProductID),
			slog.String("activity_type", data.ActivityType),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
