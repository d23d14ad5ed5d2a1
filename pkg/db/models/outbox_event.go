package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/railwatch/delay-tracker/pkg/enums"
)

// OutboxEvent is a durable, append-only queue entry narrating a domain event.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:aggregate_type_enum;not null"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:event_type_enum;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CorrelationID string                    `gorm:"column:correlation_id;not null"`
	Status        enums.OutboxStatus        `gorm:"column:status;type:outbox_status_enum;not null;default:pending"`
	RetryCount    int                       `gorm:"column:retry_count;not null;default:0"`
	ErrorMessage  *string                   `gorm:"column:error_message"`
	// CreatedAt backs ix_outbox_pending_created_at, a partial index (WHERE
	// status='pending') created by the goose migration; GORM's tag syntax
	// can't express the partial predicate so it isn't declared here.
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

// TableName pins the GORM table to the delay_tracker schema.
func (OutboxEvent) TableName() string {
	return "delay_tracker.outbox"
}
