package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/railwatch/delay-tracker/pkg/enums"
)

// OutboxDLQ captures outbox rows that exhausted their retry budget or failed
// with a non-retryable error, so operators can inspect what never reached
// the bus. Supplemental to the
// outbox table itself; see pkg/outbox for the relay that populates it.
type OutboxDLQ struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID                  `gorm:"column:event_id;type:uuid;not null"`
	EventType     enums.OutboxEventType      `gorm:"column:event_type;type:event_type_enum;not null"`
	AggregateType enums.OutboxAggregateType  `gorm:"column:aggregate_type;type:aggregate_type_enum;not null"`
	AggregateID   uuid.UUID                  `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage            `gorm:"column:payload;type:jsonb;not null"`
	ErrorReason   enums.OutboxDLQErrorReason `gorm:"column:error_reason;type:outbox_dlq_error_reason_enum;not null"`
	ErrorMessage  *string                    `gorm:"column:error_message"`
	RetryCount    int                        `gorm:"column:retry_count;not null;default:0"`
	FailedAt      time.Time                  `gorm:"column:failed_at;autoCreateTime"`
}

// TableName pins the GORM table to the delay_tracker schema.
func (OutboxDLQ) TableName() string {
	return "delay_tracker.outbox_dlq"
}
