package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DelayAlert is one row per detected delay event against a monitored journey.
type DelayAlert struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MonitoredJourneyID    uuid.UUID       `gorm:"column:monitored_journey_id;type:uuid;not null;index:ix_delay_alerts_journey_id"`
	DelayMinutes          int             `gorm:"column:delay_minutes;not null"`
	DelayDetectedAt       time.Time       `gorm:"column:delay_detected_at;not null"`
	DelayReasons          json.RawMessage `gorm:"column:delay_reasons;type:jsonb"`
	IsCancellation        bool            `gorm:"column:is_cancellation;not null;default:false"`
	ThresholdExceeded     bool            `gorm:"column:threshold_exceeded;not null;default:false"`
	ClaimTriggered        bool            `gorm:"column:claim_triggered;not null;default:false"`
	ClaimTriggeredAt      *time.Time      `gorm:"column:claim_triggered_at"`
	ClaimReferenceID      *string         `gorm:"column:claim_reference_id"`
	ClaimTriggerResponse  json.RawMessage `gorm:"column:claim_trigger_response;type:jsonb"`
	NotificationSent      bool            `gorm:"column:notification_sent;not null;default:false"`
	NotificationSentAt    *time.Time      `gorm:"column:notification_sent_at"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the GORM table to the delay_tracker schema.
func (DelayAlert) TableName() string {
	return "delay_tracker.delay_alerts"
}
