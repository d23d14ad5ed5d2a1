package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateMonitoredJourney OutboxAggregateType = "monitored_journey"
	AggregateDelayAlert       OutboxAggregateType = "delay_alert"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateMonitoredJourney,
	AggregateDelayAlert,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventJourneyMonitoringStarted OutboxEventType = "journey.monitoring_started"
	EventDelayDetected            OutboxEventType = "delay.detected"
	EventClaimTriggered           OutboxEventType = "claim.triggered"
	EventJourneyCompleted         OutboxEventType = "journey.completed"
	EventJourneyCancelled         OutboxEventType = "journey.cancelled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventJourneyMonitoringStarted,
	EventDelayDetected,
	EventClaimTriggered,
	EventJourneyCompleted,
	EventJourneyCancelled,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxStatus maps to the outbox status column's check constraint.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusPublished  OutboxStatus = "published"
	OutboxStatusFailed     OutboxStatus = "failed"
)

var validOutboxStatuses = []OutboxStatus{
	OutboxStatusPending,
	OutboxStatusProcessing,
	OutboxStatusProcessed,
	OutboxStatusPublished,
	OutboxStatusFailed,
}

// IsValid reports whether the value matches the canonical outbox status enum.
func (s OutboxStatus) IsValid() bool {
	for _, candidate := range validOutboxStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOutboxStatus converts raw input into an OutboxStatus.
func ParseOutboxStatus(value string) (OutboxStatus, error) {
	for _, candidate := range validOutboxStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox status %q", value)
}
