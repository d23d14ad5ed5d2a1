package payloads

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MonitoringStartedEvent backs event_type journey.monitoring_started.
type MonitoringStartedEvent struct {
	JourneyID          string    `json:"journeyId"`
	UserID             string    `json:"userId"`
	MonitoredJourneyID uuid.UUID `json:"monitoredJourneyId"`
	Origin             string    `json:"origin"`
	Destination        string    `json:"destination"`
	ScheduledDeparture time.Time `json:"scheduledDeparture"`
	CorrelationID      string    `json:"correlationId"`
}

// DelayDetectedEvent backs event_type delay.detected.
type DelayDetectedEvent struct {
	JourneyID     string          `json:"journeyId"`
	AlertID       uuid.UUID       `json:"alertId"`
	UserID        string          `json:"userId"`
	DelayMinutes  int             `json:"delayMinutes"`
	DelayReasons  json.RawMessage `json:"delayReasons,omitempty"`
	CorrelationID string          `json:"correlationId"`
}

// ClaimTriggeredEvent backs event_type claim.triggered.
type ClaimTriggeredEvent struct {
	AlertID         uuid.UUID `json:"alertId"`
	JourneyID       string    `json:"journeyId"`
	UserID          string    `json:"userId"`
	ClaimReferenceID string   `json:"claimReferenceId"`
	DelayMinutes    int       `json:"delayMinutes"`
	CorrelationID   string    `json:"correlationId"`
}

// JourneyCompletedEvent backs event_type journey.completed.
type JourneyCompletedEvent struct {
	JourneyID     string    `json:"journeyId"`
	UserID        string    `json:"userId"`
	CompletedAt   time.Time `json:"completedAt"`
	HadDelay      bool      `json:"hadDelay"`
	DelayMinutes  *int      `json:"delayMinutes,omitempty"`
	CorrelationID string    `json:"correlationId"`
}

// JourneyCancelledEvent backs event_type journey.cancelled.
type JourneyCancelledEvent struct {
	JourneyID     string `json:"journeyId"`
	UserID        string `json:"userId"`
	CorrelationID string `json:"correlationId"`
}
