package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/railwatch/delay-tracker/pkg/db/models"
	"github.com/railwatch/delay-tracker/pkg/enums"
	"github.com/railwatch/delay-tracker/pkg/logger"
	"github.com/railwatch/delay-tracker/pkg/outbox/payloads"
)

// Service is the Outbox Publisher's typed-builder half: one method per
// event_type, each writing exactly one OutboxEvent row with a well-defined
// aggregate_type/aggregate_id/payload schema. The relay half (ProcessOutbox,
// RetryFailedEvents) lives in cmd/outbox-publisher, which consumes the rows
// these builders produce.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService builds an outbox publisher bound to the given repository.
func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

func (s *Service) insert(tx *gorm.DB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID, correlationID string, data interface{}) error {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	envelope := PayloadEnvelope{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       dataJSON,
	}
	envelopeJSON, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope for %s: %w", eventType, err)
	}
	row := &models.OutboxEvent{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       envelopeJSON,
		CorrelationID: correlationID,
	}
	return s.repo.Create(tx, row)
}

// MonitoringStartedParams carries the fields needed to build the
// journey.monitoring_started event.
type MonitoringStartedParams struct {
	Journey       *models.MonitoredJourney
	CorrelationID string
}

// EmitMonitoringStarted writes the journey.monitoring_started event.
func (s *Service) EmitMonitoringStarted(tx *gorm.DB, p MonitoringStartedParams) error {
	data := payloads.MonitoringStartedEvent{
		JourneyID:          p.Journey.JourneyID,
		UserID:             p.Journey.UserID,
		MonitoredJourneyID: p.Journey.ID,
		Origin:             p.Journey.OriginCode,
		Destination:        p.Journey.DestinationCode,
		ScheduledDeparture: p.Journey.ScheduledDeparture,
		CorrelationID:      p.CorrelationID,
	}
	return s.insert(tx, enums.EventJourneyMonitoringStarted, enums.AggregateMonitoredJourney, p.Journey.ID, p.CorrelationID, data)
}

// DelayDetectedParams carries the fields needed to build the delay.detected event.
type DelayDetectedParams struct {
	Journey       *models.MonitoredJourney
	Alert         *models.DelayAlert
	CorrelationID string
}

// EmitDelayDetected writes the delay.detected event.
func (s *Service) EmitDelayDetected(tx *gorm.DB, p DelayDetectedParams) error {
	data := payloads.DelayDetectedEvent{
		JourneyID:     p.Journey.JourneyID,
		AlertID:       p.Alert.ID,
		UserID:        p.Journey.UserID,
		DelayMinutes:  p.Alert.DelayMinutes,
		DelayReasons:  p.Alert.DelayReasons,
		CorrelationID: p.CorrelationID,
	}
	return s.insert(tx, enums.EventDelayDetected, enums.AggregateDelayAlert, p.Alert.ID, p.CorrelationID, data)
}

// ClaimTriggeredParams carries the fields needed to build the claim.triggered event.
type ClaimTriggeredParams struct {
	Journey          *models.MonitoredJourney
	Alert            *models.DelayAlert
	ClaimReferenceID string
	CorrelationID    string
}

// EmitClaimTriggered writes the claim.triggered event.
func (s *Service) EmitClaimTriggered(tx *gorm.DB, p ClaimTriggeredParams) error {
	data := payloads.ClaimTriggeredEvent{
		AlertID:          p.Alert.ID,
		JourneyID:        p.Journey.JourneyID,
		UserID:           p.Journey.UserID,
		ClaimReferenceID: p.ClaimReferenceID,
		DelayMinutes:     p.Alert.DelayMinutes,
		CorrelationID:    p.CorrelationID,
	}
	return s.insert(tx, enums.EventClaimTriggered, enums.AggregateDelayAlert, p.Alert.ID, p.CorrelationID, data)
}

// JourneyCompletedParams carries the fields needed to build the journey.completed event.
type JourneyCompletedParams struct {
	Journey       *models.MonitoredJourney
	CompletedAt   time.Time
	HadDelay      bool
	DelayMinutes  *int
	CorrelationID string
}

// EmitJourneyCompleted writes the journey.completed event.
func (s *Service) EmitJourneyCompleted(tx *gorm.DB, p JourneyCompletedParams) error {
	data := payloads.JourneyCompletedEvent{
		JourneyID:     p.Journey.JourneyID,
		UserID:        p.Journey.UserID,
		CompletedAt:   p.CompletedAt,
		HadDelay:      p.HadDelay,
		DelayMinutes:  p.DelayMinutes,
		CorrelationID: p.CorrelationID,
	}
	return s.insert(tx, enums.EventJourneyCompleted, enums.AggregateMonitoredJourney, p.Journey.ID, p.CorrelationID, data)
}

// JourneyCancelledParams carries the fields needed to build the journey.cancelled event.
type JourneyCancelledParams struct {
	Journey       *models.MonitoredJourney
	CorrelationID string
}

// EmitJourneyCancelled writes the journey.cancelled event.
func (s *Service) EmitJourneyCancelled(tx *gorm.DB, p JourneyCancelledParams) error {
	data := payloads.JourneyCancelledEvent{
		JourneyID:     p.Journey.JourneyID,
		UserID:        p.Journey.UserID,
		CorrelationID: p.CorrelationID,
	}
	return s.insert(tx, enums.EventJourneyCancelled, enums.AggregateMonitoredJourney, p.Journey.ID, p.CorrelationID, data)
}
