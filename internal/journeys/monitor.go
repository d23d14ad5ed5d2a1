package journeys

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/railwatch/delay-tracker/pkg/db"
	"github.com/railwatch/delay-tracker/pkg/db/models"
	apperrors "github.com/railwatch/delay-tracker/pkg/errors"
	"github.com/railwatch/delay-tracker/pkg/enums"
)

const journeyIDUniqueConstraint = "ux_monitored_journeys_journey_id"

// registrationHorizon is the lookahead beyond which a newly registered
// journey is not checked until it gets within range of departure.
const registrationHorizon = 48 * time.Hour

// defaultTickInterval backs the periodic-touch scheduling rule when the
// caller does not supply one (Monitor.tickInterval defaults to this).
const defaultTickInterval = 5 * time.Minute

// allowedTransitions is the Journey Monitor's lifecycle state machine.
var allowedTransitions = map[enums.MonitoringStatus]map[enums.MonitoringStatus]bool{
	enums.MonitoringStatusPendingRID: {
		enums.MonitoringStatusActive:    true,
		enums.MonitoringStatusCancelled: true,
	},
	enums.MonitoringStatusActive: {
		enums.MonitoringStatusDelayed:   true,
		enums.MonitoringStatusCompleted: true,
		enums.MonitoringStatusCancelled: true,
	},
	enums.MonitoringStatusDelayed: {
		enums.MonitoringStatusCompleted: true,
		enums.MonitoringStatusCancelled: true,
	},
}

// InvalidTransitionError reports a disallowed monitoring_status move.
type InvalidTransitionError struct {
	From enums.MonitoringStatus
	To   enums.MonitoringStatus
}

func (e *InvalidTransitionError) Error() string {
	return "journeys: invalid transition from " + string(e.From) + " to " + string(e.To)
}

// CanTransition reports whether from→to is a permitted state-machine edge.
func CanTransition(from, to enums.MonitoringStatus) bool {
	edges, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// Monitor owns the monitored-journey lifecycle state machine and the
// next_check_at scheduling policy, the two responsibilities this service
// has final say over: no caller computes a schedule or applies a transition
// directly against the repository.
type Monitor struct {
	repo         *Repository
	tickInterval time.Duration
}

// NewMonitor builds a Journey Monitor. A zero tickInterval defaults to 5 min.
func NewMonitor(repo *Repository, tickInterval time.Duration) *Monitor {
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	return &Monitor{repo: repo, tickInterval: tickInterval}
}

// RegisterJourneyParams carries the fields needed to register a new journey.
type RegisterJourneyParams struct {
	JourneyID          string
	UserID             string
	ServiceDate        time.Time
	OriginCode         string
	DestinationCode    string
	ScheduledDeparture time.Time
	ScheduledArrival   time.Time
	Now                time.Time
}

// RegisterJourney inserts a new monitored journey in status pending_rid,
// computing its initial next_check_at per the registration scheduling rule.
// It rejects with a Conflict application error if journey_id already exists.
func (m *Monitor) RegisterJourney(ctx context.Context, tx *gorm.DB, p RegisterJourneyParams) (*models.MonitoredJourney, error) {
	next := m.registrationNextCheck(p.ScheduledDeparture, p.Now)
	journey := &models.MonitoredJourney{
		JourneyID:          p.JourneyID,
		UserID:             p.UserID,
		ServiceDate:        p.ServiceDate,
		OriginCode:         p.OriginCode,
		DestinationCode:    p.DestinationCode,
		ScheduledDeparture: p.ScheduledDeparture,
		ScheduledArrival:   p.ScheduledArrival,
		MonitoringStatus:   enums.MonitoringStatusPendingRID,
		NextCheckAt:        &next,
	}
	if err := m.repo.Create(tx, journey); err != nil {
		if db.IsUniqueViolation(err, journeyIDUniqueConstraint) {
			return nil, apperrors.New(apperrors.CodeConflict, "journey already registered").WithDetails(map[string]string{
				"journeyId": p.JourneyID,
			})
		}
		return nil, err
	}
	return journey, nil
}

// registrationNextCheck implements the registration scheduling rule: if
// departure is more than 48h out, wait until 48h before departure; otherwise
// start checking on the next tick.
func (m *Monitor) registrationNextCheck(scheduledDeparture, now time.Time) time.Time {
	if scheduledDeparture.Sub(now) > registrationHorizon {
		return scheduledDeparture.Add(-registrationHorizon)
	}
	return now.Add(m.tickInterval)
}

// ResolveRID transitions a journey from pending_rid to active, stamping the
// resolved rid and setting next_check_at to now for an immediate first
// delay check on the following tick.
func (m *Monitor) ResolveRID(tx *gorm.DB, id uuid.UUID, current enums.MonitoringStatus, rid string, now time.Time) error {
	if !CanTransition(current, enums.MonitoringStatusActive) {
		return &InvalidTransitionError{From: current, To: enums.MonitoringStatusActive}
	}
	if err := m.repo.UpdateStatus(tx, id, enums.MonitoringStatusActive, &rid); err != nil {
		return err
	}
	return m.repo.Update(tx, id, map[string]any{"next_check_at": now})
}

// TouchWithoutTransition advances next_check_at without changing
// monitoring_status, per the periodic-touch scheduling rule.
func (m *Monitor) TouchWithoutTransition(tx *gorm.DB, id uuid.UUID, now time.Time) error {
	next := now.Add(m.tickInterval)
	return m.repo.Update(tx, id, map[string]any{
		"last_checked_at": now,
		"next_check_at":   next,
	})
}

// TransitionTo moves a journey to a new monitoring_status, enforcing the
// allowed-transition table and nulling next_check_at on arrival at a
// terminal state.
func (m *Monitor) TransitionTo(tx *gorm.DB, id uuid.UUID, current, target enums.MonitoringStatus) error {
	if !CanTransition(current, target) {
		return &InvalidTransitionError{From: current, To: target}
	}
	if err := m.repo.UpdateStatus(tx, id, target, nil); err != nil {
		return err
	}
	if target.IsTerminal() {
		return m.repo.Update(tx, id, map[string]any{"next_check_at": nil})
	}
	return nil
}

// TickInterval exposes the configured periodic-touch cadence.
func (m *Monitor) TickInterval() time.Duration {
	return m.tickInterval
}
