package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/railwatch/delay-tracker/internal/clients"
	"github.com/railwatch/delay-tracker/internal/delayalerts"
	"github.com/railwatch/delay-tracker/internal/journeys"
	"github.com/railwatch/delay-tracker/pkg/db"
	"github.com/railwatch/delay-tracker/pkg/db/models"
	"github.com/railwatch/delay-tracker/pkg/enums"
	"github.com/railwatch/delay-tracker/pkg/logger"
	"github.com/railwatch/delay-tracker/pkg/outbox"
)

// defaultDueSetLimit bounds how many journeys one tick examines.
const defaultDueSetLimit = 100

// CycleResult summarizes one orchestrator pass, the shape the Tick
// Scheduler records into its metrics.
type CycleResult struct {
	JourneysChecked int
	DelaysDetected  int
	ClaimsTriggered int
	DurationMS      int64
}

// Orchestrator is the Detection Orchestrator: it drives one tick's worth of
// due-journey processing end to end, from RID resolution through alert
// persistence and outbox emission.
type Orchestrator struct {
	dbClient     *db.Client
	journeyRepo  *journeys.Repository
	monitor      *journeys.Monitor
	alertRepo    *delayalerts.Repository
	matcher      *clients.JourneyMatcherClient
	delaysClient *clients.UpstreamDelaysClient
	detector     *Detector
	claimTrigger *ClaimTrigger
	outboxSvc    *outbox.Service
	logg         *logger.Logger
	dueSetLimit  int
}

// Config bundles the Orchestrator's collaborators.
type Config struct {
	DBClient     *db.Client
	JourneyRepo  *journeys.Repository
	Monitor      *journeys.Monitor
	AlertRepo    *delayalerts.Repository
	Matcher      *clients.JourneyMatcherClient
	DelaysClient *clients.UpstreamDelaysClient
	Detector     *Detector
	ClaimTrigger *ClaimTrigger
	OutboxSvc    *outbox.Service
	Logger       *logger.Logger
	DueSetLimit  int
}

// NewOrchestrator builds a Detection Orchestrator from its collaborators.
func NewOrchestrator(cfg Config) *Orchestrator {
	limit := cfg.DueSetLimit
	if limit <= 0 {
		limit = defaultDueSetLimit
	}
	return &Orchestrator{
		dbClient:     cfg.DBClient,
		journeyRepo:  cfg.JourneyRepo,
		monitor:      cfg.Monitor,
		alertRepo:    cfg.AlertRepo,
		matcher:      cfg.Matcher,
		delaysClient: cfg.DelaysClient,
		detector:     cfg.Detector,
		claimTrigger: cfg.ClaimTrigger,
		outboxSvc:    cfg.OutboxSvc,
		logg:         cfg.Logger,
		dueSetLimit:  limit,
	}
}

// RunCycle executes one full tick: fetch due set, resolve rids, fetch
// delays, classify, commit per journey, and pace the rest.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleResult, error) {
	start := time.Now()
	correlationID := uuid.NewString()
	now := time.Now().UTC()

	due, err := o.journeyRepo.FindDueForCheck(now, o.dueSetLimit)
	if err != nil {
		return CycleResult{}, err
	}
	if len(due) == 0 {
		return CycleResult{DurationMS: time.Since(start).Milliseconds()}, nil
	}

	pendingRID := make([]models.MonitoredJourney, 0, len(due))
	active := make([]models.MonitoredJourney, 0, len(due))
	completedIDs := make([]uuid.UUID, 0)

	// cycleErr accumulates every per-journey failure, and a failed batch
	// delays fetch, without short-circuiting the rest of the tick; one
	// journey's error never stops another's.
	var cycleErr error

	for _, journey := range due {
		switch {
		case now.After(journey.ScheduledArrival):
			if err := o.completeJourney(ctx, &journey, now, correlationID); err != nil {
				o.logError(ctx, "complete journey failed", err)
				cycleErr = multierr.Append(cycleErr, fmt.Errorf("complete journey %s: %w", journey.JourneyID, err))
				continue
			}
			completedIDs = append(completedIDs, journey.ID)
		case journey.MonitoringStatus == enums.MonitoringStatusPendingRID:
			pendingRID = append(pendingRID, journey)
		case journey.MonitoringStatus == enums.MonitoringStatusActive:
			active = append(active, journey)
		}
	}

	pacedIDs := make([]uuid.UUID, 0, len(due))
	// promotedIDs holds journeys whose rid resolved this tick. Spec scenario 2
	// requires next_check_at=now on the journey they were promoted in, with
	// the actual delay check against the fresh rid happening on a later tick
	// — so these are paced to now, not folded into this cycle's active batch.
	promotedIDs := make([]uuid.UUID, 0, len(pendingRID))

	for i := range pendingRID {
		journey := &pendingRID[i]
		_, promoted := o.resolveRID(ctx, journey, now)
		if promoted {
			promotedIDs = append(promotedIDs, journey.ID)
			continue
		}
		pacedIDs = append(pacedIDs, journey.ID)
	}

	ridToJourney := make(map[string]*models.MonitoredJourney, len(active))
	rids := make([]string, 0, len(active))
	for i := range active {
		journey := &active[i]
		if journey.RID == nil || *journey.RID == "" {
			continue
		}
		rids = append(rids, *journey.RID)
		ridToJourney[*journey.RID] = journey
	}

	delaysDetected := 0
	claimsTriggered := 0

	records, err := o.delaysClient.FetchDelays(ctx, rids)
	if err != nil {
		o.logError(ctx, "upstream delays fetch failed", err)
		cycleErr = multierr.Append(cycleErr, fmt.Errorf("fetch delays: %w", err))
		for _, journey := range active {
			pacedIDs = append(pacedIDs, journey.ID)
		}
		return o.finish(start, len(due), delaysDetected, claimsTriggered, pacedIDs, promotedIDs, now, cycleErr)
	}

	for _, journey := range active {
		if journey.RID == nil || *journey.RID == "" {
			pacedIDs = append(pacedIDs, journey.ID)
			continue
		}
		result := o.detector.Classify(*journey.RID, records)
		if result.DataNotFound {
			pacedIDs = append(pacedIDs, journey.ID)
			continue
		}

		if !result.ExceedsThreshold && !result.IsCancelled {
			pacedIDs = append(pacedIDs, journey.ID)
			continue
		}

		j := journey
		triggered, err := o.commitDetection(ctx, &j, result, correlationID)
		if err != nil {
			o.logError(ctx, "per-journey detection commit failed", err)
			cycleErr = multierr.Append(cycleErr, fmt.Errorf("commit detection %s: %w", journey.JourneyID, err))
			pacedIDs = append(pacedIDs, journey.ID)
			continue
		}
		delaysDetected++
		if triggered {
			claimsTriggered++
		}
		// A cancelled journey is terminal; its next_check_at stays null.
		if !result.IsCancelled {
			pacedIDs = append(pacedIDs, journey.ID)
		}
	}

	return o.finish(start, len(due), delaysDetected, claimsTriggered, pacedIDs, promotedIDs, now, cycleErr)
}

// finish applies the paced-forward schedule update and returns the cycle's
// summary. cycleErr, if non-nil, is the multierr-combined set of per-journey
// failures (and of a failed delays fetch) already isolated and logged as
// they happened; it is logged once
// more here as a single diagnostic and never propagated as the return error,
// so one journey's failure never flips an otherwise-successful cycle into
// the Tick Scheduler's "error" outcome. A failure updating next_check_at is
// a genuine batch-level failure and is returned as-is. promotedIDs are paced
// to now rather than now+interval: a journey whose rid just resolved is due
// again essentially immediately, with its first delay check landing on the
// next tick rather than this one.
func (o *Orchestrator) finish(start time.Time, checked, detected, triggered int, pacedIDs, promotedIDs []uuid.UUID, now time.Time, cycleErr error) (CycleResult, error) {
	if cycleErr != nil {
		o.logError(nil, fmt.Sprintf("detection cycle completed with %d per-journey error(s)", len(multierr.Errors(cycleErr))), cycleErr)
	}
	if len(promotedIDs) > 0 {
		if err := o.journeyRepo.UpdateLastChecked(nil, promotedIDs, now, &now); err != nil {
			return CycleResult{}, err
		}
	}
	if len(pacedIDs) > 0 {
		next := now.Add(o.monitor.TickInterval())
		if err := o.journeyRepo.UpdateLastChecked(nil, pacedIDs, now, &next); err != nil {
			return CycleResult{}, err
		}
	}
	return CycleResult{
		JourneysChecked: checked,
		DelaysDetected:  detected,
		ClaimsTriggered: triggered,
		DurationMS:      time.Since(start).Milliseconds(),
	}, nil
}

// completeJourney transitions a journey whose arrival has passed into
// completed, emitting journey.completed, ahead of any delay classification.
func (o *Orchestrator) completeJourney(ctx context.Context, journey *models.MonitoredJourney, now time.Time, correlationID string) error {
	return o.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		hadDelay := journey.MonitoringStatus == enums.MonitoringStatusDelayed
		if err := o.monitor.TransitionTo(tx, journey.ID, journey.MonitoringStatus, enums.MonitoringStatusCompleted); err != nil {
			return err
		}
		return o.outboxSvc.EmitJourneyCompleted(tx, outbox.JourneyCompletedParams{
			Journey:       journey,
			CompletedAt:   now,
			HadDelay:      hadDelay,
			CorrelationID: correlationID,
		})
	})
}

// resolveRID calls the matcher for a pending_rid journey and promotes it to
// active on the first non-null segment rid. On any non-resolution outcome
// it returns promoted=false, leaving the caller to pace it forward.
func (o *Orchestrator) resolveRID(ctx context.Context, journey *models.MonitoredJourney, now time.Time) (*models.MonitoredJourney, bool) {
	resolved, err := o.matcher.GetJourneySegments(ctx, journey.JourneyID)
	if err != nil {
		o.logError(ctx, "matcher call failed", err)
		return nil, false
	}
	if resolved == nil {
		return nil, false
	}
	rid, ok := resolved.FirstRID()
	if !ok {
		return nil, false
	}

	if err := o.monitor.ResolveRID(nil, journey.ID, journey.MonitoringStatus, rid, now); err != nil {
		o.logError(ctx, "resolve rid transition failed", err)
		return nil, false
	}
	journey.MonitoringStatus = enums.MonitoringStatusActive
	journey.RID = &rid
	return journey, true
}

// commitDetection runs the per-journey transaction: alert insert, status
// transition, delay.detected emission, and a conditional claim trigger.
// It returns whether a claim was successfully triggered.
func (o *Orchestrator) commitDetection(ctx context.Context, journey *models.MonitoredJourney, result DetectionResult, correlationID string) (bool, error) {
	claimTriggered := false

	err := o.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		delayMinutes := result.ObservedMinutes
		if delayMinutes < 1 {
			delayMinutes = 1
		}

		alert := &models.DelayAlert{
			MonitoredJourneyID: journey.ID,
			DelayMinutes:       delayMinutes,
			DelayDetectedAt:    time.Now().UTC(),
			DelayReasons:       result.DelayReasons,
			IsCancellation:     result.IsCancelled,
			ThresholdExceeded:  result.ExceedsThreshold,
		}
		if err := o.alertRepo.Create(tx, alert); err != nil {
			return err
		}

		target := enums.MonitoringStatusDelayed
		if result.IsCancelled {
			target = enums.MonitoringStatusCancelled
		}
		if err := o.monitor.TransitionTo(tx, journey.ID, journey.MonitoringStatus, target); err != nil {
			return err
		}

		if err := o.outboxSvc.EmitDelayDetected(tx, outbox.DelayDetectedParams{
			Journey:       journey,
			Alert:         alert,
			CorrelationID: correlationID,
		}); err != nil {
			return err
		}

		if result.ClaimEligible && !result.IsCancelled {
			claimResult, err := o.claimTrigger.Trigger(ctx, journey, alert)
			if err != nil {
				return err
			}
			if claimResult.Outcome == enums.ClaimOutcomeSuccess {
				ref := ""
				if claimResult.ClaimReferenceID != nil {
					ref = *claimResult.ClaimReferenceID
				}
				if err := o.alertRepo.MarkClaimTriggered(tx, alert.ID, ref, claimResult.ResponseJSON); err != nil {
					return err
				}
				if err := o.outboxSvc.EmitClaimTriggered(tx, outbox.ClaimTriggeredParams{
					Journey:          journey,
					Alert:            alert,
					ClaimReferenceID: ref,
					CorrelationID:    correlationID,
				}); err != nil {
					return err
				}
				claimTriggered = true
			} else {
				if err := o.alertRepo.RecordClaimOutcome(tx, alert.ID, claimResult.ResponseJSON); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return false, err
	}
	return claimTriggered, nil
}

func (o *Orchestrator) logError(ctx context.Context, msg string, err error) {
	if o.logg == nil {
		return
	}
	o.logg.Error(ctx, msg, err)
}
