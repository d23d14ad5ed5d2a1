package detection

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/railwatch/delay-tracker/internal/clients"
	"github.com/railwatch/delay-tracker/pkg/db/models"
	"github.com/railwatch/delay-tracker/pkg/enums"
	"github.com/railwatch/delay-tracker/pkg/outbox/idempotency"
)

// idempotencyConsumer scopes the claims-oracle idempotency cache key space.
const idempotencyConsumer = "claims-oracle-trigger"

// ClaimTriggerResult is the Claim Trigger's verdict for one alert: the
// classified outcome, plus whatever reference/response data accompanies it.
type ClaimTriggerResult struct {
	Outcome               enums.ClaimOutcome
	ClaimReferenceID      *string
	EstimatedCompensation *float64
	ResponseJSON          json.RawMessage
}

// ClaimTrigger runs the local pre-checks and, when neither short-circuits,
// calls the claims oracle and classifies its response.
type ClaimTrigger struct {
	oracle           *clients.ClaimsOracleClient
	thresholdMinutes int

	// idempotency is an optional additive guard against re-triggering the
	// same alert within the cache TTL; the persisted alert.ClaimTriggered
	// flag is already sufficient for correctness without it.
	idempotency *idempotency.Manager
}

// NewClaimTrigger builds a Claim Trigger bound to the given oracle client.
func NewClaimTrigger(oracle *clients.ClaimsOracleClient, thresholdMinutes int) *ClaimTrigger {
	return &ClaimTrigger{oracle: oracle, thresholdMinutes: thresholdMinutes}
}

// WithIdempotency attaches an idempotency cache and returns the same
// ClaimTrigger for chaining.
func (c *ClaimTrigger) WithIdempotency(manager *idempotency.Manager) *ClaimTrigger {
	c.idempotency = manager
	return c
}

// Trigger classifies and, if warranted, attempts a claim trigger for a
// single alert.
func (c *ClaimTrigger) Trigger(ctx context.Context, journey *models.MonitoredJourney, alert *models.DelayAlert) (*ClaimTriggerResult, error) {
	if alert.ClaimTriggered {
		return &ClaimTriggerResult{
			Outcome:          enums.ClaimOutcomeAlreadyTriggered,
			ClaimReferenceID: alert.ClaimReferenceID,
		}, nil
	}
	if alert.DelayMinutes < c.thresholdMinutes {
		return &ClaimTriggerResult{Outcome: enums.ClaimOutcomeBelowThreshold}, nil
	}

	if c.idempotency != nil {
		alreadyProcessed, err := c.idempotency.CheckAndMarkProcessed(ctx, idempotencyConsumer, alert.ID)
		if err != nil {
			return nil, err
		}
		if alreadyProcessed {
			return &ClaimTriggerResult{Outcome: enums.ClaimOutcomeAlreadyTriggered}, nil
		}
	}

	resp, err := c.oracle.TriggerClaim(ctx, clients.ClaimTriggerRequest{
		DelayAlertID: alert.ID.String(),
		JourneyID:    journey.JourneyID,
		UserID:       journey.UserID,
		DelayMinutes: alert.DelayMinutes,
		DelayReasons: alert.DelayReasons,
	})
	if err != nil {
		c.forgetIdempotency(ctx, alert.ID)
		return &ClaimTriggerResult{Outcome: enums.ClaimOutcomeNetworkError}, nil
	}

	return classifyOracleResponse(resp), nil
}

// forgetIdempotency clears the idempotency mark after a network failure so a
// genuinely failed attempt gets a real retry rather than being swallowed by
// the cache for its full TTL.
func (c *ClaimTrigger) forgetIdempotency(ctx context.Context, alertID uuid.UUID) {
	if c.idempotency == nil {
		return
	}
	_ = c.idempotency.Delete(ctx, idempotencyConsumer, alertID)
}

// TriggerBatch runs Trigger for each alert sequentially; one alert's
// failure never short-circuits the remainder of the batch.
func (c *ClaimTrigger) TriggerBatch(ctx context.Context, pairs []JourneyAlertPair) []BatchClaimResult {
	results := make([]BatchClaimResult, 0, len(pairs))
	for _, pair := range pairs {
		result, err := c.Trigger(ctx, pair.Journey, pair.Alert)
		results = append(results, BatchClaimResult{
			AlertID: pair.Alert.ID,
			Result:  result,
			Err:     err,
		})
	}
	return results
}

// JourneyAlertPair binds an alert to the journey it belongs to, for batch
// claim-trigger processing.
type JourneyAlertPair struct {
	Journey *models.MonitoredJourney
	Alert   *models.DelayAlert
}

// BatchClaimResult is one entry in a TriggerBatch response.
type BatchClaimResult struct {
	AlertID uuid.UUID
	Result  *ClaimTriggerResult
	Err     error
}

func classifyOracleResponse(resp *clients.ClaimTriggerResponse) *ClaimTriggerResult {
	responseJSON, _ := json.Marshal(resp)
	result := &ClaimTriggerResult{ResponseJSON: responseJSON}

	switch {
	case resp.Success && (resp.Eligible == nil || *resp.Eligible) && resp.ClaimReferenceID != nil:
		result.Outcome = enums.ClaimOutcomeSuccess
		result.ClaimReferenceID = resp.ClaimReferenceID
		result.EstimatedCompensation = resp.EstimatedCompensation
	case !resp.Success && resp.ClaimReferenceID != nil:
		result.Outcome = enums.ClaimOutcomeDuplicateClaim
		result.ClaimReferenceID = resp.ClaimReferenceID
	case !resp.Success:
		// success=false with no reference id is a service-level failure, not
		// an eligibility verdict, even when the response also carries
		// eligible=false — NOT_ELIGIBLE is scoped to success=true/absent.
		result.Outcome = enums.ClaimOutcomeServiceError
	case resp.Eligible != nil && !*resp.Eligible:
		result.Outcome = enums.ClaimOutcomeNotEligible
	default:
		result.Outcome = enums.ClaimOutcomeServiceError
	}
	return result
}
