package enums

// ClaimOutcome classifies the result of a claim-trigger attempt against the
// claims oracle, including the local pre-check short-circuits.
type ClaimOutcome string

const (
	ClaimOutcomeSuccess          ClaimOutcome = "SUCCESS"
	ClaimOutcomeAlreadyTriggered ClaimOutcome = "ALREADY_TRIGGERED"
	ClaimOutcomeBelowThreshold   ClaimOutcome = "BELOW_THRESHOLD"
	ClaimOutcomeDuplicateClaim   ClaimOutcome = "DUPLICATE_CLAIM"
	ClaimOutcomeNotEligible      ClaimOutcome = "NOT_ELIGIBLE"
	ClaimOutcomeServiceError     ClaimOutcome = "SERVICE_ERROR"
	ClaimOutcomeNetworkError     ClaimOutcome = "NETWORK_ERROR"
)

// IsSuccess reports whether the outcome resulted in a triggered claim.
func (c ClaimOutcome) IsSuccess() bool {
	return c == ClaimOutcomeSuccess
}

// Retryable reports whether a future cycle should attempt the claim again.
// Only a transport-level failure is retryable; business outcomes (including
// the oracle's own rejection) are not.
func (c ClaimOutcome) Retryable() bool {
	return c == ClaimOutcomeNetworkError
}
