package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ClaimTriggerRequest is the body sent to the oracle's trigger endpoint.
type ClaimTriggerRequest struct {
	DelayAlertID string          `json:"delay_alert_id"`
	JourneyID    string          `json:"journey_id"`
	UserID       string          `json:"user_id"`
	DelayMinutes int             `json:"delay_minutes"`
	DelayReasons json.RawMessage `json:"delay_reasons,omitempty"`
}

// ClaimTriggerResponse is the oracle's verdict on a trigger attempt. A
// non-2xx HTTP response is mapped into this same shape rather than raised,
// since eligibility is a business outcome the Claim Trigger classifies, not
// a transport failure.
type ClaimTriggerResponse struct {
	Success               bool     `json:"success"`
	ClaimReferenceID      *string  `json:"claim_reference_id"`
	Message               string   `json:"message,omitempty"`
	Eligible              *bool    `json:"eligible,omitempty"`
	EstimatedCompensation *float64 `json:"estimated_compensation,omitempty"`
	Error                 string   `json:"error,omitempty"`
}

// EligibilityRequest is the body sent to the oracle's eligibility-check endpoint.
type EligibilityRequest struct {
	UserID       string `json:"user_id"`
	JourneyID    string `json:"journey_id"`
	DelayMinutes int    `json:"delay_minutes"`
}

// EligibilityResponse is the oracle's answer to a pre-flight eligibility check.
type EligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// ClaimsOracleClient talks to the claims oracle's trigger and eligibility
// endpoints.
type ClaimsOracleClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewClaimsOracleClient builds a client bound to baseURL with the given
// per-request timeout.
func NewClaimsOracleClient(baseURL string, timeout time.Duration) *ClaimsOracleClient {
	return &ClaimsOracleClient{
		httpClient: newHTTPClient(timeout),
		baseURL:    normalizeBaseURL(baseURL),
	}
}

// TriggerClaim asks the oracle to trigger a claim for an alert. It returns
// a non-nil error for a network/timeout/connection failure, and also when
// the request cannot be encoded or built or a 2xx response body cannot be
// decoded; a non-2xx HTTP response is returned as a populated,
// success=false response instead.
func (c *ClaimsOracleClient) TriggerClaim(ctx context.Context, req ClaimTriggerRequest) (*ClaimTriggerResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal claim trigger request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/claims/trigger", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build claim trigger request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, errors.New("network error: claim trigger request timeout")
		}
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &ClaimTriggerResponse{
			Success: false,
			Error:   fmt.Sprintf("API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			Message: string(body),
		}, nil
	}

	var decoded ClaimTriggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode claim trigger response: %w", err)
	}
	return &decoded, nil
}

// CheckEligibility asks the oracle whether a delay of the given size is
// claim-eligible without actually triggering a claim. Unlike TriggerClaim,
// a request timeout is raised rather than folded into the response.
func (c *ClaimsOracleClient) CheckEligibility(ctx context.Context, req EligibilityRequest) (*EligibilityResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal eligibility request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/eligibility/check", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build eligibility request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, errors.New("Eligibility API request timeout")
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &EligibilityResponse{
			Eligible: false,
			Reason:   fmt.Sprintf("API error: %d", resp.StatusCode),
		}, nil
	}

	var decoded EligibilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode eligibility response: %w", err)
	}
	return &decoded, nil
}
