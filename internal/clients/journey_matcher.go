package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Segment is one leg of a multi-leg journey as resolved by the matcher.
type Segment struct {
	ID                 string    `json:"id"`
	JourneyID          string    `json:"journey_id"`
	Sequence           int       `json:"sequence"`
	RID                *string   `json:"rid"`
	OriginCRS          string    `json:"origin_crs"`
	DestinationCRS     string    `json:"destination_crs"`
	ScheduledDeparture time.Time `json:"scheduled_departure"`
	ScheduledArrival   time.Time `json:"scheduled_arrival"`
	TOCCode            string    `json:"toc_code"`
}

// JourneyWithSegments is the matcher's resolved view of a journey booking.
type JourneyWithSegments struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OriginCRS      string    `json:"origin_crs"`
	DestinationCRS string    `json:"destination_crs"`
	TravelDate     time.Time `json:"travel_date"`
	Status         string    `json:"status"`
	Segments       []Segment `json:"segments"`
}

// NonNullRIDs returns the rid of every segment that has one resolved, in
// segment order.
func (j *JourneyWithSegments) NonNullRIDs() []string {
	if j == nil {
		return nil
	}
	rids := make([]string, 0, len(j.Segments))
	for _, seg := range j.Segments {
		if seg.RID != nil && *seg.RID != "" {
			rids = append(rids, *seg.RID)
		}
	}
	return rids
}

// AllSegmentsResolved reports whether every segment carries a non-null rid.
func (j *JourneyWithSegments) AllSegmentsResolved() bool {
	if j == nil || len(j.Segments) == 0 {
		return false
	}
	for _, seg := range j.Segments {
		if seg.RID == nil || *seg.RID == "" {
			return false
		}
	}
	return true
}

// FirstRID returns the first non-null segment rid in the order the segments
// were returned (it does not sort by Sequence), which is the RID the
// Detection Orchestrator adopts for a multi-segment journey.
func (j *JourneyWithSegments) FirstRID() (string, bool) {
	if j == nil {
		return "", false
	}
	for _, seg := range j.Segments {
		if seg.RID != nil && *seg.RID != "" {
			return *seg.RID, true
		}
	}
	return "", false
}

// JourneyMatcherClient resolves a booking's segment-level rids.
type JourneyMatcherClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewJourneyMatcherClient builds a client bound to baseURL with the given
// per-request timeout.
func NewJourneyMatcherClient(baseURL string, timeout time.Duration) *JourneyMatcherClient {
	return &JourneyMatcherClient{
		httpClient: newHTTPClient(timeout),
		baseURL:    normalizeBaseURL(baseURL),
	}
}

// GetJourneySegments fetches the segment breakdown for journeyID. A 404
// response is not an error: it returns (nil, nil), meaning "not yet known".
func (c *JourneyMatcherClient) GetJourneySegments(ctx context.Context, journeyID string) (*JourneyWithSegments, error) {
	endpoint := fmt.Sprintf("%s/api/v1/journeys/%s/segments", c.baseURL, url.PathEscape(journeyID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build journey segments request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, errors.New("Journey Matcher API request timeout")
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Journey Matcher API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var decoded JourneyWithSegments
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode journey segments response: %w", err)
	}
	return &decoded, nil
}
