package outbox

import (
	"encoding/json"
	"time"
)

// PayloadEnvelope is the stable JSON structure stored in the outbox payload
// column. It wraps the typed event-specific data with identity metadata that
// every consumer can rely on regardless of event_type.
type PayloadEnvelope struct {
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}
