package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies where the event originated (API request, cron job, seeding).
type ActorRef struct {
	Source    string `json:"source"`
	RequestID string `json:"requestId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
