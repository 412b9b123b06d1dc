package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is stamped on events that do not pick a payload version.
const CurrentVersion = 1

// PayloadEnvelope is the stable payload structure stored in outbox_events
// and published as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

var errEmptyEnvelope = errors.New("empty payload envelope")

// NewEnvelope marshals data and wraps it with a fresh event id.
func NewEnvelope(version int, occurredAt time.Time, data any) (PayloadEnvelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode event data: %w", err)
	}
	if version <= 0 {
		version = CurrentVersion
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		Data:       raw,
	}, nil
}

// DecodeEnvelope parses a stored or published envelope. A missing version
// is read as CurrentVersion.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	if len(raw) == 0 {
		return PayloadEnvelope{}, errEmptyEnvelope
	}
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode payload envelope: %w", err)
	}
	if env.Version <= 0 {
		env.Version = CurrentVersion
	}
	return env, nil
}
