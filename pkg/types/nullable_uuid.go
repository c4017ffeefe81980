package types

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// NullableUUID tracks whether a UUID field was present in JSON.
// null and "" both decode to a present-but-empty value (a walk-in sale has no customer).
type NullableUUID struct {
	Valid bool
	Value *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	n.Valid = true
	n.Value = nil
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	n.Value = &parsed
	return nil
}

// MarshalJSON renders the value or null.
func (n NullableUUID) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value.String())
}

// Ptr returns the UUID or nil when absent.
func (n NullableUUID) Ptr() *uuid.UUID {
	if n.Value == nil {
		return nil
	}
	id := *n.Value
	return &id
}
