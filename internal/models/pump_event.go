package models

import "time"

// Event types recorded by the poller.
const (
	EventPowerChange = "POWER_CHANGE"
	EventModeChange  = "MODE_CHANGE"
)

// PumpEvent is a single state-transition log entry (pump on/off, mode switch).
type PumpEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"` // POWER_CHANGE | MODE_CHANGE
	Description string    `json:"description"`
	ValueBefore string    `json:"value_before,omitempty"`
	ValueAfter  string    `json:"value_after,omitempty"`
}
