package models

// DuelEventRecord is one state transition of a duel, in order. It is what the
// publisher pushes to the Redis queue and what the historian stores.
type DuelEventRecord struct {
	SessionID     string                 `json:"session_id"`
	ActionIndex   int                    `json:"action_index"`
	Seat          Seat                   `json:"seat,omitempty"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"` // epoch millis
}
