// internal/models/summary.go
package models

import "time"

// DuelMode distinguishes bot practice from player-vs-player duels.
type DuelMode string

const (
	ModePractice DuelMode = "practice"
	ModePvP      DuelMode = "pvp"
)

// SeatResult is the frozen per-seat outcome handed to the summary writer.
type SeatResult struct {
	Seat        Seat   `json:"seat"`
	PlayerID    string `json:"playerId,omitempty"`
	Name        string `json:"name,omitempty"`
	HP          int    `json:"hp"`
	CardsPlayed int    `json:"cardsPlayed"`
	DamageDealt int    `json:"damageDealt"`
}

// DuelResult is produced exactly once when a duel transitions to ended.
type DuelResult struct {
	SessionID  string       `json:"sessionId"`
	Mode       DuelMode     `json:"mode"`
	WinnerSeat Seat         `json:"winnerSeat,omitempty"` // empty on a draw
	WinnerID   string       `json:"winnerId,omitempty"`
	Wager      int          `json:"wager"`
	Seats      []SeatResult `json:"seats"`
	Events     []string     `json:"events"`
	Spectators []string     `json:"spectators,omitempty"`
	StartedAt  time.Time    `json:"startedAt"`
	EndedAt    time.Time    `json:"endedAt"`
}

// Summary is the immutable record persisted under data/summaries/<duelId>.json.
type Summary struct {
	DuelID    string               `json:"duelId"`
	SessionID string               `json:"sessionId"`
	Mode      DuelMode             `json:"mode"`
	Winner    Seat                 `json:"winner"` // empty string when nobody won
	WinnerID  string               `json:"winnerId,omitempty"`
	Wager     int                  `json:"wager"`
	Players   map[Seat]SummarySeat `json:"players"`
	Events    []string             `json:"events"`
	StartedAt time.Time            `json:"startedAt"`
	Timestamp time.Time            `json:"timestamp"`
}

// SummarySeat is one seat's line in a Summary.
type SummarySeat struct {
	PlayerID    string `json:"playerId,omitempty"`
	Name        string `json:"name,omitempty"`
	HP          int    `json:"hp"`
	CardsPlayed int    `json:"cardsPlayed"`
	DamageDealt int    `json:"damageDealt"`
}

// PlayerStats is the rolling win/loss record kept per opaque player id.
type PlayerStats struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// SpectatorArchiveEntry records the spectators of a duel that was reseeded or ended.
type SpectatorArchiveEntry struct {
	SessionID  string    `json:"sessionId"`
	Reason     string    `json:"reason"`
	Spectators []string  `json:"spectators"`
	ArchivedAt time.Time `json:"archivedAt"`
}
