package duel

import (
	"time"

	"github.com/jason-s-yu/cardduel/internal/models"
)

// View is a deep copy of a duel for rendering. It shares nothing with the
// live duel.
type View struct {
	SessionID      string                              `json:"sessionId"`
	Mode           models.DuelMode                     `json:"mode"`
	Status         Status                              `json:"status"`
	CurrentPlayer  models.Seat                         `json:"currentPlayer"`
	TurnCount      int                                 `json:"turnCount"`
	Winner         models.Seat                         `json:"winner,omitempty"`
	Wager          int                                 `json:"wager"`
	SpectatorCount int                                 `json:"spectatorCount"`
	StartedAt      time.Time                           `json:"startedAt"`
	EndedAt        time.Time                           `json:"endedAt,omitzero"`
	LastBotAction  string                              `json:"lastBotAction,omitempty"`
	Players        map[models.Seat]*models.PlayerState `json:"players"`
	DeckSizes      map[models.Seat]int                 `json:"deckSizes"`
}

// GetState snapshots the duel. With redact set, every hand and deck card is
// replaced by a face-down placeholder so the view is safe for spectators.
func (d *Duel) GetState(redact bool) View {
	v := View{
		SessionID:      d.ID,
		Mode:           d.Mode,
		Status:         d.Status,
		CurrentPlayer:  d.CurrentPlayer,
		TurnCount:      d.TurnCount,
		Winner:         d.Winner,
		Wager:          d.Wager,
		SpectatorCount: len(d.Spectators),
		StartedAt:      d.StartedAt,
		EndedAt:        d.EndedAt,
		LastBotAction:  d.LastBotAction,
		Players:        make(map[models.Seat]*models.PlayerState, len(d.Players)),
		DeckSizes:      make(map[models.Seat]int, len(d.Players)),
	}
	for seat, p := range d.Players {
		cp := p.Clone()
		if redact {
			cp.Hand = placeholders(len(cp.Hand))
			cp.Deck = placeholders(len(cp.Deck))
		}
		v.Players[seat] = cp
		v.DeckSizes[seat] = len(p.Deck)
	}
	return v
}

func placeholders(n int) []*models.CardInstance {
	out := make([]*models.CardInstance, n)
	for i := range out {
		out[i] = &models.CardInstance{CardID: models.PlaceholderCardID, IsFaceDown: true}
	}
	return out
}
