package models

// Seat is a fixed identity slot in a duel.
type Seat string

const (
	SeatPlayer1 Seat = "player1"
	SeatPlayer2 Seat = "player2"
	SeatBot     Seat = "bot"
)

// Valid reports whether s names one of the three known seats.
func (s Seat) Valid() bool {
	return s == SeatPlayer1 || s == SeatPlayer2 || s == SeatBot
}

// PlayerState is one seat's full zone state inside a duel.
type PlayerState struct {
	Seat     Seat   `json:"seat"`
	PlayerID string `json:"playerId,omitempty"` // opaque caller identity, e.g. a chat user id
	Name     string `json:"name,omitempty"`

	HP          int             `json:"hp"`
	Hand        []*CardInstance `json:"hand"`
	Deck        []*CardInstance `json:"deck"`
	DiscardPile []*CardInstance `json:"discardPile"`
	Field       []*CardInstance `json:"field"`

	CardsPlayed int `json:"cardsPlayed"`
	DamageDealt int `json:"damageDealt"`
}

// TotalCards counts every card the player owns across all zones.
func (p *PlayerState) TotalCards() int {
	return len(p.Hand) + len(p.Deck) + len(p.DiscardPile) + len(p.Field)
}

// Clone deep-copies the player, zones included.
func (p *PlayerState) Clone() *PlayerState {
	cp := *p
	cp.Hand = CloneCards(p.Hand)
	cp.Deck = CloneCards(p.Deck)
	cp.DiscardPile = CloneCards(p.DiscardPile)
	cp.Field = CloneCards(p.Field)
	return &cp
}
