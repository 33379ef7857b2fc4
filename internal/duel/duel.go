// internal/duel/duel.go
package duel

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jason-s-yu/cardduel/internal/catalog"
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/sirupsen/logrus"
)

// Status is the lifecycle state of a Duel.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusActive        Status = "active"
	StatusEnded         Status = "ended"
)

// EventType names a state transition recorded in the duel event log.
type EventType string

const (
	EventDuelStart          EventType = "duel_start"
	EventDraw               EventType = "draw"
	EventRecycle            EventType = "recycle"
	EventExhausted          EventType = "exhausted"
	EventPlayCard           EventType = "play_card"
	EventDiscard            EventType = "discard"
	EventCombo              EventType = "combo"
	EventAdvanceTurn        EventType = "advance_turn"
	EventBotTurn            EventType = "bot_turn"
	EventSpectatorJoin      EventType = "spectator_join"
	EventSpectatorLeave     EventType = "spectator_leave"
	EventSpectatorsArchived EventType = "spectators_archived"
	EventDuelEnd            EventType = "duel_end"
)

var ErrEmptyCatalog = errors.New("catalog has no playable cards")

// Participant is the opaque caller identity seated in a duel.
type Participant struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Duel holds the entire state of a single duel in memory. Methods assume
// Mu is held by the caller; the Manager takes it around every operation.
type Duel struct {
	ID     string
	Mode   models.DuelMode
	Status Status

	Players       map[models.Seat]*models.PlayerState
	Seats         [2]models.Seat // turn order; Seats[0] moves first
	CurrentPlayer models.Seat
	TurnCount     int

	Winner   models.Seat // empty until ended, and on a draw
	WinnerID string
	Wager    int

	Spectators map[string]struct{}
	StartedAt  time.Time
	EndedAt    time.Time

	LastBotAction   string
	LastBotActionAt time.Time

	// Events holds narrative lines for notable moments (combos, exhaustion,
	// forfeits, overrides). They end up in the summary.
	Events []string

	Mu sync.Mutex

	// Rand drives practice deck pulls and recycle shuffles.
	Rand             *rand.Rand
	Weights          catalog.Weights
	PracticeDeckSize int

	OnEvent   func(rec models.DuelEventRecord)
	OnArchive func(entry models.SpectatorArchiveEntry)

	catalog     *catalog.Catalog
	logger      logrus.FieldLogger
	actionIndex int
	now         func() time.Time
}

// New creates an uninitialized duel bound to a catalog.
func New(cat *catalog.Catalog, logger logrus.FieldLogger) *Duel {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Duel{
		Status:           StatusUninitialized,
		Players:          make(map[models.Seat]*models.PlayerState),
		Spectators:       make(map[string]struct{}),
		Rand:             rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		Weights:          catalog.DefaultWeights,
		PracticeDeckSize: DefaultPracticeDeckSize,
		catalog:          cat,
		logger:           logger,
		now:              time.Now,
	}
}

func (d *Duel) log() logrus.FieldLogger {
	return d.logger.WithField("session", d.ID)
}

// StartPractice seats the caller as player1 against the bot. Each seat gets
// a fresh rarity-weighted random deck; duplicates are allowed.
func (d *Duel) StartPractice(player Participant) error {
	if d.catalog == nil || d.catalog.Len() == 0 {
		return ErrEmptyCatalog
	}
	size := d.PracticeDeckSize
	if size <= 0 {
		size = DefaultPracticeDeckSize
	}

	d.archiveSpectators("reseed")
	p1 := newPlayer(models.SeatPlayer1, player, d.catalog.WeightedSample(d.Rand, size, d.Weights))
	bot := newPlayer(models.SeatBot, Participant{Name: "Bot"}, d.catalog.WeightedSample(d.Rand, size, d.Weights))
	d.reset(models.ModePractice, p1, bot, 0)

	d.log().WithField("deck_size", size).Info("practice duel started")
	d.emit(models.SeatPlayer1, EventDuelStart, map[string]interface{}{"mode": string(d.Mode)})
	return nil
}

// StartLive seats two callers with their own decks in the given order. The
// decks are copied; nothing is shuffled. An already active duel has its
// spectators archived before it is reseeded.
func (d *Duel) StartLive(p1, p2 Participant, deck1, deck2 []string, wager int) error {
	if wager < 0 {
		return fmt.Errorf("wager must be non-negative, got %d", wager)
	}
	if err := d.validateDeck(deck1); err != nil {
		return fmt.Errorf("player1 deck: %w", err)
	}
	if err := d.validateDeck(deck2); err != nil {
		return fmt.Errorf("player2 deck: %w", err)
	}

	d.archiveSpectators("reseed")
	d.reset(models.ModePvP,
		newPlayer(models.SeatPlayer1, p1, deck1),
		newPlayer(models.SeatPlayer2, p2, deck2),
		wager,
	)

	d.log().WithFields(logrus.Fields{
		"player1": p1.ID,
		"player2": p2.ID,
		"wager":   wager,
	}).Info("live duel started")
	d.emit(models.SeatPlayer1, EventDuelStart, map[string]interface{}{
		"mode":  string(d.Mode),
		"wager": wager,
	})
	return nil
}

func (d *Duel) validateDeck(ids []string) error {
	if d.catalog == nil {
		return ErrEmptyCatalog
	}
	for _, id := range ids {
		if id == models.PlaceholderCardID {
			return fmt.Errorf("%w: %s is not playable", ErrUnknownCard, id)
		}
		if _, ok := d.catalog.Get(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCard, id)
		}
	}
	return nil
}

func newPlayer(seat models.Seat, who Participant, deck []string) *models.PlayerState {
	p := &models.PlayerState{
		Seat:        seat,
		PlayerID:    who.ID,
		Name:        who.Name,
		HP:          MaxHP,
		Hand:        []*models.CardInstance{},
		Deck:        make([]*models.CardInstance, 0, len(deck)),
		DiscardPile: []*models.CardInstance{},
		Field:       []*models.CardInstance{},
	}
	for _, id := range deck {
		p.Deck = append(p.Deck, models.NewCardInstance(id))
	}
	return p
}

func (d *Duel) reset(mode models.DuelMode, first, second *models.PlayerState, wager int) {
	d.Mode = mode
	d.Status = StatusActive
	d.Seats = [2]models.Seat{first.Seat, second.Seat}
	d.Players = map[models.Seat]*models.PlayerState{
		first.Seat:  first,
		second.Seat: second,
	}
	d.CurrentPlayer = first.Seat
	d.TurnCount = 1
	d.Winner = ""
	d.WinnerID = ""
	d.Wager = wager
	d.StartedAt = d.now().UTC()
	d.EndedAt = time.Time{}
	d.LastBotAction = ""
	d.LastBotActionAt = time.Time{}
	d.Events = nil
}

// seat resolves the acting player and its opponent.
func (d *Duel) seat(seat models.Seat) (*models.PlayerState, *models.PlayerState, error) {
	if !seat.Valid() {
		return nil, nil, &InvalidPlayerError{Seat: seat}
	}
	p, ok := d.Players[seat]
	if !ok {
		return nil, nil, &InvalidPlayerError{Seat: seat}
	}
	return p, d.Players[d.other(seat)], nil
}

func (d *Duel) other(seat models.Seat) models.Seat {
	if seat == d.Seats[0] {
		return d.Seats[1]
	}
	return d.Seats[0]
}

func (d *Duel) requireActive() error {
	if d.Status != StatusActive {
		return fmt.Errorf("%w (status %s)", ErrDuelNotActive, d.Status)
	}
	return nil
}

// AdvanceTurn increments the turn counter and hands the turn to the other seat.
func (d *Duel) AdvanceTurn() error {
	if err := d.requireActive(); err != nil {
		return err
	}
	d.TurnCount++
	d.CurrentPlayer = d.other(d.CurrentPlayer)
	d.emit(d.CurrentPlayer, EventAdvanceTurn, map[string]interface{}{"turn": d.TurnCount})
	return nil
}

// CheckWinner reports the winning seat once the other seat is at 0 hp.
// Both seats at 0 hp is a draw: no winner.
func (d *Duel) CheckWinner() (models.Seat, bool) {
	if d.Status == StatusUninitialized {
		return "", false
	}
	a, b := d.Players[d.Seats[0]], d.Players[d.Seats[1]]
	aDown, bDown := a.HP <= 0, b.HP <= 0
	switch {
	case aDown && bDown:
		return "", false
	case aDown:
		return b.Seat, true
	case bDown:
		return a.Seat, true
	}
	return "", false
}

// Over reports whether either seat is at 0 hp, and the winner if exactly
// one is.
func (d *Duel) Over() (models.Seat, bool) {
	if d.Status != StatusActive {
		return "", false
	}
	for _, s := range d.Seats {
		if d.Players[s].HP <= 0 {
			winner, _ := d.CheckWinner()
			return winner, true
		}
	}
	return "", false
}

// resolveWinner maps a player id or seat key to a seat. Empty means a draw.
func (d *Duel) resolveWinner(winnerID string) (models.Seat, error) {
	if winnerID == "" {
		return "", nil
	}
	if p, ok := d.Players[models.Seat(winnerID)]; ok {
		return p.Seat, nil
	}
	for _, s := range d.Seats {
		if p := d.Players[s]; p.PlayerID != "" && p.PlayerID == winnerID {
			return s, nil
		}
	}
	return "", &InvalidPlayerError{Seat: models.Seat(winnerID)}
}

// End freezes the duel with the given winner (a player id, a seat key, or
// empty for a draw), transitions it to ended and returns the frozen result.
func (d *Duel) End(winnerID string) (models.DuelResult, error) {
	if err := d.requireActive(); err != nil {
		return models.DuelResult{}, err
	}
	winner, err := d.resolveWinner(winnerID)
	if err != nil {
		return models.DuelResult{}, err
	}

	d.Status = StatusEnded
	d.EndedAt = d.now().UTC()
	d.Winner = winner
	if winner != "" {
		d.WinnerID = d.Players[winner].PlayerID
	}

	result := d.result()
	d.archiveSpectators("ended")
	d.emit(winner, EventDuelEnd, map[string]interface{}{
		"winner": string(winner),
		"wager":  d.Wager,
	})
	d.log().WithFields(logrus.Fields{
		"winner": winner,
		"turns":  d.TurnCount,
	}).Info("duel ended")

	return result, nil
}

func (d *Duel) result() models.DuelResult {
	res := models.DuelResult{
		SessionID:  d.ID,
		Mode:       d.Mode,
		WinnerSeat: d.Winner,
		WinnerID:   d.WinnerID,
		Wager:      d.Wager,
		StartedAt:  d.StartedAt,
		EndedAt:    d.EndedAt,
	}
	var played, dealt []string
	for _, s := range d.Seats {
		p := d.Players[s]
		res.Seats = append(res.Seats, models.SeatResult{
			Seat:        p.Seat,
			PlayerID:    p.PlayerID,
			Name:        p.Name,
			HP:          p.HP,
			CardsPlayed: p.CardsPlayed,
			DamageDealt: p.DamageDealt,
		})
		played = append(played, fmt.Sprintf("%s played %d cards.", displayName(p), p.CardsPlayed))
		dealt = append(dealt, fmt.Sprintf("%s dealt %d damage.", displayName(p), p.DamageDealt))
	}
	res.Events = append(append(played, dealt...), d.Events...)
	res.Spectators = d.spectatorList()
	return res
}

func displayName(p *models.PlayerState) string {
	if p.Name != "" {
		return p.Name
	}
	switch p.Seat {
	case models.SeatPlayer1:
		return "Player 1"
	case models.SeatPlayer2:
		return "Player 2"
	}
	return "Bot"
}

// note appends a narrative line for the summary.
func (d *Duel) note(format string, args ...interface{}) {
	d.Events = append(d.Events, fmt.Sprintf(format, args...))
}

// emit records a state transition for the event log.
func (d *Duel) emit(seat models.Seat, ev EventType, payload map[string]interface{}) {
	d.actionIndex++
	if d.OnEvent == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	d.OnEvent(models.DuelEventRecord{
		SessionID:     d.ID,
		ActionIndex:   d.actionIndex,
		Seat:          seat,
		ActionType:    string(ev),
		ActionPayload: payload,
		Timestamp:     d.now().UnixMilli(),
	})
}
