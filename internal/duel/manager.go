// internal/duel/manager.go
package duel

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardduel/internal/catalog"
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/jason-s-yu/cardduel/internal/rating"
	"github.com/jason-s-yu/cardduel/internal/reward"
	"github.com/sirupsen/logrus"
)

// EventPublisher ships duel event records somewhere durable, e.g. a Redis queue.
type EventPublisher interface {
	Publish(ctx context.Context, record models.DuelEventRecord) error
}

// ManagerConfig tunes a Manager. Zero values fall back to defaults.
type ManagerConfig struct {
	Weights          catalog.Weights
	PracticeDeckSize int
	ArchiveSize      int
	Publisher        EventPublisher

	// NewRand seeds each duel's random source; nil uses a random seed.
	NewRand func() *rand.Rand
}

// Manager is the caller-facing surface: it owns the registry and routes
// every operation to the right duel under that duel's lock.
type Manager struct {
	catalog  *catalog.Catalog
	registry *Registry
	writer   *reward.Writer
	archive  *RollingLog
	logger   logrus.FieldLogger
	cfg      ManagerConfig
}

func NewManager(cat *catalog.Catalog, writer *reward.Writer, logger logrus.FieldLogger, cfg ManagerConfig) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Weights == nil {
		cfg.Weights = catalog.DefaultWeights
	}
	if cfg.PracticeDeckSize <= 0 {
		cfg.PracticeDeckSize = DefaultPracticeDeckSize
	}
	return &Manager{
		catalog:  cat,
		registry: NewRegistry(),
		writer:   writer,
		archive:  NewRollingLog(cfg.ArchiveSize),
		logger:   logger,
		cfg:      cfg,
	}
}

// Registry exposes the session registry.
func (m *Manager) Registry() *Registry { return m.registry }

// Archive exposes the in-memory spectator archive.
func (m *Manager) Archive() *RollingLog { return m.archive }

func (m *Manager) newDuel() *Duel {
	d := New(m.catalog, m.logger)
	d.Weights = m.cfg.Weights
	d.PracticeDeckSize = m.cfg.PracticeDeckSize
	if m.cfg.NewRand != nil {
		d.Rand = m.cfg.NewRand()
	}
	d.OnEvent = m.publish
	d.OnArchive = m.archiveSpectators
	return d
}

// publish pushes a record without blocking the turn loop.
func (m *Manager) publish(rec models.DuelEventRecord) {
	if m.cfg.Publisher == nil {
		return
	}
	go func(rec models.DuelEventRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := m.cfg.Publisher.Publish(ctx, rec); err != nil {
			m.logger.WithFields(logrus.Fields{
				"session": rec.SessionID,
				"index":   rec.ActionIndex,
			}).WithError(err).Warn("failed to publish duel event")
		}
	}(rec)
}

func (m *Manager) archiveSpectators(entry models.SpectatorArchiveEntry) {
	m.archive.Append(entry)
	if m.writer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.writer.PersistArchive(ctx, entry); err != nil {
			m.logger.WithField("session", entry.SessionID).WithError(err).Error("failed to persist spectator archive")
		}
	}()
}

func (m *Manager) register(start func(d *Duel) error) (string, error) {
	d := m.newDuel()
	d.Mu.Lock()
	defer d.Mu.Unlock()
	id, err := m.registry.Create(d)
	if err != nil {
		return "", err
	}
	if err := start(d); err != nil {
		m.registry.Remove(id)
		return "", err
	}
	return id, nil
}

// StartPractice creates a practice duel against the bot.
func (m *Manager) StartPractice(player Participant) (string, error) {
	return m.register(func(d *Duel) error { return d.StartPractice(player) })
}

// StartLive creates a PvP duel from the callers' decks.
func (m *Manager) StartLive(p1, p2 Participant, deck1, deck2 []string, wager int) (string, error) {
	return m.register(func(d *Duel) error { return d.StartLive(p1, p2, deck1, deck2, wager) })
}

// Rematch reseeds a live session in place with new decks and wager, keeping
// its participants. Current spectators are archived first.
func (m *Manager) Rematch(sessionID string, deck1, deck2 []string, wager int) error {
	return m.withDuel(sessionID, func(d *Duel) error {
		if d.Mode != models.ModePvP {
			return fmt.Errorf("%w: rematch requires a pvp duel, got %s", ErrWrongMode, d.Mode)
		}
		p1, p2 := d.Players[models.SeatPlayer1], d.Players[models.SeatPlayer2]
		return d.StartLive(
			Participant{ID: p1.PlayerID, Name: p1.Name},
			Participant{ID: p2.PlayerID, Name: p2.Name},
			deck1, deck2, wager,
		)
	})
}

func (m *Manager) withDuel(sessionID string, fn func(d *Duel) error) error {
	d, ok := m.registry.Get(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	d.Mu.Lock()
	defer d.Mu.Unlock()
	return fn(d)
}

// Outcome is attached to every turn operation so callers know when to end.
type Outcome struct {
	Over   bool        `json:"over"`
	Winner models.Seat `json:"winner,omitempty"`
}

func outcomeOf(d *Duel) Outcome {
	winner, over := d.Over()
	return Outcome{Over: over, Winner: winner}
}

// Draw draws count cards for seat, recycling the discard pile if needed.
func (m *Manager) Draw(sessionID string, seat models.Seat, count int) (DrawResult, Outcome, error) {
	var (
		res DrawResult
		out Outcome
	)
	err := m.withDuel(sessionID, func(d *Duel) error {
		var err error
		res, err = d.Draw(seat, count, true)
		out = outcomeOf(d)
		return err
	})
	return res, out, err
}

// PlayCard plays the hand card with instanceID for seat.
func (m *Manager) PlayCard(sessionID string, seat models.Seat, instanceID uuid.UUID) (PlayResult, Outcome, error) {
	var (
		res PlayResult
		out Outcome
	)
	err := m.withDuel(sessionID, func(d *Duel) error {
		var err error
		res, err = d.PlayCard(seat, instanceID)
		out = outcomeOf(d)
		return err
	})
	return res, out, err
}

// AdvanceTurn passes the turn to the other seat.
func (m *Manager) AdvanceTurn(sessionID string) (View, error) {
	var v View
	err := m.withDuel(sessionID, func(d *Duel) error {
		if err := d.AdvanceTurn(); err != nil {
			return err
		}
		v = d.GetState(false)
		return nil
	})
	return v, err
}

// BotTurn runs the practice bot's turn.
func (m *Manager) BotTurn(sessionID string) (BotResult, Outcome, error) {
	var (
		res BotResult
		out Outcome
	)
	err := m.withDuel(sessionID, func(d *Duel) error {
		var err error
		res, err = d.BotTurn()
		out = outcomeOf(d)
		return err
	})
	return res, out, err
}

// Forfeit ends the duel with the other seat as winner.
func (m *Manager) Forfeit(sessionID string, seat models.Seat) (*reward.Settlement, error) {
	return m.end(sessionID, func(d *Duel) (string, error) {
		p, _, err := d.seat(seat)
		if err != nil {
			return "", err
		}
		d.note("%s forfeited.", displayName(p))
		return string(d.other(seat)), nil
	})
}

// DeclareWinner is the admin override: it ends the duel with seat as winner.
func (m *Manager) DeclareWinner(sessionID string, seat models.Seat) (*reward.Settlement, error) {
	return m.end(sessionID, func(d *Duel) (string, error) {
		p, _, err := d.seat(seat)
		if err != nil {
			return "", err
		}
		d.note("An admin declared %s the winner.", displayName(p))
		return string(seat), nil
	})
}

// End ends the duel with winnerID (a player id or seat key; empty for a draw).
func (m *Manager) End(sessionID, winnerID string) (*reward.Settlement, error) {
	return m.end(sessionID, func(*Duel) (string, error) { return winnerID, nil })
}

// end transitions the duel, drops it from the registry and starts the
// settlement. Persistence runs in the background and never holds the duel.
func (m *Manager) end(sessionID string, pick func(d *Duel) (string, error)) (*reward.Settlement, error) {
	var result models.DuelResult
	err := m.withDuel(sessionID, func(d *Duel) error {
		if err := d.requireActive(); err != nil {
			return err
		}
		winnerID, err := pick(d)
		if err != nil {
			return err
		}
		result, err = d.End(winnerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.registry.Remove(sessionID)
	if m.writer == nil {
		return nil, nil
	}
	return m.writer.Settle(result), nil
}

// AddSpectator registers a viewer on a session.
func (m *Manager) AddSpectator(sessionID, spectatorID string) error {
	return m.withDuel(sessionID, func(d *Duel) error { return d.AddSpectator(spectatorID) })
}

// RemoveSpectator unregisters a viewer.
func (m *Manager) RemoveSpectator(sessionID, spectatorID string) error {
	return m.withDuel(sessionID, func(d *Duel) error {
		d.RemoveSpectator(spectatorID)
		return nil
	})
}

// GetState returns a deep-copied view of the session.
func (m *Manager) GetState(sessionID string, redactHands bool) (View, error) {
	var v View
	err := m.withDuel(sessionID, func(d *Duel) error {
		v = d.GetState(redactHands)
		return nil
	})
	return v, err
}

// ListActiveSessions lists metadata for every active session.
func (m *Manager) ListActiveSessions() []SessionMeta {
	return m.registry.ListActive()
}

// Summary loads a persisted summary by duel id.
func (m *Manager) Summary(ctx context.Context, duelID string) (models.Summary, error) {
	if m.writer == nil {
		return models.Summary{}, fmt.Errorf("no summary writer configured")
	}
	return m.writer.LoadSummary(ctx, duelID)
}

// PlayerRecord is everything persisted about one player id.
type PlayerRecord struct {
	PlayerID string             `json:"playerId"`
	Balance  int                `json:"balance"`
	Stats    models.PlayerStats `json:"stats"`
	Rating   rating.Rating      `json:"rating"`
}

// Player loads the coin balance, rolling stats and rating of playerID.
func (m *Manager) Player(ctx context.Context, playerID string) (PlayerRecord, error) {
	if m.writer == nil {
		return PlayerRecord{}, fmt.Errorf("no summary writer configured")
	}
	rec := PlayerRecord{PlayerID: playerID}
	var err error
	if rec.Balance, err = m.writer.Balance(ctx, playerID); err != nil {
		return PlayerRecord{}, err
	}
	if rec.Stats, err = m.writer.Stats(ctx, playerID); err != nil {
		return PlayerRecord{}, err
	}
	if rec.Rating, err = m.writer.Rating(ctx, playerID); err != nil {
		return PlayerRecord{}, err
	}
	return rec, nil
}

// SeatOwner returns the player id seated at seat, for authorization checks.
func (m *Manager) SeatOwner(sessionID string, seat models.Seat) (string, error) {
	var owner string
	err := m.withDuel(sessionID, func(d *Duel) error {
		p, _, err := d.seat(seat)
		if err != nil {
			return err
		}
		owner = p.PlayerID
		return nil
	})
	return owner, err
}
