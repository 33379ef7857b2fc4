// Package reward pays out wagers and persists duel summaries, rolling
// stats and spectator archives once a duel has ended.
package reward

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/jason-s-yu/cardduel/internal/rating"
	"github.com/jason-s-yu/cardduel/internal/store"
	"github.com/sirupsen/logrus"
)

// PayoutMultiplier is applied to the wager when crediting the winner.
const PayoutMultiplier = 2

// DefaultArchiveSize caps the persisted spectator archive.
const DefaultArchiveSize = 100

// Writer settles ended duels against a store.Gateway. Documents shared
// between duels (coin bank, stats, archive) are updated under one lock.
type Writer struct {
	gateway     store.Gateway
	notifier    Notifier
	logger      logrus.FieldLogger
	timeout     time.Duration
	archiveSize int

	mu sync.Mutex
}

// Option configures a Writer.
type Option func(*Writer)

func WithNotifier(n Notifier) Option { return func(w *Writer) { w.notifier = n } }

// WithTimeout bounds each document write of a settlement, retries included.
// Pair it with store.RetryOptions.Budget.
func WithTimeout(d time.Duration) Option { return func(w *Writer) { w.timeout = d } }

func WithArchiveSize(n int) Option { return func(w *Writer) { w.archiveSize = n } }

func NewWriter(gateway store.Gateway, logger logrus.FieldLogger, opts ...Option) *Writer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	w := &Writer{
		gateway:     gateway,
		logger:      logger,
		timeout:     time.Minute,
		archiveSize: DefaultArchiveSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.notifier == nil {
		w.notifier = LogNotifier{Logger: logger}
	}
	return w
}

// Settlement tracks one asynchronous settlement.
type Settlement struct {
	DuelID  string
	Summary models.Summary

	done chan struct{}
	err  error
}

// Done is closed once persistence has finished, successfully or not.
func (s *Settlement) Done() <-chan struct{} { return s.done }

// Err is the persistence outcome. Only meaningful after Done is closed.
func (s *Settlement) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the settlement finishes or ctx is done.
func (s *Settlement) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BuildSummary freezes a result into the persisted summary shape.
func BuildSummary(duelID string, result models.DuelResult) models.Summary {
	s := models.Summary{
		DuelID:    duelID,
		SessionID: result.SessionID,
		Mode:      result.Mode,
		Winner:    result.WinnerSeat,
		WinnerID:  result.WinnerID,
		Wager:     result.Wager,
		Players:   make(map[models.Seat]models.SummarySeat, len(result.Seats)),
		Events:    append([]string(nil), result.Events...),
		StartedAt: result.StartedAt,
		Timestamp: result.EndedAt,
	}
	for _, seat := range result.Seats {
		s.Players[seat.Seat] = models.SummarySeat{
			PlayerID:    seat.PlayerID,
			Name:        seat.Name,
			HP:          seat.HP,
			CardsPlayed: seat.CardsPlayed,
			DamageDealt: seat.DamageDealt,
		}
	}
	return s
}

// Settle builds the summary under a fresh duel id and persists it, the
// payout and the stats in the background. It never blocks the caller.
func (w *Writer) Settle(result models.DuelResult) *Settlement {
	duelID := uuid.NewString()
	st := &Settlement{
		DuelID:  duelID,
		Summary: BuildSummary(duelID, result),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(st.done)

		st.err = w.persist(result, st.Summary)
		log := w.logger.WithFields(logrus.Fields{"session": result.SessionID, "duel": duelID})
		if st.err != nil {
			log.WithError(st.err).Error("duel settlement failed")
			w.notifier.Notify(context.Background(), fmt.Sprintf("settlement of duel %s", duelID), st.err)
			return
		}
		log.Info("duel settled")
	}()
	return st
}

// persist writes every document of a settlement under its own deadline, so
// a stalled document cannot starve the others. The summary goes first and the
// shared coin bank last.
func (w *Writer) persist(result models.DuelResult, summary models.Summary) error {
	var errs []error
	step := func(what string, fn func(ctx context.Context) error) {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", what, err))
		}
	}

	step("save summary", func(ctx context.Context) error {
		return w.saveJSON(ctx, store.SummaryKey(summary.DuelID), summary)
	})
	step("update stats", func(ctx context.Context) error { return w.recordStats(ctx, result) })
	step("update ratings", func(ctx context.Context) error { return w.recordRatings(ctx, result) })
	if result.Wager > 0 && result.WinnerID != "" {
		step("credit winner", func(ctx context.Context) error {
			return w.Credit(ctx, result.WinnerID, PayoutMultiplier*result.Wager)
		})
	}
	return errors.Join(errs...)
}

// Credit adds amount to playerID's coin balance.
func (w *Writer) Credit(ctx context.Context, playerID string, amount int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	bank := map[string]int{}
	if err := w.loadJSON(ctx, store.CoinBankKey, &bank); err != nil {
		return err
	}
	bank[playerID] += amount
	return w.saveJSON(ctx, store.CoinBankKey, bank)
}

// Balance reads playerID's coin balance; unknown players have 0.
func (w *Writer) Balance(ctx context.Context, playerID string) (int, error) {
	bank := map[string]int{}
	if err := w.loadJSON(ctx, store.CoinBankKey, &bank); err != nil {
		return 0, err
	}
	return bank[playerID], nil
}

func (w *Writer) recordStats(ctx context.Context, result models.DuelResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stats := map[string]models.PlayerStats{}
	if err := w.loadJSON(ctx, store.DuelStatsKey, &stats); err != nil {
		return err
	}
	changed := false
	for _, seat := range result.Seats {
		if seat.PlayerID == "" || seat.Seat == models.SeatBot {
			continue
		}
		s := stats[seat.PlayerID]
		switch {
		case result.WinnerSeat == "":
			s.Draws++
		case result.WinnerSeat == seat.Seat:
			s.Wins++
		default:
			s.Losses++
		}
		stats[seat.PlayerID] = s
		changed = true
	}
	if !changed {
		return nil
	}
	return w.saveJSON(ctx, store.DuelStatsKey, stats)
}

// Stats reads the rolling record for playerID.
func (w *Writer) Stats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	stats := map[string]models.PlayerStats{}
	if err := w.loadJSON(ctx, store.DuelStatsKey, &stats); err != nil {
		return models.PlayerStats{}, err
	}
	return stats[playerID], nil
}

// recordRatings rates live duels between two identified players.
func (w *Writer) recordRatings(ctx context.Context, result models.DuelResult) error {
	if result.Mode != models.ModePvP || len(result.Seats) != 2 {
		return nil
	}
	a, b := result.Seats[0], result.Seats[1]
	if a.PlayerID == "" || b.PlayerID == "" || a.PlayerID == b.PlayerID {
		return nil
	}

	scoreA := 0.5
	switch result.WinnerSeat {
	case a.Seat:
		scoreA = 1
	case b.Seat:
		scoreA = 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	ratings := map[string]rating.Rating{}
	if err := w.loadJSON(ctx, store.RatingsKey, &ratings); err != nil {
		return err
	}
	ratings[a.PlayerID], ratings[b.PlayerID] = rating.Update1v1(ratings[a.PlayerID], ratings[b.PlayerID], scoreA)
	return w.saveJSON(ctx, store.RatingsKey, ratings)
}

// Rating reads playerID's rating; unrated players get the starting rating.
func (w *Writer) Rating(ctx context.Context, playerID string) (rating.Rating, error) {
	ratings := map[string]rating.Rating{}
	if err := w.loadJSON(ctx, store.RatingsKey, &ratings); err != nil {
		return rating.Rating{}, err
	}
	r, ok := ratings[playerID]
	if !ok {
		return rating.New(), nil
	}
	return r, nil
}

// LoadSummary fetches a persisted summary by duel id.
func (w *Writer) LoadSummary(ctx context.Context, duelID string) (models.Summary, error) {
	raw, err := w.gateway.Load(ctx, store.SummaryKey(duelID))
	if err != nil {
		return models.Summary{}, err
	}
	var s models.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Summary{}, fmt.Errorf("decode summary %s: %w", duelID, err)
	}
	return s, nil
}

// PersistArchive appends a spectator archive entry to the durable rolling log.
func (w *Writer) PersistArchive(ctx context.Context, entry models.SpectatorArchiveEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var log []models.SpectatorArchiveEntry
	if err := w.loadJSON(ctx, store.SpectatorArchiveKey, &log); err != nil {
		return err
	}
	log = append(log, entry)
	if over := len(log) - w.archiveSize; over > 0 {
		log = log[over:]
	}
	if err := w.saveJSON(ctx, store.SpectatorArchiveKey, log); err != nil {
		w.notifier.Notify(ctx, "spectator archive", err)
		return err
	}
	return nil
}

// loadJSON decodes key into v, leaving v untouched when the key is missing.
func (w *Writer) loadJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := w.gateway.Load(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (w *Writer) saveJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return w.gateway.Save(ctx, key, data)
}
