// internal/historian/historian.go
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/cardduel/internal/database"
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/sirupsen/logrus"
)

// Source yields queued duel event records. ok is false when nothing arrived
// within the wait.
type Source interface {
	Pop(ctx context.Context, wait time.Duration) (rec models.DuelEventRecord, ok bool, err error)
}

// Sink persists batches and flags idle duels.
type Sink interface {
	InsertDuelEvents(ctx context.Context, records []models.DuelEventRecord) error
	MarkAbandoned(ctx context.Context, sessionID string) (bool, error)
}

// PostgresSink writes to the duels/duel_events tables.
type PostgresSink struct {
	Pool *pgxpool.Pool
}

func (s PostgresSink) InsertDuelEvents(ctx context.Context, records []models.DuelEventRecord) error {
	return database.InsertDuelEvents(ctx, s.Pool, records)
}

func (s PostgresSink) MarkAbandoned(ctx context.Context, sessionID string) (bool, error) {
	return database.MarkDuelAbandoned(ctx, s.Pool, sessionID)
}

type Options struct {
	BatchSize     int
	FlushInterval time.Duration
	// Inactivity is how long a duel may go without events before it is
	// marked abandoned.
	Inactivity    time.Duration
	SweepInterval time.Duration
	PopWait       time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 5 * time.Second
	}
	if o.Inactivity <= 0 {
		o.Inactivity = 10 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}
	if o.PopWait <= 0 {
		o.PopWait = 3 * time.Second
	}
	return o
}

// Service drains the event queue into the sink in batches.
type Service struct {
	src    Source
	sink   Sink
	opts   Options
	logger logrus.FieldLogger
	now    func() time.Time

	lastActivity sync.Map // session id -> time.Time

	batchMu sync.Mutex
	batch   []models.DuelEventRecord
}

func New(src Source, sink Sink, opts Options, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opts = opts.withDefaults()
	return &Service{
		src:    src,
		sink:   sink,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		batch:  make([]models.DuelEventRecord, 0, opts.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is left.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.flushLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()

	s.logger.WithFields(logrus.Fields{
		"batchSize":     s.opts.BatchSize,
		"flushInterval": s.opts.FlushInterval,
	}).Info("historian started")

	s.readLoop(ctx)
	wg.Wait()

	// ctx is gone; give the final flush its own deadline.
	finalCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.flush(finalCtx)
	s.logger.Info("historian stopped")
	return nil
}

func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		rec, ok, err := s.src.Pop(ctx, s.opts.PopWait)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Warn("historian pop failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}
		s.record(ctx, rec)
	}
}

// record tracks activity and appends rec, flushing once the batch is full.
func (s *Service) record(ctx context.Context, rec models.DuelEventRecord) {
	if rec.ActionType == database.EventTypeDuelEnd {
		s.lastActivity.Delete(rec.SessionID)
	} else {
		s.lastActivity.Store(rec.SessionID, s.now())
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.flush(ctx)
	}
}

// flush writes the pending batch outside the lock. A failed insert drops
// the batch after logging it.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := s.batch
	s.batch = make([]models.DuelEventRecord, 0, s.opts.BatchSize)
	s.batchMu.Unlock()

	if err := s.sink.InsertDuelEvents(ctx, pending); err != nil {
		s.logger.WithError(err).WithField("records", len(pending)).Error("failed to persist duel events")
		return
	}
	s.logger.WithField("records", len(pending)).Debug("flushed duel events")
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep marks every duel idle for longer than Inactivity as abandoned.
func (s *Service) sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.opts.Inactivity)
	s.lastActivity.Range(func(key, value any) bool {
		sessionID := key.(string)
		if value.(time.Time).After(cutoff) {
			return true
		}
		changed, err := s.sink.MarkAbandoned(ctx, sessionID)
		if err != nil {
			s.logger.WithError(err).WithField("session", sessionID).Warn("failed to mark duel abandoned")
			return true
		}
		s.lastActivity.Delete(sessionID)
		if changed {
			s.logger.WithField("session", sessionID).Info("duel marked abandoned")
		}
		return true
	})
}

// Pending reports how many records wait for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
