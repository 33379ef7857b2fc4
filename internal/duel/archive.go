package duel

import (
	"sort"
	"sync"

	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/sirupsen/logrus"
)

// AddSpectator adds an opaque viewer id to an active duel. Re-adding is a no-op.
func (d *Duel) AddSpectator(id string) error {
	if err := d.requireActive(); err != nil {
		return err
	}
	if _, ok := d.Spectators[id]; ok {
		return nil
	}
	d.Spectators[id] = struct{}{}
	d.emit("", EventSpectatorJoin, map[string]interface{}{"spectator": id})
	return nil
}

// RemoveSpectator drops a viewer id; unknown ids are ignored.
func (d *Duel) RemoveSpectator(id string) {
	if _, ok := d.Spectators[id]; !ok {
		return
	}
	delete(d.Spectators, id)
	d.emit("", EventSpectatorLeave, map[string]interface{}{"spectator": id})
}

func (d *Duel) spectatorList() []string {
	out := make([]string, 0, len(d.Spectators))
	for id := range d.Spectators {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// archiveSpectators flushes the current spectators to OnArchive and clears
// the set. Nothing is archived for an empty set.
func (d *Duel) archiveSpectators(reason string) {
	if len(d.Spectators) == 0 {
		return
	}
	entry := models.SpectatorArchiveEntry{
		SessionID:  d.ID,
		Reason:     reason,
		Spectators: d.spectatorList(),
		ArchivedAt: d.now().UTC(),
	}
	d.Spectators = make(map[string]struct{})
	d.emit("", EventSpectatorsArchived, map[string]interface{}{
		"reason": reason,
		"count":  len(entry.Spectators),
	})
	d.log().WithFields(logrus.Fields{
		"reason": reason,
		"count":  len(entry.Spectators),
	}).Info("spectators archived")
	if d.OnArchive != nil {
		d.OnArchive(entry)
	}
}

// RollingLog keeps the most recent spectator archive entries.
type RollingLog struct {
	mu      sync.Mutex
	max     int
	entries []models.SpectatorArchiveEntry
}

func NewRollingLog(max int) *RollingLog {
	if max <= 0 {
		max = 100
	}
	return &RollingLog{max: max}
}

// Append adds an entry, dropping the oldest once the log is full.
func (l *RollingLog) Append(entry models.SpectatorArchiveEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = append([]models.SpectatorArchiveEntry(nil), l.entries[over:]...)
	}
}

// Entries returns a copy of the log, oldest first.
func (l *RollingLog) Entries() []models.SpectatorArchiveEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.SpectatorArchiveEntry, len(l.entries))
	for i, e := range l.entries {
		e.Spectators = append([]string(nil), e.Spectators...)
		out[i] = e
	}
	return out
}
