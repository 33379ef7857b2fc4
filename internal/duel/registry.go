package duel

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jason-s-yu/cardduel/internal/models"
)

const sessionIDBytes = 20

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// SessionMeta is the lightweight, hand-free description of a live session.
type SessionMeta struct {
	ID           string          `json:"id"`
	Status       Status          `json:"status"`
	Mode         models.DuelMode `json:"mode"`
	Practice     bool            `json:"practice"`
	Participants []string        `json:"participants"`
	Spectators   int             `json:"spectators"`
	Wager        int             `json:"wager"`
	TurnCount    int             `json:"turnCount"`
	CreatedAt    time.Time       `json:"createdAt"`
	StartedAt    time.Time       `json:"startedAt"`
}

type entry struct {
	duel      *Duel
	createdAt time.Time
}

// Registry maps session ids to live duels. It is safe for concurrent use
// across sessions; each Duel still guards itself with its own Mu.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*entry)}
}

// NewSessionID returns 20 random bytes as lowercase unpadded base32.
func NewSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return strings.ToLower(idEncoding.EncodeToString(b)), nil
}

// Create assigns d a fresh id and registers it.
func (r *Registry) Create(d *Duel) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		id, err := NewSessionID()
		if err != nil {
			return "", err
		}
		if _, taken := r.sessions[id]; taken {
			continue
		}
		d.ID = id
		r.sessions[id] = &entry{duel: d, createdAt: time.Now().UTC()}
		return id, nil
	}
}

// Get returns the live duel for id.
func (r *Registry) Get(id string) (*Duel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return e.duel, true
}

// Remove discards a session. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len is the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ListActive returns metadata for every active session, oldest first.
func (r *Registry) ListActive() []SessionMeta {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]SessionMeta, 0, len(entries))
	for _, e := range entries {
		d := e.duel
		d.Mu.Lock()
		if d.Status == StatusActive {
			out = append(out, metaOf(d, e.createdAt))
		}
		d.Mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func metaOf(d *Duel, createdAt time.Time) SessionMeta {
	m := SessionMeta{
		ID:         d.ID,
		Status:     d.Status,
		Mode:       d.Mode,
		Practice:   d.Mode == models.ModePractice,
		Spectators: len(d.Spectators),
		Wager:      d.Wager,
		TurnCount:  d.TurnCount,
		CreatedAt:  createdAt,
		StartedAt:  d.StartedAt,
	}
	for _, s := range d.Seats {
		if p, ok := d.Players[s]; ok && p.PlayerID != "" {
			m.Participants = append(m.Participants, p.PlayerID)
		}
	}
	return m
}
