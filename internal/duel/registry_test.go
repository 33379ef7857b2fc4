package duel

import (
	"regexp"
	"sync"
	"testing"

	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionIDPattern = regexp.MustCompile(`^[a-z2-7]{32}$`)

func TestNewSessionIDFormat(t *testing.T) {
	id, err := NewSessionID()
	require.NoError(t, err)
	assert.Regexp(t, sessionIDPattern, id)
}

func TestRegistryConcurrentCreateYieldsUniqueIDs(t *testing.T) {
	r := NewRegistry()
	cat := testCatalog(t)

	const n = 64
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := r.Create(New(cat, quietLogger()))
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.Regexp(t, sessionIDPattern, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, n, r.Len())
}

func TestRegistryGetAndRemove(t *testing.T) {
	r := NewRegistry()
	d := New(testCatalog(t), quietLogger())

	id, err := r.Create(d)
	require.NoError(t, err)
	assert.Equal(t, id, d.ID)

	got, ok := r.Get(id)
	require.True(t, ok)
	assert.Same(t, d, got)

	r.Remove(id)
	r.Remove(id)
	_, ok = r.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestListActiveSkipsInactiveSessions(t *testing.T) {
	r := NewRegistry()
	cat := testCatalog(t)

	idle := New(cat, quietLogger())
	_, err := r.Create(idle)
	require.NoError(t, err)

	live := New(cat, quietLogger())
	_, err = r.Create(live)
	require.NoError(t, err)
	require.NoError(t, live.StartLive(Participant{ID: "A"}, Participant{ID: "B"}, nil, nil, 3))
	require.NoError(t, live.AddSpectator("watcher"))

	practice := New(cat, quietLogger())
	_, err = r.Create(practice)
	require.NoError(t, err)
	require.NoError(t, practice.StartPractice(Participant{ID: "C"}))

	metas := r.ListActive()
	require.Len(t, metas, 2)

	byID := map[string]SessionMeta{}
	for _, m := range metas {
		byID[m.ID] = m
	}
	lm := byID[live.ID]
	assert.Equal(t, []string{"A", "B"}, lm.Participants)
	assert.Equal(t, 1, lm.Spectators)
	assert.Equal(t, 3, lm.Wager)
	assert.False(t, lm.Practice)
	assert.Equal(t, models.ModePvP, lm.Mode)

	pm := byID[practice.ID]
	assert.True(t, pm.Practice)
	assert.Equal(t, []string{"C"}, pm.Participants)
}
