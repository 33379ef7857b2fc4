package duel

import (
	"math/rand/v2"
	"testing"

	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawTakesFromDeckHead(t *testing.T) {
	d := newTestDuel(t, []string{"010", "001", "002"}, nil)

	res, err := d.Draw(models.SeatPlayer1, 2, true)
	require.NoError(t, err)
	assert.False(t, res.Exhausted)
	assert.Equal(t, []string{"010", "001"}, cardIDs(res.Drawn))

	p1 := d.Players[models.SeatPlayer1]
	assert.Equal(t, []string{"010", "001"}, cardIDs(p1.Hand))
	assert.Equal(t, []string{"002"}, cardIDs(p1.Deck))
}

func TestDrawStopsAtHandCap(t *testing.T) {
	d := newTestDuel(t, repeat("010", 10), nil)

	res, err := d.Draw(models.SeatPlayer1, 6, true)
	require.NoError(t, err)
	assert.Len(t, res.Drawn, MaxHandSize)
	assert.True(t, res.HandFull)
	assert.False(t, res.Exhausted)
	assert.Len(t, d.Players[models.SeatPlayer1].Hand, MaxHandSize)
	assert.Len(t, d.Players[models.SeatPlayer1].Deck, 6)

	res, err = d.Draw(models.SeatPlayer1, 1, true)
	require.NoError(t, err)
	assert.Empty(t, res.Drawn)
	assert.True(t, res.HandFull)
}

func TestDrawRecyclesShuffledCopyOfDiscard(t *testing.T) {
	d := newTestDuel(t, nil, nil)
	p1 := d.Players[models.SeatPlayer1]
	oldDiscard := cards("001", "002", "003", "010", "011")
	p1.DiscardPile = oldDiscard
	before := map[string]bool{}
	for _, c := range oldDiscard {
		before[c.InstanceID.String()] = true
	}

	res, err := d.Draw(models.SeatPlayer1, 1, true)
	require.NoError(t, err)
	assert.True(t, res.Recycled)
	assert.False(t, res.Exhausted)
	assert.Empty(t, p1.DiscardPile)
	assert.Len(t, p1.Deck, 4)
	require.Len(t, p1.Hand, 1)

	after := map[string]bool{}
	for _, c := range append(append([]*models.CardInstance{}, p1.Deck...), p1.Hand...) {
		after[c.InstanceID.String()] = true
	}
	assert.Equal(t, before, after, "recycled deck is a permutation of the old discard pile")

	// The new deck must not share a backing array with the old discard.
	oldDiscard[1] = nil
	for _, c := range p1.Deck {
		assert.NotNil(t, c)
	}
}

func TestRecycleIsAPermutation(t *testing.T) {
	d := newTestDuel(t, nil, nil)
	d.Rand = rand.New(rand.NewPCG(9, 9))
	p1 := d.Players[models.SeatPlayer1]
	p1.DiscardPile = cards(repeat("010", 20)...)
	ids := make([]string, 0, 20)
	for _, c := range p1.DiscardPile {
		ids = append(ids, c.InstanceID.String())
	}

	d.recycle(p1)

	got := make([]string, 0, 20)
	for _, c := range p1.Deck {
		got = append(got, c.InstanceID.String())
	}
	assert.ElementsMatch(t, ids, got)
	assert.NotEqual(t, ids, got, "20 cards keeping their order under a seeded shuffle is vanishingly unlikely")
}

func TestDrawExhaustionAppliesPenaltyOncePerCall(t *testing.T) {
	d := newTestDuel(t, nil, nil)
	p1 := d.Players[models.SeatPlayer1]

	res, err := d.Draw(models.SeatPlayer1, 3, true)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Empty(t, res.Drawn)
	assert.Equal(t, MaxHP-ExhaustionPenalty, p1.HP)

	p1.HP = 4
	res, err = d.Draw(models.SeatPlayer1, 1, true)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 0, p1.HP, "penalty never drops hp below 0")
}

func TestDrawPartialThenExhausted(t *testing.T) {
	d := newTestDuel(t, []string{"001"}, nil)

	res, err := d.Draw(models.SeatPlayer1, 3, true)
	require.NoError(t, err)
	assert.Len(t, res.Drawn, 1)
	assert.True(t, res.Exhausted)
	assert.Equal(t, MaxHP-ExhaustionPenalty, d.Players[models.SeatPlayer1].HP)
}

func TestDrawWithoutRecycleLeavesDiscard(t *testing.T) {
	d := newTestDuel(t, nil, nil)
	p1 := d.Players[models.SeatPlayer1]
	p1.DiscardPile = cards("001", "002")

	res, err := d.Draw(models.SeatPlayer1, 1, false)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Len(t, p1.DiscardPile, 2)
	assert.Empty(t, p1.Deck)
}

func TestHandCapHoldsUnderRandomOperations(t *testing.T) {
	d := newTestDuel(t, []string{"005", "007", "006", "001", "005", "007", "010", "005", "007", "006"},
		[]string{"007", "005", "006", "010", "007", "005", "001", "006", "007", "005"})
	rng := rand.New(rand.NewPCG(5, 5))
	seats := []models.Seat{models.SeatPlayer1, models.SeatPlayer2}

	for i := 0; i < 200; i++ {
		seat := seats[rng.IntN(2)]
		p := d.Players[seat]
		if rng.IntN(2) == 0 || len(p.Hand) == 0 {
			_, err := d.Draw(seat, 1+rng.IntN(5), true)
			require.NoError(t, err)
		} else {
			// Keep room on the field so effects keep firing.
			p.Field = nil
			_, err := d.PlayCard(seat, p.Hand[rng.IntN(len(p.Hand))].InstanceID)
			require.NoError(t, err)
		}
		for _, s := range seats {
			require.LessOrEqual(t, len(d.Players[s].Hand), MaxHandSize)
			require.GreaterOrEqual(t, d.Players[s].HP, 0)
			require.LessOrEqual(t, d.Players[s].HP, MaxHP)
		}
	}
}
