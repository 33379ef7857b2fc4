package duel

import (
	"testing"

	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComboTableIsWellFormed(t *testing.T) {
	require.Len(t, Combos, 10)
	names := map[string]bool{}
	for _, c := range Combos {
		assert.False(t, names[c.Name], "duplicate combo %s", c.Name)
		names[c.Name] = true
		assert.NotEqual(t, c.Tags[0], c.Tags[1])
		assert.NotEqual(t, models.EffectUnknown, c.Bonus.Kind)
		assert.Contains(t, SupportedAnimations, c.Animation)
	}
}

func TestShockAndAweFiresOnceForAPair(t *testing.T) {
	d := newTestDuel(t, nil, nil)
	p1 := d.Players[models.SeatPlayer1]
	p1.Field = cards("001", "002")

	combos, err := d.ResolveCombos(models.SeatPlayer1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shock and Awe"}, combos)
	assert.Equal(t, MaxHP-50, d.Players[models.SeatPlayer2].HP)

	for _, c := range p1.Field {
		require.Len(t, c.Animations, 1)
		assert.Equal(t, "explosion", c.Animations[0].Type)
		assert.Equal(t, "Shock and Awe", c.Animations[0].Combo)
	}
	assert.Contains(t, d.Events, "Alice triggered Shock and Awe.")
}

func TestSingleCardCarryingBothTagsDoesNotFire(t *testing.T) {
	d := newTestDuel(t, nil, nil)
	d.Players[models.SeatPlayer1].Field = cards("004")

	combos, err := d.ResolveCombos(models.SeatPlayer1)
	require.NoError(t, err)
	assert.Empty(t, combos)
	assert.Equal(t, MaxHP, d.Players[models.SeatPlayer2].HP)
}

func TestComboFiresOncePerQualifyingPair(t *testing.T) {
	d := newTestDuel(t, nil, nil)
	// pairs (0,1) and (1,2) qualify; (0,2) is burn+burn.
	d.Players[models.SeatPlayer1].Field = cards("001", "002", "001")

	combos, err := d.ResolveCombos(models.SeatPlayer1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shock and Awe", "Shock and Awe"}, combos)
	assert.Equal(t, MaxHP-100, d.Players[models.SeatPlayer2].HP)
}

func TestPairUnionCoversTags(t *testing.T) {
	d := newTestDuel(t, nil, nil)
	d.Players[models.SeatPlayer1].Field = cards("004", "010")

	combos, err := d.ResolveCombos(models.SeatPlayer1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shock and Awe"}, combos)
}

func TestUncataloguedCardCarriesNoTags(t *testing.T) {
	d := newTestDuel(t, nil, nil)
	d.Players[models.SeatPlayer1].Field = cards("001", "999")

	combos, err := d.ResolveCombos(models.SeatPlayer1)
	require.NoError(t, err)
	assert.Empty(t, combos)

	def, ok := d.catalog.Get("004")
	require.True(t, ok)
	assert.True(t, def.HasTag("ignite"))
	assert.False(t, def.HasTag("heal"))
}

func TestComboBonusCountsAsDamageDealt(t *testing.T) {
	d := newTestDuel(t, []string{"001", "002"}, nil)
	_, err := d.Draw(models.SeatPlayer1, 2, true)
	require.NoError(t, err)
	p1 := d.Players[models.SeatPlayer1]

	_, err = d.PlayCard(models.SeatPlayer1, p1.Hand[0].InstanceID)
	require.NoError(t, err)
	res, err := d.PlayCard(models.SeatPlayer1, p1.Hand[0].InstanceID)
	require.NoError(t, err)

	assert.Equal(t, []string{"Shock and Awe"}, res.Report.Combos)
	// 20 + 10 from the cards, 50 from the combo.
	assert.Equal(t, 80, p1.DamageDealt)
	assert.Equal(t, MaxHP-80, d.Players[models.SeatPlayer2].HP)
}

func TestUnsupportedAnimationIsSkipped(t *testing.T) {
	d := newTestDuel(t, nil, nil)
	card := models.NewCardInstance("010")
	rep := EffectReport{}

	d.animate(&rep, Combo{Name: "Confetti", Animation: "confetti"}, card)
	assert.Empty(t, card.Animations)
	assert.Len(t, rep.Warnings, 1)
}
