// internal/duel/combos.go
package duel

import (
	"slices"

	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/sirupsen/logrus"
)

// Combo is a bonus that fires when two distinct field cards jointly carry
// every required tag.
type Combo struct {
	Name      string
	Tags      [2]string
	Bonus     models.Effect
	Animation string
}

// Combos is the registered combo table. New combos are data-only additions.
var Combos = []Combo{
	{Name: "Shock and Awe", Tags: [2]string{"burn", "ignite"}, Bonus: models.NewEffect(models.EffectDamage, 50), Animation: "explosion"},
	{Name: "Overheal Combo", Tags: [2]string{"heal", "regen"}, Bonus: models.NewEffect(models.EffectHeal, 30), Animation: "heal"},
	{Name: "Toxic Burst", Tags: [2]string{"poison", "toxin"}, Bonus: models.NewEffect(models.EffectDamage, 40), Animation: "poison"},
	{Name: "Ambush Combo", Tags: [2]string{"trap", "tripwire"}, Bonus: models.NewEffect(models.EffectForceDiscard, 1), Animation: "trap"},
	{Name: "Deadshot Combo", Tags: [2]string{"sniper", "rangefinder"}, Bonus: models.NewEffect(models.EffectDamage, 75), Animation: "bullet"},
	{Name: "Loot Frenzy", Tags: [2]string{"steal", "loot"}, Bonus: models.NewEffect(models.EffectSteal, 1), Animation: "loot"},
	{Name: "Pack Hunter", Tags: [2]string{"infected", "pounce"}, Bonus: models.NewEffect(models.EffectDamage, 40), Animation: "infected"},
	{Name: "Quarantine Combo", Tags: [2]string{"gas", "containment"}, Bonus: models.NewEffect(models.EffectForceDiscard, 2), Animation: "poison"},
	{Name: "Fortify Combo", Tags: [2]string{"shield", "block"}, Bonus: models.NewEffect(models.EffectHeal, 20), Animation: "shield"},
	{Name: "Rage Combo", Tags: [2]string{"melee", "adrenaline"}, Bonus: models.NewEffect(models.EffectDamage, 35), Animation: "attack"},
}

// SupportedAnimations are the animation types renderers know how to play.
var SupportedAnimations = []string{
	"fire", "poison", "heal", "trap", "bullet",
	"infected", "shield", "loot", "explosion", "attack",
}

// ResolveCombos checks every unordered pair on the seat's field against the
// combo table and applies each match. A combo fires once per qualifying
// pair, so two qualifying pairs fire it twice.
func (d *Duel) ResolveCombos(seat models.Seat) ([]string, error) {
	if err := d.requireActive(); err != nil {
		return nil, err
	}
	p, opp, err := d.seat(seat)
	if err != nil {
		return nil, err
	}
	report := EffectReport{Seat: seat}
	d.resolveCombos(p, opp, &report)
	return report.Combos, nil
}

func (d *Duel) resolveCombos(p, opp *models.PlayerState, report *EffectReport) {
	field := p.Field
	for i := 0; i < len(field); i++ {
		for j := i + 1; j < len(field); j++ {
			a, b := d.definition(field[i]), d.definition(field[j])
			for _, combo := range Combos {
				if !covers(a, b, combo.Tags) {
					continue
				}
				d.applyEffect(p, opp, combo.Bonus, report)
				d.animate(report, combo, field[i], field[j])
				report.Combos = append(report.Combos, combo.Name)

				d.note("%s triggered %s.", displayName(p), combo.Name)
				d.emit(p.Seat, EventCombo, map[string]interface{}{
					"combo": combo.Name,
					"cards": []string{field[i].CardID, field[j].CardID},
				})
				d.log().WithFields(logrus.Fields{
					"seat":  p.Seat,
					"combo": combo.Name,
				}).Info("combo triggered")
			}
		}
	}
}

func (d *Duel) definition(inst *models.CardInstance) *models.CardDefinition {
	if def, ok := d.catalog.Get(inst.CardID); ok {
		return def
	}
	return nil
}

// covers reports whether the pair carries every required tag between them.
// Unknown cards carry no tags.
func covers(a, b *models.CardDefinition, required [2]string) bool {
	for _, tag := range required {
		if !hasTag(a, tag) && !hasTag(b, tag) {
			return false
		}
	}
	return true
}

func hasTag(def *models.CardDefinition, tag string) bool {
	return def != nil && def.HasTag(tag)
}

// animate queues the combo animation on both cards of the pair.
func (d *Duel) animate(report *EffectReport, combo Combo, cards ...*models.CardInstance) {
	if !slices.Contains(SupportedAnimations, combo.Animation) {
		report.warn("unsupported animation %q for %s", combo.Animation, combo.Name)
		d.log().WithField("combo", combo.Name).Warnf("unsupported animation type %q", combo.Animation)
		return
	}
	anim := models.Animation{Type: combo.Animation, Combo: combo.Name, Timestamp: d.now().UTC()}
	for _, c := range cards {
		c.Animations = append(c.Animations, anim)
	}
}
