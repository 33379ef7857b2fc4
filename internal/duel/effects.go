// internal/duel/effects.go
package duel

import (
	"fmt"

	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/sirupsen/logrus"
)

// EffectReport collects what applying a card (and any combos) did beyond
// plain hp/zone mutation.
type EffectReport struct {
	Seat models.Seat `json:"seat"`

	// Revealed holds the opponent's hand card ids after a reveal_hand effect.
	// It is meant for the acting player only.
	Revealed []string `json:"revealed,omitempty"`

	Draws    []DrawResult `json:"draws,omitempty"`
	Combos   []string     `json:"combos,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

func (r *EffectReport) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ApplyEffects runs the definition's effect list for inst with seat as the actor.
func (d *Duel) ApplyEffects(seat models.Seat, inst *models.CardInstance) (EffectReport, error) {
	if err := d.requireActive(); err != nil {
		return EffectReport{}, err
	}
	p, opp, err := d.seat(seat)
	if err != nil {
		return EffectReport{}, err
	}
	report := EffectReport{Seat: seat}
	d.applyCard(p, opp, inst, &report)
	return report, nil
}

func (d *Duel) applyCard(p, opp *models.PlayerState, inst *models.CardInstance, report *EffectReport) {
	def, ok := d.catalog.Get(inst.CardID)
	if !ok {
		report.warn("card %s has no catalog definition", inst.CardID)
		d.log().WithField("card", inst.CardID).Warn("played card missing from catalog")
		return
	}
	for _, eff := range def.Effects {
		d.applyEffect(p, opp, eff, report)
	}
}

func (d *Duel) applyEffect(p, opp *models.PlayerState, eff models.Effect, report *EffectReport) {
	v := eff.Value
	if v < 0 {
		v = 0
	}

	switch eff.Kind {
	case models.EffectDamage:
		dealt := min(v, opp.HP)
		opp.HP = clampHP(opp.HP - dealt)
		p.DamageDealt += dealt

	case models.EffectHeal:
		p.HP = clampHP(p.HP + v)

	case models.EffectDraw:
		report.Draws = append(report.Draws, d.draw(p, v, true))

	case models.EffectForceDiscard:
		n := min(v, len(opp.Hand))
		opp.DiscardPile = append(opp.DiscardPile, opp.Hand[:n]...)
		opp.Hand = append([]*models.CardInstance(nil), opp.Hand[n:]...)

	case models.EffectSteal:
		n := min(v, len(opp.Hand), MaxHandSize-len(p.Hand))
		if n <= 0 {
			return
		}
		p.Hand = append(p.Hand, opp.Hand[:n]...)
		opp.Hand = append([]*models.CardInstance(nil), opp.Hand[n:]...)

	case models.EffectRevealHand:
		report.Revealed = make([]string, len(opp.Hand))
		for i, c := range opp.Hand {
			report.Revealed[i] = c.CardID
		}

	default:
		report.warn("unknown effect kind %q skipped", eff.Raw)
		d.log().WithFields(logrus.Fields{
			"seat":   p.Seat,
			"effect": eff.Raw,
		}).Warn("unknown effect kind skipped")
	}
}
