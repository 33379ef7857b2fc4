package duel

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/sirupsen/logrus"
)

// PlayResult describes one card play.
type PlayResult struct {
	Seat models.Seat          `json:"seat"`
	Card *models.CardInstance `json:"card"`

	// Discarded is set when the field was full: the card went to the discard
	// pile and none of its effects applied.
	Discarded bool         `json:"discarded,omitempty"`
	Report    EffectReport `json:"report"`
}

// PlayCard moves a hand card onto the field, applies its effects and then
// resolves combos over the whole field.
func (d *Duel) PlayCard(seat models.Seat, instanceID uuid.UUID) (PlayResult, error) {
	if err := d.requireActive(); err != nil {
		return PlayResult{}, err
	}
	p, opp, err := d.seat(seat)
	if err != nil {
		return PlayResult{}, err
	}
	idx := -1
	for i, c := range p.Hand {
		if c.InstanceID == instanceID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return PlayResult{}, ErrCardNotInHand
	}
	return d.playAt(p, opp, idx), nil
}

func (d *Duel) playAt(p, opp *models.PlayerState, idx int) PlayResult {
	card := p.Hand[idx]
	p.Hand = append(p.Hand[:idx:idx], p.Hand[idx+1:]...)
	res := PlayResult{Seat: p.Seat, Report: EffectReport{Seat: p.Seat}}
	log := d.log().WithFields(logrus.Fields{"seat": p.Seat, "card": card.CardID})

	if len(p.Field) >= MaxFieldSize {
		p.DiscardPile = append(p.DiscardPile, card)
		res.Card = card.Clone()
		res.Discarded = true
		d.emit(p.Seat, EventDiscard, map[string]interface{}{"cardId": card.CardID, "reason": "field_full"})
		log.Info("field full, card discarded")
		return res
	}

	p.Field = append(p.Field, card)
	p.CardsPlayed++
	d.emit(p.Seat, EventPlayCard, map[string]interface{}{"cardId": card.CardID})
	log.Debug("card played")

	d.applyCard(p, opp, card, &res.Report)
	d.resolveCombos(p, opp, &res.Report)
	res.Card = card.Clone()
	return res
}
