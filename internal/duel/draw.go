// internal/duel/draw.go
package duel

import (
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/sirupsen/logrus"
)

// DrawResult is the outcome of one draw call. Rule edges are reported here,
// never as errors.
type DrawResult struct {
	Seat      models.Seat            `json:"seat"`
	Drawn     []*models.CardInstance `json:"drawn"`
	Recycled  bool                   `json:"recycled,omitempty"`
	HandFull  bool                   `json:"handFull,omitempty"`
	Exhausted bool                   `json:"exhausted"`
}

// Draw moves up to count cards from the head of the seat's deck into its hand.
func (d *Duel) Draw(seat models.Seat, count int, allowRecycle bool) (DrawResult, error) {
	if err := d.requireActive(); err != nil {
		return DrawResult{}, err
	}
	p, _, err := d.seat(seat)
	if err != nil {
		return DrawResult{}, err
	}
	return d.draw(p, count, allowRecycle), nil
}

func (d *Duel) draw(p *models.PlayerState, count int, allowRecycle bool) DrawResult {
	res := DrawResult{Seat: p.Seat, Drawn: []*models.CardInstance{}}
	log := d.log().WithField("seat", p.Seat)

	for i := 0; i < count; i++ {
		if len(p.Hand) >= MaxHandSize {
			res.HandFull = true
			log.Info("hand full, draw stopped early")
			break
		}
		if len(p.Deck) == 0 && allowRecycle && len(p.DiscardPile) > 0 {
			d.recycle(p)
			res.Recycled = true
		}
		if len(p.Deck) == 0 {
			p.HP = clampHP(p.HP - ExhaustionPenalty)
			res.Exhausted = true
			d.note("%s was exhausted and lost %d hp.", displayName(p), ExhaustionPenalty)
			d.emit(p.Seat, EventExhausted, map[string]interface{}{"hp": p.HP})
			log.WithField("hp", p.HP).Warn("deck and discard empty, exhaustion penalty applied")
			break
		}

		card := p.Deck[0]
		p.Deck = p.Deck[1:]
		p.Hand = append(p.Hand, card)
		res.Drawn = append(res.Drawn, card.Clone())
	}

	if len(res.Drawn) > 0 {
		ids := make([]string, len(res.Drawn))
		for i, c := range res.Drawn {
			ids[i] = c.CardID
		}
		d.emit(p.Seat, EventDraw, map[string]interface{}{
			"count":    len(res.Drawn),
			"cardIds":  ids,
			"deckSize": len(p.Deck),
		})
	}
	return res
}

// recycle replaces the deck with a freshly shuffled copy of the discard
// pile and empties the discard pile.
func (d *Duel) recycle(p *models.PlayerState) {
	deck := make([]*models.CardInstance, len(p.DiscardPile))
	copy(deck, p.DiscardPile)
	d.Rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	p.Deck = deck
	p.DiscardPile = []*models.CardInstance{}

	d.emit(p.Seat, EventRecycle, map[string]interface{}{"newSize": len(deck)})
	d.log().WithFields(logrus.Fields{
		"seat":    p.Seat,
		"newSize": len(deck),
	}).Info("discard pile recycled into deck")
}
