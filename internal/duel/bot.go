package duel

import (
	"fmt"

	"github.com/jason-s-yu/cardduel/internal/models"
)

// BotResult is what the practice bot did on its turn.
type BotResult struct {
	Action string      `json:"action"`
	Draw   DrawResult  `json:"draw"`
	Play   *PlayResult `json:"play,omitempty"`
}

// BotTurn runs the practice bot: draw one card, play the first hand card
// (or discard it when the field is full), then pass the turn to player1.
// The bot only acts once the turn has been advanced to it.
func (d *Duel) BotTurn() (BotResult, error) {
	if err := d.requireActive(); err != nil {
		return BotResult{}, err
	}
	bot, opp, err := d.seat(models.SeatBot)
	if err != nil {
		return BotResult{}, err
	}
	if d.CurrentPlayer != models.SeatBot {
		return BotResult{}, fmt.Errorf("%w: it is %s's turn", ErrOutOfTurn, d.CurrentPlayer)
	}

	res := BotResult{Draw: d.draw(bot, 1, true)}
	if len(bot.Hand) == 0 {
		res.Action = "Idle (no cards)"
	} else {
		play := d.playAt(bot, opp, 0)
		res.Play = &play
		if play.Discarded {
			res.Action = fmt.Sprintf("Discarded %s", play.Card.CardID)
		} else {
			res.Action = fmt.Sprintf("Played %s", play.Card.CardID)
		}
	}

	d.LastBotAction = res.Action
	d.LastBotActionAt = d.now().UTC()
	d.emit(models.SeatBot, EventBotTurn, map[string]interface{}{"action": res.Action})

	d.TurnCount++
	d.CurrentPlayer = models.SeatPlayer1
	d.emit(models.SeatPlayer1, EventAdvanceTurn, map[string]interface{}{"turn": d.TurnCount})
	return res, nil
}
