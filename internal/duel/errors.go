package duel

import (
	"errors"
	"fmt"

	"github.com/jason-s-yu/cardduel/internal/models"
)

var (
	// ErrInvalidPlayer is wrapped by every *InvalidPlayerError.
	ErrInvalidPlayer   = errors.New("invalid player seat")
	ErrSessionNotFound = errors.New("duel session not found")
	ErrDuelNotActive   = errors.New("duel is not active")
	ErrCardNotInHand   = errors.New("card instance is not in hand")
	ErrUnknownCard     = errors.New("unknown card id")
	ErrWrongMode       = errors.New("operation not supported in this duel mode")
	ErrOutOfTurn       = errors.New("not this seat's turn")
)

// InvalidPlayerError reports a seat key that is unknown or not seated in the duel.
type InvalidPlayerError struct {
	Seat models.Seat
}

func (e *InvalidPlayerError) Error() string {
	return fmt.Sprintf("invalid player seat %q", string(e.Seat))
}

func (e *InvalidPlayerError) Unwrap() error { return ErrInvalidPlayer }
