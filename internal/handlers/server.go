// internal/handlers/server.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/jason-s-yu/cardduel/internal/auth"
	"github.com/jason-s-yu/cardduel/internal/duel"
	"github.com/jason-s-yu/cardduel/internal/middleware"
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/sirupsen/logrus"
)

// DuelServer is the HTTP/WS surface over a duel.Manager.
type DuelServer struct {
	Manager      *duel.Manager
	Issuer       *auth.Issuer
	AdminKeyHash string
	Logger       logrus.FieldLogger
}

func NewDuelServer(m *duel.Manager, issuer *auth.Issuer, adminKeyHash string, logger logrus.FieldLogger) *DuelServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DuelServer{
		Manager:      m,
		Issuer:       issuer,
		AdminKeyHash: adminKeyHash,
		Logger:       logger,
	}
}

// Routes registers every duel endpoint on a fresh mux wrapped in access logging.
func (s *DuelServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/token", s.handleIssueToken)

	mux.HandleFunc("POST /duel/practice", s.handleStartPractice)
	mux.HandleFunc("POST /duel/live", s.handleStartLive)
	mux.HandleFunc("GET /duel/active", s.handleListActive)

	mux.HandleFunc("POST /duel/{id}/draw", s.handleDraw)
	mux.HandleFunc("POST /duel/{id}/play", s.handlePlay)
	mux.HandleFunc("POST /duel/{id}/advance", s.handleAdvance)
	mux.HandleFunc("POST /duel/{id}/bot", s.handleBotTurn)
	mux.HandleFunc("POST /duel/{id}/forfeit", s.handleForfeit)
	mux.HandleFunc("POST /duel/{id}/winner", s.handleDeclareWinner)
	mux.HandleFunc("POST /duel/{id}/rematch", s.handleRematch)
	mux.HandleFunc("POST /duel/{id}/spectators", s.handleAddSpectator)
	mux.HandleFunc("DELETE /duel/{id}/spectators/{spectatorId}", s.handleRemoveSpectator)
	mux.HandleFunc("GET /duel/{id}/state", s.handleState)
	mux.HandleFunc("GET /duel/{id}/ws", s.DuelWSHandler())

	mux.HandleFunc("GET /summary/{duelId}", s.handleSummary)
	mux.HandleFunc("GET /players/{playerId}", s.handlePlayer)

	return middleware.LogMiddleware(s.Logger)(mux)
}

// authorizeSeat checks that the caller behind token owns seat. Seats without
// a player id (the practice bot, anonymous practice players) are open.
func (s *DuelServer) authorizeSeat(token, sessionID string, seat models.Seat) error {
	owner, err := s.Manager.SeatOwner(sessionID, seat)
	if err != nil {
		return err
	}
	if owner == "" {
		return nil
	}
	playerID, err := s.authenticate(token)
	if err != nil {
		return err
	}
	if playerID != owner {
		return fmt.Errorf("%w: %s does not own seat %s", errForbidden, playerID, seat)
	}
	return nil
}

// authorizeParticipant checks that the caller behind token is seated in the
// duel. A duel with no owned seats (anonymous practice) is open.
func (s *DuelServer) authorizeParticipant(token, sessionID string) error {
	var owners []string
	for _, seat := range []models.Seat{models.SeatPlayer1, models.SeatPlayer2} {
		owner, err := s.Manager.SeatOwner(sessionID, seat)
		if errors.Is(err, duel.ErrInvalidPlayer) {
			continue
		}
		if err != nil {
			return err
		}
		if owner != "" {
			owners = append(owners, owner)
		}
	}
	if len(owners) == 0 {
		return nil
	}
	playerID, err := s.authenticate(token)
	if err != nil {
		return err
	}
	if !slices.Contains(owners, playerID) {
		return fmt.Errorf("%w: %s is not seated in this duel", errForbidden, playerID)
	}
	return nil
}

func (s *DuelServer) authenticate(token string) (string, error) {
	if s.Issuer == nil {
		return "", fmt.Errorf("%w: authentication is not configured", auth.ErrInvalidToken)
	}
	if token == "" {
		return "", fmt.Errorf("%w: missing token", auth.ErrInvalidToken)
	}
	return s.Issuer.AuthenticateJWT(token)
}

// authorizeAdmin verifies the X-Admin-Key header against the configured hash.
func (s *DuelServer) authorizeAdmin(r *http.Request) error {
	ok, err := auth.VerifyAdminKey(r.Header.Get("X-Admin-Key"), s.AdminKeyHash)
	if err != nil {
		if errors.Is(err, auth.ErrAdminDisabled) {
			return err
		}
		return fmt.Errorf("%w: admin key check failed: %v", errForbidden, err)
	}
	if !ok {
		return fmt.Errorf("%w: bad admin key", errForbidden)
	}
	return nil
}

// settleIfOver ends the duel once a turn operation reports it over. A duel
// that some other caller already ended is reported as over without settling
// it a second time.
func (s *DuelServer) settleIfOver(sessionID string, out duel.Outcome) (*endResponse, error) {
	if !out.Over {
		return nil, nil
	}
	st, err := s.Manager.End(sessionID, string(out.Winner))
	if errors.Is(err, duel.ErrDuelNotActive) || errors.Is(err, duel.ErrSessionNotFound) {
		s.Logger.WithField("session", sessionID).WithError(err).Debug("duel already ended")
		return &endResponse{Winner: out.Winner}, nil
	}
	if err != nil {
		return nil, err
	}
	resp := &endResponse{Winner: out.Winner}
	if st != nil {
		resp.DuelID = st.DuelID
		resp.Summary = &st.Summary
	}
	s.Logger.WithFields(logrus.Fields{
		"session": sessionID,
		"winner":  out.Winner,
	}).Info("duel over, settlement started")
	return resp, nil
}
