// internal/handlers/duel.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardduel/internal/duel"
	"github.com/jason-s-yu/cardduel/internal/models"
)

type startPracticeRequest struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type startLiveRequest struct {
	Player1ID   string   `json:"player1Id"`
	Player2ID   string   `json:"player2Id"`
	Player1Name string   `json:"player1Name"`
	Player2Name string   `json:"player2Name"`
	Deck1       []string `json:"deck1"`
	Deck2       []string `json:"deck2"`
	Wager       int      `json:"wager"`
}

type seatRequest struct {
	Seat models.Seat `json:"seat"`
}

type drawRequest struct {
	Seat  models.Seat `json:"seat"`
	Count int         `json:"count"`
}

type playRequest struct {
	Seat           models.Seat `json:"seat"`
	CardInstanceID uuid.UUID   `json:"cardInstanceId"`
}

type rematchRequest struct {
	Deck1 []string `json:"deck1"`
	Deck2 []string `json:"deck2"`
	Wager int      `json:"wager"`
}

type spectatorRequest struct {
	SpectatorID string `json:"spectatorId"`
}

// endResponse is attached to any response whose operation ended the duel.
type endResponse struct {
	Winner  models.Seat     `json:"winner,omitempty"`
	DuelID  string          `json:"duelId,omitempty"`
	Summary *models.Summary `json:"summary,omitempty"`
}

type turnResponse struct {
	Result  interface{}  `json:"result"`
	Outcome duel.Outcome `json:"outcome"`
	Ended   *endResponse `json:"ended,omitempty"`
}

func (s *DuelServer) handleStartPractice(w http.ResponseWriter, r *http.Request) {
	var req startPracticeRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "bad practice request payload", http.StatusBadRequest)
		return
	}
	id, err := s.Manager.StartPractice(duel.Participant{ID: req.PlayerID, Name: req.PlayerName})
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
}

func (s *DuelServer) handleStartLive(w http.ResponseWriter, r *http.Request) {
	var req startLiveRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "bad live duel request payload", http.StatusBadRequest)
		return
	}
	if req.Player1ID == "" || req.Player2ID == "" {
		http.Error(w, "player1Id and player2Id are required", http.StatusBadRequest)
		return
	}
	if req.Wager < 0 {
		http.Error(w, "wager must be non-negative", http.StatusBadRequest)
		return
	}
	id, err := s.Manager.StartLive(
		duel.Participant{ID: req.Player1ID, Name: req.Player1Name},
		duel.Participant{ID: req.Player2ID, Name: req.Player2Name},
		req.Deck1, req.Deck2, req.Wager,
	)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
}

func (s *DuelServer) handleListActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Manager.ListActiveSessions())
}

func (s *DuelServer) handleDraw(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req drawRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "bad draw request payload", http.StatusBadRequest)
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if err := s.authorizeSeat(requestToken(r), id, req.Seat); err != nil {
		writeError(w, s.Logger, err)
		return
	}

	res, out, err := s.Manager.Draw(id, req.Seat, req.Count)
	s.respondTurn(w, id, res, out, err)
}

func (s *DuelServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req playRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "bad play request payload", http.StatusBadRequest)
		return
	}
	if err := s.authorizeSeat(requestToken(r), id, req.Seat); err != nil {
		writeError(w, s.Logger, err)
		return
	}

	res, out, err := s.Manager.PlayCard(id, req.Seat, req.CardInstanceID)
	s.respondTurn(w, id, res, out, err)
}

func (s *DuelServer) handleBotTurn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.authorizeParticipant(requestToken(r), id); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	res, out, err := s.Manager.BotTurn(id)
	s.respondTurn(w, id, res, out, err)
}

func (s *DuelServer) respondTurn(w http.ResponseWriter, id string, result interface{}, out duel.Outcome, err error) {
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	ended, err := s.settleIfOver(id, out)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{Result: result, Outcome: out, Ended: ended})
}

func (s *DuelServer) handleAdvance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.authorizeParticipant(requestToken(r), id); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	v, err := s.Manager.AdvanceTurn(id)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"currentPlayer": v.CurrentPlayer,
		"turnCount":     v.TurnCount,
	})
}

func (s *DuelServer) handleForfeit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req seatRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "bad forfeit request payload", http.StatusBadRequest)
		return
	}
	if err := s.authorizeSeat(requestToken(r), id, req.Seat); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	st, err := s.Manager.Forfeit(id, req.Seat)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	resp := endResponse{}
	if st != nil {
		resp = endResponse{Winner: st.Summary.Winner, DuelID: st.DuelID, Summary: &st.Summary}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *DuelServer) handleDeclareWinner(w http.ResponseWriter, r *http.Request) {
	if err := s.authorizeAdmin(r); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	id := r.PathValue("id")
	var req seatRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "bad winner request payload", http.StatusBadRequest)
		return
	}
	st, err := s.Manager.DeclareWinner(id, req.Seat)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	s.Logger.WithField("session", id).WithField("seat", req.Seat).Warn("admin declared winner")
	resp := endResponse{Winner: req.Seat}
	if st != nil {
		resp.DuelID = st.DuelID
		resp.Summary = &st.Summary
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *DuelServer) handleRematch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req rematchRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "bad rematch request payload", http.StatusBadRequest)
		return
	}
	if req.Wager < 0 {
		http.Error(w, "wager must be non-negative", http.StatusBadRequest)
		return
	}
	if err := s.authorizeParticipant(requestToken(r), id); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	if err := s.Manager.Rematch(id, req.Deck1, req.Deck2, req.Wager); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	v, err := s.Manager.GetState(id, true)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *DuelServer) handleAddSpectator(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req spectatorRequest
	if err := decodeBody(r, &req); err != nil || req.SpectatorID == "" {
		http.Error(w, "spectatorId is required", http.StatusBadRequest)
		return
	}
	if err := s.Manager.AddSpectator(id, req.SpectatorID); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *DuelServer) handleRemoveSpectator(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.RemoveSpectator(r.PathValue("id"), r.PathValue("spectatorId")); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *DuelServer) handleState(w http.ResponseWriter, r *http.Request) {
	redact := true
	if raw := r.URL.Query().Get("redact"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "redact must be a boolean", http.StatusBadRequest)
			return
		}
		redact = v
	}
	id := r.PathValue("id")
	if !redact {
		if err := s.authorizeParticipant(requestToken(r), id); err != nil {
			writeError(w, s.Logger, err)
			return
		}
	}
	v, err := s.Manager.GetState(id, redact)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *DuelServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Manager.Summary(r.Context(), r.PathValue("duelId"))
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *DuelServer) handlePlayer(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Manager.Player(r.Context(), r.PathValue("playerId"))
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
