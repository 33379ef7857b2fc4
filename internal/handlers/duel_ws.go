// internal/handlers/duel_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/cardduel/internal/auth"
	"github.com/jason-s-yu/cardduel/internal/duel"
	"github.com/jason-s-yu/cardduel/internal/middleware"
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/sirupsen/logrus"
)

// DuelMessage is one client request on the duel channel. The channel is
// pull-based: every request gets exactly one reply.
type DuelMessage struct {
	Type           string      `json:"type"`
	Seat           models.Seat `json:"seat,omitempty"`
	Count          int         `json:"count,omitempty"`
	CardInstanceID uuid.UUID   `json:"cardInstanceId,omitempty"`
	Redact         *bool       `json:"redact,omitempty"`
}

// DuelWSHandler upgrades GET /duel/{id}/ws. A spectatorId query parameter
// registers the connection as a spectator for its lifetime.
func (s *DuelServer) DuelWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if _, err := s.Manager.GetState(sessionID, true); err != nil {
			writeError(w, s.Logger, err)
			return
		}
		token := requestToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"duel"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Logger.WithField("session", sessionID).WithError(err).Warn("websocket accept failed")
			return
		}
		defer c.Close(websocket.StatusInternalError, "internal error")

		if c.Subprotocol() != "duel" {
			c.Close(BadSubprotocolError, "client must use the 'duel' subprotocol")
			return
		}

		logger := s.Logger.WithField("session", sessionID)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, sessionID)

		if spectatorID := r.URL.Query().Get("spectatorId"); spectatorID != "" {
			if err := s.Manager.AddSpectator(sessionID, spectatorID); err != nil {
				c.Close(SessionNotFoundError, err.Error())
				return
			}
			defer func() {
				if err := s.Manager.RemoveSpectator(sessionID, spectatorID); err != nil && !errors.Is(err, duel.ErrSessionNotFound) {
					logger.WithError(err).Warn("failed to remove spectator")
				}
			}()
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		err = s.readDuelMessages(ctx, c, sessionID, token, logger)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, sessionID, err)

		switch {
		case errors.Is(err, duel.ErrSessionNotFound):
			c.Close(SessionNotFoundError, "duel session is gone")
		case errors.Is(err, auth.ErrInvalidToken):
			c.Close(InvalidAuthTokenError, "invalid or missing auth token")
		case errors.Is(err, errDuelEnded):
			c.Close(DuelEndedError, "duel ended")
		default:
			c.Close(websocket.StatusNormalClosure, "")
		}
	}
}

var errDuelEnded = errors.New("duel ended")

// readDuelMessages serves requests until the client leaves, the session
// disappears, the duel ends or the caller's token is rejected.
func (s *DuelServer) readDuelMessages(ctx context.Context, c *websocket.Conn, sessionID, token string, logger logrus.FieldLogger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			sendWsError(ctx, c, logger, "binary messages are not supported")
			continue
		}

		var msg DuelMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(ctx, c, logger, "invalid JSON format")
			continue
		}
		logger.WithField("type", msg.Type).Debug("duel message received")

		reply, err := s.dispatch(sessionID, token, msg)
		if err != nil {
			sendWsError(ctx, c, logger, err.Error())
			if errors.Is(err, duel.ErrSessionNotFound) || errors.Is(err, auth.ErrInvalidToken) {
				return err
			}
			continue
		}
		sendWsMessage(ctx, c, logger, reply)

		if tr, ok := reply["result"].(turnResponse); ok && tr.Ended != nil {
			return errDuelEnded
		}
	}
}

func (s *DuelServer) dispatch(sessionID, token string, msg DuelMessage) (map[string]interface{}, error) {
	switch msg.Type {
	case "ping":
		return map[string]interface{}{"type": "pong"}, nil

	case "get_state":
		redact := true
		if msg.Redact != nil {
			redact = *msg.Redact
		}
		if !redact {
			if err := s.authorizeParticipant(token, sessionID); err != nil {
				return nil, err
			}
		}
		v, err := s.Manager.GetState(sessionID, redact)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"type": "state", "result": v}, nil

	case "draw":
		if err := s.authorizeSeat(token, sessionID, msg.Seat); err != nil {
			return nil, err
		}
		count := msg.Count
		if count <= 0 {
			count = 1
		}
		res, out, err := s.Manager.Draw(sessionID, msg.Seat, count)
		return s.turnReply("draw", sessionID, res, out, err)

	case "play":
		if err := s.authorizeSeat(token, sessionID, msg.Seat); err != nil {
			return nil, err
		}
		res, out, err := s.Manager.PlayCard(sessionID, msg.Seat, msg.CardInstanceID)
		return s.turnReply("play", sessionID, res, out, err)

	case "advance":
		if err := s.authorizeParticipant(token, sessionID); err != nil {
			return nil, err
		}
		v, err := s.Manager.AdvanceTurn(sessionID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"type":          "advance",
			"currentPlayer": v.CurrentPlayer,
			"turnCount":     v.TurnCount,
		}, nil
	}
	return nil, fmt.Errorf("unknown message type: %s", msg.Type)
}

func (s *DuelServer) turnReply(kind, sessionID string, result interface{}, out duel.Outcome, err error) (map[string]interface{}, error) {
	if err != nil {
		return nil, err
	}
	ended, err := s.settleIfOver(sessionID, out)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"type":   kind,
		"result": turnResponse{Result: result, Outcome: out, Ended: ended},
	}, nil
}

// sendWsMessage marshals a message and writes it with a bounded deadline.
func sendWsMessage(ctx context.Context, c *websocket.Conn, logger logrus.FieldLogger, message interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		logger.WithError(err).Error("failed to marshal websocket message")
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			logger.WithError(err).Warn("failed to write websocket message")
		}
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(ctx context.Context, c *websocket.Conn, logger logrus.FieldLogger, errorMsg string) {
	sendWsMessage(ctx, c, logger, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}
