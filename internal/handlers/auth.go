// internal/handlers/auth.go
package handlers

import (
	"net/http"
)

type issueTokenRequest struct {
	PlayerID string `json:"playerId"`
}

// handleIssueToken mints a session token for playerId. Only a caller holding
// the admin key (the matchmaking front end) may issue tokens. The token is
// returned in the body and set as the auth_token cookie.
func (s *DuelServer) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if err := s.authorizeAdmin(r); err != nil {
		writeError(w, s.Logger, err)
		return
	}
	var req issueTokenRequest
	if err := decodeBody(r, &req); err != nil || req.PlayerID == "" {
		http.Error(w, "playerId is required", http.StatusBadRequest)
		return
	}
	if s.Issuer == nil {
		http.Error(w, "token issuance is not configured", http.StatusServiceUnavailable)
		return
	}

	token, err := s.Issuer.CreateJWT(req.PlayerID)
	if err != nil {
		writeError(w, s.Logger, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	s.Logger.WithField("player", req.PlayerID).Info("issued session token")
	writeJSON(w, http.StatusOK, map[string]string{
		"token":    token,
		"playerId": req.PlayerID,
	})
}
