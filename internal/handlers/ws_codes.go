// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the duel channel.
const (
	BadSubprotocolError   = 3000 // Client connected without the "duel" subprotocol.
	InvalidAuthTokenError = 3001 // Provided auth token was invalid or expired.
	SessionNotFoundError  = 3003 // The session in the URL is not live.
	DuelEndedError        = 3004 // The duel ended while the client was attached.
)
