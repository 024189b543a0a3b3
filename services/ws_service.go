package services

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades the request and attaches the connection to m as
// participantID. Rooms are joined later with a joinRoom frame.
func HandleWebSocket(ctx *gin.Context, m *WSManager, participantID string) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("user", participantID).Msg("websocket upgrade failed")
		return
	}
	m.Attach(conn, participantID)
}
