package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/whatthedob/whatthedob-backend/internal/middleware"
	ws "github.com/whatthedob/whatthedob-backend/internal/websocket"
)

// RatingStreamController upgrades clients to a live feed of rating updates.
type RatingStreamController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewRatingStreamController accepts upgrades from the given origins. "*"
// allows any origin; requests without an Origin header are always allowed.
func NewRatingStreamController(hub *ws.Hub, allowedOrigins []string) *RatingStreamController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &RatingStreamController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Stream
// GET /api/v1/ws/ratings
func (ctrl *RatingStreamController) Stream(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sessionID, _ := middleware.GetSessionID(c)

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err, nil)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, sessionID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("WebSocket connection established", map[string]interface{}{
		"session_id": sessionID,
	})
}
