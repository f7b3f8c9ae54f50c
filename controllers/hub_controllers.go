package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restobook/hub"
	"github.com/yeremiapane/restobook/utils"
)

type HubController struct {
	Hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewHubController accepts websocket handshakes from allowedOrigin, or from
// anywhere when it is "*".
func NewHubController(h *hub.Hub, allowedOrigin string) *HubController {
	return &HubController{
		Hub: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// StaffFeed -> GET /ws/staff?token=, streams booking events to staff.
func (hc *HubController) StaffFeed(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if !actor.Staff {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	ws, err := hc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("Websocket upgrade failed: %v", err)
		return
	}
	hc.Hub.Register(ws, actor.UserID)
	utils.InfoLogger.Printf("Staff %d connected to feed", actor.UserID)

	// Drain client frames until the connection goes away.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	hc.Hub.Unregister(ws)
	utils.InfoLogger.Printf("Staff %d disconnected from feed", actor.UserID)
}
