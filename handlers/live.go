// handlers/live.go - websocket feed of progression notifications
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const livePingInterval = 30 * time.Second

func (h *Handler) upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// LiveProgress streams the caller's achievement and level-up notifications
// until the client disconnects.
func (h *Handler) LiveProgress(conn *websocket.Conn) {
	var userID uint
	switch v := conn.Locals("userId").(type) {
	case float64:
		userID = uint(v)
	case uint:
		userID = v
	}
	if userID == 0 {
		_ = conn.Close()
		return
	}

	updates, leave := h.Hub.Subscribe(userID)
	defer leave()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingInterval)
	defer ping.Stop()

	h.Log.Debug("live feed connected", zap.Uint("user_id", userID))
	for {
		select {
		case <-closed:
			h.Log.Debug("live feed closed", zap.Uint("user_id", userID))
			return
		case n, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
