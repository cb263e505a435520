package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the request and streams the events of
// sessionID until the client goes away.
func HandleWebSocket(c echo.Context, hub *Hub, sessionID string) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		SessionID: sessionID,
		Conn:      conn,
		send:      make(chan Notification, sendBuffer),
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		return conn.Close()
	}

	client.send <- Notification{
		Type:      EventConnected,
		Message:   "websocket connection established",
		SessionID: sessionID,
	}

	go client.writePump(hub.logger)
	go func() {
		defer func() {
			select {
			case hub.unregister <- client:
			case <-hub.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}

func (c *Client) writePump(logger *zap.Logger) {
	defer c.Conn.Close()
	for n := range c.send {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteJSON(n); err != nil {
			logger.Debug("websocket write failed", zap.String("sessionId", c.SessionID), zap.Error(err))
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
