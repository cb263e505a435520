package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zaptest.NewLogger(t))
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/events/:id", func(c echo.Context) error {
		return HandleWebSocket(c, hub, c.Param("id"))
	})
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Notification {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var n Notification
	require.NoError(t, conn.ReadJSON(&n))
	return n
}

func TestHub_SendToSession(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "s-1")

	hello := read(t, conn)
	assert.Equal(t, EventConnected, hello.Type)
	assert.Equal(t, "s-1", hello.SessionID)
	assert.Eventually(t, func() bool { return hub.Connected("s-1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.SendToSession("s-1", Notification{Type: EventCountdown, Data: map[string]int{"remaining": 42}}))
	got := read(t, conn)
	assert.Equal(t, EventCountdown, got.Type)
	assert.Equal(t, map[string]interface{}{"remaining": float64(42)}, got.Data)
}

func TestHub_SessionsAreIsolated(t *testing.T) {
	hub, srv := startHub(t)
	a := dial(t, srv, "a")
	read(t, a)
	b := dial(t, srv, "b")
	read(t, b)
	assert.Eventually(t, func() bool { return hub.Connected("a") == 1 && hub.Connected("b") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish("b", EventGeo, "for b")

	got := read(t, b)
	assert.Equal(t, EventGeo, got.Type)
	assert.Equal(t, "b", got.SessionID)

	require.NoError(t, a.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	var n Notification
	assert.Error(t, a.ReadJSON(&n), "a receives nothing")
}

func TestHub_NotConnected(t *testing.T) {
	hub, _ := startHub(t)
	assert.ErrorIs(t, hub.SendToSession("nobody", Notification{Type: EventGeo}), ErrNotConnected)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "s-1")
	read(t, conn)
	assert.Eventually(t, func() bool { return hub.Connected("s-1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connected("s-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
