package hub_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restobook/hub"
)

func startHubServer(t *testing.T, h *hub.Hub) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Register(conn, 7)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.Unregister(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHubPublish(t *testing.T) {
	h := hub.New()
	url := startHubServer(t, h)

	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.Publish("reservation_created", map[string]interface{}{"id": 42})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Event string                 `json:"event"`
		Data  map[string]interface{} `json:"data"`
	}
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, "reservation_created", msg.Event)
	assert.Equal(t, float64(42), msg.Data["id"])
}

func TestHubUnregisterOnDisconnect(t *testing.T) {
	h := hub.New()
	url := startHubServer(t, h)

	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	client.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// nothing left to write to
	h.Publish("table_deleted", nil)
	assert.Equal(t, 0, h.ClientCount())
}

func TestHubDropsStalledClient(t *testing.T) {
	h := hub.New(hub.WithWriteWait(100 * time.Millisecond))
	url := startHubServer(t, h)

	// connected but never reads, so the socket buffers eventually fill
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	payload := strings.Repeat("x", 1<<20)
	deadline := time.Now().Add(20 * time.Second)
	for h.ClientCount() > 0 && time.Now().Before(deadline) {
		start := time.Now()
		h.Publish("table_updated", payload)
		assert.True(t, time.Since(start) < 2*time.Second)
	}
	assert.Equal(t, 0, h.ClientCount())
}
