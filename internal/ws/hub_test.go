package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpHandler(hub *Hub, userID int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, userID)
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	c := &conn{userID: 1}

	hub.register("a", c)
	hub.register("b", &conn{userID: 1})
	assert.Equal(t, 1, hub.ConnectedUsers())

	hub.unregister("a", c)
	assert.Equal(t, 1, hub.ConnectedUsers())
	hub.unregister("b", c)
	assert.Equal(t, 0, hub.ConnectedUsers())
}

func TestHubEndToEnd(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(httpHandler(hub, 7))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sock, _, err := websocket.Dial(ctx, "ws"+srv.URL[4:], nil)
	require.NoError(t, err)
	defer sock.Close(websocket.StatusNormalClosure, "done")

	waitFor(t, func() bool { return hub.ConnectedUsers() == 1 })

	hub.Notify(7, "market:listing-sold", map[string]string{"listing_id": "3"})

	_, data, err := sock.Read(ctx)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "market:listing-sold", env.Event)
}

func TestHubBroadcastReachesAllUsers(t *testing.T) {
	hub := NewHub(nil)
	srvA := httptest.NewServer(httpHandler(hub, 1))
	defer srvA.Close()
	srvB := httptest.NewServer(httpHandler(hub, 2))
	defer srvB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sockA, _, err := websocket.Dial(ctx, "ws"+srvA.URL[4:], nil)
	require.NoError(t, err)
	defer sockA.Close(websocket.StatusNormalClosure, "done")
	sockB, _, err := websocket.Dial(ctx, "ws"+srvB.URL[4:], nil)
	require.NoError(t, err)
	defer sockB.Close(websocket.StatusNormalClosure, "done")

	waitFor(t, func() bool { return hub.ConnectedUsers() == 2 })

	hub.Broadcast("market:new-listing", nil)

	for _, sock := range []*websocket.Conn{sockA, sockB} {
		_, data, err := sock.Read(ctx)
		require.NoError(t, err)
		var env envelope
		require.NoError(t, json.Unmarshal(data, &env))
		assert.Equal(t, "market:new-listing", env.Event)
	}
}

func TestNotifyUnknownUserIsNoop(t *testing.T) {
	hub := NewHub(nil)
	hub.Notify(999, "state:update", nil)
	hub.Broadcast("state:update", nil)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
