package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialFeed(t *testing.T, f *apiFixture, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/v1/signatures/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) FeedEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event FeedEvent
	require.NoError(t, json.Unmarshal(msg, &event))
	return event
}

func TestSignatureFeed(t *testing.T) {
	t.Run("Broadcasts issued signatures", func(t *testing.T) {
		f := setupTestAPI(t)
		conn := dialFeed(t, f, "")
		require.Eventually(t, func() bool { return f.feed.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WSSubscribers))

		code, res := f.do(t, http.MethodPost, "/v1/sign", map[string]string{"bytes": testMessage})
		require.Equal(t, http.StatusOK, code)

		event := readEvent(t, conn)
		assert.Equal(t, "signature", event.Type)
		assert.Equal(t, res["id"], event.Data.ID)
		assert.Equal(t, testSignature, event.Data.Signature)
		assert.Equal(t, PurposeRaw, event.Data.Purpose)
	})

	t.Run("Filters by signer", func(t *testing.T) {
		f := setupTestAPI(t)
		other := dialFeed(t, f, "?signer="+testSecpAddress)
		own := dialFeed(t, f, "?signer="+testAddress)
		require.Eventually(t, func() bool { return f.feed.Subscribers() == 2 }, time.Second, 10*time.Millisecond)

		code, _ := f.do(t, http.MethodPost, "/v1/sign", map[string]string{"bytes": testMessage})
		require.Equal(t, http.StatusOK, code)

		event := readEvent(t, own)
		assert.Equal(t, testAddress, event.Data.Signer)

		require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
		_, _, err := other.ReadMessage()
		assert.Error(t, err)
	})

	t.Run("Unregisters on disconnect", func(t *testing.T) {
		f := setupTestAPI(t)
		conn := dialFeed(t, f, "")
		require.Eventually(t, func() bool { return f.feed.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

		conn.Close()
		require.Eventually(t, func() bool { return f.feed.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.WSSubscribers))
	})

	t.Run("Close disconnects subscribers", func(t *testing.T) {
		f := setupTestAPI(t)
		conn := dialFeed(t, f, "")
		require.Eventually(t, func() bool { return f.feed.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

		f.feed.Close()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, _, err := conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
		require.Eventually(t, func() bool { return f.feed.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("Publish without subscribers", func(t *testing.T) {
		f := setupTestAPI(t)
		assert.NotPanics(t, func() { f.feed.Publish(SignatureRecord{ID: "x"}) })
	})
}
