package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

func feedServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer func() {
			_ = conn.Close()
		}()

		var sub subscribeRequest
		require.NoError(t, conn.ReadJSON(&sub))
		assert.Equal(t, "subscribe", sub.Op)

		for _, frame := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
}

func TestFeed_streamsTicks(t *testing.T) {
	server := feedServer(t, []string{
		`{"symbol":"EURUSD","price":"1.05503","volume":"1.25","side":"buy","ts":1748854800000}`,
		`{"symbol":"EURUSD","price":"1.05504","volume":"0.5","side":"sell","ts":1748854801000}`,
	})
	defer server.Close()

	f := NewFeed(strings.Replace(server.URL, "http", "ws", 1), []string{"EURUSD"}, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, f.Connect(ctx))
	defer f.Close()

	var ticks []common.Tick
	for tick := range f.Stream(ctx) {
		ticks = append(ticks, tick)
	}

	require.Len(t, ticks, 2)
	assert.Equal(t, "EURUSD", ticks[0].Symbol)
	assert.True(t, ticks[0].Price.Eq(fixed.New(105503, 5)))
	assert.Equal(t, common.TickSideBuy, ticks[0].Side)
	assert.Equal(t, common.TickSideSell, ticks[1].Side)
	assert.Equal(t, feedComponentName, ticks[0].Source)
	assert.True(t, ticks[0].TimeStamp.Before(ticks[1].TimeStamp))
}

func TestFeed_skipsBadFrames(t *testing.T) {
	server := feedServer(t, []string{
		`not json`,
		`{"symbol":"","price":"1","volume":"1","ts":1748854800000}`,
		`{"symbol":"EURUSD","price":"1.05503","volume":"1","side":"hold","ts":1748854800000}`,
		`{"symbol":"EURUSD","price":"1.05503","volume":"1","ts":1748854800000}`,
	})
	defer server.Close()

	f := NewFeed(strings.Replace(server.URL, "http", "ws", 1), []string{"EURUSD"}, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, f.Connect(ctx))
	defer f.Close()

	var ticks []common.Tick
	for tick := range f.Stream(ctx) {
		ticks = append(ticks, tick)
	}

	// only the last frame is valid, side defaults to unknown
	require.Len(t, ticks, 1)
	assert.Equal(t, common.TickSideUnknown, ticks[0].Side)
}

func TestFeed_connectRefused(t *testing.T) {
	f := NewFeed("ws://127.0.0.1:1/feed", []string{"EURUSD"}, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, f.Connect(ctx))
}
