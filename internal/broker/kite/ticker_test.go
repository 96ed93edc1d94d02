package kite

import (
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quotePacket(token int32, ltp, open, high, low, closePx float64) []byte {
	p := make([]byte, quotePacketLen)
	put := func(off int, v int32) { binary.BigEndian.PutUint32(p[off:], uint32(v)) }
	paise := func(v float64) int32 { return int32(v*priceDivisor + 0.5) }
	put(0, token)
	put(4, paise(ltp))
	put(8, 25)
	put(12, paise(ltp))
	put(16, 123456)
	put(28, paise(open))
	put(32, paise(high))
	put(36, paise(low))
	put(40, paise(closePx))
	return p
}

func frame(packets ...[]byte) []byte {
	out := binary.BigEndian.AppendUint16(nil, uint16(len(packets)))
	for _, p := range packets {
		out = binary.BigEndian.AppendUint16(out, uint16(len(p)))
		out = append(out, p...)
	}
	return out
}

func TestParseFrame(t *testing.T) {
	at := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	ltp := make([]byte, ltpPacketLen)
	binary.BigEndian.PutUint32(ltp[0:], 256265)
	binary.BigEndian.PutUint32(ltp[4:], 2450050)

	ticks, err := ParseFrame(frame(quotePacket(408065, 100.2, 99, 100.5, 98.7, 99.1), ltp), at)
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	assert.Equal(t, int64(408065), ticks[0].Token)
	assert.InDelta(t, 100.2, ticks[0].LastPrice, 1e-9)
	assert.InDelta(t, 100.5, ticks[0].High, 1e-9)
	assert.InDelta(t, 98.7, ticks[0].Low, 1e-9)
	assert.Equal(t, int64(123456), ticks[0].Volume)
	assert.Equal(t, at, ticks[0].At)

	assert.Equal(t, int64(256265), ticks[1].Token)
	assert.InDelta(t, 24500.5, ticks[1].LastPrice, 1e-9)
}

func TestParseFrame_HeartbeatAndTruncated(t *testing.T) {
	ticks, err := ParseFrame([]byte{0x00}, time.Now())
	assert.NoError(t, err)
	assert.Empty(t, ticks)

	f := frame(quotePacket(1, 1, 1, 1, 1, 1))
	_, err = ParseFrame(f[:len(f)-3], time.Now())
	assert.Error(t, err)
}

func TestTicker_StoreKeepsRangeOnLTPPacket(t *testing.T) {
	tk, err := NewTicker("wss://example.invalid", "k", "a", 1)
	require.NoError(t, err)

	tk.store([]Tick{{Token: 1, LastPrice: 100, High: 101, Low: 99}})
	tk.store([]Tick{{Token: 1, LastPrice: 100.7}})

	got, ok := tk.Latest(1)
	require.True(t, ok)
	assert.Equal(t, 100.7, got.LastPrice)
	assert.Equal(t, 101.0, got.High)
	assert.Equal(t, 99.0, got.Low)
}

func TestTicker_Run(t *testing.T) {
	var subscribed atomic.Bool
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub, mode map[string]any
		if conn.ReadJSON(&sub) != nil || conn.ReadJSON(&mode) != nil {
			return
		}
		subscribed.Store(sub["a"] == "subscribe" && mode["a"] == "mode")

		_ = conn.WriteMessage(websocket.BinaryMessage, frame(quotePacket(408065, 100.2, 99, 100.5, 98.7, 99.1)))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	tk, err := NewTicker("ws"+strings.TrimPrefix(srv.URL, "http"), "k", "a", 408065)
	require.NoError(t, err)
	var connected atomic.Bool
	tk.OnConnState = func(v bool) { connected.Store(v) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tk.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		got, ok := tk.Latest(408065)
		return ok && got.High == 100.5
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, subscribed.Load())
	assert.True(t, connected.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not stop")
	}
	assert.False(t, connected.Load())
}
