package kite

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/url"
	"sync"
	"time"

	"intraday_trader/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
)

const (
	modeQuote      = "quote"
	quotePacketLen = 44
	ltpPacketLen   = 8
	priceDivisor   = 100.0
)

// Tick is the last streamed quote for an instrument. High and Low are for the day.
type Tick struct {
	Token     int64
	LastPrice float64
	LastQty   int64
	AvgPrice  float64
	Volume    int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	At        time.Time
}

// Ticker keeps a websocket subscription in quote mode and caches the latest tick per token.
type Ticker struct {
	url    string
	tokens []int64
	dialer *websocket.Dialer

	// OnConnState is called on every connect and disconnect.
	OnConnState func(connected bool)

	mu   sync.RWMutex
	last map[int64]Tick
	now  func() time.Time
}

func NewTicker(rawURL, apiKey, accessToken string, tokens ...int64) (*Ticker, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse ticker url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", apiKey)
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	return &Ticker{
		url:    u.String(),
		tokens: tokens,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		last:   make(map[int64]Tick),
		now:    time.Now,
	}, nil
}

func (t *Ticker) Latest(token int64) (Tick, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tk, ok := t.last[token]
	return tk, ok
}

func (t *Ticker) store(ticks []Tick) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tk := range ticks {
		// ltp-only packets keep the day range of the previous quote
		if prev, ok := t.last[tk.Token]; ok && tk.High == 0 {
			tk.Open, tk.High, tk.Low, tk.Close = prev.Open, prev.High, prev.Low, prev.Close
		}
		t.last[tk.Token] = tk
	}
}

func (t *Ticker) setConnected(v bool) {
	if t.OnConnState != nil {
		t.OnConnState(v)
	}
}

// Run connects and reconnects until ctx is done.
func (t *Ticker) Run(ctx context.Context) {
	b := &backoff.Backoff{Min: time.Second, Max: 30 * time.Second, Factor: 2, Jitter: true}

	for {
		err := t.session(ctx, b)
		t.setConnected(false)
		if ctx.Err() != nil {
			logger.Info("[WS] ticker stopped")
			return
		}

		wait := b.Duration()
		logger.Warn("[WS] ticker disconnected: %v; reconnect in %s", err, wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (t *Ticker) session(ctx context.Context, b *backoff.Backoff) error {
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(map[string]any{"a": "subscribe", "v": t.tokens}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := conn.WriteJSON(map[string]any{"a": "mode", "v": []any{modeQuote, t.tokens}}); err != nil {
		return fmt.Errorf("set mode: %w", err)
	}

	logger.Info("[WS] ticker connected, %d instruments", len(t.tokens))
	t.setConnected(true)
	b.Reset()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if kind != websocket.BinaryMessage {
			// text frames carry order updates and errors
			logger.Debug("[WS] text frame: %s", string(msg))
			continue
		}
		ticks, err := ParseFrame(msg, t.now())
		if err != nil {
			logger.Warn("[WS] bad frame: %v", err)
			continue
		}
		t.store(ticks)
	}
}

// ParseFrame decodes a binary ticker frame: a 2-byte packet count followed by
// length-prefixed packets. One-byte frames are heartbeats.
func ParseFrame(frame []byte, at time.Time) ([]Tick, error) {
	if len(frame) < 2 {
		return nil, nil
	}
	n := int(binary.BigEndian.Uint16(frame[:2]))
	off := 2
	out := make([]Tick, 0, n)
	for i := 0; i < n; i++ {
		if off+2 > len(frame) {
			return out, fmt.Errorf("packet %d: truncated length", i)
		}
		size := int(binary.BigEndian.Uint16(frame[off : off+2]))
		off += 2
		if off+size > len(frame) {
			return out, fmt.Errorf("packet %d: truncated body (%d bytes)", i, size)
		}
		if tk, ok := parsePacket(frame[off:off+size], at); ok {
			out = append(out, tk)
		}
		off += size
	}
	return out, nil
}

func parsePacket(p []byte, at time.Time) (Tick, bool) {
	i32 := func(off int) int64 { return int64(int32(binary.BigEndian.Uint32(p[off : off+4]))) }
	px := func(off int) float64 { return float64(i32(off)) / priceDivisor }

	switch {
	case len(p) >= quotePacketLen:
		return Tick{
			Token:     i32(0),
			LastPrice: px(4),
			LastQty:   i32(8),
			AvgPrice:  px(12),
			Volume:    i32(16),
			Open:      px(28),
			High:      px(32),
			Low:       px(36),
			Close:     px(40),
			At:        at,
		}, true
	case len(p) == ltpPacketLen:
		return Tick{Token: i32(0), LastPrice: px(4), At: at}, true
	}
	return Tick{}, false
}
