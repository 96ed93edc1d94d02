package kite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"intraday_trader/internal/broker"
	"intraday_trader/internal/models"
	"intraday_trader/internal/modules/config"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const (
	apiVersion  = "3"
	candleTime  = "2006-01-02T15:04:05-0700"
	queryTime   = "2006-01-02 15:04:05"
	tickMaxAge  = 5 * time.Second
	statusError = "error"
)

// exchangeZone is NSE/BSE time. Kite reads history bounds as exchange-local wall time.
var exchangeZone = time.FixedZone("IST", 5*60*60+30*60)

// Client talks to the Kite Connect REST API.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	http        *http.Client

	ticker *Ticker
	now    func() time.Time
	loc    *time.Location
}

var _ broker.Broker = (*Client)(nil)

func NewClient(cfg config.Broker) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		http:        &http.Client{Timeout: timeout},
		now:         time.Now,
		loc:         exchangeZone,
	}
}

// WithLocation sets the exchange timezone history queries are written in.
func (c *Client) WithLocation(loc *time.Location) *Client {
	if loc != nil {
		c.loc = loc
	}
	return c
}

// WithTicker makes GetRecentPrice prefer fresh streamed quotes over REST.
func (c *Client) WithTicker(t *Ticker) *Client {
	c.ticker = t
	return c
}

type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if method == http.MethodPost && form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("X-Kite-Version", apiVersion)
	req.Header.Set("Authorization", "token "+c.apiKey+":"+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return broker.Unavailable(method+" "+path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return broker.Unavailable(method+" "+path, err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return broker.Unavailable(method+" "+path, fmt.Errorf("http %d: %s", resp.StatusCode, string(data)))
	}

	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return errors.Wrapf(err, "decode %s; body=%s", path, string(data))
	}
	if env.Status == statusError || resp.StatusCode/100 != 2 {
		return fmt.Errorf("kite %s %s: %s: %s", method, path, env.ErrorType, env.Message)
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(env.Data, out); err != nil {
		return errors.Wrapf(err, "decode %s data", path)
	}
	return nil
}

func (c *Client) SubmitOrder(ctx context.Context, o models.Order) (string, error) {
	if o.Quantity <= 0 {
		return "", fmt.Errorf("SubmitOrder: quantity must be positive, got %d", o.Quantity)
	}

	form := url.Values{}
	form.Set("tradingsymbol", o.Symbol)
	form.Set("exchange", o.Exchange)
	form.Set("transaction_type", string(o.Side))
	form.Set("order_type", string(o.Type))
	form.Set("quantity", strconv.Itoa(o.Quantity))
	form.Set("product", o.Product)
	form.Set("validity", string(o.Validity))
	if o.Type == models.OrderTypeLimit {
		form.Set("price", strconv.FormatFloat(o.Price, 'f', -1, 64))
	}
	if o.Validity == models.ValidityTTL {
		form.Set("validity_ttl", strconv.Itoa(o.ValidityTTL))
	}

	var r struct {
		OrderID string `json:"order_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders/regular", form, &r); err != nil {
		return "", fmt.Errorf("SubmitOrder: %w", err)
	}
	if r.OrderID == "" {
		return "", errors.New("SubmitOrder: empty order_id")
	}
	return r.OrderID, nil
}

type orderState struct {
	OrderID         string  `json:"order_id"`
	Status          string  `json:"status"`
	StatusMessage   string  `json:"status_message"`
	AveragePrice    float64 `json:"average_price"`
	FilledQuantity  int     `json:"filled_quantity"`
	PendingQuantity int     `json:"pending_quantity"`
}

// GetOrderStatus returns the latest state from the order history.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (models.OrderReport, error) {
	var history []orderState
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &history); err != nil {
		return models.OrderReport{}, fmt.Errorf("GetOrderStatus: %w", err)
	}
	if len(history) == 0 {
		return models.OrderReport{OrderID: orderID, Status: models.OrderPending}, nil
	}

	last := history[len(history)-1]
	return models.OrderReport{
		OrderID:        orderID,
		Status:         mapStatus(last.Status),
		RawStatus:      last.Status,
		AveragePrice:   last.AveragePrice,
		FilledQuantity: last.FilledQuantity,
		Message:        last.StatusMessage,
	}, nil
}

// mapStatus folds every non-terminal broker state into Pending.
func mapStatus(s string) models.OrderStatus {
	switch strings.ToUpper(s) {
	case "COMPLETE":
		return models.OrderComplete
	case "REJECTED":
		return models.OrderRejected
	case "CANCELLED":
		return models.OrderCancelled
	}
	return models.OrderPending
}

func (c *Client) GetRecentPrice(ctx context.Context, inst models.Instrument) (models.PriceSample, error) {
	if c.ticker != nil {
		if t, ok := c.ticker.Latest(inst.Token); ok && t.High > 0 && c.now().Sub(t.At) < tickMaxAge {
			return models.PriceSample{High: t.High, Low: t.Low, Close: t.LastPrice, At: t.At}, nil
		}
	}

	var r map[string]struct {
		InstrumentToken int64   `json:"instrument_token"`
		LastPrice       float64 `json:"last_price"`
		OHLC            struct {
			Open  float64 `json:"open"`
			High  float64 `json:"high"`
			Low   float64 `json:"low"`
			Close float64 `json:"close"`
		} `json:"ohlc"`
	}
	q := url.Values{}
	q.Set("i", inst.Key())
	if err := c.do(ctx, http.MethodGet, "/quote/ohlc?"+q.Encode(), nil, &r); err != nil {
		return models.PriceSample{}, fmt.Errorf("GetRecentPrice: %w", err)
	}

	quote, ok := r[inst.Key()]
	if !ok {
		return models.PriceSample{}, fmt.Errorf("GetRecentPrice: no quote for %s", inst.Key())
	}
	return models.PriceSample{
		High:  quote.OHLC.High,
		Low:   quote.OHLC.Low,
		Close: quote.LastPrice,
		At:    c.now(),
	}, nil
}

func (c *Client) GetHistoricalCandles(ctx context.Context, inst models.Instrument, interval string, from, to time.Time) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("from", from.In(c.loc).Format(queryTime))
	q.Set("to", to.In(c.loc).Format(queryTime))
	path := fmt.Sprintf("/instruments/historical/%d/%s?%s", inst.Token, interval, q.Encode())

	var r struct {
		Candles [][]any `json:"candles"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &r); err != nil {
		return nil, fmt.Errorf("GetHistoricalCandles: %w", err)
	}

	out := make([]models.Candle, 0, len(r.Candles))
	for i, row := range r.Candles {
		cd, err := parseCandle(row)
		if err != nil {
			return nil, errors.Wrapf(err, "GetHistoricalCandles: row %d", i)
		}
		out = append(out, cd)
	}
	return out, nil
}

// parseCandle reads [timestamp, open, high, low, close, volume].
func parseCandle(row []any) (models.Candle, error) {
	if len(row) < 5 {
		return models.Candle{}, fmt.Errorf("want at least 5 fields, got %d", len(row))
	}
	raw, ok := row[0].(string)
	if !ok {
		return models.Candle{}, fmt.Errorf("timestamp is %T", row[0])
	}
	ts, err := time.Parse(candleTime, raw)
	if err != nil {
		return models.Candle{}, err
	}

	var px [4]float64
	for i := range px {
		v, ok := row[i+1].(float64)
		if !ok {
			return models.Candle{}, fmt.Errorf("field %d is %T", i+1, row[i+1])
		}
		px[i] = v
	}

	var vol int64
	if len(row) > 5 {
		if v, ok := row[5].(float64); ok {
			vol = int64(v)
		}
	}
	return models.Candle{Open: px[0], High: px[1], Low: px[2], Close: px[3], Volume: vol, Timestamp: ts}, nil
}
