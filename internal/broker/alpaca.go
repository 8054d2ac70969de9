package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Alpaca talks to Alpaca's trading API (as opposed to marketdata's data
// API), wrapped in a circuit breaker and a rate limiter so a flaky
// broker cannot wedge the trading loop (spec section 6, SPEC_FULL.md
// DOMAIN STACK).
type Alpaca struct {
	baseURL    string
	keyID      string
	secret     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
}

// NewAlpaca constructs a live broker client. requestsPerSecond bounds
// outbound call rate; 0 disables the limiter.
func NewAlpaca(baseURL, keyID, secret string, httpClient *http.Client, requestsPerSecond float64) *Alpaca {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "alpaca-trading",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Alpaca{baseURL: baseURL, keyID: keyID, secret: secret, httpClient: httpClient, breaker: cb, limiter: limiter}
}

func (a *Alpaca) do(ctx context.Context, method, path string, body any, out any) error {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	_, err := a.breaker.Execute(func() (any, error) {
		var reader *bytes.Reader
		if body != nil {
			payload, merr := json.Marshal(body)
			if merr != nil {
				return nil, fmt.Errorf("marshal request: %w", merr)
			}
			reader = bytes.NewReader(payload)
		} else {
			reader = bytes.NewReader(nil)
		}

		req, rerr := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
		if rerr != nil {
			return nil, fmt.Errorf("building request: %w", rerr)
		}
		req.Header.Set("APCA-API-KEY-ID", a.keyID)
		req.Header.Set("APCA-API-SECRET-KEY", a.secret)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, derr := a.httpClient.Do(req)
		if derr != nil {
			return nil, fmt.Errorf("request to %s: %w", path, derr)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("alpaca %s %s returned status %d", method, path, resp.StatusCode)
		}
		if out != nil {
			if derr := json.NewDecoder(resp.Body).Decode(out); derr != nil {
				return nil, fmt.Errorf("decoding response from %s: %w", path, derr)
			}
		}
		return nil, nil
	})
	return err
}

type alpacaPosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	MarketValue   string `json:"market_value"`
	CurrentPrice  string `json:"current_price"`
}

// GetAllPositions implements Broker against GET /v2/positions.
func (a *Alpaca) GetAllPositions(ctx context.Context) ([]Position, error) {
	var raw []alpacaPosition
	if err := a.do(ctx, http.MethodGet, "/v2/positions", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Position, 0, len(raw))
	for _, p := range raw {
		out = append(out, Position{
			Symbol:        p.Symbol,
			Qty:           parseFloatOrZero(p.Qty),
			AvgEntryPrice: parseFloatOrZero(p.AvgEntryPrice),
			MarketValue:   parseFloatOrZero(p.MarketValue),
			CurrentPrice:  parseFloatOrZero(p.CurrentPrice),
		})
	}
	return out, nil
}

type alpacaAccount struct {
	Cash            string `json:"cash"`
	PortfolioValue  string `json:"portfolio_value"`
}

// GetAccount implements Broker against GET /v2/account.
func (a *Alpaca) GetAccount(ctx context.Context) (Account, error) {
	var raw alpacaAccount
	if err := a.do(ctx, http.MethodGet, "/v2/account", nil, &raw); err != nil {
		return Account{}, err
	}
	return Account{Cash: parseFloatOrZero(raw.Cash), PortfolioValue: parseFloatOrZero(raw.PortfolioValue)}, nil
}

type alpacaOrderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id"`
}

type alpacaOrder struct {
	ID             string `json:"id"`
	ClientOrderID  string `json:"client_order_id"`
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	Status         string `json:"status"`
	Qty            string `json:"qty"`
	FilledQty      string `json:"filled_qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
	SubmittedAt    time.Time `json:"submitted_at"`
	FilledAt       *time.Time `json:"filled_at"`
}

func (o alpacaOrder) toOrder() Order {
	ord := Order{
		ID:             o.ID,
		ClientOrderID:  o.ClientOrderID,
		Symbol:         o.Symbol,
		Side:           OrderSide(o.Side),
		Status:         OrderStatus(o.Status),
		Qty:            parseFloatOrZero(o.Qty),
		FilledQty:      parseFloatOrZero(o.FilledQty),
		FilledAvgPrice: parseFloatOrZero(o.FilledAvgPrice),
		SubmittedAt:    o.SubmittedAt,
	}
	if o.FilledAt != nil {
		ord.FilledAt = *o.FilledAt
	}
	return ord
}

// SubmitMarketOrder implements Broker against POST /v2/orders.
func (a *Alpaca) SubmitMarketOrder(ctx context.Context, req OrderRequest) (Order, error) {
	body := alpacaOrderRequest{
		Symbol:        req.Symbol,
		Qty:           fmt.Sprintf("%v", req.Qty),
		Side:          string(req.Side),
		Type:          "market",
		TimeInForce:   "day",
		ClientOrderID: req.ClientOrderID,
	}
	var raw alpacaOrder
	if err := a.do(ctx, http.MethodPost, "/v2/orders", body, &raw); err != nil {
		return Order{}, err
	}
	return raw.toOrder(), nil
}

// GetOrderByClientID implements Broker against
// GET /v2/orders:by_client_order_id.
func (a *Alpaca) GetOrderByClientID(ctx context.Context, clientOrderID string) (Order, error) {
	var raw alpacaOrder
	path := fmt.Sprintf("/v2/orders:by_client_order_id?client_order_id=%s", clientOrderID)
	if err := a.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return Order{}, err
	}
	return raw.toOrder(), nil
}

// GetOpenOrders implements Broker against GET /v2/orders?status=open.
func (a *Alpaca) GetOpenOrders(ctx context.Context) ([]Order, error) {
	var raw []alpacaOrder
	if err := a.do(ctx, http.MethodGet, "/v2/orders?status=open", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(raw))
	for _, o := range raw {
		out = append(out, o.toOrder())
	}
	return out, nil
}

// CancelOrders implements Broker against DELETE /v2/orders.
func (a *Alpaca) CancelOrders(ctx context.Context) error {
	return a.do(ctx, http.MethodDelete, "/v2/orders", nil, nil)
}

func parseFloatOrZero(s string) float64 {
	var f float64
	if _, err := fmt.Sscanf(s, "%f", &f); err != nil {
		return 0
	}
	return f
}
