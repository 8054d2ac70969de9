// Package calendar resolves the valid trading days a Clock gates on
// (spec section 4.A), either from the Alpaca market calendar endpoint
// live or from a plain weekday rule in backtests.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Weekday is the CalendarProvider used in backtest mode: every
// Monday-Friday date in range is a trading day. It does not account
// for market holidays, matching spec section 4.A's note that
// historical bar data for holidays is simply absent rather than
// explicitly excluded.
type Weekday struct{}

// ValidDays returns every weekday in [start,end], inclusive.
func (Weekday) ValidDays(start, end time.Time, loc *time.Location) ([]time.Time, error) {
	var days []time.Time
	cur := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	for !cur.After(last) {
		if cur.Weekday() != time.Saturday && cur.Weekday() != time.Sunday {
			days = append(days, cur)
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return days, nil
}

// Alpaca resolves trading days from Alpaca's /v2/calendar endpoint,
// used in live mode so exchange holidays are excluded exactly as the
// broker sees them.
type Alpaca struct {
	baseURL    string
	keyID      string
	secret     string
	httpClient *http.Client
}

// NewAlpaca builds an Alpaca calendar client.
func NewAlpaca(baseURL, keyID, secret string, httpClient *http.Client) *Alpaca {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Alpaca{baseURL: baseURL, keyID: keyID, secret: secret, httpClient: httpClient}
}

type alpacaCalendarDay struct {
	Date  string `json:"date"`
	Open  string `json:"open"`
	Close string `json:"close"`
}

// ValidDays calls GET /v2/calendar?start=&end= and returns each
// returned date at midnight in loc.
func (a *Alpaca) ValidDays(start, end time.Time, loc *time.Location) ([]time.Time, error) {
	url := fmt.Sprintf("%s/v2/calendar?start=%s&end=%s", a.baseURL, start.Format("2006-01-02"), end.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building calendar request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", a.keyID)
	req.Header.Set("APCA-API-SECRET-KEY", a.secret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting market calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market calendar request failed with status %d", resp.StatusCode)
	}

	var days []alpacaCalendarDay
	if err := json.NewDecoder(resp.Body).Decode(&days); err != nil {
		return nil, fmt.Errorf("decoding market calendar response: %w", err)
	}

	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		t, err := time.ParseInLocation("2006-01-02", d.Date, loc)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
