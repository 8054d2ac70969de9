package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/neuralprobe/d4/internal/models"
)

// AlpacaProvider fetches bars from Alpaca's market-data API using the
// SIP consolidated feed and split adjustment, matching the external
// interface in spec section 6.
type AlpacaProvider struct {
	baseURL    string
	keyID      string
	secret     string
	httpClient *http.Client
}

// NewAlpacaProvider constructs a provider against Alpaca's data API.
func NewAlpacaProvider(baseURL, keyID, secret string, httpClient *http.Client) *AlpacaProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &AlpacaProvider{baseURL: baseURL, keyID: keyID, secret: secret, httpClient: httpClient}
}

type alpacaBarsResponse struct {
	Bars map[string][]struct {
		T  string  `json:"t"`
		O  float64 `json:"o"`
		H  float64 `json:"h"`
		L  float64 `json:"l"`
		C  float64 `json:"c"`
		V  float64 `json:"v"`
		N  float64 `json:"n"`
		VW float64 `json:"vw"`
	} `json:"bars"`
	NextPageToken *string `json:"next_page_token"`
}

// GetBars implements Provider against Alpaca's /v2/stocks/bars endpoint.
func (a *AlpacaProvider) GetBars(ctx context.Context, symbols []string, tf Timeframe, start, end time.Time) (map[string][]models.Bar, error) {
	if len(symbols) == 0 {
		return map[string][]models.Bar{}, nil
	}

	timeframe := "1Hour"
	if tf == Minute {
		timeframe = "1Min"
	}

	out := make(map[string][]models.Bar)
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("symbols", strings.Join(symbols, ","))
		q.Set("timeframe", timeframe)
		q.Set("start", start.UTC().Format(time.RFC3339))
		q.Set("end", end.UTC().Format(time.RFC3339))
		q.Set("adjustment", "split")
		q.Set("feed", "sip")
		q.Set("limit", "10000")
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v2/stocks/bars?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("building bars request: %w", err)
		}
		req.Header.Set("APCA-API-KEY-ID", a.keyID)
		req.Header.Set("APCA-API-SECRET-KEY", a.secret)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching bars: %w", err)
		}
		var parsed alpacaBarsResponse
		decErr := json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("alpaca bars request failed: status %d", resp.StatusCode)
		}
		if decErr != nil {
			return nil, fmt.Errorf("decoding bars response: %w", decErr)
		}

		for sym, bars := range parsed.Bars {
			for _, b := range bars {
				ts, err := time.Parse(time.RFC3339, b.T)
				if err != nil {
					continue
				}
				out[sym] = append(out[sym], models.Bar{
					Timestamp:    ts,
					Open:         b.O,
					High:         b.H,
					Low:          b.L,
					Close:        b.C,
					Volume:       b.V,
					TradeCount:   b.N,
					VWAP:         b.VW,
					TradingValue: models.TradingValueOf(b.V, b.VW),
				})
			}
		}

		if parsed.NextPageToken == nil || *parsed.NextPageToken == "" {
			break
		}
		pageToken = *parsed.NextPageToken
	}
	return out, nil
}

// accountResponse mirrors the subset of Alpaca's account payload the
// engine needs.
type accountResponse struct {
	Cash string `json:"cash"`
}

// ParseCash parses Alpaca's string-typed cash field into a float64.
func ParseCash(raw string) (float64, error) {
	return strconv.ParseFloat(raw, 64)
}
