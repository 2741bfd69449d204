package tickers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var _ MarketDataProvider = (*HTTPProvider)(nil)

// HTTPProvider talks to a JSON market-data API:
//
//	GET /v1/quotes/{symbol}/close
//	GET /v1/quotes/{symbol}/history?from=YYYY-MM-DD&to=YYYY-MM-DD
//	GET /v1/options/{symbol}/expirations
//	GET /v1/options/{symbol}/chain?expiry=YYYY-MM-DD
//	GET /v1/quotes/{symbol}/summary
//
// A 404 means the symbol (or the chain) is unknown
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type historyResponse struct {
	Closes []struct {
		Date  string  `json:"date"`
		Close float64 `json:"close"`
	} `json:"closes"`
}

type expirationsResponse struct {
	Expirations []string `json:"expirations"`
}

func (p *HTTPProvider) LatestClose(ctx context.Context, symbol string) (DailyClose, error) {
	var out struct {
		Date  string  `json:"date"`
		Close float64 `json:"close"`
	}
	if err := p.getJSON(ctx, "/v1/quotes/"+url.PathEscape(symbol)+"/close", nil, &out); err != nil {
		return DailyClose{}, err
	}

	date, err := time.Parse(DateLayout, out.Date)
	if err != nil {
		return DailyClose{}, fmt.Errorf("%w: bad close date %q", ErrProvider, out.Date)
	}
	return DailyClose{Date: date, Close: out.Close}, nil
}

func (p *HTTPProvider) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]DailyClose, error) {
	q := url.Values{}
	q.Set("from", from.Format(DateLayout))
	q.Set("to", to.Format(DateLayout))

	var out historyResponse
	if err := p.getJSON(ctx, "/v1/quotes/"+url.PathEscape(symbol)+"/history", q, &out); err != nil {
		return nil, err
	}

	closes := make([]DailyClose, 0, len(out.Closes))
	for _, c := range out.Closes {
		date, err := time.Parse(DateLayout, c.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: bad history date %q", ErrProvider, c.Date)
		}
		closes = append(closes, DailyClose{Date: date, Close: c.Close})
	}
	return closes, nil
}

func (p *HTTPProvider) Expirations(ctx context.Context, symbol string) ([]time.Time, error) {
	var out expirationsResponse
	if err := p.getJSON(ctx, "/v1/options/"+url.PathEscape(symbol)+"/expirations", nil, &out); err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(out.Expirations))
	for _, raw := range out.Expirations {
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad expiration %q", ErrProvider, raw)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func (p *HTTPProvider) OptionChain(ctx context.Context, symbol string, expiry time.Time) (*OptionChain, error) {
	q := url.Values{}
	q.Set("expiry", expiry.Format(DateLayout))

	var chain OptionChain
	if err := p.getJSON(ctx, "/v1/options/"+url.PathEscape(symbol)+"/chain", q, &chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

func (p *HTTPProvider) Summary(ctx context.Context, symbol string) (*Summary, error) {
	var s Summary
	if err := p.getJSON(ctx, "/v1/quotes/"+url.PathEscape(symbol)+"/summary", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := p.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrProvider, err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: GET %s: %v", ErrProvider, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrTickerNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: GET %s: HTTP %d: %s", ErrProvider, path, resp.StatusCode, errorBody(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrProvider, path, err)
	}
	return nil
}

// errorBody reads at most 512 bytes of an error response for the log
func errorBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
