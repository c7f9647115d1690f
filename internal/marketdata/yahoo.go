package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rewired-gh/premiumwatch/internal/models"
)

// QuoteSource reads fund price and FX rates from the Yahoo v8 chart endpoint.
type QuoteSource struct {
	client     *Client
	baseURL    string
	fundSymbol string
	fxSymbol   string
	now        func() time.Time
}

// NewQuoteSource creates a quote source for a fund and its FX pair.
func NewQuoteSource(client *Client, baseURL, fundSymbol, fxSymbol string) *QuoteSource {
	return &QuoteSource{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		fundSymbol: fundSymbol,
		fxSymbol:   fxSymbol,
		now:        time.Now,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartMeta struct {
	Symbol             string   `json:"symbol"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	PreviousClose      *float64 `json:"previousClose"`
	ChartPreviousClose *float64 `json:"chartPreviousClose"`
}

// FetchQuote makes one request for the fund and one for the FX pair.
func (s *QuoteSource) FetchQuote(ctx context.Context) (models.Quote, error) {
	fund, err := s.fetchMeta(ctx, s.fundSymbol)
	if err != nil {
		return models.Quote{}, err
	}
	if fund.RegularMarketPrice == nil {
		return models.Quote{}, fmt.Errorf("yahoo %s: %w: regularMarketPrice missing", s.fundSymbol, models.ErrFetchFailure)
	}

	fx, err := s.fetchMeta(ctx, s.fxSymbol)
	if err != nil {
		return models.Quote{}, err
	}
	if fx.RegularMarketPrice == nil {
		return models.Quote{}, fmt.Errorf("yahoo %s: %w: regularMarketPrice missing", s.fxSymbol, models.ErrFetchFailure)
	}
	prevClose := fx.PreviousClose
	if prevClose == nil {
		prevClose = fx.ChartPreviousClose
	}
	if prevClose == nil {
		return models.Quote{}, fmt.Errorf("yahoo %s: %w: previousClose missing", s.fxSymbol, models.ErrFetchFailure)
	}

	q := models.Quote{
		MarketPrice: *fund.RegularMarketPrice,
		LiveFX:      *fx.RegularMarketPrice,
		PrevCloseFX: *prevClose,
		FetchedAt:   s.now(),
	}
	if err := q.Validate(); err != nil {
		return models.Quote{}, fmt.Errorf("yahoo: %w: %v", models.ErrFetchFailure, err)
	}
	return q, nil
}

func (s *QuoteSource) fetchMeta(ctx context.Context, symbol string) (chartMeta, error) {
	body, err := s.client.get(ctx, s.baseURL+"/"+url.PathEscape(symbol), "application/json")
	if err != nil {
		return chartMeta{}, fmt.Errorf("yahoo %s: %w", symbol, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return chartMeta{}, fmt.Errorf("yahoo %s: %w: failed to decode chart: %v", symbol, models.ErrFetchFailure, err)
	}
	if resp.Chart.Error != nil {
		return chartMeta{}, fmt.Errorf("yahoo %s: %w: %s: %s", symbol, models.ErrFetchFailure,
			resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return chartMeta{}, fmt.Errorf("yahoo %s: %w: empty chart result", symbol, models.ErrFetchFailure)
	}
	return resp.Chart.Result[0].Meta, nil
}
