package marketdata

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rewired-gh/premiumwatch/internal/models"
)

// navField is the zero-based column holding the net asset value in NAVAll.txt.
const navField = 4

// AMFISource reads the daily NAVAll.txt dump published by AMFI.
type AMFISource struct {
	client     *Client
	url        string
	schemeCode string
	delimiter  byte
}

// NewAMFISource creates a NAV source for one scheme code.
func NewAMFISource(client *Client, url, schemeCode string, delimiter byte) *AMFISource {
	return &AMFISource{
		client:     client,
		url:        url,
		schemeCode: schemeCode,
		delimiter:  delimiter,
	}
}

// FetchNAV downloads the dump and returns the scheme's NAV.
func (s *AMFISource) FetchNAV(ctx context.Context) (float64, error) {
	body, err := s.client.get(ctx, s.url, "text/plain")
	if err != nil {
		return 0, fmt.Errorf("amfi: %w", err)
	}
	nav, err := ParseNAV(bytes.NewReader(body), s.schemeCode, s.delimiter)
	if err != nil {
		return 0, fmt.Errorf("amfi: %w", err)
	}
	return nav, nil
}

// ParseNAV scans a delimited NAV dump for the row whose first field is
// schemeCode and parses field 4 as the NAV.
func ParseNAV(r io.Reader, schemeCode string, delimiter byte) (float64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	sep := string(delimiter)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, schemeCode) {
			continue
		}
		fields := strings.Split(line, sep)
		if strings.TrimSpace(fields[0]) != schemeCode {
			continue
		}
		if len(fields) <= navField {
			return 0, fmt.Errorf("%w: scheme %s row has %d fields", models.ErrFetchFailure, schemeCode, len(fields))
		}
		raw := strings.TrimSpace(fields[navField])
		nav, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: scheme %s NAV %q: %v", models.ErrFetchFailure, schemeCode, raw, err)
		}
		if nav <= 0 {
			return 0, fmt.Errorf("%w: scheme %s NAV %v is not positive", models.ErrFetchFailure, schemeCode, nav)
		}
		return nav, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("%w: scan: %v", models.ErrFetchFailure, err)
	}
	return 0, fmt.Errorf("%w: scheme %s not found", models.ErrFetchFailure, schemeCode)
}

// NavFetcher returns the latest official NAV.
type NavFetcher interface {
	FetchNAV(ctx context.Context) (float64, error)
}

// NavProvider wraps a NavFetcher with a hardcoded fallback value.
type NavProvider struct {
	fetcher  NavFetcher
	fallback float64
}

// NewNavProvider creates a provider that falls back to fallback on any fetch error.
func NewNavProvider(fetcher NavFetcher, fallback float64) *NavProvider {
	return &NavProvider{fetcher: fetcher, fallback: fallback}
}

// Current returns the official NAV. It never fails: errors are reported in
// the reading alongside the fallback value.
func (p *NavProvider) Current(ctx context.Context) models.NavReading {
	nav, err := p.fetcher.FetchNAV(ctx)
	if err != nil {
		return models.NavReading{Value: p.fallback, Source: models.NavSourceFallback, Err: err}
	}
	return models.NavReading{Value: nav, Source: models.NavSourceAMFI}
}
