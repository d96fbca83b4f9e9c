package upstream

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/guttosm/coinpulse/internal/domain/models"
)

// rawTicker mirrors one element of the upstream /tickers array.
// Pointers distinguish "absent" from zero.
type rawTicker struct {
	ID          *string `json:"id"`
	Name        *string `json:"name"`
	Symbol      *string `json:"symbol"`
	Rank        *int    `json:"rank"`
	LastUpdated *string `json:"last_updated"`
	Quotes      struct {
		USD *rawQuote `json:"USD"`
	} `json:"quotes"`
}

type rawQuote struct {
	Price            *float64 `json:"price"`
	Volume24h        *float64 `json:"volume_24h"`
	MarketCap        *float64 `json:"market_cap"`
	PercentChange1h  *float64 `json:"percent_change_1h"`
	PercentChange24h *float64 `json:"percent_change_24h"`
	PercentChange7d  *float64 `json:"percent_change_7d"`
}

// parseTickers decodes a list response. It fails when the body is not a JSON
// array or when any record is missing an identity field.
func parseTickers(body []byte, fetchedAt time.Time) ([]models.Ticker, error) {
	var records []rawTicker
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: decode list: %v", ErrMalformedResponse, err)
	}

	out := make([]models.Ticker, 0, len(records))
	for i, rec := range records {
		t, err := normalizeRecord(rec, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedResponse, i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// parseTicker decodes a single-ticker response.
func parseTicker(body []byte, fetchedAt time.Time) (*models.Ticker, error) {
	var rec rawTicker
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode ticker: %v", ErrMalformedResponse, err)
	}
	t, err := normalizeRecord(rec, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &t, nil
}

// normalizeRecord converts a raw record into a models.Ticker. It is STRICT
// about identity (id, name, symbol) but TOLERATES missing market data:
//
//	id, name, symbol      → required, trimmed
//	rank                  → missing or non-positive → models.UnrankedRank
//	quotes.USD.*          → missing → nil (never zero)
//	last_updated          → missing or unparseable → fetchedAt
func normalizeRecord(rec rawTicker, fetchedAt time.Time) (models.Ticker, error) {
	var t models.Ticker

	id := trimmed(rec.ID)
	if id == "" {
		return t, fmt.Errorf("missing id")
	}
	t.ID = id

	if t.Name = trimmed(rec.Name); t.Name == "" {
		return t, fmt.Errorf("ticker %s: missing name", id)
	}
	if t.Symbol = trimmed(rec.Symbol); t.Symbol == "" {
		return t, fmt.Errorf("ticker %s: missing symbol", id)
	}

	t.Rank = models.UnrankedRank
	if rec.Rank != nil && *rec.Rank > 0 {
		t.Rank = *rec.Rank
	}

	if q := rec.Quotes.USD; q != nil {
		t.Price = q.Price
		t.Volume24h = q.Volume24h
		t.MarketCap = q.MarketCap
		t.PercentChange1h = q.PercentChange1h
		t.PercentChange24h = q.PercentChange24h
		t.PercentChange7d = q.PercentChange7d
	}

	t.LastUpdated = fetchedAt.UTC()
	if s := trimmed(rec.LastUpdated); s != "" {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			t.LastUpdated = ts.UTC()
		}
	}

	return t, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
