package models

import "time"

// UnrankedRank is assigned to tickers the upstream source does not rank,
// so they sort after every ranked entry.
const UnrankedRank = 9999

// Ticker represents one cryptocurrency's latest market snapshot.
//
// Fields:
//   - ID: stable upstream identity (e.g. "btc-bitcoin"); the upsert key.
//   - Rank: positive integer, lower means larger; UnrankedRank when unknown.
//   - Price, Volume24h, MarketCap: USD quotes; nil when the source omits them.
//   - PercentChange*: signed percentage changes; nil when unknown.
//   - LastUpdated: source timestamp, or fetch time when the source omits it.
//
// swagger:model Ticker
type Ticker struct {
	ID               string    `json:"id" example:"btc-bitcoin"`
	Name             string    `json:"name" example:"Bitcoin"`
	Symbol           string    `json:"symbol" example:"BTC"`
	Rank             int       `json:"rank" example:"1"`
	Price            *float64  `json:"price" example:"64250.12"`
	Volume24h        *float64  `json:"volume_24h" example:"31250000000"`
	MarketCap        *float64  `json:"market_cap" example:"1265000000000"`
	PercentChange1h  *float64  `json:"percent_change_1h" example:"0.12"`
	PercentChange24h *float64  `json:"percent_change_24h" example:"-1.4"`
	PercentChange7d  *float64  `json:"percent_change_7d" example:"3.9"`
	LastUpdated      time.Time `json:"last_updated" example:"2024-05-01T12:00:00Z"`
}

// TickerPage is the paginated envelope returned by the list endpoint.
// It is also the value stored in the query cache.
type TickerPage struct {
	Data       []Ticker `json:"data"`
	Page       int      `json:"page" example:"1"`
	Limit      int      `json:"limit" example:"20"`
	Total      int      `json:"total" example:"95"`
	TotalPages int      `json:"totalPages" example:"5"`
}

// TotalPages returns ceil(total/limit), or 0 when there is nothing to page.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Float returns a pointer to v. Handy for building tickers in code and tests.
func Float(v float64) *float64 {
	return &v
}
