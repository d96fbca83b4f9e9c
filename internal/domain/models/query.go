package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// SortField is a whitelisted ascending sort key for ticker listings.
type SortField string

const (
	SortByRank      SortField = "rank"
	SortByPrice     SortField = "price"
	SortByMarketCap SortField = "market_cap"
)

// Pagination bounds and defaults for TickerQuery.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// TrendingBy selects the ranking used by the trending listing.
type TrendingBy string

const (
	TrendingByVolume      TrendingBy = "volume"
	TrendingByPriceChange TrendingBy = "priceChange"
)

// Trending bounds and defaults.
const (
	DefaultTrendingLimit = 10
	MaxTrendingLimit     = 100
)

// TickerQuery describes one listing request. It is built per request,
// never persisted, and determines the cache key.
type TickerQuery struct {
	Page   int       `json:"page"`
	Limit  int       `json:"limit"`
	Sort   SortField `json:"sort"`
	Symbol string    `json:"symbol"`
}

// Normalize applies defaults and canonicalizes the symbol so that
// equivalent queries map to the same cache key.
func (q TickerQuery) Normalize() TickerQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Sort == "" {
		q.Sort = SortByRank
	}
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	return q
}

// Skip returns the number of rows to skip for the requested page.
// Pages past math.MaxInt rows saturate instead of wrapping negative.
func (q TickerQuery) Skip() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// CacheKey returns "tickers:" followed by the sha256 of the normalized query.
func (q TickerQuery) CacheKey() string {
	// json.Marshal of a plain struct cannot fail
	b, _ := json.Marshal(q.Normalize())
	sum := sha256.Sum256(b)
	return "tickers:" + hex.EncodeToString(sum[:])
}

// Valid reports whether s is one of the supported sort fields.
func (s SortField) Valid() bool {
	switch s {
	case SortByRank, SortByPrice, SortByMarketCap:
		return true
	}
	return false
}

// Valid reports whether b is one of the supported trending rankings.
func (b TrendingBy) Valid() bool {
	return b == TrendingByVolume || b == TrendingByPriceChange
}

// TickerCacheKey returns the cache key of a single ticker.
func TickerCacheKey(id string) string {
	return "ticker:" + id
}

// TrendingCacheKey returns the cache key of a trending listing.
func TrendingCacheKey(by TrendingBy, limit int) string {
	return fmt.Sprintf("tickers:trending:%s:%d", by, limit)
}
