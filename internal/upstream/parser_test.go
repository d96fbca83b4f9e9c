package upstream

import (
	"errors"
	"testing"
	"time"

	"github.com/guttosm/coinpulse/internal/domain/models"
)

var fetchedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestParseTickers_TableDriven(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		wantErr   bool
		wantCount int
		assert    func(t *testing.T, out []models.Ticker)
	}{
		{
			name:      "full record",
			body:      `[{"id":"btc-bitcoin","name":"Bitcoin","symbol":"BTC","rank":1,"last_updated":"2024-04-30T10:00:00Z","quotes":{"USD":{"price":100,"volume_24h":5,"market_cap":1000,"percent_change_1h":0.1,"percent_change_24h":-1.5,"percent_change_7d":3}}}]`,
			wantCount: 1,
			assert: func(t *testing.T, out []models.Ticker) {
				tk := out[0]
				if tk.ID != "btc-bitcoin" || tk.Rank != 1 || *tk.Price != 100 || *tk.PercentChange24h != -1.5 {
					t.Fatalf("unexpected ticker %+v", tk)
				}
				if !tk.LastUpdated.Equal(time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC)) {
					t.Fatalf("unexpected last_updated %v", tk.LastUpdated)
				}
			},
		},
		{
			name:      "missing rank uses sentinel",
			body:      `[{"id":"new-coin","name":"New","symbol":"NEW"}]`,
			wantCount: 1,
			assert: func(t *testing.T, out []models.Ticker) {
				if out[0].Rank != models.UnrankedRank {
					t.Fatalf("rank=%d want %d", out[0].Rank, models.UnrankedRank)
				}
			},
		},
		{
			name:      "zero rank uses sentinel",
			body:      `[{"id":"new-coin","name":"New","symbol":"NEW","rank":0}]`,
			wantCount: 1,
			assert: func(t *testing.T, out []models.Ticker) {
				if out[0].Rank != models.UnrankedRank {
					t.Fatalf("rank=%d want %d", out[0].Rank, models.UnrankedRank)
				}
			},
		},
		{
			name:      "missing numerics stay null",
			body:      `[{"id":"x-x","name":"X","symbol":"X","rank":5,"quotes":{"USD":{"price":0}}}]`,
			wantCount: 1,
			assert: func(t *testing.T, out []models.Ticker) {
				tk := out[0]
				if tk.Price == nil || *tk.Price != 0 {
					t.Fatalf("explicit zero price must be kept")
				}
				if tk.Volume24h != nil || tk.MarketCap != nil || tk.PercentChange7d != nil {
					t.Fatalf("absent numerics must be nil: %+v", tk)
				}
			},
		},
		{
			name:      "missing timestamp defaults to fetch time",
			body:      `[{"id":"x-x","name":"X","symbol":"X","last_updated":"not a date"}]`,
			wantCount: 1,
			assert: func(t *testing.T, out []models.Ticker) {
				if !out[0].LastUpdated.Equal(fetchedAt) {
					t.Fatalf("last_updated=%v want %v", out[0].LastUpdated, fetchedAt)
				}
			},
		},
		{name: "empty list", body: `[]`, wantCount: 0},
		{name: "not a list", body: `{"error":"rate limited"}`, wantErr: true},
		{name: "missing id", body: `[{"name":"X","symbol":"X"}]`, wantErr: true},
		{name: "blank symbol", body: `[{"id":"x","name":"X","symbol":"  "}]`, wantErr: true},
		{name: "wrong numeric type", body: `[{"id":"x","name":"X","symbol":"X","rank":"first"}]`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := parseTickers([]byte(tc.body), fetchedAt)
			if tc.wantErr {
				if err == nil || !errors.Is(err, ErrMalformedResponse) {
					t.Fatalf("expected ErrMalformedResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if len(out) != tc.wantCount {
				t.Fatalf("count: want %d got %d", tc.wantCount, len(out))
			}
			if tc.assert != nil {
				tc.assert(t, out)
			}
		})
	}
}

func TestParseTicker(t *testing.T) {
	tk, err := parseTicker([]byte(`{"id":"eth-ethereum","name":"Ethereum","symbol":"ETH","rank":2}`), fetchedAt)
	if err != nil || tk == nil || tk.ID != "eth-ethereum" {
		t.Fatalf("unexpected tk=%+v err=%v", tk, err)
	}
	if _, err := parseTicker([]byte(`[]`), fetchedAt); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}
