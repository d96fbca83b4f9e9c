package storage

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/guttosm/coinpulse/internal/domain/models"
)

type dummyErr struct{}

func (dummyErr) Error() string { return "dummy" }

var tickerCols = []string{
	"id", "name", "symbol", "rank", "price", "volume_24h", "market_cap",
	"percent_change_1h", "percent_change_24h", "percent_change_7d", "last_updated",
}

var updatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newMockRepo(t *testing.T) (*tickersRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo := &tickersRepository{db: db}
	cleanup := func() { _ = db.Close() }
	return repo, mock, cleanup
}

func TestFindMany_SQLMock(t *testing.T) {
	cases := []struct {
		name   string
		filter TickerFilter
		sort   models.SortField
		query  string
		args   []driver.Value
	}{
		{
			name:  "default rank no filter",
			sort:  models.SortByRank,
			query: `SELECT .* FROM tickers ORDER BY rank ASC, id ASC LIMIT \$1 OFFSET \$2`,
			args:  []driver.Value{20, 0},
		},
		{
			name:   "price with symbol",
			filter: TickerFilter{Symbol: "btc"},
			sort:   models.SortByPrice,
			query:  `SELECT .* FROM tickers WHERE lower\(symbol\) = lower\(\$1\) ORDER BY price ASC NULLS LAST, id ASC LIMIT \$2 OFFSET \$3`,
			args:   []driver.Value{"btc", 20, 0},
		},
		{
			name:  "market cap",
			sort:  models.SortByMarketCap,
			query: `ORDER BY market_cap ASC NULLS LAST, id ASC LIMIT \$1 OFFSET \$2`,
			args:  []driver.Value{20, 0},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, done := newMockRepo(t)
			defer done()

			rows := sqlmock.NewRows(tickerCols).
				AddRow("btc-bitcoin", "Bitcoin", "BTC", 1, 100.0, nil, 1000.0, nil, -1.5, nil, updatedAt)
			mock.ExpectQuery(tc.query).WithArgs(tc.args...).WillReturnRows(rows)

			out, err := repo.FindMany(context.Background(), tc.filter, tc.sort, 0, 20)
			if err != nil || len(out) != 1 {
				t.Fatalf("unexpected out=%+v err=%v", out, err)
			}
			tk := out[0]
			if tk.Price == nil || *tk.Price != 100 || tk.Volume24h != nil || tk.PercentChange24h == nil || *tk.PercentChange24h != -1.5 {
				t.Fatalf("nullable mapping broken: %+v", tk)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestFindMany_RejectsUnknownSort(t *testing.T) {
	repo, _, done := newMockRepo(t)
	defer done()
	if _, err := repo.FindMany(context.Background(), TickerFilter{}, "volume; DROP TABLE tickers", 0, 20); err == nil {
		t.Fatalf("expected error for unknown sort")
	}
}

func TestFindMany_EmptyIsNonNil(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`SELECT .* FROM tickers`).WillReturnRows(sqlmock.NewRows(tickerCols))
	out, err := repo.FindMany(context.Background(), TickerFilter{}, models.SortByRank, 40, 20)
	if err != nil || out == nil || len(out) != 0 {
		t.Fatalf("want empty non-nil slice, got %v err=%v", out, err)
	}
}

func TestCount_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tickers$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(95))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tickers WHERE lower\(symbol\) = lower\(\$1\)`).
		WithArgs("ETH").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	n, err := repo.Count(context.Background(), TickerFilter{})
	if err != nil || n != 95 {
		t.Fatalf("count=%d err=%v", n, err)
	}
	n, err = repo.Count(context.Background(), TickerFilter{Symbol: "ETH"})
	if err != nil || n != 1 {
		t.Fatalf("filtered count=%d err=%v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindOne_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	q := `SELECT .* FROM tickers WHERE id = \$1`
	mock.ExpectQuery(q).WithArgs("btc-bitcoin").
		WillReturnRows(sqlmock.NewRows(tickerCols).
			AddRow("btc-bitcoin", "Bitcoin", "BTC", 1, nil, nil, nil, nil, nil, nil, updatedAt))
	mock.ExpectQuery(q).WithArgs("nope").WillReturnRows(sqlmock.NewRows(tickerCols))
	mock.ExpectQuery(q).WithArgs("boom").WillReturnError(dummyErr{})

	tk, err := repo.FindOne(context.Background(), "btc-bitcoin")
	if err != nil || tk == nil || tk.ID != "btc-bitcoin" || tk.Price != nil {
		t.Fatalf("unexpected tk=%+v err=%v", tk, err)
	}
	tk, err = repo.FindOne(context.Background(), "nope")
	if err != nil || tk != nil {
		t.Fatalf("want nil,nil got tk=%+v err=%v", tk, err)
	}
	if _, err := repo.FindOne(context.Background(), "boom"); err == nil {
		t.Fatalf("expected db error")
	}
}

func TestFindTop_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`ORDER BY volume_24h DESC NULLS LAST, id ASC LIMIT \$1`).WithArgs(10).
		WillReturnRows(sqlmock.NewRows(tickerCols))
	mock.ExpectQuery(`ORDER BY percent_change_24h DESC NULLS LAST, id ASC LIMIT \$1`).WithArgs(5).
		WillReturnRows(sqlmock.NewRows(tickerCols))

	if _, err := repo.FindTop(context.Background(), models.TrendingByVolume, 10); err != nil {
		t.Fatalf("volume: %v", err)
	}
	if _, err := repo.FindTop(context.Background(), models.TrendingByPriceChange, 5); err != nil {
		t.Fatalf("priceChange: %v", err)
	}
	if _, err := repo.FindTop(context.Background(), "favorites", 5); err == nil {
		t.Fatalf("expected error for unknown ranking")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertMany_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	tickers := []models.Ticker{
		{ID: "btc-bitcoin", Name: "Bitcoin", Symbol: "BTC", Rank: 1, Price: models.Float(100), LastUpdated: updatedAt},
		{ID: "new-coin", Name: "New", Symbol: "NEW", Rank: models.UnrankedRank, LastUpdated: updatedAt},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO tickers .* ON CONFLICT \(id\) DO UPDATE SET`)
	for _, tk := range tickers {
		prep.ExpectExec().
			WithArgs(tk.ID, tk.Name, tk.Symbol, tk.Rank,
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				tk.LastUpdated).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	n, err := repo.UpsertMany(context.Background(), tickers)
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertMany_Errors(t *testing.T) {
	tk := []models.Ticker{{ID: "x", Name: "X", Symbol: "X", Rank: 1, LastUpdated: updatedAt}}

	cases := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
	}{
		{
			name:  "begin",
			setup: func(mock sqlmock.Sqlmock) { mock.ExpectBegin().WillReturnError(dummyErr{}) },
		},
		{
			name: "prepare",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectPrepare(`INSERT INTO tickers`).WillReturnError(dummyErr{})
				mock.ExpectRollback()
			},
		},
		{
			name: "row exec",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectPrepare(`INSERT INTO tickers`).ExpectExec().WillReturnError(dummyErr{})
				mock.ExpectRollback()
			},
		},
		{
			name: "commit",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectPrepare(`INSERT INTO tickers`).ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit().WillReturnError(dummyErr{})
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, done := newMockRepo(t)
			defer done()
			tc.setup(mock)
			if _, err := repo.UpsertMany(context.Background(), tk); err == nil {
				t.Fatalf("expected error on %s", tc.name)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestUpsertMany_EmptyIsNoop(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()
	n, err := repo.UpsertMany(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statements expected: %v", err)
	}
}

func TestNewTickersRepository_Construct(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()

	r := NewTickersRepository(db)
	if r == nil {
		t.Fatalf("expected non-nil repository")
	}
	mock.ExpectPing()
	if err := r.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
