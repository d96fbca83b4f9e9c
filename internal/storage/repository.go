package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guttosm/coinpulse/internal/domain/models"
)

// TickerFilter narrows a listing. Empty fields do not filter.
type TickerFilter struct {
	Symbol string // case-insensitive exact match
}

// TickersRepository defines contract for DB operations.
type TickersRepository interface {
	FindMany(ctx context.Context, filter TickerFilter, sort models.SortField, skip, limit int) ([]models.Ticker, error)
	Count(ctx context.Context, filter TickerFilter) (int, error)
	FindOne(ctx context.Context, id string) (*models.Ticker, error)
	FindTop(ctx context.Context, by models.TrendingBy, limit int) ([]models.Ticker, error)
	UpsertMany(ctx context.Context, tickers []models.Ticker) (int, error)
	Ping(ctx context.Context) error
}

type tickersRepository struct {
	db *sql.DB
}

func NewTickersRepository(db *sql.DB) TickersRepository {
	return &tickersRepository{db: db}
}

const tickerColumns = `id, name, symbol, rank, price, volume_24h, market_cap,
		percent_change_1h, percent_change_24h, percent_change_7d, last_updated`

// sortColumns whitelists ORDER BY expressions; user input never reaches SQL text.
var sortColumns = map[models.SortField]string{
	models.SortByRank:      "rank ASC",
	models.SortByPrice:     "price ASC NULLS LAST",
	models.SortByMarketCap: "market_cap ASC NULLS LAST",
}

var trendingColumns = map[models.TrendingBy]string{
	models.TrendingByVolume:      "volume_24h DESC NULLS LAST",
	models.TrendingByPriceChange: "percent_change_24h DESC NULLS LAST",
}

const upsertTickerSQL = `
		INSERT INTO tickers (` + tickerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name,
					  symbol = EXCLUDED.symbol,
					  rank = EXCLUDED.rank,
					  price = EXCLUDED.price,
					  volume_24h = EXCLUDED.volume_24h,
					  market_cap = EXCLUDED.market_cap,
					  percent_change_1h = EXCLUDED.percent_change_1h,
					  percent_change_24h = EXCLUDED.percent_change_24h,
					  percent_change_7d = EXCLUDED.percent_change_7d,
					  last_updated = EXCLUDED.last_updated,
					  updated_at = NOW()`

// whereClause builds the WHERE fragment and its args, starting at $1.
func whereClause(filter TickerFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if s := strings.TrimSpace(filter.Symbol); s != "" {
		args = append(args, s)
		conditions = append(conditions, fmt.Sprintf("lower(symbol) = lower($%d)", len(args)))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// FindMany returns one page of tickers sorted ascending on sort, ties broken by id.
func (r *tickersRepository) FindMany(ctx context.Context, filter TickerFilter, sort models.SortField, skip, limit int) ([]models.Ticker, error) {
	order, ok := sortColumns[sort]
	if !ok {
		return nil, fmt.Errorf("unsupported sort field %q", sort)
	}

	where, args := whereClause(filter)
	args = append(args, limit, skip)
	query := fmt.Sprintf(`SELECT %s FROM tickers%s ORDER BY %s, id ASC LIMIT $%d OFFSET $%d`,
		tickerColumns, where, order, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanTickers(rows)
}

// Count returns the number of tickers matching filter.
func (r *tickersRepository) Count(ctx context.Context, filter TickerFilter) (int, error) {
	where, args := whereClause(filter)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickers`+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FindOne returns (nil, nil) when no ticker has the given id.
func (r *tickersRepository) FindOne(ctx context.Context, id string) (*models.Ticker, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tickerColumns+` FROM tickers WHERE id = $1`, id)
	t, err := scanTicker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTop returns the first limit tickers ranked descending by the trending column.
func (r *tickersRepository) FindTop(ctx context.Context, by models.TrendingBy, limit int) ([]models.Ticker, error) {
	order, ok := trendingColumns[by]
	if !ok {
		return nil, fmt.Errorf("unsupported trending field %q", by)
	}
	query := fmt.Sprintf(`SELECT %s FROM tickers ORDER BY %s, id ASC LIMIT $1`, tickerColumns, order)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return scanTickers(rows)
}

// UpsertMany inserts or updates tickers by id in a single transaction.
func (r *tickersRepository) UpsertMany(ctx context.Context, tickers []models.Ticker) (int, error) {
	if len(tickers) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, upsertTickerSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	for _, t := range tickers {
		if _, err := stmt.ExecContext(ctx,
			t.ID,
			t.Name,
			t.Symbol,
			t.Rank,
			nullFloat(t.Price),
			nullFloat(t.Volume24h),
			nullFloat(t.MarketCap),
			nullFloat(t.PercentChange1h),
			nullFloat(t.PercentChange24h),
			nullFloat(t.PercentChange7d),
			t.LastUpdated,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return 0, fmt.Errorf("upsert %s: %w", t.ID, err)
		}
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(tickers), nil
}

func (r *tickersRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicker(row rowScanner) (models.Ticker, error) {
	var (
		t                             models.Ticker
		price, volume, marketCap      sql.NullFloat64
		change1h, change24h, change7d sql.NullFloat64
		lastUpdated                   time.Time
	)
	if err := row.Scan(
		&t.ID, &t.Name, &t.Symbol, &t.Rank,
		&price, &volume, &marketCap,
		&change1h, &change24h, &change7d,
		&lastUpdated,
	); err != nil {
		return t, err
	}
	t.Price = floatPtr(price)
	t.Volume24h = floatPtr(volume)
	t.MarketCap = floatPtr(marketCap)
	t.PercentChange1h = floatPtr(change1h)
	t.PercentChange24h = floatPtr(change24h)
	t.PercentChange7d = floatPtr(change7d)
	t.LastUpdated = lastUpdated.UTC()
	return t, nil
}

func scanTickers(rows *sql.Rows) ([]models.Ticker, error) {
	defer func() { _ = rows.Close() }()

	out := make([]models.Ticker, 0)
	for rows.Next() {
		t, err := scanTicker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullFloat maps a nil pointer to SQL NULL.
func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
