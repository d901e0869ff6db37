package datasource

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/evilc0des/prop-bots/internal/logger"
	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

// DuckDBProvider stores bars and ticks in a DuckDB database, either
// in-memory (empty path) or on disk.
type DuckDBProvider struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewDuckDBProvider opens the database at path and creates the market
// data tables if they do not exist.
func NewDuckDBProvider(path string, l *logger.Logger) (*DuckDBProvider, error) {
	if l == nil {
		l = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open duckdb database", err)
	}

	provider := &DuckDBProvider{db: db, logger: l}
	if err := provider.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return provider, nil
}

func (p *DuckDBProvider) ensureSchema() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			instrument VARCHAR NOT NULL,
			ts TIMESTAMP NOT NULL,
			open DOUBLE NOT NULL,
			high DOUBLE NOT NULL,
			low DOUBLE NOT NULL,
			close DOUBLE NOT NULL,
			volume DOUBLE NOT NULL
		);
		CREATE TABLE IF NOT EXISTS ticks (
			instrument VARCHAR NOT NULL,
			ts TIMESTAMP NOT NULL,
			bid DOUBLE NOT NULL,
			ask DOUBLE NOT NULL,
			last DOUBLE NOT NULL,
			volume DOUBLE NOT NULL
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create market data tables", err)
	}
	return nil
}

// ImportBarsCSV bulk-loads a bar CSV file into the bars table using
// DuckDB's native CSV reader. The file layout matches the CSVProvider
// format: timestamp,open,high,low,close,volume.
func (p *DuckDBProvider) ImportBarsCSV(ctx context.Context, instrument, path string) (int64, error) {
	p.logger.Info("importing bars",
		zap.String("instrument", instrument),
		zap.String("path", path),
	)

	result, err := p.db.ExecContext(ctx, `
		INSERT INTO bars
		SELECT ? AS instrument, timestamp, open, high, low, close, volume
		FROM read_csv_auto(?)
	`, instrument, path)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to import bars from %s", path)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count imported bars", err)
	}
	return rows, nil
}

// InsertBars appends bars to the bars table.
func (p *DuckDBProvider) InsertBars(ctx context.Context, bars []types.Bar) error {
	builder := sq.Insert("bars").
		Columns("instrument", "ts", "open", "high", "low", "close", "volume")
	for _, bar := range bars {
		builder = builder.Values(
			bar.Instrument,
			bar.Timestamp,
			bar.Open.InexactFloat64(),
			bar.High.InexactFloat64(),
			bar.Low.InexactFloat64(),
			bar.Close.InexactFloat64(),
			bar.Volume.InexactFloat64(),
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build insert", err)
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert bars", err)
	}
	return nil
}

// Bars implements DataProvider.
func (p *DuckDBProvider) Bars(ctx context.Context, instrument string, start, end time.Time) ([]types.Bar, error) {
	builder := sq.Select("ts", "open", "high", "low", "close", "volume").
		From("bars").
		Where(sq.Eq{"instrument": instrument}).
		OrderBy("ts ASC")
	if !start.IsZero() {
		builder = builder.Where(sq.GtOrEq{"ts": start})
	}
	if !end.IsZero() {
		builder = builder.Where(sq.LtOrEq{"ts": end})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	var bars []types.Bar
	for rows.Next() {
		var (
			ts                             time.Time
			open, high, low, close, volume float64
		)
		if err := rows.Scan(&ts, &open, &high, &low, &close, &volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar row", err)
		}

		bars = append(bars, types.Bar{
			Instrument: instrument,
			Timestamp:  ts,
			Open:       decimal.NewFromFloat(open),
			High:       decimal.NewFromFloat(high),
			Low:        decimal.NewFromFloat(low),
			Close:      decimal.NewFromFloat(close),
			Volume:     decimal.NewFromFloat(volume),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "bar row iteration failed", err)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "no bars for instrument %q in range", instrument)
	}

	return bars, nil
}

// Ticks implements DataProvider.
func (p *DuckDBProvider) Ticks(ctx context.Context, instrument string, start, end time.Time) ([]types.Tick, error) {
	builder := sq.Select("ts", "bid", "ask", "last", "volume").
		From("ticks").
		Where(sq.Eq{"instrument": instrument}).
		OrderBy("ts ASC")
	if !start.IsZero() {
		builder = builder.Where(sq.GtOrEq{"ts": start})
	}
	if !end.IsZero() {
		builder = builder.Where(sq.LtOrEq{"ts": end})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query ticks", err)
	}
	defer rows.Close()

	var ticks []types.Tick
	for rows.Next() {
		var (
			ts                     time.Time
			bid, ask, last, volume float64
		)
		if err := rows.Scan(&ts, &bid, &ask, &last, &volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan tick row", err)
		}

		ticks = append(ticks, types.Tick{
			Instrument: instrument,
			Timestamp:  ts,
			Bid:        decimal.NewFromFloat(bid),
			Ask:        decimal.NewFromFloat(ask),
			Last:       decimal.NewFromFloat(last),
			Volume:     decimal.NewFromFloat(volume),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "tick row iteration failed", err)
	}

	return ticks, nil
}

// Close implements DataProvider.
func (p *DuckDBProvider) Close() error {
	return p.db.Close()
}

var _ DataProvider = (*DuckDBProvider)(nil)
