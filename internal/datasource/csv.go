package datasource

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

// barRecord is the CSV row layout for bar files. Timestamps are
// RFC 3339.
type barRecord struct {
	Timestamp time.Time       `csv:"timestamp"`
	Open      decimal.Decimal `csv:"open"`
	High      decimal.Decimal `csv:"high"`
	Low       decimal.Decimal `csv:"low"`
	Close     decimal.Decimal `csv:"close"`
	Volume    decimal.Decimal `csv:"volume"`
}

// tickRecord is the CSV row layout for tick files.
type tickRecord struct {
	Timestamp time.Time       `csv:"timestamp"`
	Bid       decimal.Decimal `csv:"bid"`
	Ask       decimal.Decimal `csv:"ask"`
	Last      decimal.Decimal `csv:"last"`
	Volume    decimal.Decimal `csv:"volume"`
}

// CSVProvider reads bars or ticks for a single instrument from CSV
// files on disk. The whole file is loaded eagerly; CSV is meant for
// small research data sets, DuckDB for anything larger.
type CSVProvider struct {
	instrument string
	barsPath   string
	ticksPath  string
}

// NewCSVProvider creates a provider serving the given instrument from
// the given bar file. ticksPath may be empty if there is no tick data.
func NewCSVProvider(instrument, barsPath, ticksPath string) *CSVProvider {
	return &CSVProvider{
		instrument: instrument,
		barsPath:   barsPath,
		ticksPath:  ticksPath,
	}
}

// Bars implements DataProvider.
func (p *CSVProvider) Bars(ctx context.Context, instrument string, start, end time.Time) ([]types.Bar, error) {
	if instrument != p.instrument {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no data for instrument %q", instrument)
	}

	file, err := os.Open(p.barsPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to open bars file %s", p.barsPath)
	}
	defer file.Close()

	var records []barRecord
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataParse, "failed to parse bars file", err)
	}

	bars := make([]types.Bar, 0, len(records))
	for _, record := range records {
		if !inRange(record.Timestamp, start, end) {
			continue
		}

		bar := types.Bar{
			Instrument: p.instrument,
			Timestamp:  record.Timestamp,
			Open:       record.Open,
			High:       record.High,
			Low:        record.Low,
			Close:      record.Close,
			Volume:     record.Volume,
		}
		if err := bar.Validate(); err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	return bars, nil
}

// Ticks implements DataProvider.
func (p *CSVProvider) Ticks(ctx context.Context, instrument string, start, end time.Time) ([]types.Tick, error) {
	if instrument != p.instrument {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no data for instrument %q", instrument)
	}

	if p.ticksPath == "" {
		return nil, errors.New(errors.ErrCodeNoDataFound, "no tick data configured")
	}

	file, err := os.Open(p.ticksPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to open ticks file %s", p.ticksPath)
	}
	defer file.Close()

	var records []tickRecord
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataParse, "failed to parse ticks file", err)
	}

	ticks := make([]types.Tick, 0, len(records))
	for _, record := range records {
		if !inRange(record.Timestamp, start, end) {
			continue
		}
		ticks = append(ticks, types.Tick{
			Instrument: p.instrument,
			Timestamp:  record.Timestamp,
			Bid:        record.Bid,
			Ask:        record.Ask,
			Last:       record.Last,
			Volume:     record.Volume,
		})
	}

	sort.Slice(ticks, func(i, j int) bool {
		return ticks[i].Timestamp.Before(ticks[j].Timestamp)
	})

	return ticks, nil
}

// Close implements DataProvider. CSV files are opened per call, so
// there is nothing to release.
func (p *CSVProvider) Close() error {
	return nil
}

var _ DataProvider = (*CSVProvider)(nil)
