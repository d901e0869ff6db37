package types

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/evilc0des/prop-bots/pkg/errors"
)

// AssetClass is the asset class an instrument belongs to.
type AssetClass string

const (
	AssetClassFutures AssetClass = "futures"
	AssetClassCFD     AssetClass = "cfd"
	AssetClassCrypto  AssetClass = "crypto"
)

// Instrument describes a tradeable instrument (e.g. ES, NQ, BTCUSD).
type Instrument struct {
	Symbol     string     `yaml:"symbol" json:"symbol"`
	AssetClass AssetClass `yaml:"asset_class" json:"asset_class"`
	// TickSize is the minimum price movement (e.g. 0.25 for ES futures).
	TickSize decimal.Decimal `yaml:"tick_size" json:"tick_size"`
	// TickValue is the dollar value per tick (e.g. $12.50 for ES).
	TickValue decimal.Decimal `yaml:"tick_value" json:"tick_value"`
	// ContractSize is the notional value per contract/lot, used for margin.
	ContractSize decimal.Decimal `yaml:"contract_size" json:"contract_size"`
	// Currency the instrument is denominated in.
	Currency string `yaml:"currency" json:"currency"`
	// Exchange is an optional exchange or broker-specific identifier.
	Exchange string `yaml:"exchange,omitempty" json:"exchange,omitempty"`
}

// UnmarshalYAML implements custom unmarshaling for Instrument. The
// decimal fields are read as plain YAML numbers.
func (i *Instrument) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain struct {
		Symbol       string     `yaml:"symbol"`
		AssetClass   AssetClass `yaml:"asset_class"`
		TickSize     float64    `yaml:"tick_size"`
		TickValue    float64    `yaml:"tick_value"`
		ContractSize float64    `yaml:"contract_size"`
		Currency     string     `yaml:"currency"`
		Exchange     string     `yaml:"exchange"`
	}

	var raw plain
	if err := unmarshal(&raw); err != nil {
		return err
	}

	i.Symbol = raw.Symbol
	i.AssetClass = raw.AssetClass
	i.TickSize = decimal.NewFromFloat(raw.TickSize)
	i.TickValue = decimal.NewFromFloat(raw.TickValue)
	i.ContractSize = decimal.NewFromFloat(raw.ContractSize)
	i.Currency = raw.Currency
	i.Exchange = raw.Exchange
	return nil
}

// Validate checks the instrument invariants.
func (i *Instrument) Validate() error {
	if i.Symbol == "" {
		return errors.New(errors.ErrCodeInvalidInstrument, "instrument symbol is required")
	}

	if !i.TickSize.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidInstrument, "tick size must be positive, got %s", i.TickSize)
	}

	if !i.TickValue.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidInstrument, "tick value must be positive, got %s", i.TickValue)
	}

	return nil
}

// Timeframe identifies a bar aggregation period.
type Timeframe string

const (
	TimeframeTick     Timeframe = "tick"
	Timeframe1Second  Timeframe = "1s"
	Timeframe1Minute  Timeframe = "1m"
	Timeframe5Minute  Timeframe = "5m"
	Timeframe15Minute Timeframe = "15m"
	Timeframe1Hour    Timeframe = "1h"
	Timeframe4Hour    Timeframe = "4h"
	TimeframeDaily    Timeframe = "1d"
	TimeframeWeekly   Timeframe = "1w"
	TimeframeMonthly  Timeframe = "1M"
)

// Bar is a single OHLCV bar.
type Bar struct {
	Instrument string          `yaml:"instrument" json:"instrument" csv:"instrument"`
	Timestamp  time.Time       `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Open       decimal.Decimal `yaml:"open" json:"open" csv:"open"`
	High       decimal.Decimal `yaml:"high" json:"high" csv:"high"`
	Low        decimal.Decimal `yaml:"low" json:"low" csv:"low"`
	Close      decimal.Decimal `yaml:"close" json:"close" csv:"close"`
	Volume     decimal.Decimal `yaml:"volume" json:"volume" csv:"volume"`
}

// Validate checks that low <= {open, close} <= high.
func (b *Bar) Validate() error {
	if b.Low.GreaterThan(b.Open) || b.Low.GreaterThan(b.Close) {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar low %s above open/close", b.Low)
	}

	if b.High.LessThan(b.Open) || b.High.LessThan(b.Close) {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar high %s below open/close", b.High)
	}

	return nil
}

// Tick is a single quote/trade update (bid/ask/last).
type Tick struct {
	Instrument string          `yaml:"instrument" json:"instrument" csv:"instrument"`
	Timestamp  time.Time       `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Bid        decimal.Decimal `yaml:"bid" json:"bid" csv:"bid"`
	Ask        decimal.Decimal `yaml:"ask" json:"ask" csv:"ask"`
	Last       decimal.Decimal `yaml:"last" json:"last" csv:"last"`
	Volume     decimal.Decimal `yaml:"volume" json:"volume" csv:"volume"`
}
