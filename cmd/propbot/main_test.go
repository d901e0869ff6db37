package main

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/evilc0des/prop-bots/internal/backtest"
	"github.com/evilc0des/prop-bots/internal/types"
)

type MainTestSuite struct {
	suite.Suite
}

func TestMainSuite(t *testing.T) {
	suite.Run(t, new(MainTestSuite))
}

func (suite *MainTestSuite) summaryValue(rows [][]string, metric string) string {
	for _, row := range rows {
		if row[0] == metric {
			return row[1]
		}
	}
	suite.Failf("missing metric", "no %q row in summary", metric)
	return ""
}

// The win rate metric arrives as a percentage already; the summary
// must not scale it again.
func (suite *MainTestSuite) TestSummaryWinRateNotRescaled() {
	now := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	trades := []types.Trade{
		{
			ID:         uuid.New(),
			Instrument: "ES",
			Side:       types.SideBuy,
			Quantity:   decimal.NewFromInt(1),
			EntryPrice: decimal.NewFromFloat(100),
			ExitPrice:  decimal.NewFromFloat(101),
			EntryTime:  now,
			ExitTime:   now.Add(5 * time.Minute),
			PnL:        decimal.NewFromInt(50),
		},
		{
			ID:         uuid.New(),
			Instrument: "ES",
			Side:       types.SideBuy,
			Quantity:   decimal.NewFromInt(1),
			EntryPrice: decimal.NewFromFloat(101),
			ExitPrice:  decimal.NewFromFloat(100),
			EntryTime:  now.Add(10 * time.Minute),
			ExitTime:   now.Add(15 * time.Minute),
			PnL:        decimal.NewFromInt(-50),
		},
	}

	balance := decimal.NewFromInt(50000)
	account := types.NewAccountState(balance, now)
	result := backtest.ComputeResult(backtest.ResultMeta{ID: "run"}, trades, nil, balance, account)
	suite.True(result.WinRate.Equal(decimal.NewFromInt(50)))

	rows := summaryRows(result)
	suite.Equal("50.00%", suite.summaryValue(rows, "Win Rate"))
	suite.Equal("1", suite.summaryValue(rows, "Winning Trades"))
	suite.Equal("1", suite.summaryValue(rows, "Losing Trades"))
}
