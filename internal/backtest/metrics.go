package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/internal/utils"
)

// profitFactorCap is reported when there are profits but no losses.
var profitFactorCap = decimal.NewFromFloat(999.99)

// annualizationFactor is sqrt(252 trading days), applied to the
// per-bar Sharpe and Sortino ratios.
var annualizationFactor = utils.DecimalSqrt(decimal.NewFromInt(252))

// ResultMeta identifies one backtest run.
type ResultMeta struct {
	ID         string
	StrategyID string
	Instrument string
	StartTime  time.Time
	EndTime    time.Time
}

// ComputeResult builds the terminal BacktestResult from the completed
// trade log, equity curve and final account state. It is a pure
// function of its inputs.
func ComputeResult(
	meta ResultMeta,
	trades []types.Trade,
	equityCurve []types.EquityPoint,
	initialBalance decimal.Decimal,
	finalAccount types.AccountState,
) types.BacktestResult {
	result := types.BacktestResult{
		ID:             meta.ID,
		StrategyID:     meta.StrategyID,
		Instrument:     meta.Instrument,
		StartTime:      meta.StartTime,
		EndTime:        meta.EndTime,
		InitialBalance: initialBalance,
		FinalBalance:   finalAccount.Balance,
		FinalEquity:    finalAccount.Equity,
		NetProfit:      finalAccount.Equity.Sub(initialBalance),
		Trades:         trades,
		EquityCurve:    equityCurve,
	}

	totalNet := decimal.Zero
	winnersNet := decimal.Zero
	losersNet := decimal.Zero

	for _, trade := range trades {
		result.TotalTrades++
		result.TotalCommission = result.TotalCommission.Add(trade.Commission)

		net := trade.NetPnL()
		totalNet = totalNet.Add(net)
		switch {
		case net.IsPositive():
			result.WinningTrades++
			winnersNet = winnersNet.Add(net)
		case net.IsNegative():
			result.LosingTrades++
			losersNet = losersNet.Add(net)
		}

		if trade.PnL.IsPositive() {
			result.GrossProfit = result.GrossProfit.Add(trade.PnL)
		} else {
			result.GrossLoss = result.GrossLoss.Add(trade.PnL.Abs())
		}
	}

	if result.TotalTrades > 0 {
		result.WinRate = decimal.NewFromInt(int64(result.WinningTrades)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(result.TotalTrades)))
		result.AverageTrade = totalNet.Div(decimal.NewFromInt(int64(result.TotalTrades)))
	}
	if result.WinningTrades > 0 {
		result.AverageWinner = winnersNet.Div(decimal.NewFromInt(int64(result.WinningTrades)))
	}
	if result.LosingTrades > 0 {
		result.AverageLoser = losersNet.Div(decimal.NewFromInt(int64(result.LosingTrades)))
	}

	result.ProfitFactor = profitFactor(result.GrossProfit, result.GrossLoss)
	result.MaxDrawdown, result.MaxDrawdownPct = maxDrawdown(equityCurve, initialBalance)
	result.SharpeRatio, result.SortinoRatio = riskAdjustedReturns(equityCurve)

	return result
}

// profitFactor is gross profit over gross loss, with a capped sentinel
// when there are no losses.
func profitFactor(grossProfit, grossLoss decimal.Decimal) decimal.Decimal {
	if grossLoss.IsZero() {
		if grossProfit.IsPositive() {
			return profitFactorCap
		}
		return decimal.Zero
	}
	return grossProfit.Div(grossLoss)
}

// maxDrawdown scans the equity curve for the largest per-bar drawdown.
func maxDrawdown(equityCurve []types.EquityPoint, initialBalance decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	maxDD := decimal.Zero
	for _, point := range equityCurve {
		if point.Drawdown.GreaterThan(maxDD) {
			maxDD = point.Drawdown
		}
	}

	pct := decimal.Zero
	if initialBalance.IsPositive() {
		pct = maxDD.Mul(decimal.NewFromInt(100)).Div(initialBalance)
	}
	return maxDD, pct
}

// riskAdjustedReturns computes the annualized Sharpe and Sortino
// ratios from per-bar fractional returns. Both are zero when fewer
// than two equity points exist or the relevant deviation is zero.
func riskAdjustedReturns(equityCurve []types.EquityPoint) (decimal.Decimal, decimal.Decimal) {
	if len(equityCurve) < 2 {
		return decimal.Zero, decimal.Zero
	}

	returns := make([]decimal.Decimal, 0, len(equityCurve)-1)
	for i := 1; i < len(equityCurve); i++ {
		prev := equityCurve[i-1].Equity
		if prev.IsZero() {
			returns = append(returns, decimal.Zero)
			continue
		}
		returns = append(returns, equityCurve[i].Equity.Sub(prev).Div(prev))
	}

	mean := utils.Mean(returns)
	n := decimal.NewFromInt(int64(len(returns)))

	variance := decimal.Zero
	downsideVariance := decimal.Zero
	for _, r := range returns {
		diff := r.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
		if r.IsNegative() {
			downsideVariance = downsideVariance.Add(r.Mul(r))
		}
	}
	variance = variance.Div(n)
	downsideVariance = downsideVariance.Div(n)

	sharpe := decimal.Zero
	if stdDev := utils.DecimalSqrt(variance); stdDev.IsPositive() {
		sharpe = mean.Div(stdDev).Mul(annualizationFactor)
	}

	sortino := decimal.Zero
	if downsideDev := utils.DecimalSqrt(downsideVariance); downsideDev.IsPositive() {
		sortino = mean.Div(downsideDev).Mul(annualizationFactor)
	}

	return sharpe, sortino
}
