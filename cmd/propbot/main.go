package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/evilc0des/prop-bots/internal/api"
	"github.com/evilc0des/prop-bots/internal/backtest"
	"github.com/evilc0des/prop-bots/internal/datasource"
	"github.com/evilc0des/prop-bots/internal/logger"
	"github.com/evilc0des/prop-bots/internal/risk"
	"github.com/evilc0des/prop-bots/internal/strategy"
	"github.com/evilc0des/prop-bots/internal/types"
)

func main() {
	cmd := &cli.Command{
		Name:  "propbot",
		Usage: "Prop-firm backtesting for automated futures strategies",
		Commands: []*cli.Command{
			backtestCommand(),
			serverCommand(),
			strategiesCommand(),
			riskProfilesCommand(),
			dataCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Run a backtest over a bar file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Backtest configuration YAML. Other flags override it.",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "CSV bar file (timestamp,open,high,low,close,volume)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "DuckDB database file, used instead of --data when set",
			},
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Registered strategy name",
			},
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   "Prop firm risk profile name",
			},
			&cli.StringFlag{
				Name:  "symbol",
				Usage: "Instrument symbol",
			},
			&cli.StringFlag{
				Name:  "tick-size",
				Usage: "Minimum price increment",
				Value: "0.25",
			},
			&cli.StringFlag{
				Name:  "tick-value",
				Usage: "Dollar value of one tick per contract",
				Value: "12.5",
			},
			&cli.StringFlag{
				Name:    "balance",
				Aliases: []string{"b"},
				Usage:   "Initial account balance",
				Value:   "50000",
			},
			&cli.StringFlag{
				Name:  "commission",
				Usage: "Commission per contract per fill",
				Value: "0",
			},
			&cli.StringFlag{
				Name:  "slippage",
				Usage: "Adverse slippage in ticks",
				Value: "0",
			},
		},
		Action: backtestAction,
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	config, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	l, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer l.Sync()

	strat, err := strategy.DefaultRegistry.Create(config.Strategy)
	if err != nil {
		return err
	}

	profile, err := risk.GetProfile(config.RiskProfile)
	if err != nil {
		return err
	}
	riskManager, err := risk.NewPropFirmRiskManager(profile, l)
	if err != nil {
		return err
	}

	bars, err := loadBars(ctx, cmd, config.Instrument.Symbol, l)
	if err != nil {
		return err
	}

	engine, err := backtest.NewEngine(config, l)
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(bars)), "backtesting")
	result, err := engine.Run(ctx, bars, strat, riskManager, func(current, total int) {
		bar.Set(current)
	})
	if err != nil {
		return err
	}
	bar.Finish()

	printResult(result)
	return nil
}

// resolveConfig builds the run configuration from the YAML file, then
// lets any explicitly set flags override it.
func resolveConfig(cmd *cli.Command) (backtest.Config, error) {
	var config backtest.Config
	if path := cmd.String("config"); path != "" {
		loaded, err := backtest.LoadConfig(path)
		if err != nil {
			return backtest.Config{}, err
		}
		config = loaded
	}

	if cmd.IsSet("strategy") || config.Strategy == "" {
		config.Strategy = cmd.String("strategy")
	}
	if cmd.IsSet("profile") || config.RiskProfile == "" {
		config.RiskProfile = cmd.String("profile")
	}
	if cmd.IsSet("symbol") || config.Instrument.Symbol == "" {
		config.Instrument = types.Instrument{
			Symbol:     cmd.String("symbol"),
			AssetClass: types.AssetClassFutures,
			Currency:   "USD",
		}
		var err error
		if config.Instrument.TickSize, err = decimal.NewFromString(cmd.String("tick-size")); err != nil {
			return backtest.Config{}, fmt.Errorf("invalid tick-size: %w", err)
		}
		if config.Instrument.TickValue, err = decimal.NewFromString(cmd.String("tick-value")); err != nil {
			return backtest.Config{}, fmt.Errorf("invalid tick-value: %w", err)
		}
	}
	if cmd.IsSet("balance") || config.InitialBalance.IsZero() {
		balance, err := decimal.NewFromString(cmd.String("balance"))
		if err != nil {
			return backtest.Config{}, fmt.Errorf("invalid balance: %w", err)
		}
		config.InitialBalance = balance
	}
	if cmd.IsSet("commission") {
		commission, err := decimal.NewFromString(cmd.String("commission"))
		if err != nil {
			return backtest.Config{}, fmt.Errorf("invalid commission: %w", err)
		}
		config.CommissionPerContract = commission
	}
	if cmd.IsSet("slippage") {
		slippage, err := decimal.NewFromString(cmd.String("slippage"))
		if err != nil {
			return backtest.Config{}, fmt.Errorf("invalid slippage: %w", err)
		}
		config.SlippageTicks = slippage
	}

	return config, config.Validate()
}

func loadBars(ctx context.Context, cmd *cli.Command, symbol string, l *logger.Logger) ([]types.Bar, error) {
	if dbPath := cmd.String("db"); dbPath != "" {
		provider, err := datasource.NewDuckDBProvider(dbPath, l)
		if err != nil {
			return nil, err
		}
		defer provider.Close()
		return provider.Bars(ctx, symbol, time.Time{}, time.Time{})
	}

	dataPath := cmd.String("data")
	if dataPath == "" {
		return nil, fmt.Errorf("either --data or --db is required")
	}
	provider := datasource.NewCSVProvider(symbol, dataPath, "")
	defer provider.Close()
	return provider.Bars(ctx, symbol, time.Time{}, time.Time{})
}

// summaryRows renders the result metrics for the summary table.
// WinRate is already a percentage.
func summaryRows(result types.BacktestResult) [][]string {
	return [][]string{
		{"Initial Balance", result.InitialBalance.StringFixed(2)},
		{"Final Equity", result.FinalEquity.StringFixed(2)},
		{"Net Profit", result.NetProfit.StringFixed(2)},
		{"Total Trades", fmt.Sprintf("%d", result.TotalTrades)},
		{"Winning Trades", fmt.Sprintf("%d", result.WinningTrades)},
		{"Losing Trades", fmt.Sprintf("%d", result.LosingTrades)},
		{"Win Rate", result.WinRate.StringFixed(2) + "%"},
		{"Profit Factor", result.ProfitFactor.StringFixed(2)},
		{"Max Drawdown", result.MaxDrawdown.StringFixed(2)},
		{"Sharpe Ratio", result.SharpeRatio.StringFixed(2)},
		{"Sortino Ratio", result.SortinoRatio.StringFixed(2)},
		{"Total Commission", result.TotalCommission.StringFixed(2)},
	}
}

func printResult(result types.BacktestResult) {
	fmt.Printf("\nBacktest %s  %s on %s  %s to %s\n\n",
		result.ID, result.StrategyID, result.Instrument,
		result.StartTime.Format("2006-01-02"), result.EndTime.Format("2006-01-02"))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, row := range summaryRows(result) {
		table.Append(row)
	}
	table.Render()

	if len(result.Violations) > 0 {
		fmt.Printf("\nRisk violations: %d\n", len(result.Violations))
		for _, violation := range result.Violations {
			fmt.Printf("  [%s] %s: %s\n", violation.Severity, violation.Rule, violation.Message)
		}
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Serve the backtest HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Listen address",
				Value:   ":8080",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			l, err := logger.NewLogger()
			if err != nil {
				return err
			}
			defer l.Sync()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(api.Config{ListenAddr: cmd.String("listen")}, nil, l)
			return server.Start(ctx)
		},
	}
}

func strategiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "strategies",
		Usage: "List registered strategies",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			for _, name := range strategy.DefaultRegistry.List() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func riskProfilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "risk-profiles",
		Usage: "List built-in prop firm risk profiles",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Name", "Balance", "Daily Loss", "Max Drawdown", "Mode", "Max Position"})

			for _, profile := range risk.Profiles() {
				maxPosition := "-"
				if size, err := profile.MaxPositionSize.Take(); err == nil {
					maxPosition = size.String()
				}
				table.Append([]string{
					profile.Name,
					profile.InitialBalance.StringFixed(0),
					profile.DailyLossLimit.StringFixed(0),
					profile.MaxDrawdown.StringFixed(0),
					string(profile.DrawdownMode),
					maxPosition,
				})
			}
			table.Render()
			return nil
		},
	}
}

func dataCommand() *cli.Command {
	return &cli.Command{
		Name:  "data",
		Usage: "Manage historical bar data",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import a CSV bar file into a DuckDB database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Usage:    "DuckDB database file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "csv",
						Usage:    "CSV bar file to import",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "symbol",
						Usage:    "Instrument symbol the bars belong to",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					l, err := logger.NewLogger()
					if err != nil {
						return err
					}
					defer l.Sync()

					provider, err := datasource.NewDuckDBProvider(cmd.String("db"), l)
					if err != nil {
						return err
					}
					defer provider.Close()

					rows, err := provider.ImportBarsCSV(ctx, cmd.String("symbol"), cmd.String("csv"))
					if err != nil {
						return err
					}
					fmt.Printf("imported %d bars for %s\n", rows, cmd.String("symbol"))
					return nil
				},
			},
		},
	}
}
