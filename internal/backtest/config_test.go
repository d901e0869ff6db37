package backtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func optionalTime(value string) optional.Option[time.Time] {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return optional.Some(t)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) validConfig() Config {
	return Config{
		Strategy:    "ma_crossover",
		RiskProfile: "topstep_50k",
		Instrument: types.Instrument{
			Symbol:     "ES",
			AssetClass: types.AssetClassFutures,
			TickSize:   decimal.NewFromFloat(0.25),
			TickValue:  decimal.NewFromFloat(12.5),
			Currency:   "USD",
		},
		InitialBalance:        decimal.NewFromInt(50000),
		CommissionPerContract: decimal.NewFromInt(4),
		SlippageTicks:         decimal.NewFromInt(1),
	}
}

func (suite *ConfigTestSuite) TestValidate() {
	config := suite.validConfig()
	suite.NoError(config.Validate())

	missing := config
	missing.Strategy = ""
	err := missing.Validate()
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestConfigError))

	badBalance := config
	badBalance.InitialBalance = decimal.Zero
	suite.Error(badBalance.Validate())

	badInstrument := config
	badInstrument.Instrument.TickSize = decimal.Zero
	suite.Error(badInstrument.Validate())
}

func (suite *ConfigTestSuite) TestLoadConfigFromYAML() {
	content := `strategy: ma_crossover
risk_profile: topstep_50k
instrument:
  symbol: ES
  asset_class: futures
  tick_size: 0.25
  tick_value: 12.5
  currency: USD
initial_balance: 50000
commission_per_contract: 4
slippage_ticks: 1
start_time: 2024-01-15T09:30:00Z
`
	path := filepath.Join(suite.T().TempDir(), "backtest.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	suite.Require().NoError(err)
	suite.Equal("ma_crossover", config.Strategy)
	suite.Equal("ES", config.Instrument.Symbol)
	suite.True(config.Instrument.TickSize.Equal(decimal.NewFromFloat(0.25)))
	suite.True(config.InitialBalance.Equal(decimal.NewFromInt(50000)))
	suite.True(config.StartTime.IsSome())
	suite.True(config.EndTime.IsNone())
}

func (suite *ConfigTestSuite) TestLoadConfigMissingFile() {
	_, err := LoadConfig(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestConfigError))
}

func (suite *ConfigTestSuite) TestWindowValidation() {
	config := suite.validConfig()
	config.StartTime = optionalTime("2024-01-16T00:00:00Z")
	config.EndTime = optionalTime("2024-01-15T00:00:00Z")
	suite.Error(config.Validate())
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	config := suite.validConfig()
	schema, err := config.GenerateSchemaJSON()
	suite.Require().NoError(err)
	suite.Contains(schema, "backtest-config")
	suite.Contains(schema, "risk_profile")
}
