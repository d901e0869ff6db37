package backtest

import (
	"encoding/json"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/evilc0des/prop-bots/internal/broker/sim"
	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

// Config is the full input of one backtest run: the instrument and
// execution configuration, the strategy to drive and the risk profile
// to enforce.
type Config struct {
	Strategy    string `yaml:"strategy" json:"strategy" validate:"required" jsonschema:"title=Strategy,description=Name of a registered strategy"`
	RiskProfile string `yaml:"risk_profile" json:"risk_profile" validate:"required" jsonschema:"title=Risk Profile,description=Name of a built-in prop firm profile"`

	Instrument            types.Instrument `yaml:"instrument" json:"instrument" jsonschema:"title=Instrument"`
	InitialBalance        decimal.Decimal  `yaml:"initial_balance" json:"initial_balance" jsonschema:"title=Initial Balance,description=Starting balance in the account currency"`
	CommissionPerContract decimal.Decimal  `yaml:"commission_per_contract" json:"commission_per_contract" jsonschema:"title=Commission Per Contract"`
	SlippageTicks         decimal.Decimal  `yaml:"slippage_ticks" json:"slippage_ticks" jsonschema:"title=Slippage Ticks,description=Adverse fill adjustment in ticks"`

	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the backtest window"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the backtest window"`
}

// UnmarshalYAML implements custom unmarshaling for Config, mapping
// nullable YAML fields onto the optional time window.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain struct {
		Strategy              string           `yaml:"strategy"`
		RiskProfile           string           `yaml:"risk_profile"`
		Instrument            types.Instrument `yaml:"instrument"`
		InitialBalance        float64          `yaml:"initial_balance"`
		CommissionPerContract float64          `yaml:"commission_per_contract"`
		SlippageTicks         float64          `yaml:"slippage_ticks"`
		StartTime             *time.Time       `yaml:"start_time"`
		EndTime               *time.Time       `yaml:"end_time"`
	}

	var raw plain
	if err := unmarshal(&raw); err != nil {
		return err
	}

	c.Strategy = raw.Strategy
	c.RiskProfile = raw.RiskProfile
	c.Instrument = raw.Instrument
	c.InitialBalance = decimal.NewFromFloat(raw.InitialBalance)
	c.CommissionPerContract = decimal.NewFromFloat(raw.CommissionPerContract)
	c.SlippageTicks = decimal.NewFromFloat(raw.SlippageTicks)
	if raw.StartTime != nil {
		c.StartTime = optional.Some(*raw.StartTime)
	}
	if raw.EndTime != nil {
		c.EndTime = optional.Some(*raw.EndTime)
	}

	return nil
}

// Validate checks the configuration, including the nested instrument.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest config", err)
	}

	if err := c.Instrument.Validate(); err != nil {
		return err
	}

	if !c.InitialBalance.IsPositive() {
		return errors.Newf(errors.ErrCodeBacktestConfigError, "initial balance must be positive, got %s", c.InitialBalance)
	}

	if start, err := c.StartTime.Take(); err == nil {
		if end, err := c.EndTime.Take(); err == nil && end.Before(start) {
			return errors.New(errors.ErrCodeBacktestConfigError, "end time before start time")
		}
	}

	return nil
}

// BrokerConfig derives the simulated broker configuration.
func (c *Config) BrokerConfig() sim.Config {
	return sim.Config{
		Instrument:            c.Instrument,
		InitialBalance:        c.InitialBalance,
		CommissionPerContract: c.CommissionPerContract,
		SlippageTicks:         c.SlippageTicks,
	}
}

// InWindow reports whether a bar timestamp falls inside the configured
// time window. An unset bound is open.
func (c *Config) InWindow(at time.Time) bool {
	if start, err := c.StartTime.Take(); err == nil && at.Before(start) {
		return false
	}
	if end, err := c.EndTime.Take(); err == nil && at.After(end) {
		return false
	}
	return true
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "failed to read config file %s", path)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse config file", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// GenerateSchema generates a JSON schema for the Config.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t.String() {
			case "optional.Option[time.Time]":
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			case "decimal.Decimal":
				return &jsonschema.Schema{
					Type: "string",
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for a backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates an indented JSON schema string for the
// Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(schemaBytes), nil
}
