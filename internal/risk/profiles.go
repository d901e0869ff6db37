package risk

import (
	"os"
	"sort"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

// builtinProfiles are the rule sets of well-known prop firm
// evaluations, keyed by profile name.
var builtinProfiles = map[string]types.PropFirmProfile{
	"topstep_50k": {
		Name:                 "topstep_50k",
		InitialBalance:       decimal.NewFromInt(50000),
		DailyLossLimit:       decimal.NewFromInt(1000),
		MaxDrawdown:          decimal.NewFromInt(2000),
		DrawdownMode:         types.DrawdownTrailing,
		MaxPositionSize:      optional.Some(decimal.NewFromInt(5)),
		AutoFlattenThreshold: decimal.NewFromFloat(0.9),
	},
	"topstep_100k": {
		Name:                 "topstep_100k",
		InitialBalance:       decimal.NewFromInt(100000),
		DailyLossLimit:       decimal.NewFromInt(2000),
		MaxDrawdown:          decimal.NewFromInt(3000),
		DrawdownMode:         types.DrawdownTrailing,
		MaxPositionSize:      optional.Some(decimal.NewFromInt(10)),
		AutoFlattenThreshold: decimal.NewFromFloat(0.9),
	},
	"topstep_150k": {
		Name:                 "topstep_150k",
		InitialBalance:       decimal.NewFromInt(150000),
		DailyLossLimit:       decimal.NewFromInt(3000),
		MaxDrawdown:          decimal.NewFromInt(4500),
		DrawdownMode:         types.DrawdownTrailing,
		MaxPositionSize:      optional.Some(decimal.NewFromInt(15)),
		AutoFlattenThreshold: decimal.NewFromFloat(0.9),
	},
	"mffu_100k": {
		Name:                 "mffu_100k",
		InitialBalance:       decimal.NewFromInt(100000),
		DailyLossLimit:       decimal.NewFromInt(2500),
		MaxDrawdown:          decimal.NewFromInt(3500),
		DrawdownMode:         types.DrawdownTrailing,
		MaxPositionSize:      optional.Some(decimal.NewFromInt(10)),
		AutoFlattenThreshold: decimal.NewFromFloat(0.9),
	},
	"fundingpips_100k": {
		Name:                 "fundingpips_100k",
		InitialBalance:       decimal.NewFromInt(100000),
		DailyLossLimit:       decimal.NewFromInt(5000),
		MaxDrawdown:          decimal.NewFromInt(10000),
		DrawdownMode:         types.DrawdownFixed,
		ConsistencyMaxDayPct: optional.Some(decimal.NewFromInt(40)),
		AutoFlattenThreshold: decimal.NewFromFloat(0.9),
	},
}

// GetProfile returns a built-in profile by name.
func GetProfile(name string) (types.PropFirmProfile, error) {
	profile, ok := builtinProfiles[name]
	if !ok {
		return types.PropFirmProfile{}, errors.Newf(errors.ErrCodeUnknownProfile, "unknown risk profile %q", name)
	}
	return profile, nil
}

// ProfileNames returns the built-in profile names, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for name := range builtinProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profiles returns all built-in profiles, sorted by name.
func Profiles() []types.PropFirmProfile {
	profiles := make([]types.PropFirmProfile, 0, len(builtinProfiles))
	for _, name := range ProfileNames() {
		profiles = append(profiles, builtinProfiles[name])
	}
	return profiles
}

// LoadProfilesFile reads additional profiles from a YAML file of the
// form:
//
//	profiles:
//	  - name: my_firm_25k
//	    initial_balance: 25000
//	    ...
func LoadProfilesFile(path string) ([]types.PropFirmProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read profiles file %s", path)
	}

	var file struct {
		Profiles []profileYAML `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse profiles file", err)
	}

	profiles := make([]types.PropFirmProfile, 0, len(file.Profiles))
	for _, raw := range file.Profiles {
		profile := raw.toProfile()
		if err := profile.Validate(); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

// profileYAML mirrors PropFirmProfile with plain number and pointer
// fields, since neither the Option type nor the decimal type have
// YAML support.
type profileYAML struct {
	Name                 string              `yaml:"name"`
	InitialBalance       float64             `yaml:"initial_balance"`
	DailyLossLimit       float64             `yaml:"daily_loss_limit"`
	MaxDrawdown          float64             `yaml:"max_drawdown"`
	DrawdownMode         types.DrawdownMode  `yaml:"drawdown_mode"`
	MaxPositionSize      *float64            `yaml:"max_position_size"`
	TradingHours         *types.TradingHours `yaml:"trading_hours"`
	ConsistencyMaxDayPct *float64            `yaml:"consistency_max_day_pct"`
	AutoFlattenThreshold float64             `yaml:"auto_flatten_threshold"`
}

func (p profileYAML) toProfile() types.PropFirmProfile {
	profile := types.PropFirmProfile{
		Name:                 p.Name,
		InitialBalance:       decimal.NewFromFloat(p.InitialBalance),
		DailyLossLimit:       decimal.NewFromFloat(p.DailyLossLimit),
		MaxDrawdown:          decimal.NewFromFloat(p.MaxDrawdown),
		DrawdownMode:         p.DrawdownMode,
		AutoFlattenThreshold: decimal.NewFromFloat(p.AutoFlattenThreshold),
	}
	if p.MaxPositionSize != nil {
		profile.MaxPositionSize = optional.Some(decimal.NewFromFloat(*p.MaxPositionSize))
	}
	if p.TradingHours != nil {
		profile.TradingHours = optional.Some(*p.TradingHours)
	}
	if p.ConsistencyMaxDayPct != nil {
		profile.ConsistencyMaxDayPct = optional.Some(decimal.NewFromFloat(*p.ConsistencyMaxDayPct))
	}
	return profile
}
