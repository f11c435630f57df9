package ops

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"

	"msgbus/internal/data"
	"msgbus/internal/risk"
	"msgbus/internal/schema"
	"msgbus/internal/strategy"
	"msgbus/pkg/exception"
)

// FileConfig mirrors the config file layout (JSON or YAML).
type FileConfig struct {
	Bus         BusConfig      `json:"bus" yaml:"bus"`
	Symbol      string         `json:"symbol" yaml:"symbol"`
	RunDuration Duration       `json:"runDuration" yaml:"runDuration"`
	Data        DataConfig     `json:"data" yaml:"data"`
	Strategy    StrategyConfig `json:"strategy" yaml:"strategy"`
	Risk        risk.Config    `json:"risk" yaml:"risk"`
}

// BusConfig configures the message bus.
type BusConfig struct {
	Capacity int `json:"capacity" yaml:"capacity"`
}

// DataConfig configures the simulated feed.
type DataConfig struct {
	Interval   Duration     `json:"interval" yaml:"interval"`
	StartPrice schema.Price `json:"startPrice" yaml:"startPrice"`
	Step       schema.Price `json:"step" yaml:"step"`
}

// StrategyConfig configures the trend follower.
type StrategyConfig struct {
	Threshold schema.Price    `json:"threshold" yaml:"threshold"`
	OrderQty  schema.Quantity `json:"orderQty" yaml:"orderQty"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	BusCapacity int
	RunDuration time.Duration
	Data        data.Config
	Strategy    strategy.Config
	Risk        risk.Config
}

// Default returns the built-in configuration.
func Default() FileConfig {
	return FileConfig{
		Bus:         BusConfig{Capacity: 1024},
		Symbol:      "BTC-USD",
		RunDuration: Duration(5 * time.Second),
		Data: DataConfig{
			Interval:   Duration(500 * time.Millisecond),
			StartPrice: 100,
			Step:       1,
		},
		Strategy: StrategyConfig{
			Threshold: 102,
			OrderQty:  1,
		},
	}
}

// Load reads a config file over the defaults and resolves it.
// An empty path yields the defaults.
func Load(path string) (Loaded, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, errors.Wrap(err, "read config")
		}
		if err := Decode(path, raw, &cfg); err != nil {
			return Loaded{}, err
		}
	}
	return cfg.Resolve()
}

// Decode unmarshals raw into cfg, picking the format from the file extension.
func Decode(path string, raw []byte, cfg *FileConfig) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := sonic.ConfigStd.Unmarshal(raw, cfg); err != nil {
			return errors.Wrap(err, "decode json config")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return errors.Wrap(err, "decode yaml config")
		}
	default:
		return errors.Wrapf(exception.ErrUnsupportedConfigFormat, "extension %q", ext)
	}
	return nil
}

// Resolve validates the file config and builds the runtime config.
func (cfg FileConfig) Resolve() (Loaded, error) {
	if cfg.Bus.Capacity <= 0 {
		return Loaded{}, errors.Wrapf(exception.ErrInvalidConfig, "bus.capacity must be > 0, got %d", cfg.Bus.Capacity)
	}
	if cfg.Symbol == "" {
		return Loaded{}, errors.Wrap(exception.ErrInvalidConfig, "symbol is empty")
	}
	if cfg.RunDuration < 0 {
		return Loaded{}, errors.Wrap(exception.ErrInvalidConfig, "runDuration must be >= 0")
	}
	if cfg.Data.Interval <= 0 {
		return Loaded{}, errors.Wrap(exception.ErrInvalidConfig, "data.interval must be > 0")
	}
	if cfg.Data.StartPrice <= 0 {
		return Loaded{}, errors.Wrap(exception.ErrInvalidConfig, "data.startPrice must be > 0")
	}
	if cfg.Strategy.OrderQty <= 0 {
		return Loaded{}, errors.Wrap(exception.ErrInvalidConfig, "strategy.orderQty must be > 0")
	}
	if err := validateRisk(cfg.Risk); err != nil {
		return Loaded{}, err
	}

	return Loaded{
		BusCapacity: cfg.Bus.Capacity,
		RunDuration: cfg.RunDuration.Std(),
		Data: data.Config{
			Symbol:     cfg.Symbol,
			Interval:   cfg.Data.Interval.Std(),
			StartPrice: cfg.Data.StartPrice,
			Step:       cfg.Data.Step,
		},
		Strategy: strategy.Config{
			Symbol:    cfg.Symbol,
			Threshold: cfg.Strategy.Threshold,
			OrderQty:  cfg.Strategy.OrderQty,
		},
		Risk: cfg.Risk,
	}, nil
}

func validateRisk(cfg risk.Config) error {
	if cfg.MaxOrderQty < 0 || cfg.MaxOrderNotional < 0 || cfg.MaxPosition < 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "risk limits must be >= 0")
	}
	return nil
}
