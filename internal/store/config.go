package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"breakout-trading-bot/internal/types"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode     string   `yaml:"mode"`
	Exchange string   `yaml:"exchange"`
	Product  string   `yaml:"product"`
	Universe []string `yaml:"universe"`
	Strategy struct {
		Lookback   int                             `yaml:"lookback"`
		ProfitPct  float64                         `yaml:"profit_pct"`
		StopPct    float64                         `yaml:"stop_pct"`
		MaxHistory int                             `yaml:"max_history"`
		PerSymbol  map[string]types.StrategyParams `yaml:"per_symbol"`
	} `yaml:"strategy"`
	Qty struct {
		Default   int            `yaml:"default"`
		PerSymbol map[string]int `yaml:"per_symbol"`
	} `yaml:"qty"`
	Monitor struct {
		IntervalSeconds float64 `yaml:"interval_seconds"`
		AutoStart       bool    `yaml:"auto_start"`
		StartOnEntry    bool    `yaml:"start_on_entry"`
		MaxParallel     int     `yaml:"max_parallel"`
	} `yaml:"monitor"`
	Broker struct {
		TimeoutSeconds float64 `yaml:"timeout_seconds"`
		Streaming      bool    `yaml:"streaming"`
	} `yaml:"broker"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
	Schedule struct {
		Timezone      string `yaml:"timezone"`
		EODCron       string `yaml:"eod_cron"`
		CompressCron  string `yaml:"compress_cron"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"schedule"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	c.Monitor.AutoStart = true
	c.Monitor.StartOnEntry = true
	return c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.Product == "" {
		c.Product = "MIS"
	}
	d := types.DefaultStrategyParams()
	if c.Strategy.Lookback == 0 {
		c.Strategy.Lookback = d.Lookback
	}
	if c.Strategy.ProfitPct == 0 {
		c.Strategy.ProfitPct = d.ProfitPct
	}
	if c.Strategy.StopPct == 0 {
		c.Strategy.StopPct = d.StopPct
	}
	if c.Strategy.MaxHistory == 0 {
		c.Strategy.MaxHistory = d.MaxHistory
	}
	if c.Qty.Default == 0 {
		c.Qty.Default = 1
	}
	if c.Monitor.IntervalSeconds == 0 {
		c.Monitor.IntervalSeconds = 2
	}
	if c.Monitor.MaxParallel == 0 {
		c.Monitor.MaxParallel = 8
	}
	if c.Broker.TimeoutSeconds == 0 {
		c.Broker.TimeoutSeconds = 5
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "data/trades.db"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Asia/Kolkata"
	}
	if c.Schedule.EODCron == "" {
		c.Schedule.EODCron = "0 40 15 * * 1-5"
	}
	if c.Schedule.CompressCron == "" {
		c.Schedule.CompressCron = "0 30 2 * * *"
	}
	if c.Schedule.RetentionDays == 0 {
		c.Schedule.RetentionDays = 7
	}
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if err := validateParams("strategy", c.DefaultParams()); err != nil {
		return err
	}
	for sym := range c.Strategy.PerSymbol {
		if err := validateParams("strategy.per_symbol."+sym, c.ParamsFor(sym)); err != nil {
			return err
		}
	}
	if c.Qty.Default <= 0 {
		return fmt.Errorf("qty.default must be positive, got %d", c.Qty.Default)
	}
	for sym, q := range c.Qty.PerSymbol {
		if q <= 0 {
			return fmt.Errorf("qty.per_symbol.%s must be positive, got %d", sym, q)
		}
	}
	if c.Monitor.IntervalSeconds <= 0 {
		return errors.New("monitor.interval_seconds must be positive")
	}
	if c.Monitor.MaxParallel <= 0 {
		return errors.New("monitor.max_parallel must be positive")
	}
	if c.Broker.TimeoutSeconds <= 0 {
		return errors.New("broker.timeout_seconds must be positive")
	}
	if c.Broker.Streaming && len(c.Universe) == 0 {
		return errors.New("broker.streaming requires a non-empty universe")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, spec := range map[string]string{"eod_cron": c.Schedule.EODCron, "compress_cron": c.Schedule.CompressCron} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("schedule.%s %q: %w", name, spec, err)
		}
	}
	return nil
}

func validateParams(key string, p types.StrategyParams) error {
	if p.Lookback < 1 {
		return fmt.Errorf("%s.lookback must be at least 1, got %d", key, p.Lookback)
	}
	if p.ProfitPct <= 0 || p.ProfitPct >= 1 {
		return fmt.Errorf("%s.profit_pct must be between 0 and 1, got %.4f", key, p.ProfitPct)
	}
	if p.StopPct <= 0 || p.StopPct >= 1 {
		return fmt.Errorf("%s.stop_pct must be between 0 and 1, got %.4f", key, p.StopPct)
	}
	return nil
}

// DefaultParams returns the strategy parameters shared by every symbol.
func (c *Config) DefaultParams() types.StrategyParams {
	return normalizeParams(types.StrategyParams{
		Lookback:   c.Strategy.Lookback,
		ProfitPct:  c.Strategy.ProfitPct,
		StopPct:    c.Strategy.StopPct,
		MaxHistory: c.Strategy.MaxHistory,
	})
}

// ParamsFor merges a symbol's overrides onto the defaults.
func (c *Config) ParamsFor(symbol string) types.StrategyParams {
	p := c.DefaultParams()
	o, ok := c.Strategy.PerSymbol[types.NormalizeSymbol(symbol)]
	if !ok {
		return p
	}
	if o.Lookback != 0 {
		p.Lookback = o.Lookback
	}
	if o.ProfitPct != 0 {
		p.ProfitPct = o.ProfitPct
	}
	if o.StopPct != 0 {
		p.StopPct = o.StopPct
	}
	if o.MaxHistory != 0 {
		p.MaxHistory = o.MaxHistory
	}
	return normalizeParams(p)
}

// normalizeParams keeps enough history for one full swing window.
func normalizeParams(p types.StrategyParams) types.StrategyParams {
	if p.MaxHistory < 2*p.Lookback+1 {
		p.MaxHistory = 2*p.Lookback + 1
	}
	return p
}

// QtyFor returns the configured order quantity for symbol.
func (c *Config) QtyFor(symbol string) int {
	if v, ok := c.Qty.PerSymbol[types.NormalizeSymbol(symbol)]; ok {
		return v
	}
	return c.Qty.Default
}

func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds * float64(time.Second))
}

func (c *Config) BrokerTimeout() time.Duration {
	return time.Duration(c.Broker.TimeoutSeconds * float64(time.Second))
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// auto_start and start_on_entry default to true when omitted
	c := Config{}
	c.Monitor.AutoStart = true
	c.Monitor.StartOnEntry = true
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()
	for i, s := range c.Universe {
		c.Universe[i] = types.NormalizeSymbol(s)
	}
	if len(c.Strategy.PerSymbol) > 0 {
		norm := make(map[string]types.StrategyParams, len(c.Strategy.PerSymbol))
		for s, p := range c.Strategy.PerSymbol {
			norm[types.NormalizeSymbol(s)] = p
		}
		c.Strategy.PerSymbol = norm
	}
	if len(c.Qty.PerSymbol) > 0 {
		norm := make(map[string]int, len(c.Qty.PerSymbol))
		for s, q := range c.Qty.PerSymbol {
			norm[types.NormalizeSymbol(s)] = q
		}
		c.Qty.PerSymbol = norm
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
