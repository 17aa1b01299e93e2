package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

// WinsorizeThresholds holds the quantile bounds applied to a column before
// regression. Omitted thresholds leave columns unmodified.
type WinsorizeThresholds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

func (w WinsorizeThresholds) Validate() error {
	if w.Lower < 0 || w.Lower >= 1 {
		return domain.ConfigError{Reason: fmt.Sprintf("winsorize lower bound %v outside [0, 1)", w.Lower)}
	}
	if w.Upper <= w.Lower || w.Upper > 1 {
		return domain.ConfigError{Reason: fmt.Sprintf("winsorize upper bound %v outside (%v, 1]", w.Upper, w.Lower)}
	}
	return nil
}

// SweepConfig drives the univariate predictor sweep.
type SweepConfig struct {
	Winsorize          *WinsorizeThresholds `json:"winsorize_thresholds,omitempty"`
	Alpha              float64              `json:"alpha"`
	DependentVariables []string             `json:"dependent_variables"`
	MinSamples         int                  `json:"min_samples"`
	Workers            int                  `json:"workers"`
}

const (
	DefaultAlpha      = 0.05
	DefaultMinSamples = 3
	DefaultWorkers    = 8
)

func (c *SweepConfig) ApplyDefaults() {
	if c.Alpha == 0 {
		c.Alpha = DefaultAlpha
	}
	if c.MinSamples == 0 {
		c.MinSamples = DefaultMinSamples
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
}

func (c SweepConfig) Validate() error {
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return domain.ConfigError{Reason: fmt.Sprintf("alpha %v outside (0, 1)", c.Alpha)}
	}
	if c.MinSamples < 3 {
		return domain.ConfigError{Reason: fmt.Sprintf("min_samples %d below 3", c.MinSamples)}
	}
	if c.Workers < 1 {
		return domain.ConfigError{Reason: "workers must be positive"}
	}
	if c.Winsorize != nil {
		return c.Winsorize.Validate()
	}
	return nil
}

// RegressionConfig drives one multivariate regression invocation. The first
// column selected by SQLQuery is the dependent variable; the rest are
// independents.
type RegressionConfig struct {
	Winsorize *WinsorizeThresholds `json:"winsorize_thresholds,omitempty"`
	Alpha     float64              `json:"alpha"`
	SQLQuery  string               `json:"SQL_Query"`
}

func (c *RegressionConfig) ApplyDefaults() {
	if c.Alpha == 0 {
		c.Alpha = DefaultAlpha
	}
}

func (c RegressionConfig) Validate() error {
	if c.SQLQuery == "" {
		return domain.ConfigError{Reason: "regression SQL_Query is empty"}
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return domain.ConfigError{Reason: fmt.Sprintf("alpha %v outside (0, 1)", c.Alpha)}
	}
	if c.Winsorize != nil {
		return c.Winsorize.Validate()
	}
	return nil
}

// RunSteps mirrors the run_steps block of the run configuration: each flag
// enables one pipeline step.
type RunSteps struct {
	Prices  bool `json:"prices"`
	Ratios  bool `json:"ratios"`
	Sweep   bool `json:"sweep"`
	Regress bool `json:"regress"`
	Rank    bool `json:"rank"`
	Export  bool `json:"export"`
}

// Config is the immutable run configuration. Engines never read it from
// ambient state; each handler receives the fields it needs explicitly.
type Config struct {
	DatabaseURL string `json:"database_url"`

	StandardizedTable     string `json:"standardized_table"`
	RatiosTable           string `json:"ratios_table"`
	RankingsTable         string `json:"rankings_table"`
	StockPriceTable       string `json:"stock_price_table"`
	PredictorResultsTable string `json:"predictor_results_table"`

	RatioRulesPath string `json:"ratio_rules_path"`
	RollingWindow  int    `json:"rolling_window"`

	// Tickers maps an EDINET code to the exchange symbol used for stock
	// price retrieval.
	Tickers map[string]string `json:"tickers"`

	RunSteps   RunSteps         `json:"run_steps"`
	Sweep      SweepConfig      `json:"sweep"`
	Regression RegressionConfig `json:"regression"`

	SweepSummaryPath      string `json:"sweep_summary_path"`
	RegressionSummaryPath string `json:"regression_summary_path"`
	ExportTable           string `json:"export_table"`
	ExportPath            string `json:"export_path"`
}

const DefaultRollingWindow = 4

// Load reads the run configuration from a JSON file, applies defaults and
// validates the statistical parameters.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, domain.ConfigError{Reason: fmt.Sprintf("malformed config %s: %v", path, err)}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.RollingWindow == 0 {
		c.RollingWindow = DefaultRollingWindow
	}
	if c.StockPriceTable == "" {
		c.StockPriceTable = "stock_prices"
	}
	if c.RatiosTable == "" && c.StandardizedTable != "" {
		c.RatiosTable = c.StandardizedTable + "_ratios"
	}
	c.Sweep.ApplyDefaults()
	c.Regression.ApplyDefaults()
}

func (c Config) Validate() error {
	if c.RollingWindow < 2 {
		return domain.ConfigError{Reason: fmt.Sprintf("rolling_window %d below 2", c.RollingWindow)}
	}
	if err := c.Sweep.Validate(); err != nil {
		return err
	}
	// The regression block is validated lazily: a run without the regress
	// step may leave it empty.
	if c.RunSteps.Regress {
		return c.Regression.Validate()
	}
	return nil
}
