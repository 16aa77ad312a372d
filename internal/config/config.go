// Package config loads the gateway's configuration: a YAML file (grounded
// on the teacher's main.go loadConfig) overlaid with environment variables
// (caarlos0/env struct tags, the pattern absmach-magistrala's cmd/*/main.go
// uses throughout). The result is a plain struct, constructed once in main
// and passed by constructor injection — never read globally (spec.md §9).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v7"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the server.* keys from spec.md §6.
type ServerConfig struct {
	Port            int `yaml:"port"`
	Threads         int `yaml:"threads"`
	SocketTimeoutMs int `yaml:"socket_timeout_ms"`
}

// ChargeBandConfig holds esb.charges.base.*.
type ChargeBandConfig struct {
	Initial   float64 `yaml:"initial"`
	BandSize  float64 `yaml:"band_size"`
	Increment float64 `yaml:"increment"`
}

// ChargeExciseConfig holds esb.charges.excise.*.
type ChargeExciseConfig struct {
	Rate float64 `yaml:"rate"`
}

// ChargePrideConfig holds esb.charges.pride.*.
type ChargePrideConfig struct {
	SharePercent float64 `yaml:"share_percent"`
}

// ChargeInterSwitchConfig holds esb.charges.inter_switch.*.
type ChargeInterSwitchConfig struct {
	Commission float64 `yaml:"commission"`
}

// ChargesConfig holds esb.charges.*.
type ChargesConfig struct {
	Base        ChargeBandConfig        `yaml:"base"`
	Excise      ChargeExciseConfig      `yaml:"excise"`
	Pride       ChargePrideConfig       `yaml:"pride"`
	InterSwitch ChargeInterSwitchConfig `yaml:"inter_switch"`
}

// EsbConfig holds esb.* from spec.md §6. Username/Password are left
// overridable by environment (ATMGW_ESB_USERNAME / ATMGW_ESB_PASSWORD) so
// credentials never need to live in the YAML file.
type EsbConfig struct {
	BaseURL        string `yaml:"base_url"`
	Username       string `yaml:"username" env:"ATMGW_ESB_USERNAME"`
	Password       string `yaml:"password" env:"ATMGW_ESB_PASSWORD"`
	Withdrawal     string `yaml:"withdrawal"`
	Deposit        string `yaml:"deposit"`
	Purchase       string `yaml:"purchase"`
	BalanceInquiry string `yaml:"balance_inquiry"`
	MiniStatement  string `yaml:"mini_statement"`

	InterSwitchSettlementAccount string `yaml:"inter_switch_settlement_account"`
	TaxAccount                   string `yaml:"tax_account"`
	PrideChargeAccount           string `yaml:"pride_charge_account"`
	InterSwitchChargeAccount     string `yaml:"inter_switch_charge_account"`
	InterSwitchCommissionsAcct   string `yaml:"inter_switch_commissions_account"`
	PrideCommissionsSettlement   string `yaml:"pride_commissions_settlement_account"`

	Charges ChargesConfig `yaml:"charges"`
}

// Config is the root configuration record.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Esb      EsbConfig    `yaml:"esb"`
	LogLevel string       `yaml:"log_level" env:"ATMGW_LOG_LEVEL"`
}

// Default returns the documented defaults from spec.md §6/§4.6/§5.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 7790, Threads: 20, SocketTimeoutMs: 300000},
		Esb: EsbConfig{
			Charges: ChargesConfig{
				Base:   ChargeBandConfig{Initial: 2500, BandSize: 500000, Increment: 1000},
				Excise: ChargeExciseConfig{Rate: 0.015},
				Pride:  ChargePrideConfig{SharePercent: 0.20},
			},
		},
		LogLevel: "info",
	}
}

// Load reads path (if it exists) over the defaults, then applies the
// environment overlay. A missing file is not an error — Default() alone is
// a valid configuration for local testing.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: environment overlay: %w", err)
	}
	return cfg, nil
}

// SocketTimeout returns the configured per-socket idle timeout as a
// time.Duration.
func (c ServerConfig) SocketTimeout() time.Duration {
	return time.Duration(c.SocketTimeoutMs) * time.Millisecond
}
