// Package config loads lp-hedge settings from a config file, a .env file and
// LPHEDGE_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
	"github.com/rovshanmuradov/lp-hedge/internal/pricefeed"
)

const EnvPrefix = "LPHEDGE"

type Config struct {
	Log     LogConfig              `mapstructure:"log"`
	Engine  EngineConfig           `mapstructure:"engine"`
	Sweep   SweepConfig            `mapstructure:"sweep"`
	Feed    FeedConfig             `mapstructure:"feed"`
	Redis   RedisConfig            `mapstructure:"redis"`
	Server  ServerConfig           `mapstructure:"server"`
	License LicenseConfig          `mapstructure:"license"`
	Export  ExportConfig           `mapstructure:"export"`
	Assets  map[string]AssetConfig `mapstructure:"assets"`
}

type LogConfig struct {
	Debug      bool   `mapstructure:"debug"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// EngineConfig names the formula variants; see hedge.Config.
type EngineConfig struct {
	BreakEvenWeight string `mapstructure:"break_even_weight"`
	TieBreak        string `mapstructure:"tie_break"`
	Partition       string `mapstructure:"partition"`
}

type SweepConfig struct {
	Points      int     `mapstructure:"points"`
	MaxPoints   int     `mapstructure:"max_points"`
	LowerFactor float64 `mapstructure:"lower_factor"`
	UpperFactor float64 `mapstructure:"upper_factor"`
	Workers     int     `mapstructure:"workers"`
}

type FeedConfig struct {
	Sources      []string      `mapstructure:"sources"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	BinanceURL   string        `mapstructure:"binance_url"`
	KrakenURL    string        `mapstructure:"kraken_url"`
	SolanaRPC    string        `mapstructure:"solana_rpc"`
	MaxStaleness time.Duration `mapstructure:"max_staleness"`
}

// RedisConfig enables the shared quote cache when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Metrics      bool          `mapstructure:"metrics"`
}

// LicenseConfig holds the keygen.sh credentials. An empty Key disables the
// license check.
type LicenseConfig struct {
	Key          string `mapstructure:"key"`
	AccountID    string `mapstructure:"account_id"`
	ProductID    string `mapstructure:"product_id"`
	ProductToken string `mapstructure:"product_token"`
}

type ExportConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

// AssetConfig holds the form defaults and, optionally, exchange names for
// one underlying. The map key is the symbol.
type AssetConfig struct {
	Strike        float64 `mapstructure:"strike"`
	Premium       float64 `mapstructure:"premium"`
	BinanceSymbol string  `mapstructure:"binance_symbol"`
	KrakenPair    string  `mapstructure:"kraken_pair"`
	KrakenKey     string  `mapstructure:"kraken_key"`
	PythAccount   string  `mapstructure:"pyth_account"`
}

const (
	DefaultPoints       = hedge.DefaultPoints
	DefaultMaxPoints    = 10000
	DefaultWorkers      = 4
	DefaultRetries      = 3
	DefaultFeedTimeout  = 10 * time.Second
	DefaultMaxStaleness = 5 * time.Minute
	DefaultCacheTTL     = time.Hour
	DefaultListen       = ":8080"
	DefaultExportDir    = "exports"
	DefaultExportFormat = "csv"
)

var knownSources = map[string]bool{"binance": true, "kraken": true, "pyth": true}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"log.debug":        false,
		"log.file":         "",
		"log.max_size_mb":  50,
		"log.max_backups":  5,
		"log.max_age_days": 14,
		"log.compress":     false,

		"engine.break_even_weight": "double",
		"engine.tie_break":         hedge.TieBreakFirstMatch.String(),
		"engine.partition":         hedge.PartitionFourRegime.String(),

		"sweep.points":       DefaultPoints,
		"sweep.max_points":   DefaultMaxPoints,
		"sweep.lower_factor": hedge.DefaultLowerFactor,
		"sweep.upper_factor": hedge.DefaultUpperFactor,
		"sweep.workers":      DefaultWorkers,

		"feed.sources":       []string{"binance", "kraken", "pyth"},
		"feed.timeout":       DefaultFeedTimeout,
		"feed.retries":       DefaultRetries,
		"feed.binance_url":   pricefeed.DefaultBinanceURL,
		"feed.kraken_url":    pricefeed.DefaultKrakenURL,
		"feed.solana_rpc":    "https://api.mainnet-beta.solana.com",
		"feed.max_staleness": DefaultMaxStaleness,

		"redis.addr":     "",
		"redis.password": "",
		"redis.db":       0,
		"redis.tls":      false,
		"redis.ttl":      DefaultCacheTTL,

		"server.listen":        DefaultListen,
		"server.read_timeout":  15 * time.Second,
		"server.write_timeout": 30 * time.Second,
		"server.metrics":       true,

		"license.key":           "",
		"license.account_id":    "",
		"license.product_id":    "",
		"license.product_token": "",

		"export.dir":    DefaultExportDir,
		"export.format": DefaultExportFormat,

		"assets.sol.strike":  150.0,
		"assets.sol.premium": 22.68,
		"assets.eth.strike":  2300.0,
		"assets.eth.premium": 129.0,
	}
}

// LoadConfig reads path when it is non-empty and exists, then applies .env
// and environment overrides. A missing file leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	loadEnvironmentVariables(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Feed.Sources = cleanList(cfg.Feed.Sources)

	return &cfg, validateConfig(&cfg)
}

func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// cleanList lowercases and trims list entries and drops empty ones, so
// "binance, kraken," from the environment works.
func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if clean := strings.ToLower(strings.TrimSpace(part)); clean != "" {
				out = append(out, clean)
			}
		}
	}
	return out
}

func validateConfig(cfg *Config) error {
	if _, err := cfg.HedgeConfig(); err != nil {
		return err
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if len(cfg.Feed.Sources) == 0 {
		return errors.New("feed.sources is empty")
	}
	for _, s := range cfg.Feed.Sources {
		if !knownSources[s] {
			return fmt.Errorf("unknown price source %q", s)
		}
	}
	for key, raw := range map[string]string{
		"feed.binance_url": cfg.Feed.BinanceURL,
		"feed.kraken_url":  cfg.Feed.KrakenURL,
		"feed.solana_rpc":  cfg.Feed.SolanaRPC,
	} {
		if err := validateURLWithCache(raw, "http"); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	if cfg.Server.Listen == "" {
		return errors.New("server.listen is empty")
	}
	if cfg.License.Key != "" && cfg.License.AccountID == "" {
		return errors.New("license.account_id is required when license.key is set")
	}
	switch cfg.Export.Format {
	case "csv", "json":
	default:
		return fmt.Errorf("invalid export.format %q", cfg.Export.Format)
	}
	for symbol, a := range cfg.Assets {
		if a.Strike < 0 || a.Premium < 0 {
			return fmt.Errorf("invalid defaults for asset %s", symbol)
		}
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.Sweep.Points < 1 {
		return errors.New("invalid sweep.points")
	}
	if cfg.Sweep.MaxPoints < cfg.Sweep.Points {
		return errors.New("sweep.max_points is below sweep.points")
	}
	if cfg.Sweep.LowerFactor <= 0 || cfg.Sweep.UpperFactor <= 0 {
		return errors.New("invalid sweep range factors")
	}
	if cfg.Sweep.Workers < 0 {
		return errors.New("invalid sweep.workers")
	}
	if cfg.Feed.Timeout <= 0 {
		return errors.New("invalid feed.timeout")
	}
	if cfg.Feed.Retries < 0 {
		return errors.New("invalid feed.retries")
	}
	if cfg.Feed.MaxStaleness < 0 {
		return errors.New("invalid feed.max_staleness")
	}
	if cfg.Redis.DB < 0 {
		return errors.New("invalid redis.db")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// HedgeConfig parses the engine section.
func (c *Config) HedgeConfig() (hedge.Config, error) {
	w, err := hedge.ParseBreakEvenWeight(c.Engine.BreakEvenWeight)
	if err != nil {
		return hedge.Config{}, err
	}
	tb, err := hedge.ParseTieBreak(c.Engine.TieBreak)
	if err != nil {
		return hedge.Config{}, err
	}
	part, err := hedge.ParsePartition(c.Engine.Partition)
	if err != nil {
		return hedge.Config{}, err
	}
	return hedge.Config{BreakEvenWeight: w, TieBreak: tb, Partition: part}, nil
}

// SweepRange scales bounds by the configured factors.
func (c *Config) SweepRange(b hedge.BoundPrices) hedge.SweepRange {
	return hedge.RangeAround(b, c.Sweep.LowerFactor, c.Sweep.UpperFactor, c.Sweep.Points)
}

// CheckPoints rejects a requested sweep size above sweep.max_points.
func (c *Config) CheckPoints(points int) error {
	if points > c.Sweep.MaxPoints {
		return fmt.Errorf("%w: %d points requested, sweep.max_points is %d",
			hedge.ErrInvalidParameters, points, c.Sweep.MaxPoints)
	}
	return nil
}

// AssetRegistry returns the built-in assets merged with the configured ones.
func (c *Config) AssetRegistry() *pricefeed.Registry {
	extra := make([]pricefeed.Asset, 0, len(c.Assets))
	for symbol, a := range c.Assets {
		if a.BinanceSymbol == "" && a.KrakenPair == "" && a.KrakenKey == "" && a.PythAccount == "" {
			// form defaults only; keep the built-in listing if there is one
			if builtin, err := pricefeed.NewRegistry().Lookup(symbol); err == nil {
				extra = append(extra, builtin)
				continue
			}
		}
		extra = append(extra, pricefeed.Asset{
			Symbol:        symbol,
			BinanceSymbol: a.BinanceSymbol,
			KrakenPair:    a.KrakenPair,
			KrakenKey:     a.KrakenKey,
			PythAccount:   a.PythAccount,
		})
	}
	return pricefeed.NewRegistry(extra...)
}

// AssetDefaults returns the strike and premium to prefill for symbol.
func (c *Config) AssetDefaults(symbol string) (strike, premium float64, ok bool) {
	a, ok := c.Assets[strings.ToLower(symbol)]
	if !ok {
		return 0, 0, false
	}
	return a.Strike, a.Premium, true
}

// AssetSymbols lists the configured symbols, upper-cased and sorted.
func (c *Config) AssetSymbols() []string {
	out := make([]string, 0, len(c.Assets))
	for s := range c.Assets {
		out = append(out, strings.ToUpper(s))
	}
	sort.Strings(out)
	return out
}

// FeedSettings translates the feed and redis sections.
func (c *Config) FeedSettings() pricefeed.Settings {
	return pricefeed.Settings{
		Sources:    c.Feed.Sources,
		Timeout:    c.Feed.Timeout,
		BinanceURL: c.Feed.BinanceURL,
		KrakenURL:  c.Feed.KrakenURL,
		SolanaRPC:  c.Feed.SolanaRPC,
		Redis: pricefeed.RedisConfig{
			Addr:       c.Redis.Addr,
			Password:   c.Redis.Password,
			DB:         c.Redis.DB,
			TLSEnabled: c.Redis.TLS,
			TTL:        c.Redis.TTL,
		},
		Options: pricefeed.Options{
			Retries:      c.Feed.Retries,
			MaxStaleness: c.Feed.MaxStaleness,
		},
	}
}
