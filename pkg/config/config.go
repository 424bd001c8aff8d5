package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	Prod = "prod"
	Dev  = "dev"
	Test = "test"
)

const (
	StoreMemory = "memory"
	StorePebble = "pebble"
)

const envPrefix = "PAGEHAZARD"

type Config struct {
	Env      string   `mapstructure:"env"`
	Logs     Logs     `mapstructure:"logs"`
	Hazard   Hazard   `mapstructure:"hazard"`
	Sessions Sessions `mapstructure:"sessions"`
	Cache    Cache    `mapstructure:"cache"`
	Api      Api      `mapstructure:"api"`
	K8S      K8S      `mapstructure:"k8s"`
	Workload Workload `mapstructure:"workload"`
}

type Logs struct {
	Level string `mapstructure:"level"` // zerolog level name
}

type Hazard struct {
	// Capacity is the number of hazard slots in every session table.
	Capacity int `mapstructure:"capacity"`
	// Diagnostics enables site capture, DumpActive and ValidateNotReferenced.
	Diagnostics bool    `mapstructure:"diagnostics"`
	ReportRate  float64 `mapstructure:"report_rate"` // recoverable reports per second, <= 0 means unlimited
	ReportBurst int     `mapstructure:"report_burst"`
}

type Sessions struct {
	Max int `mapstructure:"max"`
}

type Cache struct {
	PageSize   int      `mapstructure:"page_size"`
	MaxPages   int      `mapstructure:"max_pages"`
	GetRetries int      `mapstructure:"get_retries"`
	Eviction   Eviction `mapstructure:"eviction"`
	Victim     Victim   `mapstructure:"victim"`
	Store      Store    `mapstructure:"store"`
	ForceGC    ForceGC  `mapstructure:"force_gc"`
}

type ForceGC struct {
	Enabled           bool          `mapstructure:"enabled"`
	GCInterval        time.Duration `mapstructure:"gc_interval"`
	FreeOSMemInterval time.Duration `mapstructure:"free_os_mem_interval"`
}

type Eviction struct {
	Enabled   bool          `mapstructure:"enabled"`
	Threshold float64       `mapstructure:"threshold"` // 0.9 means 90% of max_pages
	Interval  time.Duration `mapstructure:"interval"`
	Batch     int           `mapstructure:"batch"`
}

type Victim struct {
	Enabled bool  `mapstructure:"enabled"`
	MaxCost int64 `mapstructure:"max_cost"` // bytes
}

type Store struct {
	Type string `mapstructure:"type"` // "memory" or "pebble"
	Path string `mapstructure:"path"`
}

type Api struct {
	Enabled bool   `mapstructure:"enabled"`
	Name    string `mapstructure:"name"`
	Port    string `mapstructure:"port"`
}

type K8S struct {
	Probe Probe `mapstructure:"probe"`
}

type Probe struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type Workload struct {
	Readers  int           `mapstructure:"readers"`
	Interval time.Duration `mapstructure:"interval"`
	Pages    int           `mapstructure:"pages"`
}

func (c *Config) IsProd() bool { return c.Env == Prod }
func (c *Config) IsDev() bool  { return c.Env == Dev }
func (c *Config) IsTest() bool { return c.Env == Test }

// EvictionThreshold returns the resident page count above which the evictor works.
func (c *Config) EvictionThreshold() int {
	n := int(float64(c.Cache.MaxPages) * c.Cache.Eviction.Threshold)
	if n < 1 {
		n = 1
	}
	return n
}

func (c *Config) Validate() error {
	switch {
	case c.Hazard.Capacity < 1:
		return fmt.Errorf("hazard.capacity must be positive, got %d", c.Hazard.Capacity)
	case c.Sessions.Max < 1:
		return fmt.Errorf("sessions.max must be positive, got %d", c.Sessions.Max)
	case c.Cache.PageSize < 1:
		return fmt.Errorf("cache.page_size must be positive, got %d", c.Cache.PageSize)
	case c.Cache.MaxPages < 1:
		return fmt.Errorf("cache.max_pages must be positive, got %d", c.Cache.MaxPages)
	case c.Cache.Eviction.Threshold <= 0 || c.Cache.Eviction.Threshold > 1:
		return fmt.Errorf("cache.eviction.threshold must be in (0, 1], got %v", c.Cache.Eviction.Threshold)
	case c.Cache.Store.Type != StoreMemory && c.Cache.Store.Type != StorePebble:
		return errors.New("unknown cache.store.type: '" + c.Cache.Store.Type + "'")
	case c.Cache.Store.Type == StorePebble && c.Cache.Store.Path == "":
		return errors.New("cache.store.path is required for pebble store")
	case c.Cache.Eviction.Enabled && c.Cache.Eviction.Interval <= 0:
		return fmt.Errorf("cache.eviction.interval must be positive, got %s", c.Cache.Eviction.Interval)
	case c.Cache.ForceGC.Enabled && (c.Cache.ForceGC.GCInterval <= 0 || c.Cache.ForceGC.FreeOSMemInterval <= 0):
		return errors.New("cache.force_gc intervals must be positive")
	case c.Workload.Readers > 0 && c.Workload.Interval <= 0:
		return fmt.Errorf("workload.interval must be positive, got %s", c.Workload.Interval)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", Dev)
	v.SetDefault("logs.level", "info")
	v.SetDefault("hazard.capacity", 15)
	v.SetDefault("hazard.diagnostics", false)
	v.SetDefault("hazard.report_rate", 10.0)
	v.SetDefault("hazard.report_burst", 10)
	v.SetDefault("sessions.max", 128)
	v.SetDefault("cache.page_size", 4096)
	v.SetDefault("cache.max_pages", 4096)
	v.SetDefault("cache.get_retries", 8)
	v.SetDefault("cache.eviction.enabled", true)
	v.SetDefault("cache.eviction.threshold", 0.9)
	v.SetDefault("cache.eviction.interval", 100*time.Millisecond)
	v.SetDefault("cache.eviction.batch", 256)
	v.SetDefault("cache.victim.enabled", false)
	v.SetDefault("cache.victim.max_cost", 64<<20)
	v.SetDefault("cache.store.type", StoreMemory)
	v.SetDefault("cache.store.path", "")
	v.SetDefault("cache.force_gc.enabled", false)
	v.SetDefault("cache.force_gc.gc_interval", 10*time.Second)
	v.SetDefault("cache.force_gc.free_os_mem_interval", time.Minute)
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.name", "page-hazard")
	v.SetDefault("api.port", "8020")
	v.SetDefault("k8s.probe.timeout", 5*time.Second)
	v.SetDefault("workload.readers", 0)
	v.SetDefault("workload.interval", time.Millisecond)
	v.SetDefault("workload.pages", 8192)
}

// Default returns the configuration built from defaults only.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic("config: defaults do not decode: " + err.Error())
	}
	return cfg
}

// LoadConfig reads an optional .env file, the yaml file by path (skipped when path is empty)
// and PAGEHAZARD_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
