package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix of environment variables read by Load.
	EnvPrefix = "CELLAR_"
	// EnvConfigFile names an explicit config file.
	EnvConfigFile = "CELLAR_CONFIG"
)

// Config is the engine configuration.
type Config struct {
	Prefix                 string   `koanf:"prefix"`
	Concurrency            int      `koanf:"concurrency"`
	MakeJobs               int      `koanf:"make_jobs"`
	Archs                  []string `koanf:"archs"`
	UniversalArchs         []string `koanf:"universal_archs"`
	FormulaPaths           []string `koanf:"formula_paths"`
	KeepDownloads          bool     `koanf:"keep_downloads"`
	PruneBuildDependencies bool     `koanf:"prune_build_dependencies"`
	CacheDir               string   `koanf:"cache_dir"`

	Fetch FetchConfig `koanf:"fetch"`
	Build BuildConfig `koanf:"build"`
}

// FetchConfig controls source downloads.
type FetchConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	Retries int           `koanf:"retries"`
}

// BuildConfig controls build tool invocations.
type BuildConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// LoadOptions tweaks where Load reads from.
type LoadOptions struct {
	// File is an explicit config file. It must exist when set.
	File string
	// Overrides are applied last, keyed by koanf path ("fetch.timeout").
	Overrides map[string]interface{}
}

// Load builds the configuration from all layers and validates it.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. User config file
	path, required := userConfigPath(opts.File)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load config from %s", path)
			}
		} else if required {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s", path)
		}
	}

	// 3. Environment
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvConfigFile {
			return ""
		}
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	// 4. Caller overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to unmarshal configuration")
	}

	postProcess(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the embedded defaults without consulting the environment.
func Default() *Config {
	k := koanf.New(".")
	_ = k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser())
	var cfg Config
	_ = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	})
	postProcess(&cfg)
	return &cfg
}

func userConfigPath(explicit string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	if p := os.Getenv(EnvConfigFile); p != "" {
		return p, true
	}
	if xdg.ConfigHome == "" {
		return "", false
	}
	return filepath.Join(xdg.ConfigHome, "cellar", "config.toml"), false
}

func postProcess(cfg *Config) {
	cfg.Prefix = expandPath(cfg.Prefix)
	cfg.CacheDir = expandPath(cfg.CacheDir)
	for i, p := range cfg.FormulaPaths {
		cfg.FormulaPaths[i] = expandPath(p)
	}
	if cfg.MakeJobs == 0 {
		cfg.MakeJobs = runtime.NumCPU()
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(xdg.CacheHome, "cellar")
	}
	if len(cfg.Archs) == 0 {
		cfg.Archs = []string{hostArch()}
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Prefix == "" || !filepath.IsAbs(c.Prefix):
		return errors.Newf(errors.ErrConfigValid, "prefix must be an absolute path, got %q", c.Prefix)
	case c.Concurrency < 1:
		return errors.Newf(errors.ErrConfigValid, "concurrency must be at least 1, got %d", c.Concurrency)
	case c.MakeJobs < 0:
		return errors.Newf(errors.ErrConfigValid, "make_jobs must not be negative, got %d", c.MakeJobs)
	case c.Fetch.Timeout < 0 || c.Build.Timeout < 0:
		return errors.New(errors.ErrConfigValid, "timeouts must not be negative")
	case c.Fetch.Retries < 0:
		return errors.Newf(errors.ErrConfigValid, "fetch.retries must not be negative, got %d", c.Fetch.Retries)
	}
	return nil
}

func hostArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	default:
		return runtime.GOARCH
	}
}
