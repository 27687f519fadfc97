// Package config loads and persists tool settings.
//
// Settings live in a TOML file under the user config directory and can
// be overridden per run through the environment (WARDLINE_* variables
// plus CENSUS_API_KEY). A .env file in the working directory is picked
// up before the environment is read.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	apperrors "github.com/wardline/wardline/pkg/errors"
)

// Config holds the persisted settings. Zero fields fall back to the
// defaults at load time.
type Config struct {
	CensusAPIKey string `toml:"census_api_key"`
	CacheDir     string `toml:"cache_dir"`
	CacheBackend string `toml:"cache_backend"`
	RedisAddr    string `toml:"redis_addr"`
	Resolution   string `toml:"resolution"`
	Engine       string `toml:"engine"`
}

// Default returns the settings used when no file or environment
// override is present.
func Default() Config {
	return Config{
		CacheDir:     defaultCacheDir(),
		CacheBackend: "file",
		RedisAddr:    "localhost:6379",
		Resolution:   "tract",
		Engine:       "mesh",
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".cache"
	}
	return filepath.Join(dir, "wardline")
}

// Path returns the config file location under the user config
// directory.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, err, "resolve config directory")
	}
	return filepath.Join(dir, "wardline", "config.toml"), nil
}

// Load reads the config file and applies environment overrides. A
// missing file yields the defaults.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()
	path, err := Path()
	if err != nil {
		return cfg, err
	}
	if err := loadFile(&cfg, path); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	return nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		name string
		dst  *string
	}{
		{"CENSUS_API_KEY", &c.CensusAPIKey},
		{"WARDLINE_CENSUS_API_KEY", &c.CensusAPIKey},
		{"WARDLINE_CACHE_DIR", &c.CacheDir},
		{"WARDLINE_CACHE_BACKEND", &c.CacheBackend},
		{"WARDLINE_REDIS_ADDR", &c.RedisAddr},
		{"WARDLINE_RESOLUTION", &c.Resolution},
		{"WARDLINE_ENGINE", &c.Engine},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.dst = v
		}
	}
}

// Save writes the settings to the default location.
func (c Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the settings as TOML with owner-only permissions. The
// file is replaced through a rename so a crashed write cannot leave a
// half-written config behind.
func (c Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "create config directory")
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "encode config")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "write config %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "replace config %s", path)
	}
	return nil
}
