package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const appName = "kiosk"

var envKeyReplacer = strings.NewReplacer(".", "_")

// Screen names accepted by ui.start_screen
const (
	ScreenHome      = "home"
	ScreenBooks     = "books"
	ScreenFavorites = "favorites"
	ScreenFinance   = "finance"
	ScreenPlans     = "plans"
	ScreenDelivery  = "delivery"
)

// Config holds all application configuration
type Config struct {
	OpenLibrary OpenLibraryConfig `mapstructure:"openlibrary"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Delivery    DeliveryConfig    `mapstructure:"delivery"`
	UI          UIConfig          `mapstructure:"ui"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// OpenLibraryConfig holds the book catalog endpoint
type OpenLibraryConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Limit   int           `mapstructure:"limit"` // Max results per search
}

// StorageConfig holds local database locations
type StorageConfig struct {
	Dir string `mapstructure:"dir"` // Holds favorites.db and records.db
}

// DeliveryConfig holds SIM delivery settings
type DeliveryConfig struct {
	Latency        time.Duration `mapstructure:"latency"` // Simulated request time
	WhatsAppNumber string        `mapstructure:"whatsapp_number"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	StartScreen string   `mapstructure:"start_screen"`
	Browser     string   `mapstructure:"browser"`      // Empty for the system default
	BrowserArgs []string `mapstructure:"browser_args"` // Extra arguments before the URL
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		OpenLibrary: OpenLibraryConfig{
			URL:     "https://openlibrary.org",
			Timeout: 30 * time.Second,
			Limit:   50,
		},
		Storage: StorageConfig{
			Dir: defaultDataPath(),
		},
		Delivery: DeliveryConfig{
			Latency:        1500 * time.Millisecond,
			WhatsAppNumber: "59173799571",
		},
		UI: UIConfig{
			StartScreen: ScreenHome,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), appName+".log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName)
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// ConfigDir returns the directory holding config.yaml and prefs.toml
func ConfigDir() string {
	return defaultConfigPath()
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.New(), defaultConfigPath(), ".")
}

// LoadConfigFrom loads configuration using v, searching the given directories
func LoadConfigFrom(v *viper.Viper, paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Environment variable overrides (KIOSK_OPENLIBRARY_URL, ...)
	v.SetEnvPrefix("KIOSK")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	dir, err := expandHome(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}
	cfg.Storage.Dir = dir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can override it
// even when no config file is present.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("openlibrary.url", cfg.OpenLibrary.URL)
	v.SetDefault("openlibrary.timeout", cfg.OpenLibrary.Timeout)
	v.SetDefault("openlibrary.limit", cfg.OpenLibrary.Limit)
	v.SetDefault("storage.dir", cfg.Storage.Dir)
	v.SetDefault("delivery.latency", cfg.Delivery.Latency)
	v.SetDefault("delivery.whatsapp_number", cfg.Delivery.WhatsAppNumber)
	v.SetDefault("ui.start_screen", cfg.UI.StartScreen)
	v.SetDefault("ui.browser", cfg.UI.Browser)
	v.SetDefault("ui.browser_args", cfg.UI.BrowserArgs)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// Validate rejects configurations the app cannot start with
func (c *Config) Validate() error {
	if c.OpenLibrary.URL == "" {
		return fmt.Errorf("openlibrary.url is required")
	}
	if c.OpenLibrary.Limit < 0 {
		return fmt.Errorf("openlibrary.limit must not be negative")
	}
	switch c.UI.StartScreen {
	case "", ScreenHome, ScreenBooks, ScreenFavorites, ScreenFinance, ScreenPlans, ScreenDelivery:
	default:
		return fmt.Errorf("unknown ui.start_screen: %q", c.UI.StartScreen)
	}
	return nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	return SaveConfigTo(viper.New(), cfg, defaultConfigPath())
}

// SaveConfigTo writes cfg as config.yaml inside dir
func SaveConfigTo(v *viper.Viper, cfg *Config, dir string) error {
	// Ensure config directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("openlibrary.url", cfg.OpenLibrary.URL)
	v.Set("openlibrary.timeout", cfg.OpenLibrary.Timeout.String())
	v.Set("openlibrary.limit", cfg.OpenLibrary.Limit)

	v.Set("storage.dir", cfg.Storage.Dir)

	v.Set("delivery.latency", cfg.Delivery.Latency.String())
	v.Set("delivery.whatsapp_number", cfg.Delivery.WhatsAppNumber)

	v.Set("ui.start_screen", cfg.UI.StartScreen)
	v.Set("ui.browser", cfg.UI.Browser)
	v.Set("ui.browser_args", cfg.UI.BrowserArgs)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FavoritesPath returns the BoltDB file for favorites
func (c *Config) FavoritesPath() string {
	return filepath.Join(c.Storage.Dir, "favorites.db")
}

// RecordsPath returns the SQLite file for expenses, incomes and deliveries
func (c *Config) RecordsPath() string {
	return filepath.Join(c.Storage.Dir, "records.db")
}
