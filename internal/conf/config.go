// Package conf loads and validates application settings from config files,
// environment variables and command line flags.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// LogSettings holds file logging settings shared by all service loggers
type LogSettings struct {
	Enabled bool   // true to enable per-service file logs
	Path    string // directory for log files
}

// MainSettings holds application level settings
type MainSettings struct {
	Name string      // application name used in logs and user agent
	Log  LogSettings // file logging settings
}

// EBirdSettings holds eBird API client settings
type EBirdSettings struct {
	APIKey      string // eBird API key, required for all queries
	BaseURL     string // API base URL, override for testing
	Timeout     int    // request timeout in seconds
	RateLimitMS int    // minimum milliseconds between requests
	Locale      string // locale for common names
}

// RouteSettings holds defaults for route sighting queries
type RouteSettings struct {
	RadiusKm       float64 // search radius around each sample point
	BackDays       int     // lookback window in days, eBird allows at most 30
	MaxPoints      int     // cap on sample points per route
	ProximityMiles float64 // default distance cutoff from the route, 0 disables
}

// WebServerSettings holds the HTTP API settings
type WebServerSettings struct {
	Enabled bool
	Port    string
}

// Settings is the root configuration structure
type Settings struct {
	Debug bool // true to enable debug level logging

	Main      MainSettings
	EBird     EBirdSettings
	Route     RouteSettings
	WebServer WebServerSettings
}

// RequestTimeout returns the eBird request timeout as a duration
func (s *EBirdSettings) RequestTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings instance and stores it as the package singleton.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	for _, path := range DefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("birdride")
	viper.AutomaticEnv()

	// Defaults defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, defaults plus env and flags apply
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// DefaultConfigPaths returns the directories searched for config.yaml,
// in priority order.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "birdride"))
	}
	paths = append(paths, "/etc/birdride")
	return paths
}

// ValidateSettings checks settings for values that would make queries
// impossible or abusive toward the eBird API.
func ValidateSettings(s *Settings) error {
	if s.Route.RadiusKm <= 0 {
		return fmt.Errorf("route.radiuskm must be positive, got %v", s.Route.RadiusKm)
	}
	if s.Route.RadiusKm > 50 {
		return fmt.Errorf("route.radiuskm must be at most 50 (eBird API limit), got %v", s.Route.RadiusKm)
	}
	if s.Route.BackDays < 1 || s.Route.BackDays > 30 {
		return fmt.Errorf("route.backdays must be between 1 and 30, got %d", s.Route.BackDays)
	}
	if s.Route.MaxPoints < 1 {
		return fmt.Errorf("route.maxpoints must be at least 1, got %d", s.Route.MaxPoints)
	}
	if s.Route.ProximityMiles < 0 {
		return fmt.Errorf("route.proximitymiles must not be negative, got %v", s.Route.ProximityMiles)
	}
	if s.EBird.Timeout <= 0 {
		return fmt.Errorf("ebird.timeout must be positive, got %d", s.EBird.Timeout)
	}
	return nil
}

// GetSettings returns the current settings instance, or nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the settings singleton, loading it on first use.
// Load errors at this point are fatal by definition.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})
	return GetSettings()
}
