package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// geocoderKeyEnvVar is the environment variable consulted for the geocoding
// provider API key, overriding any value in the configuration file. The key
// is a deployment secret and should not be committed in a config file.
const geocoderKeyEnvVar = "GEOCODER_API_KEY"

// defaultGeocoderEndpoint is the Google Geocoding API endpoint.
const defaultGeocoderEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// Config represents the entire application configuration.
type Config struct {
	DatabasePath string         `yaml:"database_path"`
	Web          WebConfig      `yaml:"web"`
	Session      SessionConfig  `yaml:"session"`
	Geocoder     GeocoderConfig `yaml:"geocoder"`
}

// WebConfig holds settings specific to the web server.
type WebConfig struct {
	TemplatesPath   string `yaml:"templates_path"`
	StaticPath      string `yaml:"static_path"`
	ListenAddress   string `yaml:"listen_address"`
	MapsBrowserKey  string `yaml:"maps_browser_key"` // client-side map key, may be empty
	DevelopmentMode bool   `yaml:"development_mode"`
}

// SessionConfig holds login session settings.
type SessionConfig struct {
	LifetimeHours int `yaml:"lifetime_hours"`
	// Lifetime is derived from LifetimeHours.
	Lifetime time.Duration
}

// GeocoderConfig holds settings for the outbound geocoding provider.
type GeocoderConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	// TimeoutSeconds bounds each geocoding call; defaults to 10.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	Timeout        time.Duration
}

// Load loads and validates the configuration from the given file path.
func Load(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", filePath)
	}

	configFile, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(configFile, &cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse YAML config file: %w", err)
	}

	if err := validateAndPrepare(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateAndPrepare checks for required fields and sets up derived values.
func validateAndPrepare(c *Config) error {
	// General
	if c.DatabasePath == "" {
		return errors.New("database_path is missing")
	}

	// Web. Empty template and static paths fall back to the embedded
	// copies; development mode needs on-disk paths to watch.
	if c.Web.ListenAddress == "" {
		return errors.New("web.listen_address is missing")
	}
	if c.Web.DevelopmentMode && (c.Web.TemplatesPath == "" || c.Web.StaticPath == "") {
		return errors.New("web.development_mode needs templates_path and static_path")
	}

	// Session
	if c.Session.LifetimeHours == 0 {
		c.Session.LifetimeHours = 12
	}
	if c.Session.LifetimeHours < 1 {
		return errors.New("session.lifetime_hours must be at least 1")
	}
	c.Session.Lifetime = time.Duration(c.Session.LifetimeHours) * time.Hour

	// Geocoder. The environment takes precedence for the API key so that
	// the secret need not appear in the config file at all.
	gc := &c.Geocoder
	if envKey := os.Getenv(geocoderKeyEnvVar); envKey != "" {
		gc.APIKey = envKey
	}
	if gc.APIKey == "" {
		return fmt.Errorf("geocoder.api_key is missing (or set %s)", geocoderKeyEnvVar)
	}
	if gc.Endpoint == "" {
		gc.Endpoint = defaultGeocoderEndpoint
	}
	if gc.TimeoutSeconds == 0 {
		gc.TimeoutSeconds = 10
	}
	if gc.TimeoutSeconds < 1 {
		return errors.New("geocoder.timeout_seconds must be at least 1")
	}
	gc.Timeout = time.Duration(gc.TimeoutSeconds) * time.Second

	return nil
}
