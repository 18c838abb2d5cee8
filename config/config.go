package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvNetworkID and EnvNetworkSecret name the two credentials read once at
	// startup. Both are required.
	EnvNetworkID     = "ASENTRY_NETWORK_ID"
	EnvNetworkSecret = "ASENTRY_NETWORK_SECRET"

	StartupEmpty = "empty"
	StartupPrime = "prime"
)

// ConfigError reports unusable configuration. It is always fatal.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "config: " + e.Field + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config represents the complete monitor configuration
type Config struct {
	Sentry  SentryConfig  `yaml:"sentry"`
	Monitor MonitorConfig `yaml:"monitor"`
	Display DisplayConfig `yaml:"display"`
	Button  ButtonConfig  `yaml:"button"`
	Alert   AlertConfig   `yaml:"alert"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Network NetworkConfig `yaml:"network"`
	UI      UIConfig      `yaml:"ui"`
	Logging LoggingConfig `yaml:"logging"`

	// LoadedFrom is the file or directory the YAML came from; empty for defaults.
	LoadedFrom string `yaml:"-"`
}

// SentryConfig describes the remote catalog endpoint.
type SentryConfig struct {
	BaseURL        string  `yaml:"base_url"`
	PSMin          float64 `yaml:"ps_min"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	UserAgent      string  `yaml:"user_agent"`
}

// MonitorConfig controls the poll loop.
type MonitorConfig struct {
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	IdleClearSeconds    int    `yaml:"idle_clear_seconds"`
	StartupMode         string `yaml:"startup_mode"`
	ShowUptime          bool   `yaml:"show_uptime"`
}

// DisplayConfig describes the emulated panel geometry and scroll timing.
type DisplayConfig struct {
	Width        int `yaml:"width"`
	Height       int `yaml:"height"`
	GlyphWidth   int `yaml:"glyph_width"`
	LineHeight   int `yaml:"line_height"`
	ShortDwellMS int `yaml:"short_dwell_ms"`
	LongDwellMS  int `yaml:"long_dwell_ms"`
	TickMS       int `yaml:"tick_ms"`
}

// ButtonConfig holds input debounce settings.
type ButtonConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// AlertConfig controls the audible alert.
type AlertConfig struct {
	ClipPath      string   `yaml:"clip_path"`
	PlayerCommand []string `yaml:"player_command"`
	Bell          bool     `yaml:"bell"`
}

// MQTTConfig controls the optional change publisher.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      int    `yaml:"qos"`
}

// NetworkConfig controls the connect stage.
type NetworkConfig struct {
	Mode         string `yaml:"mode"`
	ProbeAddress string `yaml:"probe_address"`
	RetrySeconds int    `yaml:"retry_seconds"`
}

// UIConfig selects the display surface.
type UIConfig struct {
	Mode  string `yaml:"mode"`
	Color bool   `yaml:"color"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// Credentials are the network identity and secret read from the environment.
type Credentials struct {
	NetworkID     string
	NetworkSecret string
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		Alert: AlertConfig{Bell: true},
		UI:    UIConfig{Color: true},
	}
	cfg.normalize()
	return cfg
}

// Load loads configuration from a YAML file, or from every *.yaml file in a
// directory merged in lexical order, then applies defaults and validates.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	files := []string{path}
	if info.IsDir() {
		files, err = yamlFiles(path)
		if err != nil {
			return nil, fmt.Errorf("failed to list config dir: %w", err)
		}
	}

	cfg := &Config{
		Alert: AlertConfig{Bell: true},
		UI:    UIConfig{Color: true},
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Field: filepath.Base(file), Reason: "failed to parse config file", Err: err}
		}
	}
	cfg.LoadedFrom = path
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no yaml files in %s: %w", dir, os.ErrNotExist)
	}
	sort.Strings(files)
	return files, nil
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.Sentry.BaseURL) == "" {
		c.Sentry.BaseURL = "https://ssd-api.jpl.nasa.gov/sentry.api"
	}
	if c.Sentry.PSMin == 0 {
		c.Sentry.PSMin = -3
	}
	if c.Sentry.TimeoutSeconds <= 0 {
		c.Sentry.TimeoutSeconds = 30
	}
	if strings.TrimSpace(c.Sentry.UserAgent) == "" {
		c.Sentry.UserAgent = "asentry/1.0"
	}

	if c.Monitor.PollIntervalSeconds <= 0 {
		c.Monitor.PollIntervalSeconds = 3600
	}
	if c.Monitor.IdleClearSeconds <= 0 {
		c.Monitor.IdleClearSeconds = 60
	}
	c.Monitor.StartupMode = strings.ToLower(strings.TrimSpace(c.Monitor.StartupMode))
	if c.Monitor.StartupMode == "" {
		c.Monitor.StartupMode = StartupEmpty
	}

	if c.Display.Width == 0 {
		c.Display.Width = 128
	}
	if c.Display.Height == 0 {
		c.Display.Height = 64
	}
	if c.Display.GlyphWidth == 0 {
		c.Display.GlyphWidth = 6
	}
	if c.Display.LineHeight == 0 {
		c.Display.LineHeight = 12
	}
	if c.Display.ShortDwellMS <= 0 {
		c.Display.ShortDwellMS = 1000
	}
	if c.Display.LongDwellMS <= 0 {
		c.Display.LongDwellMS = 5000
	}
	if c.Display.TickMS <= 0 {
		c.Display.TickMS = 10
	}

	if c.Button.DebounceMS <= 0 {
		c.Button.DebounceMS = 50
	}

	if strings.TrimSpace(c.Alert.ClipPath) == "" {
		c.Alert.ClipPath = "alert.wav"
	}
	if len(c.Alert.PlayerCommand) == 0 {
		c.Alert.PlayerCommand = []string{"aplay", "-q"}
	}

	if c.MQTT.Port <= 0 {
		c.MQTT.Port = 1883
	}
	if strings.TrimSpace(c.MQTT.Topic) == "" {
		c.MQTT.Topic = "asentry/changes"
	}
	if strings.TrimSpace(c.MQTT.ClientID) == "" {
		c.MQTT.ClientID = "asentry"
	}

	c.Network.Mode = strings.ToLower(strings.TrimSpace(c.Network.Mode))
	if c.Network.Mode == "" {
		c.Network.Mode = "probe"
	}
	if strings.TrimSpace(c.Network.ProbeAddress) == "" {
		c.Network.ProbeAddress = "ssd-api.jpl.nasa.gov:443"
	}
	if c.Network.RetrySeconds <= 0 {
		c.Network.RetrySeconds = 5
	}

	c.UI.Mode = strings.ToLower(strings.TrimSpace(c.UI.Mode))
	if c.UI.Mode == "" {
		c.UI.Mode = "tview"
	}

	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = "data/logs"
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = 7
	}
}

// Validate rejects values that cannot work at runtime.
func (c *Config) Validate() error {
	switch c.Monitor.StartupMode {
	case StartupEmpty, StartupPrime:
	default:
		return &ConfigError{Field: "monitor.startup_mode", Reason: fmt.Sprintf("unknown mode %q (want empty or prime)", c.Monitor.StartupMode)}
	}
	switch c.Network.Mode {
	case "probe", "nmcli", "none":
	default:
		return &ConfigError{Field: "network.mode", Reason: fmt.Sprintf("unknown mode %q", c.Network.Mode)}
	}
	switch c.UI.Mode {
	case "tview", "ansi", "headless":
	default:
		return &ConfigError{Field: "ui.mode", Reason: fmt.Sprintf("unknown mode %q", c.UI.Mode)}
	}
	if c.Display.GlyphWidth <= 0 || c.Display.LineHeight <= 0 {
		return &ConfigError{Field: "display", Reason: fmt.Sprintf("invalid glyph size %dx%d", c.Display.GlyphWidth, c.Display.LineHeight)}
	}
	// The wrapper needs room for one glyph plus a hyphen, and one full line.
	if minWidth := 2 * c.Display.GlyphWidth; c.Display.Width < minWidth {
		return &ConfigError{Field: "display.width", Reason: fmt.Sprintf("%dpx is narrower than one glyph plus hyphen (%dpx)", c.Display.Width, minWidth)}
	}
	if c.Display.Height < c.Display.LineHeight {
		return &ConfigError{Field: "display.height", Reason: fmt.Sprintf("%dpx cannot hold a %dpx line", c.Display.Height, c.Display.LineHeight)}
	}
	if c.MQTT.Enabled && strings.TrimSpace(c.MQTT.Broker) == "" {
		return &ConfigError{Field: "mqtt.broker", Reason: "required when mqtt is enabled"}
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return &ConfigError{Field: "mqtt.qos", Reason: fmt.Sprintf("invalid qos %d", c.MQTT.QoS)}
	}
	return nil
}

// LoadCredentials reads the network identity and secret from the environment,
// after loading an optional .env file. Missing values are a ConfigError.
func LoadCredentials(envFiles ...string) (Credentials, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Credentials{}, &ConfigError{Field: ".env", Reason: "failed to parse", Err: err}
	}
	creds := Credentials{
		NetworkID:     strings.TrimSpace(os.Getenv(EnvNetworkID)),
		NetworkSecret: os.Getenv(EnvNetworkSecret),
	}
	if creds.NetworkID == "" {
		return Credentials{}, &ConfigError{Field: EnvNetworkID, Reason: "not set"}
	}
	if creds.NetworkSecret == "" {
		return Credentials{}, &ConfigError{Field: EnvNetworkSecret, Reason: "not set"}
	}
	return creds, nil
}

// PollInterval returns the idle wait between polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Monitor.PollIntervalSeconds) * time.Second
}

// IdleClear returns how long the idle message stays lit before blanking.
func (c *Config) IdleClear() time.Duration {
	return time.Duration(c.Monitor.IdleClearSeconds) * time.Second
}

// Print displays the configuration
func (c *Config) Print() {
	fmt.Printf("Sentry: %s (ps-min %g, timeout %ds)\n", c.Sentry.BaseURL, c.Sentry.PSMin, c.Sentry.TimeoutSeconds)
	fmt.Printf("Monitor: poll every %ds, idle clear after %ds, startup=%s\n",
		c.Monitor.PollIntervalSeconds, c.Monitor.IdleClearSeconds, c.Monitor.StartupMode)
	fmt.Printf("Display: %dx%d px, glyph %dx%d\n", c.Display.Width, c.Display.Height, c.Display.GlyphWidth, c.Display.LineHeight)
	fmt.Printf("Network: mode=%s probe=%s\n", c.Network.Mode, c.Network.ProbeAddress)
	if c.MQTT.Enabled {
		fmt.Printf("MQTT: %s:%d (topic: %s)\n", c.MQTT.Broker, c.MQTT.Port, c.MQTT.Topic)
	}
	fmt.Printf("UI: %s\n", c.UI.Mode)
}
