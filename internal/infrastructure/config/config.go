package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the route coordinator.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	BLE       BLEConfig       `yaml:"ble"`
	Readiness ReadinessConfig `yaml:"readiness"`
	Engine    EngineConfig    `yaml:"engine"`
	Trigger   TriggerConfig   `yaml:"trigger"`
	Routes    []RouteConfig   `yaml:"routes"`
}

// SiteConfig identifies the installation.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// BLEConfig contains the radio identity and scan settings shared by every
// node in the installation. The UUIDs must match the firmware on the nodes.
type BLEConfig struct {
	ServiceUUID        string        `yaml:"service_uuid"`
	CharacteristicUUID string        `yaml:"characteristic_uuid"`
	RequireService     bool          `yaml:"require_service"`
	ScanWindow         time.Duration `yaml:"scan_window"`
	ScanPause          time.Duration `yaml:"scan_pause"`
	AutoScan           bool          `yaml:"auto_scan"`
}

// ReadinessConfig controls how long a hop waits for its node to become ready.
type ReadinessConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// EngineConfig contains route execution settings.
type EngineConfig struct {
	// HopDelay separates consecutive hop writes.
	HopDelay time.Duration `yaml:"hop_delay"`

	// OffsetStep is the fixed accumulator increment for four-hop routes
	// that do not set their own.
	OffsetStep uint16 `yaml:"offset_step"`

	// Color is the process-wide colour written into every frame.
	Color ColorConfig `yaml:"color"`

	// BlinkDuration is the default duration for blink-all requests.
	BlinkDuration uint16 `yaml:"blink_duration"`
}

// ColorConfig is an RGB triple.
type ColorConfig struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

// TriggerConfig contains the external trigger signal settings.
type TriggerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Name       string        `yaml:"name"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	MaxRetries int           `yaml:"max_retries"`
	Listen     ListenConfig  `yaml:"listen"`
}

// ListenConfig configures the external controller side of the trigger
// signal (cmd/synclisten).
type ListenConfig struct {
	RetryInterval time.Duration `yaml:"retry_interval"`
	ScanTimeout   time.Duration `yaml:"scan_timeout"`
}

// RouteConfig describes one entry of the route table.
//
// Kind selects how Devices is interpreted:
//   - "single": Devices[0] receives one chase frame tagged RouteID
//   - "two_hop": Devices[0] then Devices[1], tag 0
//   - "four_hop": Devices[0] (FrontTag), Devices[1], Devices[2], Devices[0] (BackTag)
type RouteConfig struct {
	Name       string   `yaml:"name"`
	Duration   uint16   `yaml:"duration"`
	Pixels     uint16   `yaml:"pixels"`
	Kind       string   `yaml:"kind"`
	RouteID    uint8    `yaml:"route_id"`
	Devices    []string `yaml:"devices"`
	FrontTag   *uint8   `yaml:"front_tag,omitempty"`
	BackTag    *uint8   `yaml:"back_tag,omitempty"`
	EdgeTrim   *uint16  `yaml:"edge_trim,omitempty"`
	OffsetStep uint16   `yaml:"offset_step,omitempty"`
	AckHops    []int    `yaml:"ack_hops,omitempty"`
}

// Route kinds accepted in RouteConfig.Kind.
const (
	RouteKindSingle  = "single"
	RouteKindTwoHop  = "two_hop"
	RouteKindFourHop = "four_hop"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ROUTELIGHT_SECTION_KEY
// For example: ROUTELIGHT_DATABASE_PATH, ROUTELIGHT_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied, for tools that run without a config file.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig returns a Config with the deployment defaults, including the
// five demonstration routes.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "opencampus",
			Name: "Route Light",
		},
		Database: DatabaseConfig{
			Path:        "./data/routelight.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "routelight",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 90,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		BLE: BLEConfig{
			ServiceUUID:        "e44b9ddb-630f-9052-9f2c-1b764b52ce72",
			CharacteristicUUID: "ebe9db63-5705-8280-37d5-808d4f5a35fb",
			RequireService:     true,
			ScanWindow:         time.Second,
			ScanPause:          time.Second,
			AutoScan:           true,
		},
		Readiness: ReadinessConfig{
			Timeout:      6 * time.Second,
			PollInterval: 250 * time.Millisecond,
		},
		Engine: EngineConfig{
			HopDelay:      200 * time.Millisecond,
			OffsetStep:    200,
			Color:         ColorConfig{R: 0, G: 128, B: 255},
			BlinkDuration: 5000,
		},
		Trigger: TriggerConfig{
			Enabled:    true,
			Name:       "SYNC",
			RetryDelay: time.Second,
			MaxRetries: 1,
			Listen: ListenConfig{
				RetryInterval: 5 * time.Second,
				ScanTimeout:   10 * time.Second,
			},
		},
		Routes: defaultRoutes(),
	}
}

func defaultRoutes() []RouteConfig {
	return []RouteConfig{
		{Name: "SENDAI→LONDON", Duration: 10000, Pixels: 7, Kind: RouteKindSingle, RouteID: 0, Devices: []string{"SENDAI"}},
		{Name: "SENDAI→SEOUL→LONDON", Duration: 7000, Pixels: 5, Kind: RouteKindSingle, RouteID: 1, Devices: []string{"SENDAI"}},
		{Name: "SENDAI→FRANKFURT→LONDON", Duration: 7000, Pixels: 5, Kind: RouteKindSingle, RouteID: 2, Devices: []string{"SENDAI"}},
		{Name: "SENDAI→MUMBAI→LONDON", Duration: 4000, Pixels: 3, Kind: RouteKindTwoHop, Devices: []string{"SD→MB", "MB→LO"}},
		{Name: "SENDAI→SEOUL→MUNBAI→FRANKFURT→LONDON", Duration: 1000, Pixels: 1, Kind: RouteKindFourHop, Devices: []string{"SENDAI", "SL→MB", "MB→FR"}},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ROUTELIGHT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("ROUTELIGHT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("ROUTELIGHT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ROUTELIGHT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ROUTELIGHT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("ROUTELIGHT_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("ROUTELIGHT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Trigger
	if v := os.Getenv("ROUTELIGHT_TRIGGER_NAME"); v != "" {
		cfg.Trigger.Name = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.BLE.ServiceUUID == "" || c.BLE.CharacteristicUUID == "" {
		errs = append(errs, "ble.service_uuid and ble.characteristic_uuid are required")
	}
	if c.BLE.ScanWindow <= 0 {
		errs = append(errs, "ble.scan_window must be positive")
	}

	if c.Readiness.Timeout <= 0 {
		errs = append(errs, "readiness.timeout must be positive")
	}
	if c.Readiness.PollInterval <= 0 {
		errs = append(errs, "readiness.poll_interval must be positive")
	}

	if c.Engine.HopDelay < 0 {
		errs = append(errs, "engine.hop_delay cannot be negative")
	}

	if c.Trigger.Enabled && c.Trigger.Name == "" {
		errs = append(errs, "trigger.name is required when trigger is enabled")
	}
	if c.Trigger.MaxRetries < 0 {
		errs = append(errs, "trigger.max_retries cannot be negative")
	}

	errs = append(errs, validateRoutes(c.Routes)...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateRoutes checks the shape of each route entry. Device names are not
// checked against anything: nodes are only known once they are discovered.
func validateRoutes(routes []RouteConfig) []string {
	var errs []string
	seen := make(map[string]bool, len(routes))

	for i, r := range routes {
		prefix := fmt.Sprintf("routes[%d]", i)
		if r.Name == "" {
			errs = append(errs, prefix+".name is required")
		} else if seen[r.Name] {
			errs = append(errs, fmt.Sprintf("%s.name %q is duplicated", prefix, r.Name))
		}
		seen[r.Name] = true

		want := 0
		switch r.Kind {
		case RouteKindSingle:
			want = 1
		case RouteKindTwoHop:
			want = 2
		case RouteKindFourHop:
			want = 3
		default:
			errs = append(errs, fmt.Sprintf("%s.kind %q must be single, two_hop, or four_hop", prefix, r.Kind))
			continue
		}
		if len(r.Devices) != want {
			errs = append(errs, fmt.Sprintf("%s.devices must list %d device(s) for kind %s", prefix, want, r.Kind))
		}
	}

	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
