package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nandhiniannika/online-voting/internal/constants"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Matching  MatchingConfig  `yaml:"matching"`
	Session   SessionConfig   `yaml:"session"`
	Frames    FramesConfig    `yaml:"frames"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type MatchingConfig struct {
	Threshold float64 `yaml:"threshold"` // maximum Euclidean distance for a match (exclusive)
	Strategy  string  `yaml:"strategy"`  // linear or hnsw
}

type SessionConfig struct {
	Window         time.Duration `yaml:"window"`          // verification window
	AcquireTimeout time.Duration `yaml:"acquire_timeout"` // camera open / stream connect budget
}

type FramesConfig struct {
	Source    string  `yaml:"source"`     // local or stream
	Device    int     `yaml:"device"`     // local capture device index
	StreamURL string  `yaml:"stream_url"` // MJPEG feed, e.g. http://camera:5001/video_feed
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Scale     float64 `yaml:"scale"`  // downscale factor applied before detection
	Mirror    bool    `yaml:"mirror"` // flip frames horizontally
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`   // http or dlib
	URL       string `yaml:"url"`        // embedding server base URL
	ModelsDir string `yaml:"models_dir"` // dlib model directory
}

type StoreConfig struct {
	Backend      string `yaml:"backend"` // file, sqlite, mysql or postgres
	Path         string `yaml:"path"`    // file or sqlite path
	URL          string `yaml:"url"`     // mysql DSN or postgres URL
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables event publishing
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"` // empty disables tracing
	ServiceName  string `yaml:"service_name"`
}

// Supported enum values.
const (
	StrategyLinear = "linear"
	StrategyHNSW   = "hnsw"

	SourceLocal  = "local"
	SourceStream = "stream"

	ProviderHTTP = "http"
	ProviderDlib = "dlib"

	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
)

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a positive Go duration string ("5s", "750ms").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Defaults returns the embedded defaults without environment overrides.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// Embedded file, this only fails when the binary was built from a broken tree.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

// Load returns the defaults overridden by environment variables.
func Load() *Config {
	d := Defaults()

	return &Config{
		Matching: MatchingConfig{
			Threshold: envFloat("MATCH_THRESHOLD", d.Matching.Threshold),
			Strategy:  strings.ToLower(envString("MATCH_STRATEGY", d.Matching.Strategy)),
		},
		Session: SessionConfig{
			Window:         envDuration("SESSION_WINDOW", d.Session.Window),
			AcquireTimeout: envDuration("SOURCE_ACQUIRE_TIMEOUT", d.Session.AcquireTimeout),
		},
		Frames: FramesConfig{
			Source:    strings.ToLower(envString("FRAME_SOURCE", d.Frames.Source)),
			Device:    envInt("CAMERA_DEVICE", d.Frames.Device),
			StreamURL: envString("VIDEO_STREAM_URL", d.Frames.StreamURL),
			Width:     envInt("CAMERA_WIDTH", d.Frames.Width),
			Height:    envInt("CAMERA_HEIGHT", d.Frames.Height),
			Scale:     envFloat("FRAME_SCALE", d.Frames.Scale),
			Mirror:    envBool("FRAME_MIRROR", d.Frames.Mirror),
		},
		Embedding: EmbeddingConfig{
			Provider:  strings.ToLower(envString("EMBEDDING_PROVIDER", d.Embedding.Provider)),
			URL:       envString("EMBEDDING_URL", d.Embedding.URL),
			ModelsDir: envString("DLIB_MODELS_DIR", d.Embedding.ModelsDir),
		},
		Store: StoreConfig{
			Backend:      strings.ToLower(envString("STORE_BACKEND", d.Store.Backend)),
			Path:         envString("STORE_PATH", d.Store.Path),
			URL:          envString("DATABASE_URL", d.Store.URL),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Store.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Store.MaxIdleConns),
		},
		MQTT: MQTTConfig{
			Broker:      envString("MQTT_BROKER", d.MQTT.Broker),
			TopicPrefix: envString("MQTT_TOPIC_PREFIX", d.MQTT.TopicPrefix),
			Username:    envString("MQTT_USERNAME", d.MQTT.Username),
			Password:    envString("MQTT_PASSWORD", d.MQTT.Password),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: envString("OTEL_EXPORTER_OTLP_ENDPOINT", d.Telemetry.OTLPEndpoint),
			ServiceName:  envString("OTEL_SERVICE_NAME", d.Telemetry.ServiceName),
		},
	}
}

// Validate checks value ranges and enum fields.
func (c *Config) Validate() error {
	var errs []error

	if c.Matching.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("matching threshold must be positive, got %v", c.Matching.Threshold))
	}
	if !oneOf(c.Matching.Strategy, StrategyLinear, StrategyHNSW) {
		errs = append(errs, fmt.Errorf("unknown match strategy %q", c.Matching.Strategy))
	}
	if c.Session.Window <= 0 {
		errs = append(errs, errors.New("session window must be positive"))
	}
	if c.Session.Window > constants.MaxSessionWindow {
		errs = append(errs, fmt.Errorf("session window must not exceed %v, got %v", constants.MaxSessionWindow, c.Session.Window))
	}
	if c.Session.AcquireTimeout <= 0 {
		errs = append(errs, errors.New("source acquire timeout must be positive"))
	}
	if !oneOf(c.Frames.Source, SourceLocal, SourceStream) {
		errs = append(errs, fmt.Errorf("unknown frame source %q", c.Frames.Source))
	}
	if c.Frames.Scale <= 0 || c.Frames.Scale > 1 {
		errs = append(errs, fmt.Errorf("frame scale must be in (0, 1], got %v", c.Frames.Scale))
	}
	if !oneOf(c.Embedding.Provider, ProviderHTTP, ProviderDlib) {
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	switch c.Store.Backend {
	case BackendFile, BackendSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("STORE_PATH is required for the %s backend", c.Store.Backend))
		}
	case BackendMySQL, BackendPostgres:
		if c.Store.URL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for the %s backend", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	return errors.Join(errs...)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
