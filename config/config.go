// Package config centralises runtime configuration helpers for the Tradernet client.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment identifies the runtime environment the client reports in telemetry.
type Environment string

const (
	// EnvDev marks the development environment.
	EnvDev Environment = "dev"
	// EnvStaging marks the staging environment.
	EnvStaging Environment = "staging"
	// EnvProd marks the production environment.
	EnvProd Environment = "prod"
)

const (
	// Domain is the brokerage API domain.
	Domain = "freedom24.com"
	// DefaultHTTPTimeout bounds every REST call.
	DefaultHTTPTimeout = 300 * time.Second
	// DefaultHandshakeTimeout bounds the websocket dial.
	DefaultHandshakeTimeout = 30 * time.Second
)

// Credentials captures the API keypair used for signed requests. Either half may be empty.
type Credentials struct {
	Public  string `yaml:"public"`
	Private string `yaml:"private"`
}

// Complete reports whether both halves of the keypair are present.
func (c Credentials) Complete() bool {
	return c.Public != "" && c.Private != ""
}

// Settings contains the client configuration tree loaded from defaults and overrides.
type Settings struct {
	Environment        Environment   `yaml:"environment"`
	BaseURL            string        `yaml:"baseUrl"`
	WebsocketURL       string        `yaml:"websocketUrl"`
	Credentials        Credentials   `yaml:"credentials"`
	CredentialsFile    string        `yaml:"credentialsFile"`
	HTTPTimeout        time.Duration `yaml:"httpTimeout"`
	HandshakeTimeout   time.Duration `yaml:"handshakeTimeout"`
	RateLimit          float64       `yaml:"rateLimit"`
	RateBurst          int           `yaml:"rateBurst"`
	AsyncWorkers       int           `yaml:"asyncWorkers"`
	AsyncQueue         int           `yaml:"asyncQueue"`
	RefbookParallelism int           `yaml:"refbookParallelism"`
	LogLevel           string        `yaml:"logLevel"`
	// LogFormat installs a global log sink when set: std, zap or none.
	LogFormat string `yaml:"logFormat"`
}

// Default returns the default client configuration.
func Default() Settings {
	return Settings{
		Environment:        EnvProd,
		BaseURL:            "https://" + Domain,
		WebsocketURL:       "wss://wss." + Domain,
		Credentials:        Credentials{Public: "", Private: ""},
		CredentialsFile:    "",
		HTTPTimeout:        DefaultHTTPTimeout,
		HandshakeTimeout:   DefaultHandshakeTimeout,
		RateLimit:          0,
		RateBurst:          1,
		AsyncWorkers:       4,
		AsyncQueue:         64,
		RefbookParallelism: 4,
		LogLevel:           "info",
		LogFormat:          "",
	}
}

// FromEnv loads configuration values from environment variables, overriding defaults.
func FromEnv() Settings {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Settings) {
	if env := strings.TrimSpace(os.Getenv("TRADERNET_ENV")); env != "" {
		cfg.Environment = Environment(strings.ToLower(env))
	}
	if v := strings.TrimSpace(os.Getenv("TRADERNET_BASE_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADERNET_WS_URL")); v != "" {
		cfg.WebsocketURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADERNET_PUBLIC_KEY")); v != "" {
		cfg.Credentials.Public = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADERNET_PRIVATE_KEY")); v != "" {
		cfg.Credentials.Private = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADERNET_CREDENTIALS_FILE")); v != "" {
		cfg.CredentialsFile = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADERNET_HTTP_TIMEOUT")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = dur
		}
	}
	if v := strings.TrimSpace(os.Getenv("TRADERNET_WS_HANDSHAKE_TIMEOUT")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.HandshakeTimeout = dur
		}
	}
	if v := strings.TrimSpace(os.Getenv("TRADERNET_RATE_LIMIT")); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit = rps
		}
	}
	if v := strings.TrimSpace(os.Getenv("TRADERNET_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADERNET_LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}
}

// Option mutates Settings when applied via Apply.
type Option func(*Settings)

// Apply applies the provided Option set to a copy of the base Settings.
func Apply(base Settings, opts ...Option) Settings {
	cfg := base
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithEnvironment configures the top-level environment.
func WithEnvironment(env Environment) Option {
	return func(s *Settings) {
		if env != "" {
			s.Environment = env
		}
	}
}

// WithCredentials sets the API keypair.
func WithCredentials(public, private string) Option {
	return func(s *Settings) {
		s.Credentials = Credentials{Public: strings.TrimSpace(public), Private: strings.TrimSpace(private)}
	}
}

// WithEndpoints overrides the REST base URL and the websocket URL. Empty values keep the current ones.
func WithEndpoints(baseURL, websocketURL string) Option {
	baseURL = strings.TrimSpace(baseURL)
	websocketURL = strings.TrimSpace(websocketURL)
	return func(s *Settings) {
		if baseURL != "" {
			s.BaseURL = baseURL
		}
		if websocketURL != "" {
			s.WebsocketURL = websocketURL
		}
	}
}

// WithHTTPTimeout overrides the REST timeout.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(s *Settings) {
		if timeout > 0 {
			s.HTTPTimeout = timeout
		}
	}
}

// WithRateLimit enables client-side throttling. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Settings) {
		s.RateLimit = rps
		if burst > 0 {
			s.RateBurst = burst
		}
	}
}

// WithAsyncPool sizes the worker pool backing non-blocking calls.
func WithAsyncPool(workers, queue int) Option {
	return func(s *Settings) {
		if workers > 0 {
			s.AsyncWorkers = workers
		}
		if queue >= 0 {
			s.AsyncQueue = queue
		}
	}
}

// Normalize fills zero values with defaults and trims trailing slashes from endpoints.
func (s Settings) Normalize() Settings {
	def := Default()
	s.BaseURL = strings.TrimSuffix(strings.TrimSpace(s.BaseURL), "/")
	if s.BaseURL == "" {
		s.BaseURL = def.BaseURL
	}
	s.WebsocketURL = strings.TrimSpace(s.WebsocketURL)
	if s.WebsocketURL == "" {
		s.WebsocketURL = def.WebsocketURL
	}
	if s.Environment == "" {
		s.Environment = def.Environment
	}
	if s.HTTPTimeout <= 0 {
		s.HTTPTimeout = def.HTTPTimeout
	}
	if s.HandshakeTimeout <= 0 {
		s.HandshakeTimeout = def.HandshakeTimeout
	}
	if s.RateBurst <= 0 {
		s.RateBurst = def.RateBurst
	}
	if s.AsyncWorkers <= 0 {
		s.AsyncWorkers = def.AsyncWorkers
	}
	if s.AsyncQueue < 0 {
		s.AsyncQueue = def.AsyncQueue
	}
	if s.RefbookParallelism <= 0 {
		s.RefbookParallelism = def.RefbookParallelism
	}
	return s
}
