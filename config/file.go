package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coachpo/tradernet/errs"
)

// Load reads a YAML settings file over the defaults, applies environment
// overrides and resolves the INI credentials file when one is referenced and
// no inline keypair was given. An empty path falls back to TRADERNET_CONFIG;
// when neither is set the defaults with environment overrides are returned.
func Load(path string) (Settings, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("TRADERNET_CONFIG"))
	}
	cfg := Default()
	if path != "" {
		file, err := os.Open(filepath.Clean(path))
		if err != nil {
			return Settings{}, fmt.Errorf("open config %s: %w", path, err)
		}
		defer func() {
			_ = file.Close()
		}()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(bytes, &cfg); err != nil {
			return Settings{}, errs.New("config.load", errs.CodeInvalid,
				errs.WithMessage("unmarshal config "+path), errs.WithCause(err))
		}
	}
	applyEnv(&cfg)

	if cfg.CredentialsFile != "" && !cfg.Credentials.Complete() {
		creds, err := LoadCredentials(cfg.CredentialsFile)
		if err != nil {
			return Settings{}, err
		}
		if cfg.Credentials.Public == "" {
			cfg.Credentials.Public = creds.Public
		}
		if cfg.Credentials.Private == "" {
			cfg.Credentials.Private = creds.Private
		}
	}

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

// Validate checks that endpoints use the expected schemes and limits are sane.
func (s Settings) Validate() error {
	if !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
		return errs.Invalid("config.validate", "baseUrl must be an http(s) URL: "+s.BaseURL)
	}
	if !strings.HasPrefix(s.WebsocketURL, "ws://") && !strings.HasPrefix(s.WebsocketURL, "wss://") {
		return errs.Invalid("config.validate", "websocketUrl must be a ws(s) URL: "+s.WebsocketURL)
	}
	if s.RateLimit < 0 {
		return errs.Invalid("config.validate", "rateLimit must not be negative")
	}
	return nil
}
