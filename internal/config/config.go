// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"` // must exceed generation.timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Language        string        `yaml:"language"` // en | zh
	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For / X-Real-IP
	// headers are believed. Empty means client addresses come from the socket.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// TrustedProxyPrefixes parses TrustedProxies; a bare IP becomes a single-host prefix.
func (s ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if p, err := netip.ParsePrefix(raw); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("server.trusted_proxies: %q is neither an IP nor a CIDR", raw)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type StorageConfig struct {
	Backend string `yaml:"backend"` // postgres | memory
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // balance cache ttl
}

type AdminConfig struct {
	Password      string        `yaml:"password"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SecureCookie  bool          `yaml:"secure_cookie"`
}

type GenerationConfig struct {
	Provider        string        `yaml:"provider"` // http | gemini | openai | noop
	Timeout         time.Duration `yaml:"timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"`

	Endpoint string `yaml:"endpoint"` // http provider
	APIKey   string `yaml:"api_key"`  // http provider

	GeminiKey   string `yaml:"gemini_key"`
	GeminiURL   string `yaml:"gemini_url"`
	GeminiModel string `yaml:"gemini_model"`

	OpenAIKey   string `yaml:"openai_key"`
	OpenAIURL   string `yaml:"openai_url"`
	OpenAIModel string `yaml:"openai_model"`
}

type CodesConfig struct {
	Alphabet string `yaml:"alphabet"`
}

type RateLimitRule struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type RateLimitConfig struct {
	General  RateLimitRule `yaml:"general"`
	Generate RateLimitRule `yaml:"generate"`
	Admin    RateLimitRule `yaml:"admin"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Admin      AdminConfig      `yaml:"admin"`
	Generation GenerationConfig `yaml:"generation"`
	Codes      CodesConfig      `yaml:"codes"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	CORS       CORSConfig       `yaml:"cors"`
	Metrics    MetricsConfig    `yaml:"metrics"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays secrets from the
// environment (a .env file next to the binary is loaded first when present),
// applies defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && dev:
		// dev mode runs on defaults + env alone
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setStr(&cfg.Database.URL, "DATABASE_URL")
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setStr(&cfg.Admin.Password, "ADMIN_PASSWORD")
	setStr(&cfg.Admin.SessionSecret, "ADMIN_SESSION_SECRET")
	setStr(&cfg.Generation.Endpoint, "IMAGE_API_ENDPOINT")
	setStr(&cfg.Generation.APIKey, "IMAGE_API_KEY")
	setStr(&cfg.Generation.GeminiKey, "GEMINI_API_KEY")
	setStr(&cfg.Generation.OpenAIKey, "OPENAI_API_KEY")
	setStr(&cfg.Storage.Backend, "STORAGE_BACKEND")
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.Language == "" {
		cfg.Server.Language = "en"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "postgres"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}

	g := &cfg.Generation
	g.Provider = strings.ToLower(strings.TrimSpace(g.Provider))
	if g.Provider == "" {
		g.Provider = "http"
	}
	if g.Timeout <= 0 {
		g.Timeout = 60 * time.Second
	}
	if g.ConcurrentLimit <= 0 {
		g.ConcurrentLimit = 16
	}
	if g.GeminiModel == "" {
		g.GeminiModel = "gemini-3-pro-image-preview"
	}
	if g.OpenAIModel == "" {
		g.OpenAIModel = "gpt-image-1"
	}
	if cfg.Server.WriteTimeout <= g.Timeout {
		cfg.Server.WriteTimeout = g.Timeout + 15*time.Second
	}

	if cfg.Codes.Alphabet == "" {
		cfg.Codes.Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	}

	rl := &cfg.RateLimit
	defaultRule(&rl.General, 100, 15*time.Minute)
	defaultRule(&rl.Generate, 10, time.Minute)
	defaultRule(&rl.Admin, 50, 15*time.Minute)

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
}

func defaultRule(r *RateLimitRule, limit int, window time.Duration) {
	if r.Limit <= 0 {
		r.Limit = limit
	}
	if r.Window <= 0 {
		r.Window = window
	}
}

// Validate performs the minimal checks needed to boot.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres backend")
		}
	case "memory":
		if !c.Runtime.Dev {
			return errors.New("storage.backend=memory is only allowed in dev mode")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Admin.Password == "" {
		return errors.New("admin.password is required")
	}
	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return err
	}
	switch c.Generation.Provider {
	case "http":
		if c.Generation.Endpoint == "" || c.Generation.APIKey == "" {
			return errors.New("generation.endpoint and generation.api_key are required for the http provider")
		}
	case "gemini":
		if c.Generation.GeminiKey == "" {
			return errors.New("generation.gemini_key is required for the gemini provider")
		}
	case "openai":
		if c.Generation.OpenAIKey == "" {
			return errors.New("generation.openai_key is required for the openai provider")
		}
	case "noop":
		if !c.Runtime.Dev {
			return errors.New("generation.provider=noop is only allowed in dev mode")
		}
	default:
		return fmt.Errorf("unknown generation.provider %q", c.Generation.Provider)
	}
	if len(c.Codes.Alphabet) < 2 {
		return errors.New("codes.alphabet needs at least two characters")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
