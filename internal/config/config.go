// Package config carrega a configuração do serprank.
//
// Precedência (maior para menor):
//  1. Variáveis de ambiente SERPRANK_* (SERPRANK_HISTORY_MAX_ENTRIES -> history.max_entries)
//  2. Arquivo YAML opcional
//  3. Defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"serp-rank/rank/infra"
)

const (
	EnvPrefix         = "SERPRANK_"
	maxConfigFileSize = 1 << 20
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Throttle  ThrottleConfig  `koanf:"throttle"`
	Storage   StorageConfig   `koanf:"storage"`
	History   HistoryConfig   `koanf:"history"`
	Matcher   MatcherConfig   `koanf:"matcher"`
	Retry     RetryConfig     `koanf:"retry"`
	Extractor ExtractorConfig `koanf:"extractor"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	ListenAddr      string        `koanf:"listen_addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// ThrottleConfig: Burst 0 = automático (20, ou 1 quando rps < 1). Com RPS
// muito baixo um burst alto dá a impressão de que o limiter não funciona.
type ThrottleConfig struct {
	Enabled            bool          `koanf:"enabled"`
	RPS                float64       `koanf:"rps"`
	Burst              int           `koanf:"burst"`
	KeyHeader          string        `koanf:"key_header"`
	TrustXFF           bool          `koanf:"trust_xff"`
	RetryAfter         time.Duration `koanf:"retry_after"`
	AddHeaders         bool          `koanf:"add_headers"`
	ConcurrencyMax     int           `koanf:"concurrency_max"`
	ConcurrencyTimeout time.Duration `koanf:"concurrency_timeout"`
	// KeywordRPS limita findKeywordRank por cliente+keyword; 0 desliga.
	KeywordRPS   float64 `koanf:"keyword_rps"`
	KeywordBurst int     `koanf:"keyword_burst"`
}

type StorageConfig struct {
	Backend       string `koanf:"backend"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`
	// RedisTTL expira as chaves gravadas no Redis; 0 = sem expiração.
	RedisTTL   time.Duration `koanf:"redis_ttl"`
	SQLitePath string        `koanf:"sqlite_path"`
	// MirrorErrors grava o log de erros também no backend.
	MirrorErrors bool `koanf:"mirror_errors"`
}

type HistoryConfig struct {
	MaxEntries int  `koanf:"max_entries"`
	Enabled    bool `koanf:"enabled"`
	AutoSave   bool `koanf:"auto_save"`
}

type MatcherConfig struct {
	MatchThreshold float64 `koanf:"match_threshold"`
	TokenThreshold float64 `koanf:"token_threshold"`
	FuzzyThreshold float64 `koanf:"fuzzy_threshold"`
	Selection      string  `koanf:"selection"`
}

// MaxRetriesLimit é o teto aceito para retry.max_retries.
const MaxRetriesLimit = 10

type RetryConfig struct {
	MaxRetries int           `koanf:"max_retries"`
	BaseDelay  time.Duration `koanf:"base_delay"`
}

type ExtractorConfig struct {
	// Page é o HTML usado quando a mensagem não traz o seu.
	Page        string `koanf:"page"`
	Container   string `koanf:"container"`
	Title       string `koanf:"title"`
	Link        string `koanf:"link"`
	Description string `koanf:"description"`
	Ad          string `koanf:"ad"`
}

func (e ExtractorConfig) Selectors() infra.Selectors {
	return infra.Selectors{
		Container:   e.Container,
		Title:       e.Title,
		Link:        e.Link,
		Description: e.Description,
		Ad:          e.Ad,
	}
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func Default() Config {
	sel := infra.DefaultSelectors()
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    4 << 20,
		},
		Throttle: ThrottleConfig{
			Enabled:        true,
			RPS:            10,
			RetryAfter:     time.Second,
			ConcurrencyMax: 16,
			KeywordRPS:     0.2,
			KeywordBurst:   2,
		},
		Storage: StorageConfig{
			Backend:     BackendMemory,
			RedisPrefix: "serprank",
			SQLitePath:  "serprank.db",
		},
		History: HistoryConfig{MaxEntries: 50, Enabled: true, AutoSave: true},
		Matcher: MatcherConfig{
			MatchThreshold: 0.25,
			TokenThreshold: 0.6,
			FuzzyThreshold: 0.7,
			Selection:      "first",
		},
		Retry: RetryConfig{MaxRetries: 3, BaseDelay: time.Second},
		Extractor: ExtractorConfig{
			Container:   sel.Container,
			Title:       sel.Title,
			Link:        sel.Link,
			Description: sel.Description,
			Ad:          sel.Ad,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load lê path (se não vazio) e depois o ambiente.
func Load(path string) (*Config, error) {
	var content []byte
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s too large (%d bytes)", path, info.Size())
		}
		if content, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}
	return LoadBytes(content)
}

// LoadBytes é Load com o YAML já em memória (nil = só defaults + ambiente).
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey: SERPRANK_THROTTLE_KEY_HEADER -> throttle.key_header
// (só o primeiro "_" separa a seção).
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func (c *Config) applyDefaults() {
	if c.Throttle.Burst == 0 {
		c.Throttle.Burst = 20
		if c.Throttle.RPS > 0 && c.Throttle.RPS < 1 {
			c.Throttle.Burst = 1
		}
	}
	if c.Throttle.KeywordRPS > 0 && c.Throttle.KeywordBurst == 0 {
		c.Throttle.KeywordBurst = 1
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Matcher.Selection = strings.ToLower(strings.TrimSpace(c.Matcher.Selection))
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return errors.New("storage.redis_addr is required when storage.backend=redis")
		}
	default:
		return fmt.Errorf("storage.backend %q: want memory, redis or sqlite", c.Storage.Backend)
	}
	if c.Storage.RedisTTL < 0 {
		return errors.New("storage.redis_ttl must be >= 0")
	}
	if c.Storage.Backend == BackendSQLite && strings.TrimSpace(c.Storage.SQLitePath) == "" {
		return errors.New("storage.sqlite_path is required when storage.backend=sqlite")
	}

	if c.Throttle.RPS <= 0 {
		return errors.New("throttle.rps must be > 0")
	}
	if c.Throttle.Burst <= 0 {
		return errors.New("throttle.burst must be > 0")
	}
	if c.Throttle.KeywordRPS < 0 {
		return errors.New("throttle.keyword_rps must be >= 0")
	}
	if c.Throttle.KeywordRPS > 0 && c.Throttle.KeywordBurst < 0 {
		return errors.New("throttle.keyword_burst must be > 0")
	}
	if c.Throttle.ConcurrencyMax < 0 {
		return errors.New("throttle.concurrency_max must be >= 0")
	}
	if c.History.MaxEntries < 1 {
		return errors.New("history.max_entries must be >= 1")
	}

	for name, v := range map[string]float64{
		"matcher.match_threshold": c.Matcher.MatchThreshold,
		"matcher.token_threshold": c.Matcher.TokenThreshold,
		"matcher.fuzzy_threshold": c.Matcher.FuzzyThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1]", name)
		}
	}
	if c.Matcher.Selection != "first" && c.Matcher.Selection != "best" {
		return errors.New("matcher.selection must be first or best")
	}

	if c.Retry.MaxRetries < 1 || c.Retry.MaxRetries > MaxRetriesLimit {
		return fmt.Errorf("retry.max_retries must be between 1 and %d", MaxRetriesLimit)
	}
	if c.Retry.BaseDelay < 0 {
		return errors.New("retry.base_delay must be >= 0")
	}
	if strings.TrimSpace(c.Extractor.Container) == "" {
		return errors.New("extractor.container is required")
	}
	return nil
}
