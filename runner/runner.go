package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/tlmt"
	"github.com/sadewadee/marketing-engine/tlmt/gonoop"
	"github.com/sadewadee/marketing-engine/tlmt/goposthog"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
)

type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

// Config is shared by every command
type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"`
	APIToken    string `yaml:"api_token"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// Redis configuration for cache, deduplication and the asynq queue
	RedisURL  string `yaml:"redis_url"`
	RedisAddr string `yaml:"redis_addr"`
	RedisPass string `yaml:"redis_pass"`
	RedisDB   int    `yaml:"redis_db"`

	// RabbitMQ takes precedence over asynq when set
	RabbitMQURL string `yaml:"rabbitmq_url"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`

	BatchConcurrency  int               `yaml:"batch_concurrency"`
	BusinessTimeout   time.Duration     `yaml:"business_timeout"`
	ScheduleInterval  time.Duration     `yaml:"schedule_interval"`
	PeriodType        domain.PeriodType `yaml:"period_type"`
	WorkerConcurrency int               `yaml:"worker_concurrency"`
	DedupeTTL         time.Duration     `yaml:"dedupe_ttl"`

	DisableTelemetry bool `yaml:"disable_telemetry"`
}

// DefaultConfig returns the configuration used when nothing overrides it
func DefaultConfig() *Config {
	return &Config{
		Addr:              ":8080",
		DatabaseURL:       "marketing.db",
		LogLevel:          "info",
		BatchConcurrency:  4,
		BusinessTimeout:   30 * time.Second,
		ScheduleInterval:  24 * time.Hour,
		PeriodType:        domain.PeriodDaily,
		WorkerConcurrency: 10,
		DedupeTTL:         24 * time.Hour,
	}
}

// LoadConfig reads the optional YAML file at path over the defaults and
// then applies environment overrides
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("ADDR", &c.Addr)
	str("DATABASE_URL", &c.DatabaseURL)
	str("API_TOKEN", &c.APIToken)
	str("LOG_LEVEL", &c.LogLevel)
	str("REDIS_URL", &c.RedisURL)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASS", &c.RedisPass)
	str("RABBITMQ_URL", &c.RabbitMQURL)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("GEMINI_MODEL", &c.GeminiModel)

	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: REDIS_DB: %v", ErrInvalidConfig, err)
		}
		c.RedisDB = db
	}

	if v, ok := lookup("LOG_JSON"); ok {
		c.LogJSON = v == "1" || strings.EqualFold(v, "true")
	}

	if v, ok := lookup("DISABLE_TELEMETRY"); ok {
		c.DisableTelemetry = v == "1" || strings.EqualFold(v, "true")
	}

	return nil
}

// Validate checks the fields every command depends on
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: database URL is required", ErrInvalidConfig)
	}

	if c.BatchConcurrency < 1 {
		return fmt.Errorf("%w: batch concurrency must be greater than 0", ErrInvalidConfig)
	}

	if c.BusinessTimeout <= 0 {
		return fmt.Errorf("%w: business timeout must be positive", ErrInvalidConfig)
	}

	if c.ScheduleInterval < 0 {
		return fmt.Errorf("%w: schedule interval must not be negative", ErrInvalidConfig)
	}

	if !c.PeriodType.IsValid() {
		return fmt.Errorf("%w: unknown period type %q", ErrInvalidConfig, c.PeriodType)
	}

	return nil
}

// IsPostgres reports whether DatabaseURL points at PostgreSQL
func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// HasRedis reports whether a Redis connection is configured
func (c *Config) HasRedis() bool {
	return c.RedisURL != "" || c.RedisAddr != ""
}

const (
	posthogEndpoint = "https://eu.i.posthog.com"
	posthogKeyEnv   = "POSTHOG_API_KEY"
)

var (
	telemetryOnce sync.Once
	telemetry     tlmt.Telemetry
)

// Telemetry returns the process-wide telemetry sink. It is a noop unless
// POSTHOG_API_KEY is set and DISABLE_TELEMETRY is not.
func Telemetry() tlmt.Telemetry {
	telemetryOnce.Do(func() {
		if os.Getenv("DISABLE_TELEMETRY") == "1" {
			telemetry = gonoop.New()

			return
		}

		val, err := goposthog.New(os.Getenv(posthogKeyEnv), posthogEndpoint)
		if err != nil || val == nil {
			telemetry = gonoop.New()

			return
		}

		telemetry = val
	})

	return telemetry
}

// DisableTelemetry pins Telemetry to the noop sink. It has no effect once
// Telemetry has been called.
func DisableTelemetry() {
	telemetryOnce.Do(func() {
		telemetry = gonoop.New()
	})
}

func wrapText(text string, width int) []string {
	var lines []string

	currentLine := ""
	currentWidth := 0

	for _, r := range text {
		runeWidth := runewidth.RuneWidth(r)
		if currentWidth+runeWidth > width {
			lines = append(lines, currentLine)
			currentLine = string(r)
			currentWidth = runeWidth
		} else {
			currentLine += string(r)
			currentWidth += runeWidth
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

func banner(messages []string, width int) string {
	if width <= 0 {
		var err error

		width, _, err = term.GetSize(int(os.Stderr.Fd()))
		if err != nil {
			width = 80
		}
	}

	if width < 20 {
		width = 20
	}

	contentWidth := width - 4

	var wrappedLines []string
	for _, message := range messages {
		wrappedLines = append(wrappedLines, wrapText(message, contentWidth)...)
	}

	var builder strings.Builder

	builder.WriteString("╔" + strings.Repeat("═", width-2) + "╗\n")

	for _, line := range wrappedLines {
		paddingRight := max(contentWidth-runewidth.StringWidth(line), 0)

		fmt.Fprintf(&builder, "║ %s%s ║\n", line, strings.Repeat(" ", paddingRight))
	}

	builder.WriteString("╚" + strings.Repeat("═", width-2) + "╝\n")

	return builder.String()
}

// Banner prints the startup banner to stderr
func Banner() {
	fmt.Fprintln(os.Stderr, banner([]string{
		"📈 Marketing Engine",
		"Campaign plans and search visibility",
		fmt.Sprintf("v%s (%s, %s)", Version, BuildDate, Commit),
	}, 0))
}
