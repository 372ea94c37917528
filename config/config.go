// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
//
// Kaynak önceliği (düşükten yükseğe):
//  1. Kod içindeki varsayılanlar
//  2. CONFIG_FILE ile verilen YAML dosyası (anahtarlar env isimleriyle aynı)
//  3. Environment variable'lar (.env dosyası da okunur)
//
// Örnek YAML:
//
//	SERVER_PORT: "9090"
//	PRESENCE_HEARTBEAT_INTERVAL: 30s
//	NATS_URL: nats://localhost:4222
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Log       LogConfig
	Presence  PresenceConfig
	Gateway   GatewayConfig
	RateLimit RateLimitConfig
	NATS      NATSConfig
	Email     EmailConfig
	Retention RetentionConfig
	Tracing   TracingConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // ör: ./data/huddle.db
}

// AuthConfig, kimlik token'ı doğrulama ayarları.
// Token'ları dış kimlik sistemi üretir; burada sadece imza doğrulanır.
type AuthConfig struct {
	JWTSecret string
}

// LogConfig, zap logger ayarları.
type LogConfig struct {
	Level string
	Env   string // "development" → console encoder
}

// PresenceConfig, heartbeat ve sweep ayarları.
type PresenceConfig struct {
	HeartbeatInterval time.Duration
	Timeout           time.Duration // varsayılan: 3 × HeartbeatInterval
	SweepInterval     time.Duration
}

// GatewayConfig, realtime gateway ayarları.
type GatewayConfig struct {
	TypingTTL      time.Duration
	Workers        int
	QueueSize      int
	SendBufferSize int
}

// RateLimitConfig, mesaj ve HTTP hız limitleri.
type RateLimitConfig struct {
	Messages          int
	MessageWindow     time.Duration
	MessageBurst      int
	RequestsPerMinute int
}

// NATSConfig, downstream event yayını. URL boşsa devre dışı.
type NATSConfig struct {
	URL           string
	Token         string
	SubjectPrefix string
}

// EmailConfig, mention email sink'i. APIKey boşsa devre dışı.
type EmailConfig struct {
	ResendAPIKey string
	From         string
	AppURL       string
}

// RetentionConfig, okunmuş bildirimlerin temizlik job'ı.
type RetentionConfig struct {
	Schedule string // cron ifadesi
	MaxAge   time.Duration
}

// TracingConfig, OpenTelemetry ayarları.
type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

// loader, env → YAML → fallback sırasıyla değer okur.
type loader struct {
	file map[string]string
	err  error
}

// Load, environment variable'lardan ve opsiyonel YAML dosyasından Config oluşturur.
func Load() (*Config, error) {
	// .env dosyası yoksa sessizce devam et.
	_ = godotenv.Load()

	l := &loader{file: map[string]string{}}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := l.readFile(path); err != nil {
			return nil, err
		}
	}

	heartbeat := l.duration("PRESENCE_HEARTBEAT_INTERVAL", 30*time.Second)

	cfg := &Config{
		Server: ServerConfig{
			Host:        l.str("SERVER_HOST", "0.0.0.0"),
			Port:        l.int("SERVER_PORT", 9090),
			CORSOrigins: l.list("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Path: l.str("DATABASE_PATH", "./data/huddle.db"),
		},
		Auth: AuthConfig{
			JWTSecret: l.str("JWT_SECRET", ""),
		},
		Log: LogConfig{
			Level: l.str("LOG_LEVEL", "info"),
			Env:   l.str("APP_ENV", "production"),
		},
		Presence: PresenceConfig{
			HeartbeatInterval: heartbeat,
			Timeout:           l.duration("PRESENCE_TIMEOUT", 3*heartbeat),
			SweepInterval:     l.duration("PRESENCE_SWEEP_INTERVAL", 10*time.Second),
		},
		Gateway: GatewayConfig{
			TypingTTL:      l.duration("TYPING_TTL", 3*time.Second),
			Workers:        l.int("GATEWAY_WORKERS", 8),
			QueueSize:      l.int("GATEWAY_QUEUE_SIZE", 256),
			SendBufferSize: l.int("GATEWAY_SEND_BUFFER", 256),
		},
		RateLimit: RateLimitConfig{
			Messages:          l.int("RATE_LIMIT_MESSAGES", 10),
			MessageWindow:     l.duration("RATE_LIMIT_MESSAGE_WINDOW", 5*time.Second),
			MessageBurst:      l.int("RATE_LIMIT_MESSAGE_BURST", 5),
			RequestsPerMinute: l.int("RATE_LIMIT_REQUESTS_PER_MINUTE", 300),
		},
		NATS: NATSConfig{
			URL:           l.str("NATS_URL", ""),
			Token:         l.str("NATS_TOKEN", ""),
			SubjectPrefix: l.str("NATS_SUBJECT_PREFIX", "huddle"),
		},
		Email: EmailConfig{
			ResendAPIKey: l.str("RESEND_API_KEY", ""),
			From:         l.str("EMAIL_FROM", "noreply@huddle.app"),
			AppURL:       l.str("APP_URL", "http://localhost:3000"),
		},
		Retention: RetentionConfig{
			Schedule: l.str("RETENTION_SCHEDULE", "0 4 * * *"),
			MaxAge:   l.duration("RETENTION_MAX_AGE", 30*24*time.Hour),
		},
		Tracing: TracingConfig{
			Enabled:  l.bool("TRACING_ENABLED", false),
			Endpoint: l.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}

	if l.err != nil {
		return nil, l.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.Presence.HeartbeatInterval <= 0 || c.Presence.SweepInterval <= 0 {
		return fmt.Errorf("presence intervals must be positive")
	}
	if c.Presence.Timeout < c.Presence.HeartbeatInterval {
		return fmt.Errorf("PRESENCE_TIMEOUT must be at least the heartbeat interval")
	}
	if c.Gateway.Workers <= 0 || c.Gateway.QueueSize <= 0 || c.Gateway.SendBufferSize <= 0 {
		return fmt.Errorf("gateway sizes must be positive")
	}
	if c.Gateway.TypingTTL <= 0 {
		return fmt.Errorf("TYPING_TTL must be positive")
	}
	return nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (l *loader) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &l.file); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

func (l *loader) str(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	if val, ok := l.file[key]; ok {
		return val
	}
	return fallback
}

func (l *loader) int(key string, fallback int) int {
	raw := l.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		l.fail(fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func (l *loader) bool(key string, fallback bool) bool {
	raw := l.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		l.fail(fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func (l *loader) duration(key string, fallback time.Duration) time.Duration {
	raw := l.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		l.fail(fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return v
}

func (l *loader) list(key string, fallback []string) []string {
	raw := l.str(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// fail, ilk hatayı saklar; Load sonunda döner.
func (l *loader) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}
