package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// Config es la configuración completa de drawbot.
type Config struct {
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Storage   StorageConfig   `yaml:"storage"`
	Lock      LockConfig      `yaml:"lock"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Report    ReportConfig    `yaml:"report"`
	Log       LogConfig       `yaml:"log"`
}

// OptimizerConfig controla la selección de resultados.
type OptimizerConfig struct {
	Weights           domain.Weights `yaml:"weights"`
	DefaultPayoutPct  float64        `yaml:"default_payout_pct"` // % de las ventas si el sorteo no trae uno
	DaysCap           int            `yaml:"days_cap"`
	SequentialWindow  int            `yaml:"sequential_window"`
	HistoryDepth      int            `yaml:"history_depth"`
	RandomTopFraction float64        `yaml:"random_top_fraction"`
	RandomMinPool     int            `yaml:"random_min_pool"`
	Timezone          string         `yaml:"timezone"` // zona IANA de la ventana diaria
	Seed              uint64         `yaml:"seed"`     // 0 = fuente global
}

// SchedulerConfig controla el runner de cierre.
type SchedulerConfig struct {
	Cron                string  `yaml:"cron"` // seis campos, con segundos
	LeadMinutes         int     `yaml:"lead_minutes"`
	Workers             int     `yaml:"workers"`
	RatePerSec          float64 `yaml:"rate_per_sec"`
	EventTimeoutSeconds int     `yaml:"event_timeout_seconds"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LockConfig controla el lock por sorteo. Sin redis_addr se usa un lock en
// memoria, válido solo con una réplica.
type LockConfig struct {
	RedisAddr  string `yaml:"redis_addr"`
	Prefix     string `yaml:"prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// MetricsConfig controla el servidor de /metrics y /healthz.
type MetricsConfig struct {
	Port string `yaml:"port"` // vacío = sin servidor
}

// ReportConfig controla la salida de consola.
type ReportConfig struct {
	Table bool `yaml:"table"`
	Limit int  `yaml:"limit"` // filas del ranking (0 = todas)
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Optimizer.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: optimizer.weights: %w", err)
	}
	return &cfg, nil
}

// LeadTime devuelve la antelación del cierre como time.Duration.
func (c *Config) LeadTime() time.Duration {
	return time.Duration(c.Scheduler.LeadMinutes) * time.Minute
}

// EventTimeout devuelve el tope por sorteo.
func (c *Config) EventTimeout() time.Duration {
	return time.Duration(c.Scheduler.EventTimeoutSeconds) * time.Second
}

// LockTTL devuelve la vida del lock por sorteo.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Lock.TTLSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("DRAWBOT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("DRAWBOT_REDIS_ADDR"); v != "" {
		cfg.Lock.RedisAddr = v
	}
	if v := os.Getenv("DRAWBOT_TIMEZONE"); v != "" {
		cfg.Optimizer.Timezone = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	o := &cfg.Optimizer
	if o.Weights.Sum() == 0 {
		o.Weights = domain.DefaultWeights()
	}
	if o.DefaultPayoutPct <= 0 {
		o.DefaultPayoutPct = 70
	}
	if o.DaysCap <= 0 {
		o.DaysCap = 30
	}
	if o.SequentialWindow <= 0 {
		o.SequentialWindow = 5
	}
	if o.HistoryDepth <= 0 {
		o.HistoryDepth = 20
	}
	if o.RandomTopFraction <= 0 {
		o.RandomTopFraction = 0.2
	}
	if o.RandomMinPool <= 0 {
		o.RandomMinPool = 5
	}
	if o.Timezone == "" {
		o.Timezone = "America/Caracas"
	}

	s := &cfg.Scheduler
	if s.Cron == "" {
		s.Cron = "0 * * * * *" // cada minuto
	}
	if s.LeadMinutes <= 0 {
		s.LeadMinutes = 5
	}
	if s.Workers <= 0 {
		s.Workers = 4
	}
	if s.RatePerSec <= 0 {
		s.RatePerSec = 10
	}
	if s.EventTimeoutSeconds <= 0 {
		s.EventTimeoutSeconds = 30
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "drawbot.db"
	}
	if cfg.Lock.Prefix == "" {
		cfg.Lock.Prefix = "drawbot:"
	}
	if cfg.Lock.TTLSeconds <= 0 {
		cfg.Lock.TTLSeconds = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
