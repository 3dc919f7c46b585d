package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"localhire/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App         AppConfig           `yaml:"app"`
	Database    DatabaseConfig      `yaml:"database"`
	Redis       RedisConfig         `yaml:"redis"`
	Backup      BackupConfig        `yaml:"backup"`
	Monitoring  MonitoringConfig    `yaml:"monitoring"`
	Logging     LoggingConfig       `yaml:"logging"`
	API         APIConfig           `yaml:"api"`
	Booking     BookingConfig       `yaml:"booking"`
	Media       MediaConfig         `yaml:"media"`
	Mail        MailConfig          `yaml:"mail"`
	Telegram    TelegramConfig      `yaml:"telegram"`
	Contractors []models.Contractor `yaml:"contractors"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Driver         string         `yaml:"driver"`
	Path           string         `yaml:"path"`
	Postgres       PostgresConfig `yaml:"postgres"`
	MaxConnections int            `yaml:"max_connections"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Port        int                `yaml:"port"`
	CORSOrigins []string           `yaml:"cors_origins"`
	Auth        APIAuthConfig      `yaml:"auth"`
	RateLimit   APIRateLimitConfig `yaml:"rate_limit"`
	MaxUploadMB int64              `yaml:"max_upload_mb"`
}

type APIAuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BookingConfig struct {
	Timezone          string        `yaml:"timezone"`
	Days              int           `yaml:"days"`
	OpenHour          int           `yaml:"open_hour"`
	CloseHour         int           `yaml:"close_hour"`
	StepMinutes       int           `yaml:"step_minutes"`
	RateLimitBookings int           `yaml:"rate_limit_bookings"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
}

// Location resolves Timezone, falling back to UTC.
func (b BookingConfig) Location() *time.Location {
	if b.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type MediaConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PublicURL string `yaml:"public_url"`
	Folder    string `yaml:"folder"`
	// LocalPath is used when no bucket is configured; files are served under /uploads.
	LocalPath string `yaml:"local_path"`
}

type MailConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	From          string `yaml:"from"`
	AdminAddress  string `yaml:"admin_address"`
	SignupAddress string `yaml:"signup_address"`
}

func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

type TelegramConfig struct {
	BotToken     string  `yaml:"bot_token"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" || c.Database.Postgres.DBName == "" {
			return errors.New("postgres host and dbname are required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.API.Auth.JWTSecret == "" {
		return errors.New("api jwt secret is required")
	}

	b := c.Booking
	if b.OpenHour < 0 || b.CloseHour > 24 || b.OpenHour >= b.CloseHour {
		return fmt.Errorf("invalid booking hours %d-%d", b.OpenHour, b.CloseHour)
	}
	if b.Timezone != "" {
		if _, err := time.LoadLocation(b.Timezone); err != nil {
			return fmt.Errorf("invalid booking timezone: %w", err)
		}
	}

	return ValidateContractors(c.Contractors)
}

func ValidateContractors(contractors []models.Contractor) error {
	ids := make(map[string]bool)
	emails := make(map[string]bool)
	for _, c := range contractors {
		if c.ID == "" {
			return fmt.Errorf("contractor '%s' has empty id", c.Name)
		}
		if ids[c.ID] {
			return fmt.Errorf("duplicate contractor id found: %s", c.ID)
		}
		ids[c.ID] = true

		email := strings.ToLower(c.Email)
		if email == "" {
			return fmt.Errorf("contractor '%s' has empty email", c.ID)
		}
		if emails[email] {
			return fmt.Errorf("duplicate contractor email found: %s", c.Email)
		}
		emails[email] = true

		if c.Fees < 0 {
			return fmt.Errorf("contractor '%s' has negative fees", c.ID)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "localhire"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.MaxUploadMB == 0 {
		c.API.MaxUploadMB = 10
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.Interval == 0 {
		c.Backup.Interval = 24 * time.Hour
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}

	// Booking window defaults
	if c.Booking.Days == 0 {
		c.Booking.Days = models.DefaultBookingDays
	}
	if c.Booking.OpenHour == 0 && c.Booking.CloseHour == 0 {
		c.Booking.OpenHour = models.DefaultOpenHour
		c.Booking.CloseHour = models.DefaultCloseHour
	}
	if c.Booking.StepMinutes == 0 {
		c.Booking.StepMinutes = int(models.DefaultSlotStep / time.Minute)
	}
	if c.Booking.RateLimitBookings == 0 {
		c.Booking.RateLimitBookings = models.DefaultBookingRateLimit
	}
	if c.Booking.RateLimitWindow == 0 {
		c.Booking.RateLimitWindow = models.DefaultBookingRateWindow
	}

	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Media.Folder == "" {
		c.Media.Folder = "localhire"
	}
	if c.Media.Bucket == "" && c.Media.LocalPath == "" {
		c.Media.LocalPath = "data/uploads"
	}
	if c.Media.Bucket == "" && c.Media.PublicURL == "" {
		c.Media.PublicURL = fmt.Sprintf("http://localhost:%d/uploads", c.API.Port)
	}
}
