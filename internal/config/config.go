// internal/config/config.go
package config

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/andresuchdata/restock/internal/replenishment"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Database   DatabaseConfig
	App        AppConfig
	Cache      CacheConfig
	Storage    StorageConfig
	Drive      DriveConfig
	Thresholds ThresholdConfig
	Report     ReportConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level string
	File  string
}

type DatabaseConfig struct {
	Enabled  bool
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AppConfig struct {
	DataDir string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Enabled reports whether object storage credentials were provided.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

type DriveConfig struct {
	CredentialsJSON string
}

// FlowThresholds are the day cut-offs of one flow.
type FlowThresholds struct {
	CriticalDays float64
	WarningDays  float64
	RiskDays     float64
}

type ThresholdConfig struct {
	Supplier         FlowThresholds
	CDToStore        FlowThresholds
	Transfer         FlowThresholds
	ScenarioCritical float64
	ScenarioWarning  float64
}

// ClassifierConfig converts the configured cut-offs into classifier settings.
// Flows without their own entry fall back to the CD-to-store values.
func (t ThresholdConfig) ClassifierConfig() replenishment.ClassifierConfig {
	conv := func(f FlowThresholds) replenishment.Thresholds {
		return replenishment.Thresholds{
			CriticalBelow:  f.CriticalDays,
			WarningBelow:   f.WarningDays,
			RiskCutoffDays: f.RiskDays,
		}
	}
	cd := conv(t.CDToStore)
	return replenishment.ClassifierConfig{
		PerFlow: map[replenishment.FlowKind]replenishment.Thresholds{
			replenishment.FlowSupplier:  conv(t.Supplier),
			replenishment.FlowCDToStore: cd,
			replenishment.FlowTransfer:  conv(t.Transfer),
		},
		Fallback: cd,
	}
}

// ScenarioThresholds returns the cut-offs of the manual calculator.
func (t ThresholdConfig) ScenarioThresholds() replenishment.Thresholds {
	return replenishment.Thresholds{CriticalBelow: t.ScenarioCritical, WarningBelow: t.ScenarioWarning}
}

type ReportConfig struct {
	TopN        int
	MaxSessions int
}

// ReportOptions returns the report options derived from the configuration.
func (c *Config) ReportOptions() replenishment.ReportOptions {
	return replenishment.ReportOptions{
		Classifier: c.Thresholds.ClassifierConfig(),
		TopN:       c.Report.TopN,
	}
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = build()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("DB_ENABLED", false)
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "restock")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("APP_DATA_DIR", "./data")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_REPORT_TTL_SECONDS", 300)
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("S3_USE_SSL", true)

	for _, flow := range []string{"SUPPLIER", "CD_TO_STORE", "TRANSFER"} {
		viper.SetDefault("THRESHOLD_"+flow+"_CRITICAL_DAYS", 7)
		viper.SetDefault("THRESHOLD_"+flow+"_WARNING_DAYS", 15)
		viper.SetDefault("THRESHOLD_"+flow+"_RISK_DAYS", 3)
	}
	viper.SetDefault("THRESHOLD_CD_TO_STORE_RISK_DAYS", 7)
	viper.SetDefault("SCENARIO_CRITICAL_DAYS", 7)
	viper.SetDefault("SCENARIO_WARNING_DAYS", 15)
	viper.SetDefault("REPORT_TOP_N", replenishment.DefaultTopN)
	viper.SetDefault("REPORT_MAX_SESSIONS", 32)
}

func build() *Config {
	flow := func(name string) FlowThresholds {
		return FlowThresholds{
			CriticalDays: viper.GetFloat64("THRESHOLD_" + name + "_CRITICAL_DAYS"),
			WarningDays:  viper.GetFloat64("THRESHOLD_" + name + "_WARNING_DAYS"),
			RiskDays:     viper.GetFloat64("THRESHOLD_" + name + "_RISK_DAYS"),
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
			File:  viper.GetString("LOG_FILE"),
		},
		Database: DatabaseConfig{
			Enabled:  viper.GetBool("DB_ENABLED"),
			Driver:   strings.ToLower(viper.GetString("DB_DRIVER")),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			DataDir: viper.GetString("APP_DATA_DIR"),
		},
		Cache: CacheConfig{
			Enabled:          viper.GetBool("CACHE_ENABLED"),
			RedisURL:         viper.GetString("REDIS_URL"),
			RedisHost:        viper.GetString("REDIS_HOST"),
			RedisPort:        viper.GetString("REDIS_PORT"),
			RedisPassword:    viper.GetString("REDIS_PASSWORD"),
			RedisDB:          viper.GetInt("REDIS_DB"),
			ReportTTLSeconds: viper.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Endpoint:  viper.GetString("S3_ENDPOINT"),
			AccessKey: viper.GetString("S3_ACCESS_KEY"),
			SecretKey: viper.GetString("S3_SECRET_KEY"),
			Bucket:    viper.GetString("S3_BUCKET"),
			Region:    viper.GetString("S3_REGION"),
			UseSSL:    viper.GetBool("S3_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
		},
		Thresholds: ThresholdConfig{
			Supplier:         flow("SUPPLIER"),
			CDToStore:        flow("CD_TO_STORE"),
			Transfer:         flow("TRANSFER"),
			ScenarioCritical: viper.GetFloat64("SCENARIO_CRITICAL_DAYS"),
			ScenarioWarning:  viper.GetFloat64("SCENARIO_WARNING_DAYS"),
		},
		Report: ReportConfig{
			TopN:        viper.GetInt("REPORT_TOP_N"),
			MaxSessions: viper.GetInt("REPORT_MAX_SESSIONS"),
		},
	}
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
