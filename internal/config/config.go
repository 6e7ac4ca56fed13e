package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/replenish/internal/domain"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	App          AppConfig
	Cache        CacheConfig
	Storage      StorageConfig
	Intelligence IntelligenceConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	LogLevel       string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AppConfig struct {
	// SnapshotSource is one of postgres, dir or bucket
	SnapshotSource string
	SnapshotDir    string
	DataDir        string
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	DashboardTTLSeconds int
	RunLockTTLSeconds   int
}

type StorageConfig struct {
	Enabled        bool
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
	SnapshotPrefix string
	ExportPrefix   string
}

// IntelligenceConfig holds the default settings of calculation runs
type IntelligenceConfig struct {
	CriticalDays              float64
	WarningDays               float64
	PlannedDays               float64
	DefaultSafetyStockDays    float64
	TargetDaysOfCover         float64
	IncludeInTransit          bool
	HistoryWindowDays         int
	MinObservationsMedium     int
	MinObservationsHigh       int
	RecentActivityDays        int
	IncludeMonitorSuggestions bool
	NotifyOnCritical          bool
	NotifyOnWarning           bool
	Workers                   int
}

// Settings builds the per-run settings value from configuration
func (c IntelligenceConfig) Settings() domain.IntelligenceSettings {
	return domain.IntelligenceSettings{
		Thresholds: domain.UrgencyThresholds{
			CriticalDays: c.CriticalDays,
			WarningDays:  c.WarningDays,
			PlannedDays:  c.PlannedDays,
		},
		DefaultSafetyStockDays:         c.DefaultSafetyStockDays,
		TargetDaysOfCover:              c.TargetDaysOfCover,
		IncludeInTransitInCalculations: c.IncludeInTransit,
		HistoryWindowDays:              c.HistoryWindowDays,
		MinObservationsMedium:          c.MinObservationsMedium,
		MinObservationsHigh:            c.MinObservationsHigh,
		RecentActivityDays:             c.RecentActivityDays,
		IncludeMonitorSuggestions:      c.IncludeMonitorSuggestions,
		Notifications: domain.NotificationSettings{
			NotifyOnCritical: c.NotifyOnCritical,
			NotifyOnWarning:  c.NotifyOnWarning,
		},
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
	defaults := domain.DefaultSettings()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "replenish")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("APP_SNAPSHOT_SOURCE", "postgres")
	viper.SetDefault("APP_SNAPSHOT_DIR", "./data/snapshot")
	viper.SetDefault("APP_DATA_DIR", "./data/output")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_DASHBOARD_TTL_SECONDS", 60)
	viper.SetDefault("CACHE_RUN_LOCK_TTL_SECONDS", 300)
	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
	viper.SetDefault("STORAGE_ACCESS_KEY", "")
	viper.SetDefault("STORAGE_SECRET_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "replenishment")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", false)
	viper.SetDefault("STORAGE_SNAPSHOT_PREFIX", "snapshots/latest/")
	viper.SetDefault("STORAGE_EXPORT_PREFIX", "exports/")
	viper.SetDefault("INTEL_CRITICAL_DAYS", defaults.Thresholds.CriticalDays)
	viper.SetDefault("INTEL_WARNING_DAYS", defaults.Thresholds.WarningDays)
	viper.SetDefault("INTEL_PLANNED_DAYS", defaults.Thresholds.PlannedDays)
	viper.SetDefault("INTEL_DEFAULT_SAFETY_STOCK_DAYS", defaults.DefaultSafetyStockDays)
	viper.SetDefault("INTEL_TARGET_DAYS_OF_COVER", defaults.TargetDaysOfCover)
	viper.SetDefault("INTEL_INCLUDE_IN_TRANSIT", defaults.IncludeInTransitInCalculations)
	viper.SetDefault("INTEL_HISTORY_WINDOW_DAYS", defaults.HistoryWindowDays)
	viper.SetDefault("INTEL_MIN_OBSERVATIONS_MEDIUM", defaults.MinObservationsMedium)
	viper.SetDefault("INTEL_MIN_OBSERVATIONS_HIGH", defaults.MinObservationsHigh)
	viper.SetDefault("INTEL_RECENT_ACTIVITY_DAYS", defaults.RecentActivityDays)
	viper.SetDefault("INTEL_INCLUDE_MONITOR", defaults.IncludeMonitorSuggestions)
	viper.SetDefault("INTEL_NOTIFY_ON_CRITICAL", defaults.Notifications.NotifyOnCritical)
	viper.SetDefault("INTEL_NOTIFY_ON_WARNING", defaults.Notifications.NotifyOnWarning)
	viper.SetDefault("INTEL_WORKERS", 0)
}

func build() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			URL:      viper.GetString("DATABASE_URL"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			SnapshotSource: viper.GetString("APP_SNAPSHOT_SOURCE"),
			SnapshotDir:    viper.GetString("APP_SNAPSHOT_DIR"),
			DataDir:        viper.GetString("APP_DATA_DIR"),
		},
		Cache: CacheConfig{
			Enabled:             viper.GetBool("CACHE_ENABLED"),
			RedisURL:            viper.GetString("REDIS_URL"),
			RedisHost:           viper.GetString("REDIS_HOST"),
			RedisPort:           viper.GetString("REDIS_PORT"),
			RedisPassword:       viper.GetString("REDIS_PASSWORD"),
			RedisDB:             viper.GetInt("REDIS_DB"),
			DashboardTTLSeconds: viper.GetInt("CACHE_DASHBOARD_TTL_SECONDS"),
			RunLockTTLSeconds:   viper.GetInt("CACHE_RUN_LOCK_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:        viper.GetBool("STORAGE_ENABLED"),
			Endpoint:       viper.GetString("STORAGE_ENDPOINT"),
			AccessKey:      viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:      viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:         viper.GetString("STORAGE_BUCKET"),
			Region:         viper.GetString("STORAGE_REGION"),
			UseSSL:         viper.GetBool("STORAGE_USE_SSL"),
			SnapshotPrefix: viper.GetString("STORAGE_SNAPSHOT_PREFIX"),
			ExportPrefix:   viper.GetString("STORAGE_EXPORT_PREFIX"),
		},
		Intelligence: IntelligenceConfig{
			CriticalDays:              viper.GetFloat64("INTEL_CRITICAL_DAYS"),
			WarningDays:               viper.GetFloat64("INTEL_WARNING_DAYS"),
			PlannedDays:               viper.GetFloat64("INTEL_PLANNED_DAYS"),
			DefaultSafetyStockDays:    viper.GetFloat64("INTEL_DEFAULT_SAFETY_STOCK_DAYS"),
			TargetDaysOfCover:         viper.GetFloat64("INTEL_TARGET_DAYS_OF_COVER"),
			IncludeInTransit:          viper.GetBool("INTEL_INCLUDE_IN_TRANSIT"),
			HistoryWindowDays:         viper.GetInt("INTEL_HISTORY_WINDOW_DAYS"),
			MinObservationsMedium:     viper.GetInt("INTEL_MIN_OBSERVATIONS_MEDIUM"),
			MinObservationsHigh:       viper.GetInt("INTEL_MIN_OBSERVATIONS_HIGH"),
			RecentActivityDays:        viper.GetInt("INTEL_RECENT_ACTIVITY_DAYS"),
			IncludeMonitorSuggestions: viper.GetBool("INTEL_INCLUDE_MONITOR"),
			NotifyOnCritical:          viper.GetBool("INTEL_NOTIFY_ON_CRITICAL"),
			NotifyOnWarning:           viper.GetBool("INTEL_NOTIFY_ON_WARNING"),
			Workers:                   viper.GetInt("INTEL_WORKERS"),
		},
	}
}

// DSN returns the connection string for lib/pq and pgx
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return "host=" + c.Host + " port=" + c.Port + " user=" + c.User + " password=" + c.Password +
		" dbname=" + c.DBName + " sslmode=" + c.SSLMode
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
