package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Supported key-value store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store     StoreConfig
	Database  DatabaseConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Dormitory DormitoryConfig
	Dashboard DashboardConfig
	Realtime  RealtimeConfig
	Reconcile ReconcileConfig
}

// StoreConfig selects the key-value store backing every collection.
type StoreConfig struct {
	Driver        string
	ChangeChannel string
	PollInterval  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// SQLiteConfig points the sqlite driver at a local database file.
type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig configures bearer token verification. Tokens are issued
// elsewhere; this service only checks them.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DormitoryConfig describes the physical layout and the gender partition.
type DormitoryConfig struct {
	Buildings       []string
	Floors          int
	RoomsPerFloor   int
	DefaultCapacity int
	MaleBuildings   []string
	FemaleBuildings []string
}

// DashboardConfig governs dashboard exposure and cache tuning.
type DashboardConfig struct {
	Enabled        bool
	CacheTTL       time.Duration
	CacheNamespace string
}

// RealtimeConfig toggles the websocket change feed.
type RealtimeConfig struct {
	Enabled bool
}

// ReconcileConfig tunes the background reconciliation worker.
type ReconcileConfig struct {
	Retries    int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{
		Driver:        strings.ToLower(v.GetString("STORE_DRIVER")),
		ChangeChannel: v.GetString("KV_CHANGE_CHANNEL"),
		PollInterval:  parseDuration(v.GetString("KV_POLL_INTERVAL"), 2*time.Second),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.SQLite = SQLiteConfig{Path: v.GetString("SQLITE_PATH")}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dormitory = DormitoryConfig{
		Buildings:       splitAndTrim(v.GetString("DORM_BUILDINGS")),
		Floors:          v.GetInt("DORM_FLOORS"),
		RoomsPerFloor:   v.GetInt("DORM_ROOMS_PER_FLOOR"),
		DefaultCapacity: v.GetInt("DORM_DEFAULT_CAPACITY"),
		MaleBuildings:   splitAndTrim(v.GetString("DORM_MALE_BUILDINGS")),
		FemaleBuildings: splitAndTrim(v.GetString("DORM_FEMALE_BUILDINGS")),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:        v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL:       parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), time.Minute),
		CacheNamespace: v.GetString("DASHBOARD_CACHE_NAMESPACE"),
	}

	cfg.Realtime = RealtimeConfig{Enabled: v.GetBool("ENABLE_REALTIME")}

	cfg.Reconcile = ReconcileConfig{
		Retries:    v.GetInt("RECONCILE_RETRIES"),
		RetryDelay: parseDuration(v.GetString("RECONCILE_RETRY_DELAY"), time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMemory, StorePostgres, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	d := c.Dormitory
	if len(d.Buildings) == 0 {
		return errors.New("DORM_BUILDINGS must list at least one building")
	}
	if d.Floors <= 0 || d.RoomsPerFloor <= 0 || d.RoomsPerFloor > 99 || d.DefaultCapacity <= 0 {
		return errors.New("dormitory layout must have positive floors, 1-99 rooms per floor and a positive capacity")
	}
	known := make(map[string]struct{}, len(d.Buildings))
	for _, b := range d.Buildings {
		known[b] = struct{}{}
	}
	for _, b := range append(append([]string{}, d.MaleBuildings...), d.FemaleBuildings...) {
		if _, ok := known[b]; !ok {
			return fmt.Errorf("eligible building %q is not in DORM_BUILDINGS", b)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("KV_CHANGE_CHANNEL", "asrama:kv:changed")
	v.SetDefault("KV_POLL_INTERVAL", "2s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "asrama")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("SQLITE_PATH", "./data/asrama.db")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DORM_BUILDINGS", "B1,B2,B3,B4,B5")
	v.SetDefault("DORM_FLOORS", 5)
	v.SetDefault("DORM_ROOMS_PER_FLOOR", 20)
	v.SetDefault("DORM_DEFAULT_CAPACITY", 4)
	v.SetDefault("DORM_MALE_BUILDINGS", "B2,B3")
	v.SetDefault("DORM_FEMALE_BUILDINGS", "B1,B4,B5")

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "1m")
	v.SetDefault("DASHBOARD_CACHE_NAMESPACE", "asrama:cache:")
	v.SetDefault("ENABLE_REALTIME", true)
	v.SetDefault("RECONCILE_RETRIES", 3)
	v.SetDefault("RECONCILE_RETRY_DELAY", "1s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
