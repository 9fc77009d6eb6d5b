package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string `validate:"oneof=development production test"`
	Port      int    `validate:"min=1,max=65535"`
	APIPrefix string `validate:"required,startswith=/"`

	Sheets   SheetsConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Exports  ExportsConfig
}

// SheetsConfig identifies the spreadsheet and the credential sources used to read it.
type SheetsConfig struct {
	SpreadsheetID      string   `validate:"required"`
	WorksheetNames     []string `validate:"min=1,dive,required"`
	CredentialsJSON    string
	ServiceAccountFile string
	FetchTimeout       time.Duration `validate:"gt=0"`
}

// CacheConfig tunes the in-process table cache and the optional Redis snapshot.
type CacheConfig struct {
	TTL             time.Duration `validate:"gt=0"`
	SnapshotEnabled bool
	SnapshotKey     string
	SnapshotTTL     time.Duration
}

type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig guards the mutating cache endpoints. An empty secret leaves them open.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// ExportsConfig configures stored exports and their signed download links.
type ExportsConfig struct {
	StorageDir      string `validate:"required"`
	SignedURLSecret string
	SignedURLTTL    time.Duration
	ResultTTL       time.Duration
	CleanupInterval time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Sheets = SheetsConfig{
		SpreadsheetID:      v.GetString("SPREADSHEET_ID"),
		WorksheetNames:     splitAndTrim(v.GetString("WORKSHEET_NAMES")),
		CredentialsJSON:    v.GetString("GOOGLE_CREDENTIALS"),
		ServiceAccountFile: v.GetString("SERVICE_ACCOUNT_FILE"),
		FetchTimeout:       parseDuration(v.GetString("SHEETS_FETCH_TIMEOUT"), 30*time.Second),
	}

	cfg.Cache = CacheConfig{
		TTL:             parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
		SnapshotEnabled: v.GetBool("REDIS_ENABLED"),
		SnapshotKey:     v.GetString("CACHE_SNAPSHOT_KEY"),
		SnapshotTTL:     parseDuration(v.GetString("CACHE_SNAPSHOT_TTL"), 7*24*time.Hour),
	}

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("DATABASE_ENABLED"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
		ResultTTL:       parseDuration(v.GetString("EXPORTS_RESULT_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the struct tags on cfg and reports every failing field at once.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("SPREADSHEET_ID", "14XMNROBL6PT_GYq43AVJb9e_IowOZp_ZP_IpCwmQCgs")
	v.SetDefault("WORKSHEET_NAMES", "Foundation Data,CUET UG Data")
	v.SetDefault("GOOGLE_CREDENTIALS", "")
	v.SetDefault("SERVICE_ACCOUNT_FILE", "service-account.json")
	v.SetDefault("SHEETS_FETCH_TIMEOUT", "30s")

	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("CACHE_SNAPSHOT_KEY", "enrollment:table:snapshot")
	v.SetDefault("CACHE_SNAPSHOT_TTL", "168h")

	v.SetDefault("DATABASE_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "enrollment_dashboard")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("EXPORTS_RESULT_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		// Bare integers are seconds, matching CACHE_TTL=300 style settings.
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil || secs <= 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
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
