package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yeremiapane/restobook/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Config struct {
	Port       string
	GinMode    string
	LogLevel   string
	CORSOrigin string
	UploadDir  string

	DB DBConfig

	JWTSecret string
	JWTTTL    time.Duration

	// Booking window, inclusive, HH:MM in Location.
	OpenTime  string
	CloseTime string
	Location  *time.Location

	RateLimitRPS   float64
	RateLimitBurst int

	AdminEmail    string
	AdminPassword string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Debug("No .env file loaded, using process environment")
	}

	cfg := &Config{
		Port:       getEnvOrDefault("PORT", "8080"),
		GinMode:    os.Getenv("GIN_MODE"),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
		CORSOrigin: getEnvOrDefault("CORS_ORIGIN", "*"),
		UploadDir:  getEnvOrDefault("UPLOAD_DIR", "public/uploads"),
		DB: DBConfig{
			Driver:   strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverSQLite)),
			DSN:      os.Getenv("DB_DSN"),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvAsIntOrDefault("DB_PORT", 0),
			User:     getEnvOrDefault("DB_USER", "restobook"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnvOrDefault("DB_NAME", "restobook"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTTTL:         time.Duration(getEnvAsIntOrDefault("JWT_TTL_HOURS", 24)) * time.Hour,
		OpenTime:       getEnvOrDefault("OPEN_TIME", "10:00"),
		CloseTime:      getEnvOrDefault("CLOSE_TIME", "23:00"),
		RateLimitRPS:   getEnvAsFloatOrDefault("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getEnvAsIntOrDefault("RATE_LIMIT_BURST", 100),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
	}

	loc, err := time.LoadLocation(getEnvOrDefault("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	for _, v := range []*string{&cfg.OpenTime, &cfg.CloseTime} {
		t, err := time.Parse("15:04", *v)
		if err != nil {
			return nil, fmt.Errorf("invalid booking window time %q: %w", *v, err)
		}
		*v = t.Format("15:04")
	}
	if cfg.OpenTime > cfg.CloseTime {
		return nil, fmt.Errorf("OPEN_TIME %s is after CLOSE_TIME %s", cfg.OpenTime, cfg.CloseTime)
	}

	return cfg, nil
}

// GetDSN returns DB_DSN when set, otherwise builds one for the driver.
func (c DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case DriverMySQL:
		port := c.Port
		if port == 0 {
			port = 3306
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, port, c.Name)
	case DriverPostgres:
		port := c.Port
		if port == 0 {
			port = 5432
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, port, c.User, c.Password, c.Name, c.SSLMode)
	default:
		return c.Name + ".db"
	}
}

func (c DBConfig) Dialector() (gorm.Dialector, error) {
	dsn := c.GetDSN()
	switch c.Driver {
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
}

// InitDB opens the configured database with constraint errors translated
// into gorm sentinel errors.
func InitDB(cfg *Config) (*gorm.DB, error) {
	dialector, err := cfg.DB.Dialector()
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if cfg.LogLevel == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DB.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DB.Driver == DriverSQLite {
		// SQLite allows one writer; a single connection serialises transactions.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	utils.InfoLogger.Printf("Connected to %s database", cfg.DB.Driver)
	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		utils.ErrorLogger.Printf("Environment variable %s=%q is not an integer, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		utils.ErrorLogger.Printf("Environment variable %s=%q is not a number, using %g", key, value, defaultValue)
	}
	return defaultValue
}
