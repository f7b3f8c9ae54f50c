package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("JWT_TTL_HOURS", "")
	t.Setenv("PORT", "")
	t.Setenv("OPEN_TIME", "")
	t.Setenv("CLOSE_TIME", "")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "10:00", cfg.OpenTime)
	assert.Equal(t, "23:00", cfg.CloseTime)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "restobook.db", cfg.DB.GetDSN())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "booker")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "bookings")
	t.Setenv("JWT_TTL_HOURS", "2")
	t.Setenv("RATE_LIMIT_RPS", "7.5")
	t.Setenv("OPEN_TIME", "12:00")
	t.Setenv("CLOSE_TIME", "22:30")
	t.Setenv("TIMEZONE", "Europe/Moscow")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, "host=db port=5432 user=booker password=pw dbname=bookings sslmode=disable", cfg.DB.GetDSN())
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 7.5, cfg.RateLimitRPS)
	assert.Equal(t, "Europe/Moscow", cfg.Location.String())
}

func TestLoadRejectsBadWindow(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("OPEN_TIME", "23:00")
	t.Setenv("CLOSE_TIME", "10:00")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("OPEN_TIME", "ten")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("OPEN_TIME", "10:00")
	t.Setenv("CLOSE_TIME", "23:00")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadNormalizesWindow(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("OPEN_TIME", "9:30")
	t.Setenv("CLOSE_TIME", "22:00")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "09:30", cfg.OpenTime)
	assert.Equal(t, "22:00", cfg.CloseTime)
}

func TestGetDSN(t *testing.T) {
	mysqlCfg := DBConfig{Driver: DriverMySQL, Host: "localhost", User: "root", Password: "pw", Name: "restobook"}
	assert.Equal(t, "root:pw@tcp(localhost:3306)/restobook?charset=utf8mb4&parseTime=True&loc=Local", mysqlCfg.GetDSN())

	explicit := DBConfig{Driver: DriverMySQL, DSN: "custom"}
	assert.Equal(t, "custom", explicit.GetDSN())

	_, err := DBConfig{Driver: "oracle"}.Dialector()
	assert.Error(t, err)
}

func TestInitDBSQLite(t *testing.T) {
	db, err := InitDB(&Config{DB: DBConfig{Driver: DriverSQLite, DSN: "file::memory:"}})
	require.NoError(t, err)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}
