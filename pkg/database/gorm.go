package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dhwanilabs/dhwani_backend/config"
)

// NewGormDB creates a gorm client from central config.
func NewGormDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return NewGormFromConfig(FromCentralConfig(cfg))
}

// NewGormFromConfig creates a gorm client on top of the package's pooled
// *sql.DB so connection limits from Config apply.
func NewGormFromConfig(cfg Config) (*gorm.DB, error) {
	sqlDB, err := openSQLDB(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := gormlogger.Silent
	if cfg.EnableLogging {
		logLevel = gormlogger.Warn
	}

	slowThreshold := time.Duration(cfg.SlowQueryThresholdMs) * time.Millisecond
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.New(slogPrinter{}, gormlogger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	return db, nil
}

// slogPrinter routes gorm's logger output through slog.
type slogPrinter struct{}

func (slogPrinter) Printf(format string, args ...any) {
	slog.Warn(fmt.Sprintf(format, args...))
}
