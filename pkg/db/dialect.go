package db

import (
	"fmt"

	"coinvest-platform/pkg/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect builds the gorm dialector from config. Postgres is the default;
// mysql and sqlite are supported for local and test setups.
func Dialect(cfg *config.Config) gorm.Dialector {
	d := cfg.Database

	switch d.Type {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User, d.Password, d.Host, d.Port, d.DBNAME)
		return mysql.Open(dsn)
	case "sqlite":
		return sqlite.Open(d.DBNAME)
	default:
		sslmode := d.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		timezone := d.Timezone
		if timezone == "" {
			timezone = "UTC"
		}
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			d.Host, d.Port, d.User, d.Password, d.DBNAME, sslmode, timezone)
		return postgres.Open(dsn)
	}
}
