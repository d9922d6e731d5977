package db

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/platemarket/config"
	dbmysql "github.com/kasuganosora/platemarket/db/mysql"
	dbsqlite "github.com/kasuganosora/platemarket/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeMemory = "memory"
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
	ModeNone   = "none"
)

// ErrDisabled is returned by Open when the ledger database is switched off.
var ErrDisabled = errors.New("db: disabled")

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeMemory, "":
		return dbsqlite.OpenMemory("ledger")
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, dbmysql.Pool{MaxOpen: cfg.MySQLMaxOpen, MaxIdle: cfg.MySQLMaxIdle, MaxLife: cfg.MySQLMaxLife})
	case ModeNone:
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
