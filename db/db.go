package db

import (
	"fmt"
	"os"
	"path/filepath"

	"eamhc/config"
	"eamhc/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"go.uber.org/zap"
)

// Connect opens the database (sqlite3 by default) and runs the automigrate
// when the config or AUTOMIGRATE=1 asks for it.
func Connect(conf config.Configuration, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		db  *gorm.DB
		err error
	)

	switch conf.Database {
	case "postgres", "postgresql":
		logger.Info("connecting to postgres", zap.String("host", conf.DbHost), zap.String("db", conf.DbName))
		path := "host=" + conf.DbHost + " port=" + conf.DbPort
		path += " user=" + conf.DbUser + " dbname=" + conf.DbName
		path += " password=" + conf.DbPass
		db, err = gorm.Open("postgres", path)
	default:
		dbPath := conf.DbPath
		if dbPath == "" {
			dbPath = "db/database.db"
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		logger.Info("connecting to sqlite3", zap.String("path", dbPath))
		db, err = gorm.Open("sqlite3", dbPath)
		if err == nil {
			// single writer: the recorder and the handlers share this handle
			db.DB().SetMaxOpenConns(1)
		}
	}
	if err != nil {
		logger.Error("database connection failed", zap.Error(err))
		return nil, err
	}

	db.SetLogger(gorm.Logger{LogWriter: zap.NewStdLog(logger.Named("gorm"))})
	db.LogMode(logger.Core().Enabled(zap.DebugLevel))

	if conf.AutoMigrate || os.Getenv("AUTOMIGRATE") == "1" {
		if err := Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// Migrate creates or updates the tables the service writes to.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Prediction{}).Error; err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
