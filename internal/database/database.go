package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yukikurage/teamwork-api/internal/config"
	"github.com/yukikurage/teamwork-api/internal/logger"
	"github.com/yukikurage/teamwork-api/internal/models"
)

// Dialector picks the gorm driver for the configured database.
func Dialector(cfg config.DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		return mysql.Open(cfg.DSN()), nil
	case config.DriverPostgres:
		return postgres.Open(cfg.DSN()), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Connect opens the database. Unique-constraint violations surface as
// gorm.ErrDuplicatedKey.
func Connect(cfg *config.Config, log *zap.SugaredLogger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.DB)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Gorm(log, cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Infow("database connection established", "driver", cfg.DB.Driver)
	return db, nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.Team{},
		&models.User{},
		&models.Task{},
		&models.Meeting{},
		&models.MeetingParticipant{},
		&models.Evaluation{},
	}
}

func Migrate(db *gorm.DB, log *zap.SugaredLogger) error {
	log.Info("running database migrations")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := MigrateDatabase(db, log); err != nil {
		return err
	}
	log.Info("database migrations completed")
	return nil
}
