package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type index struct {
	table   string
	name    string
	columns string
}

// compositeIndexes back the list filters. Single-column indexes come from model tags.
var compositeIndexes = []index{
	{"tasks", "idx_tasks_team_status", "team_id, status"},
	{"tasks", "idx_tasks_team_deadline", "team_id, deadline"},
	{"meetings", "idx_meetings_team_scheduled_at", "team_id, scheduled_at"},
	{"evaluations", "idx_evaluations_user_task", "user_id, task_id"},
	{"users", "idx_users_team_role", "team_id, role"},
}

// AddIndexes creates the composite indexes on PostgreSQL, skipping existing ones.
func AddIndexes(db *gorm.DB, log *zap.SugaredLogger) error {
	for _, idx := range compositeIndexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Scan(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			log.Debugw("index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Infow("created index", "index", idx.name, "table", idx.table, "columns", idx.columns)
	}

	return nil
}

// MigrateDatabase runs the raw-SQL migrations that AutoMigrate does not cover.
func MigrateDatabase(db *gorm.DB, log *zap.SugaredLogger) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	if err := AddIndexes(db, log); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
