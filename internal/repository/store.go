package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories over one database handle. Inside
// Transaction every repository shares the same transaction.
type Store struct {
	db *gorm.DB

	Users       UserRepository
	Teams       TeamRepository
	Tasks       TaskRepository
	Meetings    MeetingRepository
	Evaluations EvaluationRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Users:       NewUserRepository(db),
		Teams:       NewTeamRepository(db),
		Tasks:       NewTaskRepository(db),
		Meetings:    NewMeetingRepository(db),
		Evaluations: NewEvaluationRepository(db),
	}
}

// Transaction runs fn in a database transaction. Calling it on a store that
// is already transactional opens a savepoint.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
