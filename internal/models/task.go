package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// taskTransitions is the single-step workflow. Done has no successor.
var taskTransitions = map[TaskStatus]TaskStatus{
	TaskStatusOpen:       TaskStatusInProgress,
	TaskStatusInProgress: TaskStatusDone,
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Next returns the only status s may move to, if any.
func (s TaskStatus) Next() (TaskStatus, bool) {
	next, ok := taskTransitions[s]
	return next, ok
}

// CanTransitionTo reports whether to is the direct successor of s.
func (s TaskStatus) CanTransitionTo(to TaskStatus) bool {
	next, ok := s.Next()
	return ok && next == to
}

type Task struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	Title       string     `gorm:"type:varchar(200);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	Deadline    *time.Time `json:"deadline"`
	TeamID      uint64     `gorm:"not null;index" json:"team_id"`
	PerformerID *uint64    `gorm:"index" json:"performer_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Performer *User `gorm:"foreignKey:PerformerID" json:"performer,omitempty"`
}

// IsPerformer reports whether userID is assigned to the task.
func (t *Task) IsPerformer(userID uint64) bool {
	return t.PerformerID != nil && *t.PerformerID == userID
}
