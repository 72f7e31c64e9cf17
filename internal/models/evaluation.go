package models

import "time"

type Evaluation struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Grade     int       `gorm:"not null" json:"grade"`
	Comment   string    `gorm:"type:text" json:"comment"`
	ManagerID uint64    `gorm:"not null;index" json:"manager_id"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	TaskID    uint64    `gorm:"not null;index" json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
