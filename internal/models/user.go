package models

import (
	"time"
)

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	FirstName    string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	Role         Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	TeamID       *uint64   `gorm:"index" json:"team_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) HasTeam() bool {
	return u.TeamID != nil
}

// InTeam reports whether the user is currently a member of teamID.
func (u *User) InTeam(teamID uint64) bool {
	return u.TeamID != nil && *u.TeamID == teamID
}
