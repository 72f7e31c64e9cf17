package models

import "time"

type Meeting struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	ScheduledAt time.Time `gorm:"not null;index" json:"scheduled_at"`
	TeamID      uint64    `gorm:"not null;index" json:"team_id"`
	OrganizerID uint64    `gorm:"not null;index" json:"organizer_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Participants []MeetingParticipant `gorm:"foreignKey:MeetingID" json:"participants,omitempty"`
}

// MeetingParticipant is the join row between a meeting and a user.
type MeetingParticipant struct {
	MeetingID uint64    `gorm:"primaryKey" json:"meeting_id"`
	UserID    uint64    `gorm:"primaryKey;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// ParticipantIDs returns the ids of the loaded participants.
func (m *Meeting) ParticipantIDs() []uint64 {
	ids := make([]uint64, 0, len(m.Participants))
	for _, p := range m.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}
