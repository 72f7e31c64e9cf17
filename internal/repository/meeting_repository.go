package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yukikurage/teamwork-api/internal/database"
	"github.com/yukikurage/teamwork-api/internal/models"
)

// GormMeetingRepository is a GORM implementation of MeetingRepository
type GormMeetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new MeetingRepository
func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &GormMeetingRepository{db: db}
}

func (r *GormMeetingRepository) Create(ctx context.Context, meeting *models.Meeting, participantIDs []uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(meeting).Error; err != nil {
			return err
		}
		return insertParticipants(tx, meeting.ID, participantIDs)
	})
}

func (r *GormMeetingRepository) FindByID(ctx context.Context, id uint64) (*models.Meeting, error) {
	var meeting models.Meeting
	if err := r.db.WithContext(ctx).Preload("Participants.User").First(&meeting, id).Error; err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (r *GormMeetingRepository) List(ctx context.Context, filter MeetingFilter) ([]models.Meeting, int64, error) {
	var meetings []models.Meeting

	query := r.db.WithContext(ctx).Model(&models.Meeting{})

	if filter.TeamID != nil {
		query = query.Where("meetings.team_id = ?", *filter.TeamID)
	}
	if filter.ParticipantID != nil {
		participation := r.db.Model(&models.MeetingParticipant{}).
			Select("1").
			Where("meeting_participants.meeting_id = meetings.id").
			Where("meeting_participants.user_id = ?", *filter.ParticipantID)
		query = query.Where("EXISTS (?)", participation)
	}
	if filter.From != nil {
		query = query.Where("meetings.scheduled_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("meetings.scheduled_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("meetings.scheduled_at ASC, meetings.id ASC")
	if filter.Pagination.Limit > 0 {
		listQuery = listQuery.Scopes(database.Paginate(filter.Pagination))
	}

	if err := listQuery.Preload("Participants").Find(&meetings).Error; err != nil {
		return nil, 0, err
	}

	return meetings, total, nil
}

func (r *GormMeetingRepository) Update(ctx context.Context, meeting *models.Meeting) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(meeting).Error
}

func (r *GormMeetingRepository) ReplaceParticipants(ctx context.Context, meetingID uint64, userIDs []uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meeting_id = ?", meetingID).Delete(&models.MeetingParticipant{}).Error; err != nil {
			return err
		}
		return insertParticipants(tx, meetingID, userIDs)
	})
}

func (r *GormMeetingRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meeting_id = ?", id).Delete(&models.MeetingParticipant{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Meeting{}, id).Error
	})
}

func insertParticipants(tx *gorm.DB, meetingID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}

	rows := make([]models.MeetingParticipant, len(userIDs))
	for i, userID := range userIDs {
		rows[i] = models.MeetingParticipant{
			MeetingID: meetingID,
			UserID:    userID,
		}
	}

	return tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}
