package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yukikurage/teamwork-api/internal/database"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

// GormTeamRepository is a GORM implementation of TeamRepository
type GormTeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &GormTeamRepository{db: db}
}

func (r *GormTeamRepository) Create(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(team).Error
}

func (r *GormTeamRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Team, error) {
	var team models.Team
	query := r.db.WithContext(ctx)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *GormTeamRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *GormTeamRepository) FindByCode(ctx context.Context, code string) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&team).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *GormTeamRepository) NameTaken(ctx context.Context, name string, excludeID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Team{}).
		Where("name = ? AND id <> ?", name, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormTeamRepository) Update(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(team).Error
}

func (r *GormTeamRepository) List(ctx context.Context, pagination utils.PaginationParams) ([]models.Team, int64, error) {
	var teams []models.Team

	query := r.db.WithContext(ctx).Model(&models.Team{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("id ASC")
	if pagination.Limit > 0 {
		listQuery = listQuery.Scopes(database.Paginate(pagination))
	}

	if err := listQuery.Find(&teams).Error; err != nil {
		return nil, 0, err
	}
	return teams, total, nil
}

// Delete deletes a team and all related data in a transaction. Members are
// kept as users without a team; managers among them drop back to user.
func (r *GormTeamRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		teamTasks := tx.Model(&models.Task{}).Select("id").Where("team_id = ?", id)
		if err := tx.Where("task_id IN (?)", teamTasks).Delete(&models.Evaluation{}).Error; err != nil {
			return err
		}

		if err := tx.Where("team_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		teamMeetings := tx.Model(&models.Meeting{}).Select("id").Where("team_id = ?", id)
		if err := tx.Where("meeting_id IN (?)", teamMeetings).Delete(&models.MeetingParticipant{}).Error; err != nil {
			return err
		}

		if err := tx.Where("team_id = ?", id).Delete(&models.Meeting{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).
			Where("team_id = ? AND role = ?", id, models.RoleManager).
			Update("role", models.RoleUser).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).Where("team_id = ?", id).Update("team_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Team{}, id).Error
	})
}
