package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/yukikurage/teamwork-api/internal/database"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

// GormEvaluationRepository is a GORM implementation of EvaluationRepository
type GormEvaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository creates a new EvaluationRepository
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &GormEvaluationRepository{db: db}
}

func (r *GormEvaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *GormEvaluationRepository) FindByID(ctx context.Context, id uint64) (*models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.WithContext(ctx).First(&evaluation, id).Error; err != nil {
		return nil, err
	}
	return &evaluation, nil
}

func (r *GormEvaluationRepository) List(ctx context.Context, pagination utils.PaginationParams) ([]models.Evaluation, int64, error) {
	var evaluations []models.Evaluation

	query := r.db.WithContext(ctx).Model(&models.Evaluation{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("created_at DESC, id DESC")
	if pagination.Limit > 0 {
		listQuery = listQuery.Scopes(database.Paginate(pagination))
	}

	if err := listQuery.Find(&evaluations).Error; err != nil {
		return nil, 0, err
	}
	return evaluations, total, nil
}

func (r *GormEvaluationRepository) ListByTask(ctx context.Context, taskID uint64) ([]models.Evaluation, error) {
	var evaluations []models.Evaluation
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("id ASC").Find(&evaluations).Error; err != nil {
		return nil, err
	}
	return evaluations, nil
}

func (r *GormEvaluationRepository) Update(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Save(evaluation).Error
}

func (r *GormEvaluationRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Evaluation{}, id).Error
}

func (r *GormEvaluationRepository) AverageByUser(ctx context.Context, userID uint64) (*float64, error) {
	query := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Select("AVG(evaluations.grade)").
		Where("evaluations.user_id = ?", userID)
	return scanAverage(query)
}

func (r *GormEvaluationRepository) AverageByTeam(ctx context.Context, teamID uint64) (*float64, error) {
	query := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Select("AVG(evaluations.grade)").
		Joins("JOIN users ON users.id = evaluations.user_id").
		Where("users.team_id = ?", teamID)
	return scanAverage(query)
}

// scanAverage maps SQL NULL (no rows averaged) to nil.
func scanAverage(query *gorm.DB) (*float64, error) {
	var avg sql.NullFloat64
	if err := query.Row().Scan(&avg); err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}
