package repository

import (
	"context"
	"errors"

	"todoflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskRepository struct {
	db *gorm.DB
}

type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	GetVisibleToUser(ctx context.Context, userID uuid.UUID, email string) ([]model.Task, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

var _ TaskRepositoryInterface = (*TaskRepository)(nil)

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID retrieves a task by its ID with its shares preloaded
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).Preload("Shares").First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// GetVisibleToUser retrieves all tasks the user can see: tasks they own plus
// tasks shared with their email, newest first, with shares preloaded.
func (r *TaskRepository) GetVisibleToUser(ctx context.Context, userID uuid.UUID, email string) ([]model.Task, error) {
	var tasks []model.Task
	result := r.db.WithContext(ctx).
		Preload("Shares").
		Distinct("tasks.*").
		Joins("LEFT JOIN task_shares ON task_shares.task_id = tasks.id").
		Where("tasks.user_id = ? OR task_shares.shared_with_email = ?", userID, email).
		Order("tasks.created_at DESC").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// UpdateFields writes only the supplied columns to the matching task
func (r *TaskRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task and its shares by task ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.TaskShare{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Task{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		return nil
	})
}
