package repository

import (
	"context"
	"errors"

	"todoflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskShareRepository struct {
	db *gorm.DB
}

type TaskShareRepositoryInterface interface {
	Create(ctx context.Context, taskID uuid.UUID, email string, sharedBy uuid.UUID) error
	Delete(ctx context.Context, taskID uuid.UUID, email string) error
	GetByTaskID(ctx context.Context, taskID uuid.UUID) ([]model.TaskShare, error)
}

var _ TaskShareRepositoryInterface = (*TaskShareRepository)(nil)

func NewTaskShareRepository(db *gorm.DB) *TaskShareRepository {
	return &TaskShareRepository{db: db}
}

// Create grants visibility of a task to an email, attributing the grant to
// the sharing user. The duplicate check runs inside a transaction so that
// concurrent grants of the same (task, email) pair cannot both succeed.
func (r *TaskShareRepository) Create(ctx context.Context, taskID uuid.UUID, email string, sharedBy uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.TaskShare
		err := tx.Where("task_id = ? AND shared_with_email = ?", taskID, email).First(&existing).Error
		if err == nil {
			return ErrShareExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		share := model.TaskShare{
			TaskID:          taskID,
			SharedWithEmail: email,
			SharedByUserID:  sharedBy,
		}
		return tx.Create(&share).Error
	})
}

// Delete revokes a grant
func (r *TaskShareRepository) Delete(ctx context.Context, taskID uuid.UUID, email string) error {
	result := r.db.WithContext(ctx).
		Where("task_id = ? AND shared_with_email = ?", taskID, email).
		Delete(&model.TaskShare{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrShareNotFound
	}
	return nil
}

// GetByTaskID returns all grants for a task in grant order
func (r *TaskShareRepository) GetByTaskID(ctx context.Context, taskID uuid.UUID) ([]model.TaskShare, error) {
	var shares []model.TaskShare
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at").
		Find(&shares).Error
	return shares, err
}
