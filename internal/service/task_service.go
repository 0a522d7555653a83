package service

import (
	"context"

	"todoflow/internal/logging"
	"todoflow/internal/model"
	"todoflow/internal/realtime"
	"todoflow/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ListCache is the slice of the cache the task service needs.
type ListCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	InvalidateAll(ctx context.Context) error
}

// TaskService is the single source of truth for a user's visible tasks and
// all mutations on them. Reads go through a per-user cache with a
// fetch-in-flight guard; every successful mutation invalidates the cache
// once and publishes one change event.
type TaskService struct {
	tasks   repository.TaskRepositoryInterface
	shares  repository.TaskShareRepositoryInterface
	cache   ListCache
	hub     *realtime.Hub
	sfGroup singleflight.Group
}

func NewTaskService(
	tasks repository.TaskRepositoryInterface,
	shares repository.TaskShareRepositoryInterface,
	cache ListCache,
	hub *realtime.Hub,
) *TaskService {
	return &TaskService{
		tasks:  tasks,
		shares: shares,
		cache:  cache,
		hub:    hub,
	}
}

// List returns every task visible to the user (owned or shared with their
// email), newest first. Cache-aside: a hit skips the store entirely;
// concurrent misses for the same user collapse into a single refetch.
func (s *TaskService) List(ctx context.Context, userID uuid.UUID, email string) ([]model.Task, error) {
	key := userID.String()

	var cached []model.Task
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		// Degrade to the store on cache trouble
		logging.Logger.WithField("user_id", key).Warnf("task list cache read failed: %v", err)
	}
	if found {
		return cached, nil
	}

	val, err, _ := s.sfGroup.Do(key, func() (interface{}, error) {
		return s.tasks.GetVisibleToUser(ctx, userID, email)
	})
	if err != nil {
		return nil, err
	}
	tasks := val.([]model.Task)

	if err := s.cache.Set(ctx, key, tasks); err != nil {
		logging.Logger.WithField("user_id", key).Warnf("task list cache write failed: %v", err)
	}

	return tasks, nil
}

// Get returns one task with its shares.
func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// Stats tallies the user's visible tasks per status.
func (s *TaskService) Stats(ctx context.Context, userID uuid.UUID, email string) (StatusCounts, error) {
	tasks, err := s.List(ctx, userID, email)
	if err != nil {
		return StatusCounts{}, err
	}
	return CountByStatus(tasks), nil
}

// Create inserts a task owned by the user.
func (s *TaskService) Create(ctx context.Context, task *model.Task) error {
	if err := s.tasks.Create(ctx, task); err != nil {
		logging.Logger.WithField("user_id", task.UserID).Errorf("create task failed: %v", err)
		return err
	}

	s.afterMutation(ctx, realtime.Event{Table: realtime.TableTasks, Action: realtime.ActionInsert})
	return nil
}

// Update writes only the supplied columns to the task.
func (s *TaskService) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.tasks.UpdateFields(ctx, id, fields); err != nil {
		if err != repository.ErrTaskNotFound {
			logging.Logger.WithField("task_id", id).Errorf("update task failed: %v", err)
		}
		return err
	}

	s.afterMutation(ctx, realtime.Event{Table: realtime.TableTasks, Action: realtime.ActionUpdate})
	return nil
}

// Delete removes the task and its shares.
func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		if err != repository.ErrTaskNotFound {
			logging.Logger.WithField("task_id", id).Errorf("delete task failed: %v", err)
		}
		return err
	}

	s.afterMutation(ctx, realtime.Event{Table: realtime.TableTasks, Action: realtime.ActionDelete})
	return nil
}

// Share grants visibility of the task to an email, attributed to the
// sharing user. The email does not have to belong to a registered account.
func (s *TaskService) Share(ctx context.Context, taskID uuid.UUID, email string, sharedBy uuid.UUID) error {
	if err := s.shares.Create(ctx, taskID, email, sharedBy); err != nil {
		if err != repository.ErrShareExists {
			logging.Logger.WithField("task_id", taskID).Errorf("share task failed: %v", err)
		}
		return err
	}

	s.afterMutation(ctx, realtime.Event{Table: realtime.TableTaskShares, Action: realtime.ActionInsert})
	return nil
}

// Unshare revokes a grant.
func (s *TaskService) Unshare(ctx context.Context, taskID uuid.UUID, email string) error {
	if err := s.shares.Delete(ctx, taskID, email); err != nil {
		if err != repository.ErrShareNotFound {
			logging.Logger.WithField("task_id", taskID).Errorf("unshare task failed: %v", err)
		}
		return err
	}

	s.afterMutation(ctx, realtime.Event{Table: realtime.TableTaskShares, Action: realtime.ActionDelete})
	return nil
}

// Shares lists the grants on a task.
func (s *TaskService) Shares(ctx context.Context, taskID uuid.UUID) ([]model.TaskShare, error) {
	return s.shares.GetByTaskID(ctx, taskID)
}

// ReconcileShares makes the stored grants for a task match the desired email
// list: missing emails are granted, absent ones revoked. Duplicates in the
// desired list are collapsed. Reports whether anything changed.
func (s *TaskService) ReconcileShares(ctx context.Context, taskID uuid.UUID, desired []string, sharedBy uuid.UUID) (bool, error) {
	current, err := s.shares.GetByTaskID(ctx, taskID)
	if err != nil {
		return false, err
	}

	existing := make(map[string]bool, len(current))
	for _, share := range current {
		existing[share.SharedWithEmail] = true
	}

	wanted := make(map[string]bool, len(desired))
	for _, email := range desired {
		wanted[email] = true
	}

	changed := false
	granted := make(map[string]bool)
	for _, email := range desired {
		if existing[email] || granted[email] {
			continue
		}
		granted[email] = true
		if err := s.shares.Create(ctx, taskID, email, sharedBy); err != nil && err != repository.ErrShareExists {
			return changed, err
		}
		changed = true
	}
	for _, share := range current {
		if wanted[share.SharedWithEmail] {
			continue
		}
		if err := s.shares.Delete(ctx, taskID, share.SharedWithEmail); err != nil && err != repository.ErrShareNotFound {
			return changed, err
		}
		changed = true
	}

	if changed {
		s.afterMutation(ctx, realtime.Event{Table: realtime.TableTaskShares, Action: realtime.ActionUpdate})
	}
	return changed, nil
}

// afterMutation runs the shared success contract: one cache invalidation,
// one published change event. A failed invalidation is logged and tolerated;
// the TTL bounds staleness.
func (s *TaskService) afterMutation(ctx context.Context, event realtime.Event) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		logging.Logger.Warnf("task list cache invalidation failed: %v", err)
	}
	s.hub.Publish(event)
}
