package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"todoflow/internal/model"
	"todoflow/internal/realtime"
	"todoflow/internal/repository"
	"todoflow/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Task repository mock
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, id)
	task := args.Get(0)
	if task == nil {
		return nil, args.Error(1)
	}
	return task.(*model.Task), args.Error(1)
}

func (m *MockTaskRepository) GetVisibleToUser(ctx context.Context, userID uuid.UUID, email string) ([]model.Task, error) {
	args := m.Called(ctx, userID, email)
	tasks := args.Get(0)
	if tasks == nil {
		return nil, args.Error(1)
	}
	return tasks.([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Task share repository mock
type MockTaskShareRepository struct {
	mock.Mock
}

func (m *MockTaskShareRepository) Create(ctx context.Context, taskID uuid.UUID, email string, sharedBy uuid.UUID) error {
	args := m.Called(ctx, taskID, email, sharedBy)
	return args.Error(0)
}

func (m *MockTaskShareRepository) Delete(ctx context.Context, taskID uuid.UUID, email string) error {
	args := m.Called(ctx, taskID, email)
	return args.Error(0)
}

func (m *MockTaskShareRepository) GetByTaskID(ctx context.Context, taskID uuid.UUID) ([]model.TaskShare, error) {
	args := m.Called(ctx, taskID)
	shares := args.Get(0)
	if shares == nil {
		return nil, args.Error(1)
	}
	return shares.([]model.TaskShare), args.Error(1)
}

// fakeCache is an in-memory ListCache recording invalidations.
type fakeCache struct {
	entries       map[string][]byte
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	data, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = data
	return nil
}

func (f *fakeCache) InvalidateAll(_ context.Context) error {
	f.entries = make(map[string][]byte)
	f.invalidations++
	return nil
}

func setupService() (*service.TaskService, *MockTaskRepository, *MockTaskShareRepository, *fakeCache, *realtime.Hub) {
	taskRepo := new(MockTaskRepository)
	shareRepo := new(MockTaskShareRepository)
	cache := newFakeCache()
	hub := realtime.NewHub()
	svc := service.NewTaskService(taskRepo, shareRepo, cache, hub)
	return svc, taskRepo, shareRepo, cache, hub
}

func TestTaskService_List_CacheMissThenHit(t *testing.T) {
	// Arrange
	svc, taskRepo, _, _, _ := setupService()

	userID := uuid.New()
	email := "me@example.com"
	stored := []model.Task{{ID: uuid.New(), UserID: userID, Title: "Ship report", Status: model.StatusTodo, Priority: model.PriorityHigh}}

	// The store is hit exactly once; the second List is served from cache
	taskRepo.On("GetVisibleToUser", mock.Anything, userID, email).Return(stored, nil).Once()

	// Act
	first, err1 := svc.List(context.Background(), userID, email)
	second, err2 := svc.List(context.Background(), userID, email)

	// Assert
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Len(t, first, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	taskRepo.AssertExpectations(t)
}

func TestTaskService_List_StoreError(t *testing.T) {
	// Arrange
	svc, taskRepo, _, _, _ := setupService()

	userID := uuid.New()
	taskRepo.On("GetVisibleToUser", mock.Anything, userID, "me@example.com").
		Return(nil, errors.New("connection refused"))

	// Act
	tasks, err := svc.List(context.Background(), userID, "me@example.com")

	// Assert
	assert.Error(t, err)
	assert.Nil(t, tasks)
	taskRepo.AssertExpectations(t)
}

func TestTaskService_Create_InvalidatesOnceAndPublishes(t *testing.T) {
	// Arrange
	svc, taskRepo, _, cache, hub := setupService()
	sub := hub.Subscribe()
	defer sub.Close()

	task := &model.Task{UserID: uuid.New(), Title: "Ship report", Status: model.StatusTodo, Priority: model.PriorityHigh}
	taskRepo.On("Create", mock.Anything, task).Return(nil)

	// Act
	err := svc.Create(context.Background(), task)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 1, cache.invalidations)
	event := <-sub.C
	assert.Equal(t, realtime.TableTasks, event.Table)
	assert.Equal(t, realtime.ActionInsert, event.Action)
	taskRepo.AssertExpectations(t)
}

func TestTaskService_Create_FailureSkipsInvalidation(t *testing.T) {
	// Arrange
	svc, taskRepo, _, cache, _ := setupService()

	task := &model.Task{UserID: uuid.New(), Title: "Ship report"}
	taskRepo.On("Create", mock.Anything, task).Return(errors.New("constraint violation"))

	// Act
	err := svc.Create(context.Background(), task)

	// Assert
	assert.Error(t, err)
	assert.Equal(t, 0, cache.invalidations)
	taskRepo.AssertExpectations(t)
}

func TestTaskService_Update_InvalidatesCachedList(t *testing.T) {
	// Arrange
	svc, taskRepo, _, cache, _ := setupService()

	userID := uuid.New()
	email := "me@example.com"
	taskID := uuid.New()
	stored := []model.Task{{ID: taskID, UserID: userID, Title: "Ship report", Status: model.StatusTodo, Priority: model.PriorityHigh}}

	taskRepo.On("GetVisibleToUser", mock.Anything, userID, email).Return(stored, nil).Once()
	taskRepo.On("UpdateFields", mock.Anything, taskID, map[string]interface{}{"status": model.StatusCompleted}).Return(nil)

	// Prime the cache, then mutate
	_, err := svc.List(context.Background(), userID, email)
	assert.NoError(t, err)

	// Act
	err = svc.Update(context.Background(), taskID, map[string]interface{}{"status": model.StatusCompleted})

	// Assert: the next List refetches from the store
	assert.NoError(t, err)
	assert.Equal(t, 1, cache.invalidations)

	updated := []model.Task{{ID: taskID, UserID: userID, Title: "Ship report", Status: model.StatusCompleted, Priority: model.PriorityHigh}}
	taskRepo.On("GetVisibleToUser", mock.Anything, userID, email).Return(updated, nil).Once()
	tasks, err := svc.List(context.Background(), userID, email)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, tasks[0].Status)
	taskRepo.AssertExpectations(t)
}

func TestTaskService_Update_NoFieldsIsNoOp(t *testing.T) {
	// Arrange
	svc, taskRepo, _, cache, _ := setupService()

	// Act
	err := svc.Update(context.Background(), uuid.New(), map[string]interface{}{})

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 0, cache.invalidations)
	taskRepo.AssertNotCalled(t, "UpdateFields")
}

func TestTaskService_Share_DuplicateSurfaces(t *testing.T) {
	// Arrange
	svc, _, shareRepo, cache, _ := setupService()

	taskID := uuid.New()
	sharedBy := uuid.New()
	shareRepo.On("Create", mock.Anything, taskID, "john@example.com", sharedBy).
		Return(repository.ErrShareExists)

	// Act
	err := svc.Share(context.Background(), taskID, "john@example.com", sharedBy)

	// Assert
	assert.ErrorIs(t, err, repository.ErrShareExists)
	assert.Equal(t, 0, cache.invalidations)
	shareRepo.AssertExpectations(t)
}

func TestTaskService_ReconcileShares(t *testing.T) {
	// Arrange
	svc, _, shareRepo, cache, _ := setupService()

	taskID := uuid.New()
	sharedBy := uuid.New()
	current := []model.TaskShare{
		{TaskID: taskID, SharedWithEmail: "keep@example.com"},
		{TaskID: taskID, SharedWithEmail: "drop@example.com"},
	}

	shareRepo.On("GetByTaskID", mock.Anything, taskID).Return(current, nil)
	shareRepo.On("Create", mock.Anything, taskID, "new@example.com", sharedBy).Return(nil).Once()
	shareRepo.On("Delete", mock.Anything, taskID, "drop@example.com").Return(nil).Once()

	// Act: the desired list repeats an email; it is granted only once
	changed, err := svc.ReconcileShares(context.Background(), taskID,
		[]string{"keep@example.com", "new@example.com", "new@example.com"}, sharedBy)

	// Assert
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, cache.invalidations)
	shareRepo.AssertExpectations(t)
}

func TestTaskService_ReconcileShares_NoChanges(t *testing.T) {
	// Arrange
	svc, _, shareRepo, cache, _ := setupService()

	taskID := uuid.New()
	current := []model.TaskShare{{TaskID: taskID, SharedWithEmail: "keep@example.com"}}
	shareRepo.On("GetByTaskID", mock.Anything, taskID).Return(current, nil)

	// Act
	changed, err := svc.ReconcileShares(context.Background(), taskID, []string{"keep@example.com"}, uuid.New())

	// Assert
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, cache.invalidations)
	shareRepo.AssertNotCalled(t, "Create")
	shareRepo.AssertNotCalled(t, "Delete")
}
