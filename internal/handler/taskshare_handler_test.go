package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todoflow/internal/handler"
	"todoflow/internal/middleware"
	"todoflow/internal/model"
	"todoflow/internal/realtime"
	"todoflow/internal/repository"
	"todoflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type shareTestEnv struct {
	router    *gin.Engine
	taskRepo  *MockTaskRepository
	shareRepo *MockTaskShareRepository
	user      *model.User
}

func setupShareTest() *shareTestEnv {
	gin.SetMode(gin.TestMode)
	r := gin.Default()

	taskRepo := new(MockTaskRepository)
	shareRepo := new(MockTaskShareRepository)
	userRepo := new(MockUserRepository)

	svc := service.NewTaskService(taskRepo, shareRepo, noopCache{}, realtime.NewHub())
	shareHandler := handler.NewTaskShareHandler(svc, userRepo)

	user := &model.User{
		ID:    uuid.New(),
		Email: "owner@example.com",
		Name:  "Owner",
	}
	userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil).Maybe()

	authed := r.Group("/", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, user.ID)
	})
	authed.POST("/tasks/:id/share", shareHandler.Share)
	authed.DELETE("/tasks/:id/share/:email", shareHandler.Unshare)
	authed.GET("/tasks/:id/shares", shareHandler.ListShares)

	return &shareTestEnv{
		router:    r,
		taskRepo:  taskRepo,
		shareRepo: shareRepo,
		user:      user,
	}
}

func ownedTask(env *shareTestEnv) *model.Task {
	return &model.Task{
		ID:     uuid.New(),
		UserID: env.user.ID,
		Title:  "My task",
		Status: model.StatusTodo,
	}
}

func TestShareTask_Success(t *testing.T) {
	// Arrange
	env := setupShareTest()
	task := ownedTask(env)

	env.taskRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)
	env.shareRepo.On("Create", mock.Anything, task.ID, "friend@example.com", env.user.ID).Return(nil)

	body, _ := json.Marshal(handler.ShareTaskRequest{Email: "friend@example.com"})
	req, _ := http.NewRequest("POST", "/tasks/"+task.ID.String()+"/share", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	// Act
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)

	var response struct {
		Message string                `json:"message"`
		Share   handler.ShareResponse `json:"share"`
	}
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Task shared successfully", response.Message)
	assert.Equal(t, "friend@example.com", response.Share.Email)

	env.shareRepo.AssertExpectations(t)
}

func TestShareTask_EmailLowercased(t *testing.T) {
	// Arrange
	env := setupShareTest()
	task := ownedTask(env)

	env.taskRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)
	env.shareRepo.On("Create", mock.Anything, task.ID, "friend@example.com", env.user.ID).Return(nil)

	body, _ := json.Marshal(handler.ShareTaskRequest{Email: "Friend@Example.COM"})
	req, _ := http.NewRequest("POST", "/tasks/"+task.ID.String()+"/share", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	// Act
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)
	env.shareRepo.AssertExpectations(t)
}

func TestShareTask_WithSelf(t *testing.T) {
	// Arrange
	env := setupShareTest()
	task := ownedTask(env)

	env.taskRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)

	body, _ := json.Marshal(handler.ShareTaskRequest{Email: env.user.Email})
	req, _ := http.NewRequest("POST", "/tasks/"+task.ID.String()+"/share", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	// Act
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var response map[string]string
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Cannot share a task with yourself", response["error"])

	env.shareRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestShareTask_AlreadyShared(t *testing.T) {
	// Arrange
	env := setupShareTest()
	task := ownedTask(env)

	env.taskRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)
	env.shareRepo.On("Create", mock.Anything, task.ID, "friend@example.com", env.user.ID).
		Return(repository.ErrShareExists)

	body, _ := json.Marshal(handler.ShareTaskRequest{Email: "friend@example.com"})
	req, _ := http.NewRequest("POST", "/tasks/"+task.ID.String()+"/share", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	// Act
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	// Assert
	assert.Equal(t, http.StatusConflict, resp.Code)

	var response map[string]string
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Task is already shared with this email", response["error"])
}

func TestShareTask_NotOwner(t *testing.T) {
	// Arrange
	env := setupShareTest()
	task := &model.Task{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Title:  "Someone else's task",
		Status: model.StatusTodo,
	}

	env.taskRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)

	body, _ := json.Marshal(handler.ShareTaskRequest{Email: "friend@example.com"})
	req, _ := http.NewRequest("POST", "/tasks/"+task.ID.String()+"/share", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	// Act
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	// Assert
	assert.Equal(t, http.StatusForbidden, resp.Code)

	var response map[string]string
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Only the task owner can manage sharing", response["error"])

	env.shareRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUnshareTask_Success(t *testing.T) {
	// Arrange
	env := setupShareTest()
	task := ownedTask(env)

	env.taskRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)
	env.shareRepo.On("Delete", mock.Anything, task.ID, "friend@example.com").Return(nil)

	req, _ := http.NewRequest("DELETE", "/tasks/"+task.ID.String()+"/share/friend@example.com", nil)

	// Act
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)

	var response map[string]string
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Task share removed successfully", response["message"])

	env.shareRepo.AssertExpectations(t)
}

func TestUnshareTask_NotShared(t *testing.T) {
	// Arrange
	env := setupShareTest()
	task := ownedTask(env)

	env.taskRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)
	env.shareRepo.On("Delete", mock.Anything, task.ID, "stranger@example.com").
		Return(repository.ErrShareNotFound)

	req, _ := http.NewRequest("DELETE", "/tasks/"+task.ID.String()+"/share/stranger@example.com", nil)

	// Act
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	// Assert
	assert.Equal(t, http.StatusNotFound, resp.Code)

	var response map[string]string
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Task is not shared with this email", response["error"])
}

func TestListShares(t *testing.T) {
	// Arrange
	env := setupShareTest()
	task := ownedTask(env)

	shares := []model.TaskShare{
		{
			ID:              uuid.New(),
			TaskID:          task.ID,
			SharedWithEmail: "first@example.com",
			SharedByUserID:  env.user.ID,
			CreatedAt:       time.Now(),
		},
		{
			ID:              uuid.New(),
			TaskID:          task.ID,
			SharedWithEmail: "second@example.com",
			SharedByUserID:  env.user.ID,
			CreatedAt:       time.Now(),
		},
	}

	env.taskRepo.On("GetByID", mock.Anything, task.ID).Return(task, nil)
	env.shareRepo.On("GetByTaskID", mock.Anything, task.ID).Return(shares, nil)

	req, _ := http.NewRequest("GET", "/tasks/"+task.ID.String()+"/shares", nil)

	// Act
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)

	// Assert
	assert.Equal(t, http.StatusOK, resp.Code)

	var response struct {
		Shares []handler.ShareResponse `json:"shares"`
	}
	err := json.Unmarshal(resp.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response.Shares, 2)
	assert.Equal(t, "first@example.com", response.Shares[0].Email)
	assert.Equal(t, env.user.ID.String(), response.Shares[0].SharedBy)
}
