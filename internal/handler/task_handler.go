package handler

import (
	"net/http"
	"time"

	"todoflow/internal/middleware"
	"todoflow/internal/model"
	"todoflow/internal/repository"
	"todoflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskHandler struct {
	svc      *service.TaskService
	userRepo repository.UserRepositoryInterface
}

func NewTaskHandler(svc *service.TaskService, userRepo repository.UserRepositoryInterface) *TaskHandler {
	return &TaskHandler{
		svc:      svc,
		userRepo: userRepo,
	}
}

// CreateTaskRequest carries a new task's fields. Omitted status and
// priority take their defaults.
type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status" binding:"omitempty,oneof=todo in-progress completed"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     string `json:"due_date"`
}

// UpdateTaskRequest carries a partial update; only supplied fields are
// written. An empty due_date string clears the due date. SharedWith, when
// present, is reconciled against the stored grants.
type UpdateTaskRequest struct {
	Title       *string   `json:"title" binding:"omitempty,min=1"`
	Description *string   `json:"description"`
	Status      *string   `json:"status" binding:"omitempty,oneof=todo in-progress completed"`
	Priority    *string   `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     *string   `json:"due_date"`
	SharedWith  *[]string `json:"shared_with" binding:"omitempty,dive,email"`
}

// TaskResponse is the wire shape of a task
type TaskResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"due_date"`
	SharedWith  []string `json:"shared_with"`
	CreatedAt   string   `json:"created_at"`
	Overdue     bool     `json:"overdue"`
}

func toTaskResponse(task *model.Task, now time.Time) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		SharedWith:  task.SharedEmails(),
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		Overdue:     task.Overdue(now),
	}
	if task.DueDate != nil {
		resp.DueDate = task.DueDate.Format(model.DueDateFormat)
	}
	return resp
}

// currentUser resolves the authenticated user from the request context.
// Returns nil after writing the error response when the identity is missing.
func currentUser(c *gin.Context, userRepo repository.UserRepositoryInterface) *model.User {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil
	}

	authenticatedUserID, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return nil
	}

	user, err := userRepo.GetByID(c.Request.Context(), authenticatedUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user information"})
		return nil
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User no longer exists"})
		return nil
	}
	return user
}

// canEdit reports whether the user may modify the task: the owner always,
// plus anyone the task is shared with.
func canEdit(task *model.Task, user *model.User) bool {
	if task.UserID == user.ID {
		return true
	}
	for _, share := range task.Shares {
		if share.SharedWithEmail == user.Email {
			return true
		}
	}
	return false
}

// List returns the caller's visible tasks with the dashboard predicates
// applied server-side: status, priority, free-text search, and view, all
// ANDed.
func (h *TaskHandler) List(c *gin.Context) {
	user := currentUser(c, h.userRepo)
	if user == nil {
		return
	}

	filter := service.Filter{
		Status:   c.DefaultQuery("status", service.FilterAll),
		Priority: c.DefaultQuery("priority", service.FilterAll),
		Search:   c.Query("q"),
		View:     c.DefaultQuery("view", service.ViewAll),
	}

	tasks, err := h.svc.List(c.Request.Context(), user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	now := time.Now()
	filtered := service.ApplyFilter(tasks, filter, now)

	responses := make([]TaskResponse, 0, len(filtered))
	for i := range filtered {
		responses = append(responses, toTaskResponse(&filtered[i], now))
	}

	c.JSON(http.StatusOK, gin.H{"tasks": responses})
}

// Stats returns per-status totals over the caller's visible tasks
func (h *TaskHandler) Stats(c *gin.Context) {
	user := currentUser(c, h.userRepo)
	if user == nil {
		return
	}

	counts, err := h.svc.Stats(c.Request.Context(), user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	c.JSON(http.StatusOK, counts)
}

// GetByID returns one task the caller can see
func (h *TaskHandler) GetByID(c *gin.Context) {
	user := currentUser(c, h.userRepo)
	if user == nil {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	task, err := h.svc.Get(c.Request.Context(), taskID)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		}
		return
	}

	if !canEdit(task, user) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to view this task"})
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task, time.Now()))
}

// Create inserts a new task owned by the caller
func (h *TaskHandler) Create(c *gin.Context) {
	user := currentUser(c, h.userRepo)
	if user == nil {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	status, err := model.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dueDate, err := model.ParseDueDate(req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task := &model.Task{
		ID:          uuid.New(),
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     dueDate,
	}

	if err := h.svc.Create(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"task":    toTaskResponse(task, time.Now()),
	})
}

// Update writes the supplied fields of a task and, when a shared_with list
// is present, reconciles the task's grants against it
func (h *TaskHandler) Update(c *gin.Context) {
	user := currentUser(c, h.userRepo)
	if user == nil {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	task, err := h.svc.Get(c.Request.Context(), taskID)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		}
		return
	}

	if !canEdit(task, user) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to edit this task"})
		return
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if req.Priority != nil {
		fields["priority"] = *req.Priority
	}
	if req.DueDate != nil {
		dueDate, err := model.ParseDueDate(*req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fields["due_date"] = dueDate
	}

	if err := h.svc.Update(c.Request.Context(), taskID, fields); err != nil {
		if err == repository.ErrTaskNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		}
		return
	}

	if req.SharedWith != nil {
		// Only the owner changes who a task is shared with
		if task.UserID != user.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the task owner can change sharing"})
			return
		}
		if _, err := h.svc.ReconcileShares(c.Request.Context(), taskID, *req.SharedWith, user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task sharing"})
			return
		}
	}

	updated, err := h.svc.Get(c.Request.Context(), taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task updated successfully",
		"task":    toTaskResponse(updated, time.Now()),
	})
}

// Delete removes a task. Owner only.
func (h *TaskHandler) Delete(c *gin.Context) {
	user := currentUser(c, h.userRepo)
	if user == nil {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	task, err := h.svc.Get(c.Request.Context(), taskID)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		}
		return
	}

	if task.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the task owner can delete it"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), taskID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
