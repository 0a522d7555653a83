package handler

import (
	"net/http"
	"strings"
	"time"

	"todoflow/internal/model"
	"todoflow/internal/repository"
	"todoflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TaskShareHandler struct {
	svc      *service.TaskService
	userRepo repository.UserRepositoryInterface
}

func NewTaskShareHandler(svc *service.TaskService, userRepo repository.UserRepositoryInterface) *TaskShareHandler {
	return &TaskShareHandler{
		svc:      svc,
		userRepo: userRepo,
	}
}

// ShareTaskRequest names the email a task is shared with. The email does
// not have to belong to a registered account.
type ShareTaskRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ShareResponse is the wire shape of one grant
type ShareResponse struct {
	Email     string `json:"email"`
	SharedBy  string `json:"shared_by"`
	CreatedAt string `json:"created_at"`
}

// loadOwnedTask fetches the task and verifies the caller owns it. Returns
// nil after writing the error response otherwise.
func (h *TaskShareHandler) loadOwnedTask(c *gin.Context, user *model.User) *model.Task {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return nil
	}

	task, err := h.svc.Get(c.Request.Context(), taskID)
	if err != nil {
		if err == repository.ErrTaskNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		}
		return nil
	}

	if task.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the task owner can manage sharing"})
		return nil
	}
	return task
}

// Share grants visibility of a task to an email address
func (h *TaskShareHandler) Share(c *gin.Context) {
	user := currentUser(c, h.userRepo)
	if user == nil {
		return
	}

	task := h.loadOwnedTask(c, user)
	if task == nil {
		return
	}

	var req ShareTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Email = strings.ToLower(req.Email)

	if req.Email == user.Email {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot share a task with yourself"})
		return
	}

	if err := h.svc.Share(c.Request.Context(), task.ID, req.Email, user.ID); err != nil {
		if err == repository.ErrShareExists {
			c.JSON(http.StatusConflict, gin.H{"error": "Task is already shared with this email"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to share task"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task shared successfully",
		"share": ShareResponse{
			Email:    req.Email,
			SharedBy: user.ID.String(),
		},
	})
}

// Unshare revokes a grant
func (h *TaskShareHandler) Unshare(c *gin.Context) {
	user := currentUser(c, h.userRepo)
	if user == nil {
		return
	}

	task := h.loadOwnedTask(c, user)
	if task == nil {
		return
	}

	email := strings.ToLower(c.Param("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	if err := h.svc.Unshare(c.Request.Context(), task.ID, email); err != nil {
		if err == repository.ErrShareNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task is not shared with this email"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unshare task"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task share removed successfully"})
}

// ListShares returns the grants on a task
func (h *TaskShareHandler) ListShares(c *gin.Context) {
	user := currentUser(c, h.userRepo)
	if user == nil {
		return
	}

	task := h.loadOwnedTask(c, user)
	if task == nil {
		return
	}

	shares, err := h.svc.Shares(c.Request.Context(), task.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve shares"})
		return
	}

	responses := make([]ShareResponse, 0, len(shares))
	for _, share := range shares {
		responses = append(responses, ShareResponse{
			Email:     share.SharedWithEmail,
			SharedBy:  share.SharedByUserID.String(),
			CreatedAt: share.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"shares": responses})
}
