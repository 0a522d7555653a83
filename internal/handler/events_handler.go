package handler

import (
	"io"
	"time"

	"todoflow/internal/realtime"
	"todoflow/internal/repository"

	"github.com/gin-gonic/gin"
)

type EventsHandler struct {
	hub      *realtime.Hub
	userRepo repository.UserRepositoryInterface
}

func NewEventsHandler(hub *realtime.Hub, userRepo repository.UserRepositoryInterface) *EventsHandler {
	return &EventsHandler{
		hub:      hub,
		userRepo: userRepo,
	}
}

// heartbeatInterval keeps idle streams alive through proxies.
const heartbeatInterval = 30 * time.Second

// Stream opens a server-sent event stream of task and share change events.
// The subscription is acquired when the stream starts and released when the
// client disconnects, including on error paths. Events carry only the table
// and action; consumers refetch on receipt.
func (h *EventsHandler) Stream(c *gin.Context) {
	user := currentUser(c, h.userRepo)
	if user == nil {
		return
	}

	sub := h.hub.Subscribe()
	defer sub.Close()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent("change", event)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
