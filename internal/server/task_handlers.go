package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/tasks"
)

type createTaskRequestPayload struct {
	Content  string  `json:"content"`
	Priority int     `json:"priority"`
	DueDate  *string `json:"dueDate"`
	NoteID   *string `json:"noteId"`
}

type updateTaskRequestPayload struct {
	Content      *string `json:"content"`
	IsCompleted  *bool   `json:"isCompleted"`
	Priority     *int    `json:"priority"`
	DueDate      *string `json:"dueDate"`
	ClearDueDate bool    `json:"clearDueDate"`
}

func parseDueDate(raw string) (*time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		utc := parsed.UTC()
		return &utc, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperror.ValidationFailed("dueDate", "dueDate must be RFC 3339 or YYYY-MM-DD")
	}
	utc := parsed.UTC()
	return &utc, nil
}

func (h *httpHandler) handleListTasks(c *gin.Context) {
	rows, err := h.tasks.List(c.Request.Context(), h.currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": toTaskPayloads(rows)})
}

func (h *httpHandler) handleDailyTasks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.tasks.Daily(c.Request.Context(), h.currentUserID(c), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": toTaskPayloads(rows)})
}

func (h *httpHandler) handleListNoteTasks(c *gin.Context) {
	rows, err := h.tasks.ListForNote(c.Request.Context(), h.currentUserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": toTaskPayloads(rows)})
}

func (h *httpHandler) handleCreateTask(c *gin.Context) {
	var request createTaskRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	input := tasks.CreateTaskInput{
		Content:  request.Content,
		Priority: request.Priority,
		NoteID:   request.NoteID,
	}
	if request.DueDate != nil && *request.DueDate != "" {
		due, err := parseDueDate(*request.DueDate)
		if err != nil {
			h.respondError(c, err)
			return
		}
		input.DueDate = due
	}

	task, err := h.tasks.Create(c.Request.Context(), h.currentUserID(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskPayload(*task))
}

func (h *httpHandler) handleUpdateTask(c *gin.Context) {
	var request updateTaskRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	patch := tasks.UpdateTaskInput{
		Content:      request.Content,
		IsCompleted:  request.IsCompleted,
		Priority:     request.Priority,
		ClearDueDate: request.ClearDueDate,
	}
	if request.DueDate != nil && *request.DueDate != "" {
		due, err := parseDueDate(*request.DueDate)
		if err != nil {
			h.respondError(c, err)
			return
		}
		patch.DueDate = due
	}

	task, err := h.tasks.Update(c.Request.Context(), h.currentUserID(c), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskPayload(*task))
}

func (h *httpHandler) handleDeleteTask(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), h.currentUserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type generateTasksRequestPayload struct {
	NoteID string `json:"noteId"`
}

func (h *httpHandler) handleGenerateTasks(c *gin.Context) {
	if h.ai == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant unavailable"})
		return
	}
	var request generateTasksRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.NoteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.ai.GenerateTasks(c.Request.Context(), h.currentUserID(c), request.NoteID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": toTaskPayloads(created)})
}
