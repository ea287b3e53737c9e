package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/chat"
	"github.com/hyperscribe/backend/internal/notes"
	"github.com/hyperscribe/backend/internal/tasks"
	"github.com/hyperscribe/backend/internal/templates"
	"github.com/hyperscribe/backend/internal/users"
	"go.uber.org/zap"
)

// respondError maps the domain error taxonomy onto HTTP status codes.
// Anything outside the taxonomy is a 500 with no detail leaked.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	payload := gin.H{"error": err.Error()}
	if errors.As(err, &appErr) && appErr.Field != "" {
		payload["field"] = appErr.Field
	}

	switch {
	case errors.Is(err, apperror.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, payload)
	case errors.Is(err, apperror.ErrForbidden):
		c.JSON(http.StatusForbidden, payload)
	case errors.Is(err, apperror.ErrNotFound):
		c.JSON(http.StatusNotFound, payload)
	case errors.Is(err, apperror.ErrValidation):
		c.JSON(http.StatusBadRequest, payload)
	case errors.Is(err, apperror.ErrDependency):
		c.JSON(http.StatusBadGateway, payload)
	default:
		h.logger.Error("unclassified handler error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *httpHandler) currentUserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}

type userPayload struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toUserPayload(user *users.User) userPayload {
	return userPayload{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		CreatedAt:   user.CreatedAt,
	}
}

type notePayload struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Content      string              `json:"content"`
	Category     string              `json:"category"`
	TemplateID   *string             `json:"templateId,omitempty"`
	IsArchived   bool                `json:"isArchived"`
	LastEditedAt time.Time           `json:"lastEditedAt"`
	CreatedAt    time.Time           `json:"createdAt"`
	Attachments  []attachmentPayload `json:"attachments,omitempty"`
}

func toNotePayload(note *notes.Note, attachments []notes.Attachment) notePayload {
	payload := notePayload{
		ID:           note.ID,
		Title:        note.Title,
		Content:      note.Content,
		Category:     note.Category.String(),
		TemplateID:   note.TemplateID,
		IsArchived:   note.IsArchived,
		LastEditedAt: note.LastEditedAt,
		CreatedAt:    note.CreatedAt,
	}
	for _, attachment := range attachments {
		payload.Attachments = append(payload.Attachments, toAttachmentPayload(attachment))
	}
	return payload
}

type attachmentPayload struct {
	ID            string    `json:"id"`
	NoteID        string    `json:"noteId"`
	Type          string    `json:"type"`
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	StorageKey    string    `json:"storageKey,omitempty"`
	Transcription *string   `json:"transcription,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toAttachmentPayload(attachment notes.Attachment) attachmentPayload {
	return attachmentPayload{
		ID:            attachment.ID,
		NoteID:        attachment.NoteID,
		Type:          string(attachment.Type),
		Name:          attachment.Name,
		URL:           attachment.URL,
		StorageKey:    attachment.StorageKey,
		Transcription: attachment.Transcription,
		CreatedAt:     attachment.CreatedAt,
	}
}

type taskPayload struct {
	ID          string     `json:"id"`
	NoteID      *string    `json:"noteId,omitempty"`
	Content     string     `json:"content"`
	IsCompleted bool       `json:"isCompleted"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toTaskPayload(task tasks.Task) taskPayload {
	return taskPayload{
		ID:          task.ID,
		NoteID:      task.NoteID,
		Content:     task.Content,
		IsCompleted: task.IsCompleted,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		CompletedAt: task.CompletedAt,
		CreatedAt:   task.CreatedAt,
	}
}

func toTaskPayloads(rows []tasks.Task) []taskPayload {
	payloads := make([]taskPayload, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, toTaskPayload(row))
	}
	return payloads
}

type templatePayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toTemplatePayload(tmpl *templates.Template) templatePayload {
	return templatePayload{
		ID:          tmpl.ID,
		Name:        tmpl.Name,
		Description: tmpl.Description,
		Content:     tmpl.Content,
		Category:    tmpl.Category.String(),
		IsDefault:   tmpl.IsDefault,
		CreatedAt:   tmpl.CreatedAt,
		UpdatedAt:   tmpl.UpdatedAt,
	}
}

type chatPayload struct {
	ID        string    `json:"id"`
	NoteID    *string   `json:"noteId,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toChatPayload(conversation chat.Chat) chatPayload {
	return chatPayload{
		ID:        conversation.ID,
		NoteID:    conversation.NoteID,
		Title:     conversation.Title,
		CreatedAt: conversation.CreatedAt,
		UpdatedAt: conversation.UpdatedAt,
	}
}

type chatMessagePayload struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toChatMessagePayload(message chat.Message) chatMessagePayload {
	return chatMessagePayload{
		ID:        message.ID,
		Role:      message.Role,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
}
