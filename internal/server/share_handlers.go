package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type generateShareRequestPayload struct {
	NoteID        string `json:"noteId"`
	ExpiresInDays int    `json:"expiresInDays"`
}

type shareResponsePayload struct {
	ShareID   string     `json:"shareId"`
	Token     string     `json:"token"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (h *httpHandler) handleGenerateShare(c *gin.Context) {
	var request generateShareRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.NoteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	link, err := h.sharing.Generate(c.Request.Context(), h.currentUserID(c), request.NoteID, request.ExpiresInDays)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shareResponsePayload{
		ShareID:   link.ShareID,
		Token:     link.Token,
		URL:       link.URL,
		ExpiresAt: link.ExpiresAt,
	})
}

func (h *httpHandler) handleDeactivateShare(c *gin.Context) {
	if err := h.sharing.Deactivate(c.Request.Context(), h.currentUserID(c), c.Param("shareId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type sharedNoteResponsePayload struct {
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	CreatedAt    time.Time `json:"createdAt"`
	LastEditedAt time.Time `json:"lastEditedAt"`
}

// handleResolveShare serves anonymous viewers; no session is required.
func (h *httpHandler) handleResolveShare(c *gin.Context) {
	shared, err := h.sharing.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sharedNoteResponsePayload{
		Title:        shared.Title,
		Content:      shared.Content,
		Category:     shared.Category,
		CreatedAt:    shared.CreatedAt,
		LastEditedAt: shared.LastEditedAt,
	})
}
