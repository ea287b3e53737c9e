package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hyperscribe/backend/internal/notes"
	"github.com/hyperscribe/backend/internal/templates"
)

type templateRequestPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Category    string `json:"category"`
}

type updateTemplateRequestPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
	Category    *string `json:"category"`
}

func (h *httpHandler) handleListTemplates(c *gin.Context) {
	userID := h.currentUserID(c)

	var (
		rows []templates.Template
		err  error
	)
	if raw := c.Query("category"); raw != "" {
		category, parseErr := notes.ParseCategory(raw)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category " + raw})
			return
		}
		rows, err = h.templates.ListByCategory(c.Request.Context(), userID, category)
	} else {
		rows, err = h.templates.List(c.Request.Context(), userID)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	payloads := make([]templatePayload, 0, len(rows))
	for i := range rows {
		payloads = append(payloads, toTemplatePayload(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"templates": payloads})
}

func (h *httpHandler) handleGetTemplate(c *gin.Context) {
	tmpl, err := h.templates.Get(c.Request.Context(), h.currentUserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTemplatePayload(tmpl))
}

func (h *httpHandler) handleCreateTemplate(c *gin.Context) {
	var request templateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	tmpl, err := h.templates.Create(c.Request.Context(), h.currentUserID(c), templates.TemplateInput{
		Name:        request.Name,
		Description: request.Description,
		Content:     request.Content,
		Category:    request.Category,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTemplatePayload(tmpl))
}

func (h *httpHandler) handleUpdateTemplate(c *gin.Context) {
	var request updateTemplateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	tmpl, err := h.templates.Update(c.Request.Context(), h.currentUserID(c), c.Param("id"), templates.UpdateTemplateInput{
		Name:        request.Name,
		Description: request.Description,
		Content:     request.Content,
		Category:    request.Category,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTemplatePayload(tmpl))
}

func (h *httpHandler) handleDeleteTemplate(c *gin.Context) {
	if err := h.templates.Delete(c.Request.Context(), h.currentUserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleDuplicateTemplate(c *gin.Context) {
	tmpl, err := h.templates.Duplicate(c.Request.Context(), h.currentUserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTemplatePayload(tmpl))
}

type useTemplateRequestPayload struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

func (h *httpHandler) handleUseTemplate(c *gin.Context) {
	var request useTemplateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.templates.Use(c.Request.Context(), h.currentUserID(c), c.Param("id"), request.Title, request.Category)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toNotePayload(note, nil))
}
