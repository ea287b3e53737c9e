package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hyperscribe/backend/internal/notes"
)

type createNoteRequestPayload struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Category   string  `json:"category"`
	TemplateID *string `json:"templateId"`
}

type updateNoteRequestPayload struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
}

type noteListResponsePayload struct {
	Notes      []notePayload `json:"notes"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalCount int64         `json:"totalCount"`
	TotalPages int           `json:"totalPages"`
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))

	result, err := h.notes.List(c.Request.Context(), h.currentUserID(c), notes.ListQuery{
		Page:     page,
		PageSize: pageSize,
		Filter:   c.Query("filter"),
		Search:   c.Query("search"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := noteListResponsePayload{
		Notes:      make([]notePayload, 0, len(result.Items)),
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
	}
	for _, item := range result.Items {
		note := item.Note
		response.Notes = append(response.Notes, toNotePayload(&note, item.Attachments))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var request createNoteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.notes.Create(c.Request.Context(), h.currentUserID(c), notes.CreateNoteInput{
		Title:      request.Title,
		Content:    request.Content,
		Category:   request.Category,
		TemplateID: request.TemplateID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toNotePayload(note, nil))
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	userID := h.currentUserID(c)
	noteID := c.Param("id")

	note, err := h.notes.Get(c.Request.Context(), userID, noteID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	attachments, err := h.notes.ListAttachments(c.Request.Context(), userID, noteID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNotePayload(note, attachments))
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	var request updateNoteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.notes.Update(c.Request.Context(), h.currentUserID(c), c.Param("id"), notes.UpdateNoteInput{
		Title:    request.Title,
		Content:  request.Content,
		Category: request.Category,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNotePayload(note, nil))
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), h.currentUserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleArchiveNote(c *gin.Context) {
	h.setNoteArchived(c, true)
}

func (h *httpHandler) handleUnarchiveNote(c *gin.Context) {
	h.setNoteArchived(c, false)
}

func (h *httpHandler) setNoteArchived(c *gin.Context, archived bool) {
	note, err := h.notes.SetArchived(c.Request.Context(), h.currentUserID(c), c.Param("id"), archived)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toNotePayload(note, nil))
}

type addAttachmentRequestPayload struct {
	Type          string  `json:"type"`
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	StorageKey    string  `json:"storageKey"`
	Transcription *string `json:"transcription"`
}

func (h *httpHandler) handleAddAttachment(c *gin.Context) {
	var request addAttachmentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	attachment, err := h.notes.AddAttachment(c.Request.Context(), h.currentUserID(c), c.Param("id"), notes.AttachmentInput{
		Type:          request.Type,
		Name:          request.Name,
		URL:           request.URL,
		StorageKey:    request.StorageKey,
		Transcription: request.Transcription,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAttachmentPayload(*attachment))
}

func (h *httpHandler) handleListAttachments(c *gin.Context) {
	attachments, err := h.notes.ListAttachments(c.Request.Context(), h.currentUserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	payloads := make([]attachmentPayload, 0, len(attachments))
	for _, attachment := range attachments {
		payloads = append(payloads, toAttachmentPayload(attachment))
	}
	c.JSON(http.StatusOK, gin.H{"attachments": payloads})
}
