package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hyperscribe/backend/internal/speech"
)

// maxAudioUploadBytes bounds in-request audio uploads; larger files go
// through the presigned-upload path.
const maxAudioUploadBytes = 25 << 20

func (h *httpHandler) handleTranscribe(c *gin.Context) {
	if h.speech == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "transcription unavailable"})
		return
	}

	noteID := c.PostForm("noteId")
	if noteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "noteId is required"})
		return
	}
	fileURL := c.PostForm("fileUrl")
	if fileURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileUrl is required"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "an audio file is required"})
		return
	}
	defer file.Close()
	if header.Size > maxAudioUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file too large"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result, err := h.speech.TranscribeAndAttach(c.Request.Context(), h.currentUserID(c), speech.TranscribeInput{
		NoteID:      noteID,
		FileName:    header.Filename,
		ContentType: contentType,
		FileURL:     fileURL,
		StorageKey:  c.PostForm("storageKey"),
		Audio:       file,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"transcript": result.Transcript,
		"attachment": toAttachmentPayload(*result.Attachment),
	})
}

func (h *httpHandler) handleUploadURL(c *gin.Context) {
	if h.presigner == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable"})
		return
	}
	ticket, err := h.presigner.PresignUpload(c.Request.Context(), h.currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"uploadUrl":  ticket.URL,
		"storageKey": ticket.StorageKey,
		"expiresAt":  ticket.ExpiresAt,
	})
}

func (h *httpHandler) handleDownloadURL(c *gin.Context) {
	if h.presigner == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable"})
		return
	}
	url, err := h.presigner.PresignDownload(c.Request.Context(), h.currentUserID(c), c.Query("storageKey"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}
