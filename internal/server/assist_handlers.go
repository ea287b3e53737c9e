package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type assistRequestPayload struct {
	Content string `json:"content"`
}

func (h *httpHandler) handleSummarize(c *gin.Context) {
	if h.ai == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant unavailable"})
		return
	}
	var request assistRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	summary, err := h.ai.Summarize(c.Request.Context(), request.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *httpHandler) handleExpand(c *gin.Context) {
	if h.ai == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant unavailable"})
		return
	}
	var request assistRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	expanded, err := h.ai.Expand(c.Request.Context(), request.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": expanded})
}

type startChatRequestPayload struct {
	Message string  `json:"message"`
	NoteID  *string `json:"noteId"`
}

type chatExchangeResponsePayload struct {
	Chat      chatPayload        `json:"chat"`
	Question  chatMessagePayload `json:"question"`
	Assistant chatMessagePayload `json:"assistant"`
}

func (h *httpHandler) handleStartChat(c *gin.Context) {
	if h.chat == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant unavailable"})
		return
	}
	var request startChatRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	exchange, err := h.chat.Start(c.Request.Context(), h.currentUserID(c), request.Message, request.NoteID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chatExchangeResponsePayload{
		Chat:      toChatPayload(exchange.Chat),
		Question:  toChatMessagePayload(exchange.Question),
		Assistant: toChatMessagePayload(exchange.Assistant),
	})
}

type sendChatRequestPayload struct {
	Message string `json:"message"`
}

func (h *httpHandler) handleSendChatMessage(c *gin.Context) {
	if h.chat == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant unavailable"})
		return
	}
	var request sendChatRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	exchange, err := h.chat.Send(c.Request.Context(), h.currentUserID(c), c.Param("id"), request.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chatExchangeResponsePayload{
		Chat:      toChatPayload(exchange.Chat),
		Question:  toChatMessagePayload(exchange.Question),
		Assistant: toChatMessagePayload(exchange.Assistant),
	})
}

func (h *httpHandler) handleListChats(c *gin.Context) {
	if h.chat == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant unavailable"})
		return
	}
	rows, err := h.chat.List(c.Request.Context(), h.currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	payloads := make([]chatPayload, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, toChatPayload(row))
	}
	c.JSON(http.StatusOK, gin.H{"chats": payloads})
}

func (h *httpHandler) handleChatMessages(c *gin.Context) {
	if h.chat == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant unavailable"})
		return
	}
	rows, err := h.chat.Messages(c.Request.Context(), h.currentUserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	payloads := make([]chatMessagePayload, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, toChatMessagePayload(row))
	}
	c.JSON(http.StatusOK, gin.H{"messages": payloads})
}

func (h *httpHandler) handleDeleteChat(c *gin.Context) {
	if h.chat == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant unavailable"})
		return
	}
	if err := h.chat.Delete(c.Request.Context(), h.currentUserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
