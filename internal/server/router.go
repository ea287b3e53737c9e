package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hyperscribe/backend/internal/ai"
	"github.com/hyperscribe/backend/internal/chat"
	"github.com/hyperscribe/backend/internal/notes"
	"github.com/hyperscribe/backend/internal/sharing"
	"github.com/hyperscribe/backend/internal/speech"
	"github.com/hyperscribe/backend/internal/storage"
	"github.com/hyperscribe/backend/internal/tasks"
	"github.com/hyperscribe/backend/internal/templates"
	"github.com/hyperscribe/backend/internal/users"
	"go.uber.org/zap"
)

const userIDContextKey = "hyperscribe_user_id"

var (
	errMissingTokenManager     = errors.New("token manager dependency required")
	errMissingUsersService     = errors.New("users service dependency required")
	errMissingNotesService     = errors.New("notes service dependency required")
	errMissingTemplatesService = errors.New("templates service dependency required")
	errMissingTasksService     = errors.New("tasks service dependency required")
	errMissingSharingService   = errors.New("sharing service dependency required")
)

// TokenManager issues and validates session tokens.
type TokenManager interface {
	IssueToken(userID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires every service behind the HTTP surface. AI, speech,
// chat, and storage are optional; their routes return 502 when absent.
type Dependencies struct {
	TokenManager     TokenManager
	UsersService     *users.Service
	NotesService     *notes.Service
	TemplatesService *templates.Service
	TasksService     *tasks.Service
	SharingService   *sharing.Service
	AIService        *ai.Service
	ChatService      *chat.Service
	SpeechService    *speech.Service
	Presigner        *storage.Presigner
	Logger           *zap.Logger
}

// NewHTTPHandler builds the full route table.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.NotesService == nil {
		return nil, errMissingNotesService
	}
	if deps.TemplatesService == nil {
		return nil, errMissingTemplatesService
	}
	if deps.TasksService == nil {
		return nil, errMissingTasksService
	}
	if deps.SharingService == nil {
		return nil, errMissingSharingService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:    deps.TokenManager,
		users:     deps.UsersService,
		notes:     deps.NotesService,
		templates: deps.TemplatesService,
		tasks:     deps.TasksService,
		sharing:   deps.SharingService,
		ai:        deps.AIService,
		chat:      deps.ChatService,
		speech:    deps.SpeechService,
		presigner: deps.Presigner,
		logger:    logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)
	router.GET("/shared/:token", handler.handleResolveShare)

	api := router.Group("/api")
	api.Use(handler.authorizeRequest)

	api.GET("/me", handler.handleCurrentUser)

	api.GET("/notes", handler.handleListNotes)
	api.POST("/notes", handler.handleCreateNote)
	api.GET("/notes/:id", handler.handleGetNote)
	api.PATCH("/notes/:id", handler.handleUpdateNote)
	api.DELETE("/notes/:id", handler.handleDeleteNote)
	api.POST("/notes/:id/archive", handler.handleArchiveNote)
	api.POST("/notes/:id/unarchive", handler.handleUnarchiveNote)
	api.GET("/notes/:id/attachments", handler.handleListAttachments)
	api.POST("/notes/:id/attachments", handler.handleAddAttachment)
	api.GET("/notes/:id/tasks", handler.handleListNoteTasks)
	api.POST("/notes/share", handler.handleGenerateShare)
	api.DELETE("/notes/share/:shareId", handler.handleDeactivateShare)
	api.POST("/notes/summarize", handler.handleSummarize)
	api.POST("/notes/expand", handler.handleExpand)

	api.GET("/templates", handler.handleListTemplates)
	api.POST("/templates", handler.handleCreateTemplate)
	api.GET("/templates/:id", handler.handleGetTemplate)
	api.PATCH("/templates/:id", handler.handleUpdateTemplate)
	api.DELETE("/templates/:id", handler.handleDeleteTemplate)
	api.POST("/templates/:id/duplicate", handler.handleDuplicateTemplate)
	api.POST("/templates/:id/use", handler.handleUseTemplate)

	api.GET("/tasks", handler.handleListTasks)
	api.POST("/tasks", handler.handleCreateTask)
	api.GET("/tasks/daily", handler.handleDailyTasks)
	api.POST("/tasks/generate", handler.handleGenerateTasks)
	api.PATCH("/tasks/:id", handler.handleUpdateTask)
	api.DELETE("/tasks/:id", handler.handleDeleteTask)

	api.GET("/chats", handler.handleListChats)
	api.POST("/chats", handler.handleStartChat)
	api.GET("/chats/:id/messages", handler.handleChatMessages)
	api.POST("/chats/:id/messages", handler.handleSendChatMessage)
	api.DELETE("/chats/:id", handler.handleDeleteChat)

	api.POST("/audio/transcribe", handler.handleTranscribe)
	api.POST("/attachments/upload-url", handler.handleUploadURL)
	api.GET("/attachments/download-url", handler.handleDownloadURL)

	return router, nil
}

type httpHandler struct {
	tokens    TokenManager
	users     *users.Service
	notes     *notes.Service
	templates *templates.Service
	tasks     *tasks.Service
	sharing   *sharing.Service
	ai        *ai.Service
	chat      *chat.Service
	speech    *speech.Service
	presigner *storage.Presigner
	logger    *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header missing or invalid"})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header missing or invalid"})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}
