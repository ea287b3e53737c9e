package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hyperscribe/backend/internal/ai"
	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/notes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxTitleLength bounds conversation titles derived from the first turn.
const MaxTitleLength = 60

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingGenerator  = errors.New("generator is required")
	errMissingNotes      = errors.New("notes service is required")
	errEmptyReply        = errors.New("empty assistant reply")
	noOpLogger           = zap.NewNop()
)

const (
	opStartChat    = "chat.start"
	opSendMessage  = "chat.send_message"
	opListChats    = "chat.list"
	opGetMessages  = "chat.messages"
	opDeleteChat   = "chat.delete"
	opAssistantGen = "chat.assistant_reply"
)

// ServiceConfig describes the dependencies for the chat service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider notes.IDProvider
	Generator  ai.Generator
	Notes      *notes.Service
	Logger     *zap.Logger
}

// Service persists conversations and drives assistant replies. A chat
// anchored to a note specializes the assistant prompt to that note's
// category.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider notes.IDProvider
	generator  ai.Generator
	notes      *notes.Service
	logger     *zap.Logger
}

// NewService constructs the chat service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	if cfg.Generator == nil {
		return nil, errMissingGenerator
	}
	if cfg.Notes == nil {
		return nil, errMissingNotes
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		generator:  cfg.Generator,
		notes:      cfg.Notes,
		logger:     logger,
	}, nil
}

// Exchange is a completed user turn plus the assistant reply.
type Exchange struct {
	Chat      Chat
	Question  Message
	Assistant Message
}

// Start opens a new conversation with an initial user message and the
// assistant's reply. Anchoring to a note requires ownership.
func (s *Service) Start(ctx context.Context, userID, firstMessage string, noteID *string) (*Exchange, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	firstMessage = strings.TrimSpace(firstMessage)
	if firstMessage == "" {
		return nil, apperror.ValidationFailed("message", "message is required")
	}

	var category *notes.Category
	if noteID != nil {
		note, err := s.notes.Get(ctx, userID, *noteID)
		if err != nil {
			return nil, err
		}
		category = &note.Category
	}

	chatID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opStartChat, "id_generation_failed", err)
		return nil, apperror.Dependency(opStartChat, err)
	}

	now := s.clock().UTC()
	conversation := Chat{
		ID:        chatID,
		UserID:    userID,
		NoteID:    noteID,
		Title:     deriveTitle(firstMessage),
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The row is created inside the exchange transaction so a failed
	// opening turn leaves no empty conversation behind.
	return s.exchange(ctx, &conversation, firstMessage, category, true)
}

// Send appends a user message to an existing conversation and returns
// the assistant's reply.
func (s *Service) Send(ctx context.Context, userID, chatID, message string) (*Exchange, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.ValidationFailed("message", "message is required")
	}

	conversation, err := s.getOwned(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	var category *notes.Category
	if conversation.NoteID != nil {
		note, err := s.notes.Get(ctx, userID, *conversation.NoteID)
		if err == nil {
			category = &note.Category
		}
	}
	return s.exchange(ctx, conversation, message, category, false)
}

// List returns the user's conversations, most recently active first.
func (s *Service) List(ctx context.Context, userID string) ([]Chat, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	var rows []Chat
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		s.logError(opListChats, "query_failed", err, zap.String("user_id", userID))
		return nil, apperror.Dependency(opListChats, err)
	}
	return rows, nil
}

// Messages returns the full transcript of one of the user's chats in
// chronological order.
func (s *Service) Messages(ctx context.Context, userID, chatID string) ([]Message, error) {
	if _, err := s.getOwned(ctx, userID, chatID); err != nil {
		return nil, err
	}
	var rows []Message
	if err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		s.logError(opGetMessages, "query_failed", err, zap.String("chat_id", chatID))
		return nil, apperror.Dependency(opGetMessages, err)
	}
	return rows, nil
}

// Delete removes a conversation and its messages.
func (s *Service) Delete(ctx context.Context, userID, chatID string) error {
	if _, err := s.getOwned(ctx, userID, chatID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chatID).Delete(&Message{}).Error; err != nil {
			s.logError(opDeleteChat, "delete_messages_failed", err, zap.String("chat_id", chatID))
			return apperror.Dependency(opDeleteChat, err)
		}
		if err := tx.Where("id = ?", chatID).Delete(&Chat{}).Error; err != nil {
			s.logError(opDeleteChat, "delete_failed", err, zap.String("chat_id", chatID))
			return apperror.Dependency(opDeleteChat, err)
		}
		return nil
	})
}

func (s *Service) exchange(ctx context.Context, conversation *Chat, message string, category *notes.Category, newChat bool) (*Exchange, error) {
	reply, err := s.generator.Complete(ctx, ai.SystemPrompt(category), message)
	if err != nil {
		s.logError(opAssistantGen, "model_call_failed", err, zap.String("chat_id", conversation.ID))
		return nil, apperror.Dependency(opAssistantGen, err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, apperror.Dependency(opAssistantGen, errEmptyReply)
	}

	questionID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSendMessage, "id_generation_failed", err)
		return nil, apperror.Dependency(opSendMessage, err)
	}
	replyID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSendMessage, "id_generation_failed", err)
		return nil, apperror.Dependency(opSendMessage, err)
	}

	now := s.clock().UTC()
	question := Message{ID: questionID, ChatID: conversation.ID, Role: RoleUser, Content: message, CreatedAt: now}
	assistant := Message{ID: replyID, ChatID: conversation.ID, Role: RoleAssistant, Content: reply, CreatedAt: now.Add(time.Millisecond)}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if newChat {
			if err := tx.Create(conversation).Error; err != nil {
				return apperror.Dependency(opStartChat, err)
			}
		}
		if err := tx.Create(&question).Error; err != nil {
			return apperror.Dependency(opSendMessage, err)
		}
		if err := tx.Create(&assistant).Error; err != nil {
			return apperror.Dependency(opSendMessage, err)
		}
		if !newChat {
			if err := tx.Model(&Chat{}).
				Where("id = ?", conversation.ID).
				Update("updated_at", now).Error; err != nil {
				return apperror.Dependency(opSendMessage, err)
			}
		}
		return nil
	})
	if txErr != nil {
		s.logError(opSendMessage, "persist_failed", txErr, zap.String("chat_id", conversation.ID))
		return nil, txErr
	}

	conversation.UpdatedAt = now
	return &Exchange{Chat: *conversation, Question: question, Assistant: assistant}, nil
}

func (s *Service) getOwned(ctx context.Context, userID, chatID string) (*Chat, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	var conversation Chat
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", chatID, userID).
		Take(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("chat")
	}
	if err != nil {
		s.logError(opGetMessages, "query_failed", err, zap.String("chat_id", chatID))
		return nil, apperror.Dependency(opGetMessages, err)
	}
	return &conversation, nil
}

// deriveTitle truncates the first user message into a list-view title.
func deriveTitle(message string) string {
	title := strings.TrimSpace(message)
	runes := []rune(title)
	if len(runes) <= MaxTitleLength {
		return title
	}
	truncated := string(runes[:MaxTitleLength])
	if idx := strings.LastIndex(truncated, " "); idx > MaxTitleLength/2 {
		truncated = truncated[:idx]
	}
	return truncated + "…"
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("chat service error", attrs...)
}
