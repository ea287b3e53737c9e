package sharing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/notes"
	"github.com/rs/xid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxExpiryDays caps caller-supplied share lifetimes.
const MaxExpiryDays = 30

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opGenerate   = "sharing.generate"
	opResolve    = "sharing.resolve"
	opDeactivate = "sharing.deactivate"
)

// ServiceConfig describes the dependencies for the share-link service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider notes.IDProvider
	BaseURL    string
	Logger     *zap.Logger
}

// Service owns share-link minting, resolution, and deactivation.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider notes.IDProvider
	baseURL    string
	logger     *zap.Logger
}

// NewService constructs the share-link service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
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
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		logger:     logger,
	}, nil
}

// ShareLink is the caller-facing result of minting a share.
type ShareLink struct {
	ShareID   string
	Token     string
	URL       string
	ExpiresAt *time.Time
}

// Generate mints a share link for a note the caller owns. The ownership
// check is mandatory here, not at the call site. expiresInDays of zero
// means the link never expires.
func (s *Service) Generate(ctx context.Context, userID, noteID string, expiresInDays int) (*ShareLink, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	if expiresInDays < 0 || expiresInDays > MaxExpiryDays {
		return nil, apperror.ValidationFailed("expiresInDays", "expiresInDays must be between 0 and 30")
	}

	var owned int64
	err := s.db.WithContext(ctx).Model(&notes.Note{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", noteID, userID, false).
		Count(&owned).Error
	if err != nil {
		s.logError(opGenerate, "note_check_failed", err, zap.String("note_id", noteID))
		return nil, apperror.Dependency(opGenerate, err)
	}
	if owned == 0 {
		return nil, apperror.NotFound("note")
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opGenerate, "id_generation_failed", err)
		return nil, apperror.Dependency(opGenerate, err)
	}

	now := s.clock().UTC()
	var expiresAt *time.Time
	if expiresInDays > 0 {
		expiry := now.AddDate(0, 0, expiresInDays)
		expiresAt = &expiry
	}

	share := NoteShare{
		ID:        id,
		NoteID:    noteID,
		Token:     xid.New().String(),
		ExpiresAt: expiresAt,
		IsActive:  true,
		CreatedBy: userID,
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&share).Error; err != nil {
		s.logError(opGenerate, "insert_failed", err, zap.String("note_id", noteID))
		return nil, apperror.Dependency(opGenerate, err)
	}

	return &ShareLink{
		ShareID:   share.ID,
		Token:     share.Token,
		URL:       s.baseURL + "/shared/" + share.Token,
		ExpiresAt: share.ExpiresAt,
	}, nil
}

// Resolve returns the shared note for an anonymous viewer. Missing,
// deactivated, and expired links are indistinguishable: all NotFound.
// Observing an expired link deactivates it as a side effect.
func (s *Service) Resolve(ctx context.Context, token string) (*SharedNote, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperror.NotFound("shared note")
	}

	var share NoteShare
	err := s.db.WithContext(ctx).
		Where("token = ?", token).
		Take(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("shared note")
	}
	if err != nil {
		s.logError(opResolve, "query_failed", err)
		return nil, apperror.Dependency(opResolve, err)
	}

	if !share.IsActive {
		return nil, apperror.NotFound("shared note")
	}

	if share.ExpiresAt != nil && !share.ExpiresAt.After(s.clock().UTC()) {
		if err := s.db.WithContext(ctx).Model(&NoteShare{}).
			Where("id = ?", share.ID).
			Update("is_active", false).Error; err != nil {
			s.logError(opResolve, "expiry_deactivation_failed", err, zap.String("share_id", share.ID))
		}
		return nil, apperror.NotFound("shared note")
	}

	var note notes.Note
	err = s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", share.NoteID, false).
		Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("shared note")
	}
	if err != nil {
		s.logError(opResolve, "note_query_failed", err, zap.String("share_id", share.ID))
		return nil, apperror.Dependency(opResolve, err)
	}

	return &SharedNote{
		Title:        note.Title,
		Content:      note.Content,
		Category:     note.Category.String(),
		CreatedAt:    note.CreatedAt,
		LastEditedAt: note.LastEditedAt,
	}, nil
}

// Deactivate turns a share off. The caller must be the share's creator
// or the note's owner. Deactivating an already inactive share succeeds.
func (s *Service) Deactivate(ctx context.Context, userID, shareID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.Unauthorized()
	}

	var share NoteShare
	err := s.db.WithContext(ctx).
		Where("id = ?", shareID).
		Take(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("share")
	}
	if err != nil {
		s.logError(opDeactivate, "query_failed", err, zap.String("share_id", shareID))
		return apperror.Dependency(opDeactivate, err)
	}

	if share.CreatedBy != userID {
		var ownsNote int64
		err := s.db.WithContext(ctx).Model(&notes.Note{}).
			Where("id = ? AND user_id = ?", share.NoteID, userID).
			Count(&ownsNote).Error
		if err != nil {
			s.logError(opDeactivate, "note_check_failed", err, zap.String("share_id", shareID))
			return apperror.Dependency(opDeactivate, err)
		}
		if ownsNote == 0 {
			return apperror.NotFound("share")
		}
	}

	if err := s.db.WithContext(ctx).Model(&NoteShare{}).
		Where("id = ?", shareID).
		Update("is_active", false).Error; err != nil {
		s.logError(opDeactivate, "update_failed", err, zap.String("share_id", shareID))
		return apperror.Dependency(opDeactivate, err)
	}
	return nil
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
	s.logger.Error("sharing service error", attrs...)
}
