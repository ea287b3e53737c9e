package notes

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/hyperscribe/backend/internal/apperror"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// MaxTitleLength bounds note titles.
	MaxTitleLength = 100
	// DefaultPageSize applies when the caller does not supply one.
	DefaultPageSize = 12
	// MaxPageSize caps caller-supplied page sizes.
	MaxPageSize = 100
)

// Listing filters beyond plain categories.
const (
	FilterAll      = "all"
	FilterArchived = "archived"
	FilterAudio    = "audio"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opGetNote        = "notes.get"
	opListNotes      = "notes.list"
	opCreateNote     = "notes.create"
	opUpdateNote     = "notes.update"
	opDeleteNote     = "notes.delete"
	opArchiveNote    = "notes.archive"
	opAddAttachment  = "notes.add_attachment"
	opListAttachment = "notes.list_attachments"
)

// ServiceConfig describes the dependencies for the note service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// IDProvider issues unique identifiers for new rows.
type IDProvider interface {
	NewID() (string, error)
}

// Service owns note and attachment persistence and the ownership,
// soft-delete, and lifecycle rules around them.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the note service.
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
		logger:     logger,
	}, nil
}

// CreateNoteInput carries the fields for a new note.
type CreateNoteInput struct {
	Title      string
	Content    string
	Category   string
	TemplateID *string
}

// UpdateNoteInput carries a partial note patch. Nil fields are untouched.
type UpdateNoteInput struct {
	Title    *string
	Content  *string
	Category *string
}

// ListQuery selects a page of notes.
type ListQuery struct {
	Page     int
	PageSize int
	Filter   string
	Search   string
}

// ListItem pairs a note with its audio attachments for list views.
type ListItem struct {
	Note        Note
	Attachments []Attachment
}

// ListResult is one page of notes plus pagination totals.
type ListResult struct {
	Items      []ListItem
	Page       int
	PageSize   int
	TotalCount int64
	TotalPages int
}

// Get returns the note iff it exists, belongs to the user, and is not
// soft-deleted.
func (s *Service) Get(ctx context.Context, userID, noteID string) (*Note, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	var note Note
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_deleted = ?", noteID, userID, false).
		Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("note")
	}
	if err != nil {
		s.logError(opGetNote, "query_failed", err, zap.String("note_id", noteID))
		return nil, apperror.Dependency(opGetNote, err)
	}
	return &note, nil
}

// List returns a page of the user's non-deleted notes. The default view
// excludes archived notes; "archived", "audio", "all", or a category
// narrow the selection. Search is a case-insensitive substring match on
// title and content.
func (s *Service) List(ctx context.Context, userID string, query ListQuery) (ListResult, error) {
	if strings.TrimSpace(userID) == "" {
		return ListResult{}, apperror.Unauthorized()
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	base := s.db.WithContext(ctx).Model(&Note{}).
		Where("user_id = ? AND is_deleted = ?", userID, false)

	switch query.Filter {
	case "", FilterAll:
		if query.Filter == "" {
			base = base.Where("is_archived = ?", false)
		}
	case FilterArchived:
		base = base.Where("is_archived = ?", true)
	case FilterAudio:
		audioNotes := s.db.Model(&Attachment{}).
			Select("note_id").
			Where("type = ?", AttachmentAudio)
		base = base.Where("id IN (?)", audioNotes)
	default:
		category, err := ParseCategory(query.Filter)
		if err != nil {
			return ListResult{}, apperror.ValidationFailed("filter", "unknown filter "+query.Filter)
		}
		base = base.Where("category = ?", category)
	}

	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		base = base.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern)
	}

	var totalCount int64
	if err := base.Session(&gorm.Session{}).Count(&totalCount).Error; err != nil {
		s.logError(opListNotes, "count_failed", err, zap.String("user_id", userID))
		return ListResult{}, apperror.Dependency(opListNotes, err)
	}

	var rows []Note
	if err := base.Session(&gorm.Session{}).
		Order("last_edited_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error; err != nil {
		s.logError(opListNotes, "query_failed", err, zap.String("user_id", userID))
		return ListResult{}, apperror.Dependency(opListNotes, err)
	}

	attachmentsByNote, err := s.audioAttachmentsFor(ctx, rows)
	if err != nil {
		s.logError(opListNotes, "attachment_query_failed", err, zap.String("user_id", userID))
		return ListResult{}, apperror.Dependency(opListNotes, err)
	}

	items := make([]ListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ListItem{Note: row, Attachments: attachmentsByNote[row.ID]})
	}

	return ListResult{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: int(math.Ceil(float64(totalCount) / float64(pageSize))),
	}, nil
}

func (s *Service) audioAttachmentsFor(ctx context.Context, rows []Note) (map[string][]Attachment, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var attachments []Attachment
	if err := s.db.WithContext(ctx).
		Where("note_id IN ? AND type = ?", ids, AttachmentAudio).
		Find(&attachments).Error; err != nil {
		return nil, err
	}
	grouped := make(map[string][]Attachment, len(attachments))
	for _, attachment := range attachments {
		grouped[attachment.NoteID] = append(grouped[attachment.NoteID], attachment)
	}
	return grouped, nil
}

// Create validates and persists a new note for the user.
func (s *Service) Create(ctx context.Context, userID string, input CreateNoteInput) (*Note, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title", "title must be at most 100 characters")
	}
	category, err := ParseCategory(input.Category)
	if err != nil {
		return nil, apperror.ValidationFailed("category", "unknown category "+input.Category)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateNote, "id_generation_failed", err)
		return nil, apperror.Dependency(opCreateNote, err)
	}

	now := s.clock().UTC()
	note := Note{
		ID:           id,
		UserID:       userID,
		Title:        title,
		Content:      input.Content,
		Category:     category,
		TemplateID:   input.TemplateID,
		IsArchived:   false,
		IsDeleted:    false,
		LastEditedAt: now,
		CreatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreateNote, "insert_failed", err, zap.String("user_id", userID))
		return nil, apperror.Dependency(opCreateNote, err)
	}
	return &note, nil
}

// Update re-validates ownership and non-deleted state, applies the patch,
// and bumps last_edited_at.
func (s *Service) Update(ctx context.Context, userID, noteID string, patch UpdateNoteInput) (*Note, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "title is required")
		}
		if len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title", "title must be at most 100 characters")
		}
		updates["title"] = title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.Category != nil {
		category, err := ParseCategory(*patch.Category)
		if err != nil {
			return nil, apperror.ValidationFailed("category", "unknown category "+*patch.Category)
		}
		updates["category"] = category
	}
	if len(updates) == 0 {
		return nil, apperror.ValidationFailed("patch", "no fields to update")
	}

	var updated Note
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Note
		err := tx.Where("id = ? AND user_id = ? AND is_deleted = ?", noteID, userID, false).
			Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("note")
		}
		if err != nil {
			s.logError(opUpdateNote, "select_failed", err, zap.String("note_id", noteID))
			return apperror.Dependency(opUpdateNote, err)
		}

		updates["last_edited_at"] = s.clock().UTC()
		if err := tx.Model(&Note{}).
			Where("id = ? AND user_id = ?", noteID, userID).
			Updates(updates).Error; err != nil {
			s.logError(opUpdateNote, "update_failed", err, zap.String("note_id", noteID))
			return apperror.Dependency(opUpdateNote, err)
		}
		return tx.Where("id = ?", noteID).Take(&updated).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return &updated, nil
}

// Delete soft-deletes the note. Calling it again on an already deleted
// note succeeds and leaves the same end state.
func (s *Service) Delete(ctx context.Context, userID, noteID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.Unauthorized()
	}
	result := s.db.WithContext(ctx).Model(&Note{}).
		Where("id = ? AND user_id = ?", noteID, userID).
		Updates(map[string]interface{}{
			"is_deleted":     true,
			"last_edited_at": s.clock().UTC(),
		})
	if result.Error != nil {
		s.logError(opDeleteNote, "update_failed", result.Error, zap.String("note_id", noteID))
		return apperror.Dependency(opDeleteNote, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("note")
	}
	return nil
}

// SetArchived toggles the archive flag on a non-deleted note.
func (s *Service) SetArchived(ctx context.Context, userID, noteID string, archived bool) (*Note, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	result := s.db.WithContext(ctx).Model(&Note{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", noteID, userID, false).
		Updates(map[string]interface{}{
			"is_archived":    archived,
			"last_edited_at": s.clock().UTC(),
		})
	if result.Error != nil {
		s.logError(opArchiveNote, "update_failed", result.Error, zap.String("note_id", noteID))
		return nil, apperror.Dependency(opArchiveNote, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperror.NotFound("note")
	}
	return s.Get(ctx, userID, noteID)
}

// AttachmentInput carries the fields for a new attachment.
type AttachmentInput struct {
	Type          string
	Name          string
	URL           string
	StorageKey    string
	Transcription *string
}

// AddAttachment records an attachment against a note the user owns.
func (s *Service) AddAttachment(ctx context.Context, userID, noteID string, input AttachmentInput) (*Attachment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	attachmentType, err := ParseAttachmentType(input.Type)
	if err != nil {
		return nil, apperror.ValidationFailed("type", "unknown attachment type "+input.Type)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if strings.TrimSpace(input.URL) == "" {
		return nil, apperror.ValidationFailed("url", "url is required")
	}

	if _, err := s.Get(ctx, userID, noteID); err != nil {
		return nil, err
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAddAttachment, "id_generation_failed", err)
		return nil, apperror.Dependency(opAddAttachment, err)
	}

	attachment := Attachment{
		ID:            id,
		NoteID:        noteID,
		Type:          attachmentType,
		Name:          input.Name,
		URL:           input.URL,
		StorageKey:    input.StorageKey,
		Transcription: input.Transcription,
		CreatedAt:     s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&attachment).Error; err != nil {
		s.logError(opAddAttachment, "insert_failed", err, zap.String("note_id", noteID))
		return nil, apperror.Dependency(opAddAttachment, err)
	}
	return &attachment, nil
}

// ListAttachments returns all attachments for a note the user owns.
func (s *Service) ListAttachments(ctx context.Context, userID, noteID string) ([]Attachment, error) {
	if _, err := s.Get(ctx, userID, noteID); err != nil {
		return nil, err
	}
	var attachments []Attachment
	if err := s.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("created_at ASC").
		Find(&attachments).Error; err != nil {
		s.logError(opListAttachment, "query_failed", err, zap.String("note_id", noteID))
		return nil, apperror.Dependency(opListAttachment, err)
	}
	return attachments, nil
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
	s.logger.Error("notes service error", attrs...)
}
