package templates

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/notes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxNameLength bounds template names, mirroring note title validation.
const MaxNameLength = 100

var (
	errMissingDatabase     = errors.New("database handle is required")
	errMissingIDProvider   = errors.New("id provider is required")
	errMissingNotesService = errors.New("notes service is required")
	noOpLogger             = zap.NewNop()
)

const (
	opListTemplates  = "templates.list"
	opGetTemplate    = "templates.get"
	opCreateTemplate = "templates.create"
	opUpdateTemplate = "templates.update"
	opDeleteTemplate = "templates.delete"
	opDuplicate      = "templates.duplicate"
	opUseTemplate    = "templates.use"
	opInitTemplates  = "templates.initialize"
)

// ServiceConfig describes the dependencies for the template service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider notes.IDProvider
	Notes      *notes.Service
	Logger     *zap.Logger
}

// Service owns template persistence, the default-template protection
// rules, and note creation from templates.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider notes.IDProvider
	notes      *notes.Service
	logger     *zap.Logger
}

// NewService constructs the template service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	if cfg.Notes == nil {
		return nil, errMissingNotesService
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
		notes:      cfg.Notes,
		logger:     logger,
	}, nil
}

// List returns the user's templates plus system defaults whose names are
// not shadowed by a same-named user template. Defaults sort first, then
// alphabetically by name.
func (s *Service) List(ctx context.Context, userID string) ([]Template, error) {
	return s.list(ctx, userID, nil)
}

// ListByCategory narrows List to one category.
func (s *Service) ListByCategory(ctx context.Context, userID string, category notes.Category) ([]Template, error) {
	return s.list(ctx, userID, &category)
}

func (s *Service) list(ctx context.Context, userID string, category *notes.Category) ([]Template, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}

	owned := s.db.WithContext(ctx).Where("user_id = ?", userID)
	defaults := s.db.WithContext(ctx).Where("is_default = ? AND user_id IS NULL", true)
	if category != nil {
		owned = owned.Where("category = ?", *category)
		defaults = defaults.Where("category = ?", *category)
	}

	var userTemplates []Template
	if err := owned.Find(&userTemplates).Error; err != nil {
		s.logError(opListTemplates, "query_failed", err, zap.String("user_id", userID))
		return nil, apperror.Dependency(opListTemplates, err)
	}
	var defaultTemplates []Template
	if err := defaults.Find(&defaultTemplates).Error; err != nil {
		s.logError(opListTemplates, "defaults_query_failed", err)
		return nil, apperror.Dependency(opListTemplates, err)
	}

	shadowed := make(map[string]bool, len(userTemplates))
	for _, tmpl := range userTemplates {
		shadowed[tmpl.Name] = true
	}

	combined := make([]Template, 0, len(userTemplates)+len(defaultTemplates))
	for _, tmpl := range defaultTemplates {
		if !shadowed[tmpl.Name] {
			combined = append(combined, tmpl)
		}
	}
	combined = append(combined, userTemplates...)

	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].IsDefault != combined[j].IsDefault {
			return combined[i].IsDefault
		}
		return combined[i].Name < combined[j].Name
	})
	return combined, nil
}

// Get returns a template the user can see: their own or a system default.
func (s *Service) Get(ctx context.Context, userID, templateID string) (*Template, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	var tmpl Template
	err := s.db.WithContext(ctx).
		Where("id = ? AND (user_id = ? OR (is_default = ? AND user_id IS NULL))", templateID, userID, true).
		Take(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("template")
	}
	if err != nil {
		s.logError(opGetTemplate, "query_failed", err, zap.String("template_id", templateID))
		return nil, apperror.Dependency(opGetTemplate, err)
	}
	return &tmpl, nil
}

// TemplateInput carries the fields for creating a template.
type TemplateInput struct {
	Name        string
	Description string
	Content     string
	Category    string
}

// Create validates and persists a new user template.
func (s *Service) Create(ctx context.Context, userID string, input TemplateInput) (*Template, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name", "name must be at most 100 characters")
	}
	category, err := notes.ParseCategory(input.Category)
	if err != nil {
		return nil, apperror.ValidationFailed("category", "unknown category "+input.Category)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateTemplate, "id_generation_failed", err)
		return nil, apperror.Dependency(opCreateTemplate, err)
	}

	now := s.clock().UTC()
	owner := userID
	tmpl := Template{
		ID:          id,
		Name:        name,
		Description: input.Description,
		Content:     input.Content,
		Category:    category,
		IsDefault:   false,
		UserID:      &owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&tmpl).Error; err != nil {
		s.logError(opCreateTemplate, "insert_failed", err, zap.String("user_id", userID))
		return nil, apperror.Dependency(opCreateTemplate, err)
	}
	return &tmpl, nil
}

// UpdateTemplateInput carries a partial template patch.
type UpdateTemplateInput struct {
	Name        *string
	Description *string
	Content     *string
	Category    *string
}

// Update patches a user-owned template. Default templates are immutable
// and rejected with Forbidden, never silently skipped.
func (s *Service) Update(ctx context.Context, userID, templateID string, patch UpdateTemplateInput) (*Template, error) {
	tmpl, err := s.Get(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}
	if tmpl.IsDefault {
		return nil, apperror.Forbidden("cannot modify default templates")
	}

	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name is required")
		}
		if len(name) > MaxNameLength {
			return nil, apperror.ValidationFailed("name", "name must be at most 100 characters")
		}
		updates["name"] = name
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.Category != nil {
		category, err := notes.ParseCategory(*patch.Category)
		if err != nil {
			return nil, apperror.ValidationFailed("category", "unknown category "+*patch.Category)
		}
		updates["category"] = category
	}
	if len(updates) == 0 {
		return nil, apperror.ValidationFailed("patch", "no fields to update")
	}
	updates["updated_at"] = s.clock().UTC()

	if err := s.db.WithContext(ctx).Model(&Template{}).
		Where("id = ? AND user_id = ?", templateID, userID).
		Updates(updates).Error; err != nil {
		s.logError(opUpdateTemplate, "update_failed", err, zap.String("template_id", templateID))
		return nil, apperror.Dependency(opUpdateTemplate, err)
	}
	return s.Get(ctx, userID, templateID)
}

// Delete hard-deletes a user-owned template. Default templates and
// templates still referenced by notes are rejected with Forbidden.
func (s *Service) Delete(ctx context.Context, userID, templateID string) error {
	tmpl, err := s.Get(ctx, userID, templateID)
	if err != nil {
		return err
	}
	if tmpl.IsDefault {
		return apperror.Forbidden("cannot delete default templates")
	}

	var referencing int64
	if err := s.db.WithContext(ctx).Model(&notes.Note{}).
		Where("template_id = ?", templateID).
		Count(&referencing).Error; err != nil {
		s.logError(opDeleteTemplate, "reference_check_failed", err, zap.String("template_id", templateID))
		return apperror.Dependency(opDeleteTemplate, err)
	}
	if referencing > 0 {
		return apperror.Forbidden("cannot delete a template that is used by notes")
	}

	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", templateID, userID).
		Delete(&Template{}).Error; err != nil {
		s.logError(opDeleteTemplate, "delete_failed", err, zap.String("template_id", templateID))
		return apperror.Dependency(opDeleteTemplate, err)
	}
	return nil
}

// Duplicate copies a visible template into a new non-default template
// owned by the user, with " (Copy)" appended to the name.
func (s *Service) Duplicate(ctx context.Context, userID, templateID string) (*Template, error) {
	source, err := s.Get(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opDuplicate, "id_generation_failed", err)
		return nil, apperror.Dependency(opDuplicate, err)
	}

	now := s.clock().UTC()
	owner := userID
	copied := Template{
		ID:          id,
		Name:        source.Name + " (Copy)",
		Description: source.Description,
		Content:     source.Content,
		Category:    source.Category,
		IsDefault:   false,
		UserID:      &owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&copied).Error; err != nil {
		s.logError(opDuplicate, "insert_failed", err, zap.String("template_id", templateID))
		return nil, apperror.Dependency(opDuplicate, err)
	}
	return &copied, nil
}

// Use creates a new note from a template, substituting placeholders in
// the template content. An empty category falls back to the template's.
func (s *Service) Use(ctx context.Context, userID, templateID, title, category string) (*notes.Note, error) {
	source, err := s.Get(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}
	if category == "" {
		category = source.Category.String()
	}
	content := RenderContent(source.Content, title, s.clock())
	return s.notes.Create(ctx, userID, notes.CreateNoteInput{
		Title:      title,
		Content:    content,
		Category:   category,
		TemplateID: &source.ID,
	})
}

// InitializeForUser copies the system templates into the user's own
// editable set. Registration calls this once; reruns skip users who
// already have templates.
func (s *Service) InitializeForUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.Unauthorized()
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&Template{}).
		Where("user_id = ?", userID).
		Count(&existing).Error; err != nil {
		s.logError(opInitTemplates, "count_failed", err, zap.String("user_id", userID))
		return apperror.Dependency(opInitTemplates, err)
	}
	if existing > 0 {
		return nil
	}

	now := s.clock().UTC()
	owner := userID
	seeded := make([]Template, 0, len(DefaultTemplates()))
	for _, def := range DefaultTemplates() {
		id, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opInitTemplates, "id_generation_failed", err)
			return apperror.Dependency(opInitTemplates, err)
		}
		seeded = append(seeded, Template{
			ID:          id,
			Name:        def.Name,
			Description: def.Description,
			Content:     def.Content,
			Category:    def.Category,
			IsDefault:   false,
			UserID:      &owner,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if err := s.db.WithContext(ctx).Create(&seeded).Error; err != nil {
		s.logError(opInitTemplates, "insert_failed", err, zap.String("user_id", userID))
		return apperror.Dependency(opInitTemplates, err)
	}
	return nil
}

// RenderContent substitutes {{title}} and {{date}} placeholder tokens.
func RenderContent(content, title string, now time.Time) string {
	replacer := strings.NewReplacer(
		"{{title}}", title,
		"{{date}}", now.Format("January 2, 2006"),
	)
	return replacer.Replace(content)
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
	s.logger.Error("templates service error", attrs...)
}
