package tasks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/notes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultDailyLimit applies when the caller does not supply one.
const DefaultDailyLimit = 5

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opCreateTask  = "tasks.create"
	opListTasks   = "tasks.list"
	opUpdateTask  = "tasks.update"
	opDeleteTask  = "tasks.delete"
	opDailyTasks  = "tasks.daily"
	opForNoteList = "tasks.list_for_note"
)

// Daily ordering: incomplete before complete, then highest priority,
// then soonest due date with undated tasks last.
const dailyOrder = "is_completed ASC, priority DESC, (due_date IS NULL) ASC, due_date ASC"

// ServiceConfig describes the dependencies for the task service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider notes.IDProvider
	Logger     *zap.Logger
}

// Service owns task persistence, the completion-timestamp invariant, and
// the parent-note edit propagation.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider notes.IDProvider
	logger     *zap.Logger
}

// NewService constructs the task service.
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

// CreateTaskInput carries the fields for a new task.
type CreateTaskInput struct {
	Content  string
	Priority int
	DueDate  *time.Time
	NoteID   *string
}

// Create validates and persists a new task. Anchoring to a note requires
// the note to exist, belong to the user, and not be soft-deleted; the
// note's last_edited_at is bumped in the same transaction.
func (s *Service) Create(ctx context.Context, userID string, input CreateTaskInput) (*Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if input.Priority < PriorityNone || input.Priority > PriorityHigh {
		return nil, apperror.ValidationFailed("priority", "priority must be between 0 and 3")
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateTask, "id_generation_failed", err)
		return nil, apperror.Dependency(opCreateTask, err)
	}

	now := s.clock().UTC()
	task := Task{
		ID:        id,
		UserID:    userID,
		NoteID:    input.NoteID,
		Content:   content,
		Priority:  input.Priority,
		DueDate:   input.DueDate,
		CreatedAt: now,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.NoteID != nil {
			if err := s.requireOwnedNote(tx, userID, *input.NoteID); err != nil {
				return err
			}
		}
		if err := tx.Create(&task).Error; err != nil {
			s.logError(opCreateTask, "insert_failed", err, zap.String("user_id", userID))
			return apperror.Dependency(opCreateTask, err)
		}
		return s.bumpParentNote(tx, userID, input.NoteID, now)
	})
	if txErr != nil {
		return nil, txErr
	}
	return &task, nil
}

// List returns all of the user's tasks in daily ordering.
func (s *Service) List(ctx context.Context, userID string) ([]Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	var rows []Task
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(dailyOrder).
		Find(&rows).Error; err != nil {
		s.logError(opListTasks, "query_failed", err, zap.String("user_id", userID))
		return nil, apperror.Dependency(opListTasks, err)
	}
	return rows, nil
}

// ListForNote returns the tasks anchored to one of the user's notes.
func (s *Service) ListForNote(ctx context.Context, userID, noteID string) ([]Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	if err := s.requireOwnedNote(s.db.WithContext(ctx), userID, noteID); err != nil {
		return nil, err
	}
	var rows []Task
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND note_id = ?", userID, noteID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		s.logError(opForNoteList, "query_failed", err, zap.String("note_id", noteID))
		return nil, apperror.Dependency(opForNoteList, err)
	}
	return rows, nil
}

// Daily selects tasks due today, overdue and incomplete, or undated and
// incomplete, in daily ordering.
func (s *Service) Daily(ctx context.Context, userID string, limit int) ([]Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	if limit < 1 {
		limit = DefaultDailyLimit
	}

	now := s.clock().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	var rows []Task
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(
			s.db.Where("due_date >= ? AND due_date < ?", today, tomorrow).
				Or("due_date IS NULL AND is_completed = ?", false).
				Or("due_date < ? AND is_completed = ?", today, false),
		).
		Order(dailyOrder).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		s.logError(opDailyTasks, "query_failed", err, zap.String("user_id", userID))
		return nil, apperror.Dependency(opDailyTasks, err)
	}
	return rows, nil
}

// UpdateTaskInput carries a partial task patch. Nil fields are untouched;
// ClearDueDate removes an existing due date.
type UpdateTaskInput struct {
	Content      *string
	IsCompleted  *bool
	Priority     *int
	DueDate      *time.Time
	ClearDueDate bool
}

// Update patches a task. Completion transitions stamp or clear
// completed_at; a task anchored to a note bumps the note's
// last_edited_at in the same transaction.
func (s *Service) Update(ctx context.Context, userID, taskID string, patch UpdateTaskInput) (*Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}

	updates := map[string]interface{}{}
	if patch.Content != nil {
		content := strings.TrimSpace(*patch.Content)
		if content == "" {
			return nil, apperror.ValidationFailed("content", "content is required")
		}
		updates["content"] = content
	}
	if patch.Priority != nil {
		if *patch.Priority < PriorityNone || *patch.Priority > PriorityHigh {
			return nil, apperror.ValidationFailed("priority", "priority must be between 0 and 3")
		}
		updates["priority"] = *patch.Priority
	}
	if patch.ClearDueDate {
		updates["due_date"] = nil
	} else if patch.DueDate != nil {
		updates["due_date"] = *patch.DueDate
	}

	var updated Task
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Task
		err := tx.Where("id = ? AND user_id = ?", taskID, userID).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("task")
		}
		if err != nil {
			s.logError(opUpdateTask, "select_failed", err, zap.String("task_id", taskID))
			return apperror.Dependency(opUpdateTask, err)
		}

		now := s.clock().UTC()
		if patch.IsCompleted != nil && *patch.IsCompleted != existing.IsCompleted {
			updates["is_completed"] = *patch.IsCompleted
			if *patch.IsCompleted {
				updates["completed_at"] = now
			} else {
				updates["completed_at"] = nil
			}
		}
		if len(updates) == 0 {
			return apperror.ValidationFailed("patch", "no fields to update")
		}

		if err := tx.Model(&Task{}).
			Where("id = ? AND user_id = ?", taskID, userID).
			Updates(updates).Error; err != nil {
			s.logError(opUpdateTask, "update_failed", err, zap.String("task_id", taskID))
			return apperror.Dependency(opUpdateTask, err)
		}
		if err := s.bumpParentNote(tx, userID, existing.NoteID, now); err != nil {
			return err
		}
		return tx.Where("id = ?", taskID).Take(&updated).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return &updated, nil
}

// Delete hard-deletes a task, bumping the parent note when anchored.
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.Unauthorized()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Task
		err := tx.Where("id = ? AND user_id = ?", taskID, userID).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("task")
		}
		if err != nil {
			s.logError(opDeleteTask, "select_failed", err, zap.String("task_id", taskID))
			return apperror.Dependency(opDeleteTask, err)
		}
		if err := tx.Where("id = ? AND user_id = ?", taskID, userID).
			Delete(&Task{}).Error; err != nil {
			s.logError(opDeleteTask, "delete_failed", err, zap.String("task_id", taskID))
			return apperror.Dependency(opDeleteTask, err)
		}
		return s.bumpParentNote(tx, userID, existing.NoteID, s.clock().UTC())
	})
}

func (s *Service) requireOwnedNote(tx *gorm.DB, userID, noteID string) error {
	var count int64
	err := tx.Model(&notes.Note{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", noteID, userID, false).
		Count(&count).Error
	if err != nil {
		return apperror.Dependency("tasks.note_check", err)
	}
	if count == 0 {
		return apperror.NotFound("note")
	}
	return nil
}

func (s *Service) bumpParentNote(tx *gorm.DB, userID string, noteID *string, now time.Time) error {
	if noteID == nil {
		return nil
	}
	if err := tx.Model(&notes.Note{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", *noteID, userID, false).
		Update("last_edited_at", now).Error; err != nil {
		return apperror.Dependency("tasks.note_bump", err)
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
	s.logger.Error("tasks service error", attrs...)
}
