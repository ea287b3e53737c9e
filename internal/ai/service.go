package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/notes"
	"github.com/hyperscribe/backend/internal/tasks"
	"go.uber.org/zap"
)

// shortContentWords is the threshold below which summarize returns the
// content unchanged instead of calling the model.
const shortContentWords = 30

var (
	errMissingGenerator = errors.New("generator is required")
	errMissingNotes     = errors.New("notes service is required")
	errMissingTasks     = errors.New("tasks service is required")
	noOpLogger          = zap.NewNop()
)

const (
	opSummarize     = "ai.summarize"
	opExpand        = "ai.expand"
	opGenerateTasks = "ai.generate_tasks"
)

// Generator is the hosted-model dependency.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ServiceConfig describes the dependencies for the AI glue service.
type ServiceConfig struct {
	Generator Generator
	Notes     *notes.Service
	Tasks     *tasks.Service
	Logger    *zap.Logger
}

// Service wraps the hosted model. Results are applied through the
// ordinary note/task paths; a provider failure never mutates state.
type Service struct {
	generator Generator
	notes     *notes.Service
	tasks     *tasks.Service
	logger    *zap.Logger
}

// NewService constructs the AI glue service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Generator == nil {
		return nil, errMissingGenerator
	}
	if cfg.Notes == nil {
		return nil, errMissingNotes
	}
	if cfg.Tasks == nil {
		return nil, errMissingTasks
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		generator: cfg.Generator,
		notes:     cfg.Notes,
		tasks:     cfg.Tasks,
		logger:    logger,
	}, nil
}

// Summarize produces a short overview of note content. Content under the
// word threshold is returned as-is without a model call.
func (s *Service) Summarize(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "content is required")
	}
	if len(strings.Fields(content)) < shortContentWords {
		return content, nil
	}
	summary, err := s.generator.Complete(ctx, noteAssistantPrompt, summarizePrompt+content)
	if err != nil {
		s.logError(opSummarize, "model_call_failed", err)
		return "", apperror.Dependency(opSummarize, err)
	}
	if strings.TrimSpace(summary) == "" {
		return "", apperror.Dependency(opSummarize, errors.New("empty summary"))
	}
	return summary, nil
}

// Expand enriches note content with additional detail.
func (s *Service) Expand(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "content is required")
	}
	expanded, err := s.generator.Complete(ctx, noteAssistantPrompt, expandPrompt+content)
	if err != nil {
		s.logError(opExpand, "model_call_failed", err)
		return "", apperror.Dependency(opExpand, err)
	}
	if strings.TrimSpace(expanded) == "" {
		return "", apperror.Dependency(opExpand, errors.New("empty expansion"))
	}
	return expanded, nil
}

type generatedTask struct {
	Content  string  `json:"content"`
	Priority int     `json:"priority"`
	DueDate  *string `json:"dueDate"`
}

// GenerateTasks extracts actionable tasks from a note the user owns and
// creates them through the task service so every task invariant holds.
func (s *Service) GenerateTasks(ctx context.Context, userID, noteID string) ([]tasks.Task, error) {
	note, err := s.notes.Get(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(note.Content) == "" {
		return nil, apperror.ValidationFailed("content", "note has no content to extract tasks from")
	}

	raw, err := s.generator.Complete(ctx, noteAssistantPrompt, extractTasksPrompt(note.Title, note.Content))
	if err != nil {
		s.logError(opGenerateTasks, "model_call_failed", err, zap.String("note_id", noteID))
		return nil, apperror.Dependency(opGenerateTasks, err)
	}

	generated, err := parseGeneratedTasks(raw)
	if err != nil {
		s.logError(opGenerateTasks, "parse_failed", err, zap.String("note_id", noteID))
		return nil, apperror.Dependency(opGenerateTasks, err)
	}

	created := make([]tasks.Task, 0, len(generated))
	for _, candidate := range generated {
		content := strings.TrimSpace(candidate.Content)
		if content == "" {
			continue
		}
		input := tasks.CreateTaskInput{
			Content:  content,
			Priority: clampPriority(candidate.Priority),
			NoteID:   &noteID,
		}
		if candidate.DueDate != nil {
			if due, parseErr := time.Parse("2006-01-02", *candidate.DueDate); parseErr == nil {
				dueUTC := due.UTC()
				input.DueDate = &dueUTC
			}
		}
		task, err := s.tasks.Create(ctx, userID, input)
		if err != nil {
			return nil, err
		}
		created = append(created, *task)
	}
	return created, nil
}

// parseGeneratedTasks extracts the first JSON array from the model
// output and decodes it, tolerating prose around the array.
func parseGeneratedTasks(raw string) ([]generatedTask, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, errors.New("no JSON array found in model output")
	}
	payload := raw[start : end+1]
	if !json.Valid([]byte(payload)) {
		return nil, errors.New("model output does not contain valid JSON")
	}
	var parsed []generatedTask
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func clampPriority(priority int) int {
	if priority < tasks.PriorityNone {
		return tasks.PriorityNone
	}
	if priority > tasks.PriorityHigh {
		return tasks.PriorityHigh
	}
	return priority
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
	s.logger.Error("ai service error", attrs...)
}
