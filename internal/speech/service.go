package speech

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/notes"
	"go.uber.org/zap"
)

var (
	errMissingTranscriber = errors.New("transcriber is required")
	errMissingNotes       = errors.New("notes service is required")
	noOpLogger            = zap.NewNop()
)

const opTranscribe = "speech.transcribe"

// Transcriber is the speech-to-text dependency.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error)
}

// ServiceConfig describes the dependencies for the speech service.
type ServiceConfig struct {
	Transcriber Transcriber
	Notes       *notes.Service
	Logger      *zap.Logger
}

// Service turns uploaded audio into transcripts and records them as
// audio attachments on notes the caller owns.
type Service struct {
	transcriber Transcriber
	notes       *notes.Service
	logger      *zap.Logger
}

// NewService constructs the speech service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Transcriber == nil {
		return nil, errMissingTranscriber
	}
	if cfg.Notes == nil {
		return nil, errMissingNotes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		transcriber: cfg.Transcriber,
		notes:       cfg.Notes,
		logger:      logger,
	}, nil
}

// TranscribeInput carries an uploaded audio recording.
type TranscribeInput struct {
	NoteID      string
	FileName    string
	ContentType string
	FileURL     string
	StorageKey  string
	Audio       io.Reader
}

// Result pairs the transcript with the stored attachment.
type Result struct {
	Transcript string
	Attachment *notes.Attachment
}

// TranscribeAndAttach transcribes the recording and attaches it, with
// the transcript, to the note. Ownership is checked before any provider
// call so a foreign note surfaces as not found without spending a
// transcription.
func (s *Service) TranscribeAndAttach(ctx context.Context, userID string, input TranscribeInput) (*Result, error) {
	if strings.TrimSpace(input.FileName) == "" {
		return nil, apperror.ValidationFailed("file", "an audio file is required")
	}
	if input.Audio == nil {
		return nil, apperror.ValidationFailed("file", "an audio file is required")
	}
	if _, err := s.notes.Get(ctx, userID, input.NoteID); err != nil {
		return nil, err
	}

	transcript, err := s.transcriber.Transcribe(ctx, input.Audio, input.ContentType)
	if err != nil {
		s.logError(opTranscribe, "provider_failed", err, zap.String("note_id", input.NoteID))
		return nil, apperror.Dependency(opTranscribe, err)
	}

	attachment, err := s.notes.AddAttachment(ctx, userID, input.NoteID, notes.AttachmentInput{
		Type:          string(notes.AttachmentAudio),
		Name:          input.FileName,
		URL:           input.FileURL,
		StorageKey:    input.StorageKey,
		Transcription: &transcript,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Transcript: transcript, Attachment: attachment}, nil
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
	s.logger.Error("speech service error", attrs...)
}
