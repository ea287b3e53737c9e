package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/notes"
	"gorm.io/gorm"
)

type scriptedGenerator struct {
	reply      string
	err        error
	lastSystem string
}

func (g *scriptedGenerator) Complete(_ context.Context, system, _ string) (string, error) {
	g.lastSystem = system
	return g.reply, g.err
}

type sequentialIDProvider struct {
	counter int
}

func (p *sequentialIDProvider) NewID() (string, error) {
	p.counter++
	return fmt.Sprintf("id-%d", p.counter), nil
}

var baseTime = time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC)

func mustNewService(t *testing.T, generator *scriptedGenerator) (*Service, *notes.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&notes.Note{}, &notes.Attachment{}, &Chat{}, &Message{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	idProvider := &sequentialIDProvider{}
	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return baseTime },
		IDProvider: idProvider,
	})
	if err != nil {
		t.Fatalf("failed to build notes service: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return baseTime },
		IDProvider: idProvider,
		Generator:  generator,
		Notes:      notesService,
	})
	if err != nil {
		t.Fatalf("failed to build chat service: %v", err)
	}
	return service, notesService
}

func TestStartChatRecordsBothTurns(t *testing.T) {
	generator := &scriptedGenerator{reply: "Here is a plan."}
	service, _ := mustNewService(t, generator)

	exchange, err := service.Start(context.Background(), "user-1", "Help me plan my week", nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if exchange.Chat.Title != "Help me plan my week" {
		t.Fatalf("unexpected title %q", exchange.Chat.Title)
	}
	if exchange.Question.Role != RoleUser || exchange.Assistant.Role != RoleAssistant {
		t.Fatalf("unexpected roles %#v", exchange)
	}
	if exchange.Assistant.Content != "Here is a plan." {
		t.Fatalf("unexpected reply %q", exchange.Assistant.Content)
	}

	transcript, err := service.Messages(context.Background(), "user-1", exchange.Chat.ID)
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(transcript) != 2 || transcript[0].Role != RoleUser || transcript[1].Role != RoleAssistant {
		t.Fatalf("unexpected transcript %#v", transcript)
	}
}

func TestStartChatAnchoredToNoteSpecializesPrompt(t *testing.T) {
	generator := &scriptedGenerator{reply: "ok"}
	service, notesService := mustNewService(t, generator)

	note, err := notesService.Create(context.Background(), "user-1", notes.CreateNoteInput{
		Title: "Feelings", Category: "journal",
	})
	if err != nil {
		t.Fatalf("failed to create note: %v", err)
	}

	if _, err := service.Start(context.Background(), "user-1", "How was my week?", &note.ID); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !strings.Contains(generator.lastSystem, "journal entries") {
		t.Fatalf("expected journal-specialized system prompt, got %q", generator.lastSystem)
	}

	if _, err := service.Start(context.Background(), "user-2", "hi", &note.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found for foreign note, got %v", err)
	}
}

func TestSendAppendsToExistingChat(t *testing.T) {
	generator := &scriptedGenerator{reply: "reply"}
	service, _ := mustNewService(t, generator)

	opened, err := service.Start(context.Background(), "user-1", "first", nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if _, err := service.Send(context.Background(), "user-2", opened.Chat.ID, "intrude"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found for foreign chat, got %v", err)
	}

	if _, err := service.Send(context.Background(), "user-1", opened.Chat.ID, "second"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	transcript, err := service.Messages(context.Background(), "user-1", opened.Chat.ID)
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(transcript) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(transcript))
	}
}

func TestProviderFailureLeavesNoPartialTurn(t *testing.T) {
	generator := &scriptedGenerator{reply: "opening reply"}
	service, _ := mustNewService(t, generator)

	opened, err := service.Start(context.Background(), "user-1", "first", nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	generator.err = errors.New("provider down")
	if _, err := service.Send(context.Background(), "user-1", opened.Chat.ID, "second"); !errors.Is(err, apperror.ErrDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	transcript, err := service.Messages(context.Background(), "user-1", opened.Chat.ID)
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(transcript) != 2 {
		t.Fatalf("failed turn must not persist messages, got %d", len(transcript))
	}
}

func TestStartFailureLeavesNoConversation(t *testing.T) {
	generator := &scriptedGenerator{err: errors.New("provider down")}
	service, _ := mustNewService(t, generator)

	if _, err := service.Start(context.Background(), "user-1", "hello", nil); !errors.Is(err, apperror.ErrDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	conversations, err := service.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(conversations) != 0 {
		t.Fatalf("failed opening turn must not create a chat, got %d", len(conversations))
	}
}

func TestDeleteChatRemovesTranscript(t *testing.T) {
	service, _ := mustNewService(t, &scriptedGenerator{reply: "bye"})

	opened, err := service.Start(context.Background(), "user-1", "hello", nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := service.Delete(context.Background(), "user-1", opened.Chat.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := service.Messages(context.Background(), "user-1", opened.Chat.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected deleted chat gone, got %v", err)
	}
}

func TestDeriveTitleTruncatesLongMessages(t *testing.T) {
	long := strings.Repeat("plan the product launch ", 10)
	title := deriveTitle(long)
	if len([]rune(title)) > MaxTitleLength+1 {
		t.Fatalf("title too long: %q", title)
	}
	if !strings.HasSuffix(title, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", title)
	}
}
