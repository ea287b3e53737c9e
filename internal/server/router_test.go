package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/hyperscribe/backend/internal/auth"
	"github.com/hyperscribe/backend/internal/chat"
	"github.com/hyperscribe/backend/internal/notes"
	"github.com/hyperscribe/backend/internal/sharing"
	"github.com/hyperscribe/backend/internal/tasks"
	"github.com/hyperscribe/backend/internal/templates"
	"github.com/hyperscribe/backend/internal/users"
	"gorm.io/gorm"
)

type staticTokenManager struct {
	subject string
}

func (m staticTokenManager) IssueToken(userID string) (string, int64, error) {
	return "issued-" + userID, 3600, nil
}

func (m staticTokenManager) ValidateToken(token string) (string, error) {
	if token != "good-token" {
		return "", errors.New("unknown token")
	}
	return m.subject, nil
}

type testFixture struct {
	db     *gorm.DB
	deps   Dependencies
	userID string
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&users.User{},
		&templates.Template{},
		&notes.Note{},
		&notes.Attachment{},
		&tasks.Task{},
		&sharing.NoteShare{},
		&chat.Chat{},
		&chat.Message{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	idProvider := notes.NewUUIDProvider()
	notesService, err := notes.NewService(notes.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to build notes service: %v", err)
	}
	templatesService, err := templates.NewService(templates.ServiceConfig{Database: db, IDProvider: idProvider, Notes: notesService})
	if err != nil {
		t.Fatalf("failed to build templates service: %v", err)
	}
	tasksService, err := tasks.NewService(tasks.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		t.Fatalf("failed to build tasks service: %v", err)
	}
	sharingService, err := sharing.NewService(sharing.ServiceConfig{Database: db, IDProvider: idProvider, BaseURL: "http://localhost:8080"})
	if err != nil {
		t.Fatalf("failed to build sharing service: %v", err)
	}
	usersService, err := users.NewService(users.ServiceConfig{Database: db, IDProvider: idProvider, Hasher: auth.NewPasswordHasherWithCost(4)})
	if err != nil {
		t.Fatalf("failed to build users service: %v", err)
	}

	account, err := usersService.Register(context.Background(), "owner@example.com", "hunter22", "Owner")
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}

	return &testFixture{
		db: db,
		deps: Dependencies{
			TokenManager:     staticTokenManager{subject: account.ID},
			UsersService:     usersService,
			NotesService:     notesService,
			TemplatesService: templatesService,
			TasksService:     tasksService,
			SharingService:   sharingService,
		},
		userID: account.ID,
	}
}

func (f *testFixture) handler(t *testing.T) http.Handler {
	t.Helper()
	handler, err := NewHTTPHandler(f.deps)
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return handler
}

func doRequest(handler http.Handler, method, target, body string, authorized bool) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, target, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		request.Header.Set("Authorization", "Bearer good-token")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestNewHTTPHandlerRequiresCoreServices(t *testing.T) {
	fixture := newTestFixture(t)

	testCases := []struct {
		name    string
		mutate  func(deps *Dependencies)
		wantErr error
	}{
		{name: "token manager", mutate: func(deps *Dependencies) { deps.TokenManager = nil }, wantErr: errMissingTokenManager},
		{name: "users", mutate: func(deps *Dependencies) { deps.UsersService = nil }, wantErr: errMissingUsersService},
		{name: "notes", mutate: func(deps *Dependencies) { deps.NotesService = nil }, wantErr: errMissingNotesService},
		{name: "templates", mutate: func(deps *Dependencies) { deps.TemplatesService = nil }, wantErr: errMissingTemplatesService},
		{name: "tasks", mutate: func(deps *Dependencies) { deps.TasksService = nil }, wantErr: errMissingTasksService},
		{name: "sharing", mutate: func(deps *Dependencies) { deps.SharingService = nil }, wantErr: errMissingSharingService},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			deps := fixture.deps
			testCase.mutate(&deps)
			if _, err := NewHTTPHandler(deps); !errors.Is(err, testCase.wantErr) {
				t.Fatalf("expected %v, got %v", testCase.wantErr, err)
			}
		})
	}
}

func TestAuthorizationHeaderHandling(t *testing.T) {
	fixture := newTestFixture(t)
	handler := fixture.handler(t)

	testCases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic Zm9v", wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer good-token", wantStatus: http.StatusOK},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if testCase.header != "" {
				request.Header.Set("Authorization", testCase.header)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)
			if recorder.Code != testCase.wantStatus {
				t.Fatalf("expected %d, got %d: %s", testCase.wantStatus, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestErrorTaxonomyStatusCodes(t *testing.T) {
	fixture := newTestFixture(t)

	defaultTemplate := templates.Template{
		ID:        "default-daily",
		Name:      "Daily Journal",
		Content:   "# {{date}}",
		Category:  notes.CategoryJournal,
		IsDefault: true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := fixture.db.Create(&defaultTemplate).Error; err != nil {
		t.Fatalf("failed to seed default template: %v", err)
	}

	handler := fixture.handler(t)

	t.Run("missing note is 404", func(t *testing.T) {
		recorder := doRequest(handler, http.MethodGet, "/api/notes/no-such-note", "", true)
		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d: %s", recorder.Code, recorder.Body.String())
		}
	})

	t.Run("invalid note is 400 with field", func(t *testing.T) {
		recorder := doRequest(handler, http.MethodPost, "/api/notes", `{"title":"","category":"custom"}`, true)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", recorder.Code, recorder.Body.String())
		}
		var body map[string]any
		if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["field"] != "title" {
			t.Fatalf("expected field title, got %v", body["field"])
		}
	})

	t.Run("editing a system default is 403", func(t *testing.T) {
		recorder := doRequest(handler, http.MethodPatch, "/api/templates/"+defaultTemplate.ID, `{"name":"Hijacked"}`, true)
		if recorder.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d: %s", recorder.Code, recorder.Body.String())
		}
	})

	t.Run("assistant routes are 502 when unconfigured", func(t *testing.T) {
		recorder := doRequest(handler, http.MethodPost, "/api/notes/summarize", `{"content":"abc"}`, true)
		if recorder.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d: %s", recorder.Code, recorder.Body.String())
		}
		recorder = doRequest(handler, http.MethodPost, "/api/chats", `{"message":"hello"}`, true)
		if recorder.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d: %s", recorder.Code, recorder.Body.String())
		}
		recorder = doRequest(handler, http.MethodPost, "/api/attachments/upload-url", `{"fileName":"a.png","contentType":"image/png"}`, true)
		if recorder.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d: %s", recorder.Code, recorder.Body.String())
		}
	})
}

func TestShareResolutionIsAnonymous(t *testing.T) {
	fixture := newTestFixture(t)
	handler := fixture.handler(t)

	recorder := doRequest(handler, http.MethodPost, "/api/notes", `{"title":"Public note","category":"custom"}`, true)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode note: %v", err)
	}

	recorder = doRequest(handler, http.MethodPost, "/api/notes/share", `{"noteId":"`+created.ID+`","expiresInDays":7}`, true)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var share struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &share); err != nil {
		t.Fatalf("failed to decode share: %v", err)
	}

	recorder = doRequest(handler, http.MethodGet, "/shared/"+share.Token, "", false)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected anonymous resolution, got %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doRequest(handler, http.MethodGet, "/shared/bogus-token", "", false)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token, got %d", recorder.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	fixture := newTestFixture(t)
	handler := fixture.handler(t)

	request := httptest.NewRequest(http.MethodOptions, "/api/notes", nil)
	request.Header.Set("Origin", "https://app.example.com")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin, got %q", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}
