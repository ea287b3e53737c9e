package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/hyperscribe/backend/internal/auth"
	"github.com/hyperscribe/backend/internal/chat"
	"github.com/hyperscribe/backend/internal/notes"
	"github.com/hyperscribe/backend/internal/server"
	"github.com/hyperscribe/backend/internal/sharing"
	"github.com/hyperscribe/backend/internal/tasks"
	"github.com/hyperscribe/backend/internal/templates"
	"github.com/hyperscribe/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const jsonContentType = "application/json"

func newTestHandler(testContext *testing.T) http.Handler {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+testContext.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql handle: %v", err)
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
		testContext.Fatalf("failed to migrate: %v", err)
	}

	idProvider := notes.NewUUIDProvider()
	logger := zap.NewNop()

	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		testContext.Fatalf("failed to build notes service: %v", err)
	}
	templatesService, err := templates.NewService(templates.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Notes:      notesService,
		Logger:     logger,
	})
	if err != nil {
		testContext.Fatalf("failed to build templates service: %v", err)
	}
	tasksService, err := tasks.NewService(tasks.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		testContext.Fatalf("failed to build tasks service: %v", err)
	}
	sharingService, err := sharing.NewService(sharing.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		BaseURL:    "http://localhost:8080",
		Logger:     logger,
	})
	if err != nil {
		testContext.Fatalf("failed to build sharing service: %v", err)
	}
	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Hasher:     auth.NewPasswordHasherWithCost(4),
		Logger:     logger,
	})
	if err != nil {
		testContext.Fatalf("failed to build users service: %v", err)
	}

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("integration-secret"),
		Issuer:        "hyperscribe-auth",
		Audience:      "hyperscribe-api",
		TokenTTL:      time.Hour,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager:     tokenManager,
		UsersService:     usersService,
		NotesService:     notesService,
		TemplatesService: templatesService,
		TasksService:     tasksService,
		SharingService:   sharingService,
		Logger:           logger,
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}
	return handler
}

func postJSON(testContext *testing.T, client *http.Client, url, token string, body map[string]any) *http.Response {
	testContext.Helper()
	payload, _ := json.Marshal(body)
	request, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	request.Header.Set("Content-Type", jsonContentType)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := client.Do(request)
	if err != nil {
		testContext.Fatalf("request to %s failed: %v", url, err)
	}
	return response
}

func decodeBody(testContext *testing.T, response *http.Response, target any) {
	testContext.Helper()
	defer response.Body.Close()
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		testContext.Fatalf("failed to decode response: %v", err)
	}
}

func TestRegisterLoginAndNoteFlow(testContext *testing.T) {
	handler := newTestHandler(testContext)
	testServer := httptest.NewServer(handler)
	defer testServer.Close()
	client := testServer.Client()

	registerResp := postJSON(testContext, client, testServer.URL+"/auth/register", "", map[string]any{
		"email":       "ada@example.com",
		"password":    "correct-horse",
		"displayName": "Ada",
	})
	if registerResp.StatusCode != http.StatusCreated {
		testContext.Fatalf("unexpected register status: %d", registerResp.StatusCode)
	}
	var session struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		User        struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeBody(testContext, registerResp, &session)
	if session.AccessToken == "" || session.TokenType != "Bearer" {
		testContext.Fatalf("expected bearer session, got %#v", session)
	}
	if session.User.Email != "ada@example.com" {
		testContext.Fatalf("unexpected user email %s", session.User.Email)
	}

	loginResp := postJSON(testContext, client, testServer.URL+"/auth/login", "", map[string]any{
		"email":    "ADA@example.com",
		"password": "correct-horse",
	})
	if loginResp.StatusCode != http.StatusOK {
		testContext.Fatalf("unexpected login status: %d", loginResp.StatusCode)
	}
	decodeBody(testContext, loginResp, &session)
	token := session.AccessToken

	// Registration seeds a personal copy of the system templates.
	templatesReq, _ := http.NewRequest(http.MethodGet, testServer.URL+"/api/templates", nil)
	templatesReq.Header.Set("Authorization", "Bearer "+token)
	templatesResp, err := client.Do(templatesReq)
	if err != nil {
		testContext.Fatalf("templates request failed: %v", err)
	}
	var templatesPayload struct {
		Templates []struct {
			Name string `json:"name"`
		} `json:"templates"`
	}
	decodeBody(testContext, templatesResp, &templatesPayload)
	if len(templatesPayload.Templates) == 0 {
		testContext.Fatalf("expected seeded templates for new user")
	}

	createResp := postJSON(testContext, client, testServer.URL+"/api/notes", token, map[string]any{
		"title":    "Standup notes",
		"content":  "Discuss release plan",
		"category": "custom",
	})
	if createResp.StatusCode != http.StatusCreated {
		testContext.Fatalf("unexpected create status: %d", createResp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(testContext, createResp, &created)
	if created.ID == "" {
		testContext.Fatalf("expected note id")
	}

	shareResp := postJSON(testContext, client, testServer.URL+"/api/notes/share", token, map[string]any{
		"noteId":        created.ID,
		"expiresInDays": 7,
	})
	if shareResp.StatusCode != http.StatusCreated {
		testContext.Fatalf("unexpected share status: %d", shareResp.StatusCode)
	}
	var share struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	decodeBody(testContext, shareResp, &share)
	if share.Token == "" {
		testContext.Fatalf("expected share token")
	}

	// Anonymous resolution needs no session.
	sharedResp, err := client.Get(testServer.URL + "/shared/" + share.Token)
	if err != nil {
		testContext.Fatalf("shared request failed: %v", err)
	}
	if sharedResp.StatusCode != http.StatusOK {
		testContext.Fatalf("unexpected shared status: %d", sharedResp.StatusCode)
	}
	var shared struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	decodeBody(testContext, sharedResp, &shared)
	if shared.Title != "Standup notes" {
		testContext.Fatalf("unexpected shared title %q", shared.Title)
	}

	taskResp := postJSON(testContext, client, testServer.URL+"/api/tasks", token, map[string]any{
		"content":  "Ship release notes",
		"priority": 2,
		"noteId":   created.ID,
	})
	if taskResp.StatusCode != http.StatusCreated {
		testContext.Fatalf("unexpected task status: %d", taskResp.StatusCode)
	}
	taskResp.Body.Close()

	dailyReq, _ := http.NewRequest(http.MethodGet, testServer.URL+"/api/tasks/daily", nil)
	dailyReq.Header.Set("Authorization", "Bearer "+token)
	dailyResp, err := client.Do(dailyReq)
	if err != nil {
		testContext.Fatalf("daily request failed: %v", err)
	}
	var daily struct {
		Tasks []struct {
			Content string `json:"content"`
		} `json:"tasks"`
	}
	decodeBody(testContext, dailyResp, &daily)
	if len(daily.Tasks) != 1 || daily.Tasks[0].Content != "Ship release notes" {
		testContext.Fatalf("expected daily task, got %#v", daily.Tasks)
	}
}

func TestProtectedRoutesRejectMissingToken(testContext *testing.T) {
	handler := newTestHandler(testContext)
	testServer := httptest.NewServer(handler)
	defer testServer.Close()

	response, err := testServer.Client().Get(testServer.URL + "/api/notes")
	if err != nil {
		testContext.Fatalf("request failed: %v", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusUnauthorized {
		testContext.Fatalf("expected 401, got %d", response.StatusCode)
	}
}
