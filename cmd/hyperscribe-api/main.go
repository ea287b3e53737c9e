package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperscribe/backend/internal/ai"
	"github.com/hyperscribe/backend/internal/auth"
	"github.com/hyperscribe/backend/internal/chat"
	"github.com/hyperscribe/backend/internal/config"
	"github.com/hyperscribe/backend/internal/database"
	"github.com/hyperscribe/backend/internal/logging"
	"github.com/hyperscribe/backend/internal/notes"
	"github.com/hyperscribe/backend/internal/server"
	"github.com/hyperscribe/backend/internal/sharing"
	"github.com/hyperscribe/backend/internal/speech"
	"github.com/hyperscribe/backend/internal/storage"
	"github.com/hyperscribe/backend/internal/tasks"
	"github.com/hyperscribe/backend/internal/templates"
	"github.com/hyperscribe/backend/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hyperscribe-api",
		Short: "HyperScribe note-taking backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("base-url", defaults.GetString("http.base_url"), "Public base URL for share links")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().String("ai-base-url", defaults.GetString("ai.base_url"), "Chat-completions API base URL")
	cmd.PersistentFlags().String("ai-model", defaults.GetString("ai.model"), "Chat-completions model")
	cmd.PersistentFlags().String("speech-url", defaults.GetString("speech.url"), "Speech-to-text API URL")
	cmd.PersistentFlags().String("speech-model", defaults.GetString("speech.model"), "Speech-to-text model")
	cmd.PersistentFlags().String("storage-endpoint", defaults.GetString("storage.endpoint"), "S3-compatible storage endpoint")
	cmd.PersistentFlags().String("storage-bucket", defaults.GetString("storage.bucket"), "Attachment storage bucket")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.base_url", "base-url")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "ai.base_url", "ai-base-url")
	bindFlag(cmd, "ai.model", "ai-model")
	bindFlag(cmd, "speech.url", "speech-url")
	bindFlag(cmd, "speech.model", "speech-model")
	bindFlag(cmd, "storage.endpoint", "storage-endpoint")
	bindFlag(cmd, "storage.bucket", "storage-bucket")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "hyperscribe-auth",
		Audience:      "hyperscribe-api",
		TokenTTL:      appConfig.TokenTTL,
	})

	idProvider := notes.NewUUIDProvider()

	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	templatesService, err := templates.NewService(templates.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Notes:      notesService,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	tasksService, err := tasks.NewService(tasks.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	sharingService, err := sharing.NewService(sharing.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		BaseURL:    appConfig.BaseURL,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Hasher:     auth.NewPasswordHasher(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	deps := server.Dependencies{
		TokenManager:     tokenManager,
		UsersService:     usersService,
		NotesService:     notesService,
		TemplatesService: templatesService,
		TasksService:     tasksService,
		SharingService:   sharingService,
		Logger:           logger,
	}

	if appConfig.AIAPIKey != "" {
		generator := ai.NewClient(ai.ClientConfig{
			BaseURL: appConfig.AIBaseURL,
			APIKey:  appConfig.AIAPIKey,
			Model:   appConfig.AIModel,
		})
		aiService, err := ai.NewService(ai.ServiceConfig{
			Generator: generator,
			Notes:     notesService,
			Tasks:     tasksService,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		chatService, err := chat.NewService(chat.ServiceConfig{
			Database:   db,
			Clock:      time.Now,
			IDProvider: idProvider,
			Generator:  generator,
			Notes:      notesService,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		deps.AIService = aiService
		deps.ChatService = chatService
	} else {
		logger.Warn("assistant disabled", zap.String("reason", "ai.api_key not configured"))
	}

	if appConfig.SpeechKey != "" {
		transcriber := speech.NewClient(speech.ClientConfig{
			URL:    appConfig.SpeechURL,
			APIKey: appConfig.SpeechKey,
			Model:  appConfig.SpeechModel,
		})
		speechService, err := speech.NewService(speech.ServiceConfig{
			Transcriber: transcriber,
			Notes:       notesService,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		deps.SpeechService = speechService
	} else {
		logger.Warn("transcription disabled", zap.String("reason", "speech.api_key not configured"))
	}

	if appConfig.StorageBucket != "" {
		presigner, err := storage.NewPresigner(ctx, storage.PresignerConfig{
			Endpoint:   appConfig.StorageEndpoint,
			Region:     appConfig.StorageRegion,
			Bucket:     appConfig.StorageBucket,
			AccessKey:  appConfig.StorageAccessKey,
			SecretKey:  appConfig.StorageSecretKey,
			IDProvider: idProvider,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		deps.Presigner = presigner
	} else {
		logger.Warn("attachment storage disabled", zap.String("reason", "storage.bucket not configured"))
	}

	handler, err := server.NewHTTPHandler(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
