package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "HYPERSCRIBE"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "hyperscribe.db"
	defaultLogLevel     = "info"
	defaultBaseURL      = "http://localhost:8080"
	defaultTokenTTL     = 60
	defaultAIBaseURL    = "https://api.openai.com/v1"
	defaultAIModel      = "gpt-4o-mini"
	defaultSpeechURL    = "https://api.deepgram.com/v1/listen"
	defaultSpeechModel  = "nova-3"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress   string
	DatabasePath  string
	LogLevel      string
	BaseURL       string
	SigningSecret string
	TokenTTL      time.Duration

	AIBaseURL   string
	AIAPIKey    string
	AIModel     string
	SpeechURL   string
	SpeechKey   string
	SpeechModel string

	StorageEndpoint  string
	StorageRegion    string
	StorageBucket    string
	StorageAccessKey string
	StorageSecretKey string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.base_url", defaultBaseURL)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTL)
	configViper.SetDefault("ai.base_url", defaultAIBaseURL)
	configViper.SetDefault("ai.model", defaultAIModel)
	configViper.SetDefault("speech.url", defaultSpeechURL)
	configViper.SetDefault("speech.model", defaultSpeechModel)
	configViper.SetDefault("storage.region", "us-east-1")
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		BaseURL:       strings.TrimRight(configViper.GetString("http.base_url"), "/"),
		DatabasePath:  configViper.GetString("database.path"),
		LogLevel:      configViper.GetString("log.level"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		TokenTTL:      time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,

		AIBaseURL:   strings.TrimRight(configViper.GetString("ai.base_url"), "/"),
		AIAPIKey:    configViper.GetString("ai.api_key"),
		AIModel:     configViper.GetString("ai.model"),
		SpeechURL:   configViper.GetString("speech.url"),
		SpeechKey:   configViper.GetString("speech.api_key"),
		SpeechModel: configViper.GetString("speech.model"),

		StorageEndpoint:  configViper.GetString("storage.endpoint"),
		StorageRegion:    configViper.GetString("storage.region"),
		StorageBucket:    configViper.GetString("storage.bucket"),
		StorageAccessKey: configViper.GetString("storage.access_key"),
		StorageSecretKey: configViper.GetString("storage.secret_key"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	return nil
}
