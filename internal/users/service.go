package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/auth"
	"github.com/hyperscribe/backend/internal/notes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MinPasswordLength is the floor for new account passwords.
const MinPasswordLength = 8

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingHasher     = errors.New("password hasher is required")
	noOpLogger           = zap.NewNop()
)

const (
	opRegister     = "users.register"
	opAuthenticate = "users.authenticate"
	opGetUser      = "users.get"
)

// ServiceConfig describes the dependencies for the user service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider notes.IDProvider
	Hasher     *auth.PasswordHasher
	Logger     *zap.Logger
}

// Service manages account registration and credential verification.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider notes.IDProvider
	hasher     *auth.PasswordHasher
	logger     *zap.Logger
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	if cfg.Hasher == nil {
		return nil, errMissingHasher
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
		hasher:     cfg.Hasher,
		logger:     logger,
	}, nil
}

// Register creates a new account with a unique email and hashed password.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", "password must be at least 8 characters")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&User{}).
		Where("email = ?", email).
		Count(&existing).Error; err != nil {
		s.logError(opRegister, "lookup_failed", err)
		return nil, apperror.Dependency(opRegister, err)
	}
	if existing > 0 {
		return nil, apperror.ValidationFailed("email", "an account with this email already exists")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logError(opRegister, "hash_failed", err)
		return nil, apperror.Dependency(opRegister, err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opRegister, "id_generation_failed", err)
		return nil, apperror.Dependency(opRegister, err)
	}

	user := User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(displayName),
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		s.logError(opRegister, "insert_failed", err)
		return nil, apperror.Dependency(opRegister, err)
	}
	return &user, nil
}

// Authenticate verifies credentials and returns the account. Unknown
// emails and wrong passwords both surface as Unauthorized so probing
// cannot distinguish them.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)

	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Unauthorized()
	}
	if err != nil {
		s.logError(opAuthenticate, "lookup_failed", err)
		return nil, apperror.Dependency(opAuthenticate, err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized()
		}
		s.logError(opAuthenticate, "compare_failed", err)
		return nil, apperror.Dependency(opAuthenticate, err)
	}
	return &user, nil
}

// Get returns the account for a known user id.
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Unauthorized()
	}
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("user")
	}
	if err != nil {
		s.logError(opGetUser, "lookup_failed", err)
		return nil, apperror.Dependency(opGetUser, err)
	}
	return &user, nil
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
	s.logger.Error("users service error", attrs...)
}
