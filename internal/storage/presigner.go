package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hyperscribe/backend/internal/apperror"
	"github.com/hyperscribe/backend/internal/notes"
	"go.uber.org/zap"
)

// PresignExpiry bounds how long a presigned URL stays usable.
const PresignExpiry = 15 * time.Minute

var (
	errMissingBucket     = errors.New("storage bucket is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opPresignUpload   = "storage.presign_upload"
	opPresignDownload = "storage.presign_download"
)

// PresignerConfig configures the S3-compatible object store client.
type PresignerConfig struct {
	Endpoint   string
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	IDProvider notes.IDProvider
	Logger     *zap.Logger
}

// Presigner hands out short-lived upload and download URLs so clients
// move attachment bytes directly against the object store.
type Presigner struct {
	bucket     string
	presign    *s3.PresignClient
	idProvider notes.IDProvider
	logger     *zap.Logger
}

// NewPresigner builds the object-store client once at construction.
func NewPresigner(ctx context.Context, cfg PresignerConfig) (*Presigner, error) {
	if cfg.Bucket == "" {
		return nil, errMissingBucket
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load object store config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Presigner{
		bucket:     cfg.Bucket,
		presign:    s3.NewPresignClient(client),
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// UploadTicket carries a presigned PUT URL and the object key the client
// must report back when registering the attachment.
type UploadTicket struct {
	URL        string
	StorageKey string
	ExpiresAt  time.Time
}

// PresignUpload issues a short-lived PUT URL under the caller's key
// prefix so one user cannot write into another's space.
func (p *Presigner) PresignUpload(ctx context.Context, userID string) (*UploadTicket, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	objectID, err := p.idProvider.NewID()
	if err != nil {
		p.logError(opPresignUpload, "id_generation_failed", err)
		return nil, apperror.Dependency(opPresignUpload, err)
	}
	key := fmt.Sprintf("users/%s/%s", userID, objectID)

	request, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		p.logError(opPresignUpload, "presign_failed", err, zap.String("user_id", userID))
		return nil, apperror.Dependency(opPresignUpload, err)
	}

	return &UploadTicket{
		URL:        request.URL,
		StorageKey: key,
		ExpiresAt:  time.Now().UTC().Add(PresignExpiry),
	}, nil
}

// PresignDownload issues a short-lived GET URL for a stored object.
// Keys outside the caller's prefix surface as not found, matching how
// foreign rows are hidden everywhere else.
func (p *Presigner) PresignDownload(ctx context.Context, userID, storageKey string) (string, error) {
	if userID == "" {
		return "", apperror.Unauthorized()
	}
	if storageKey == "" {
		return "", apperror.ValidationFailed("storageKey", "storage key is required")
	}
	if !strings.HasPrefix(storageKey, "users/"+userID+"/") {
		return "", apperror.NotFound("attachment")
	}
	request, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(storageKey),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		p.logError(opPresignDownload, "presign_failed", err, zap.String("storage_key", storageKey))
		return "", apperror.Dependency(opPresignDownload, err)
	}
	return request.URL, nil
}

func (p *Presigner) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	p.logger.Error("storage error", attrs...)
}
