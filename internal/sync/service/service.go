// Package service implements the realtime file-sync protocol engine. It
// composes the metadata store, the content store and the cache; the
// transport layer stays in controller.
package service

import (
	"context"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/opendraw/opendraw-sync/internal/sync/dao"
	"github.com/opendraw/opendraw-sync/internal/sync/model"
	"github.com/opendraw/opendraw-sync/library/log"
)

// Clock returns the current time in UTC.
type Clock func() time.Time

// MetadataStore is the relational index of files and versions.
type MetadataStore interface {
	GetFile(ctx context.Context, fileID string) (*model.File, error)
	ListChildren(ctx context.Context, projectID string, parentID *string) ([]*model.File, error)
	SiblingExists(ctx context.Context, projectID string, parentID *string, name, excludeID string) (bool, error)
	InsertFile(ctx context.Context, f *model.File) error
	RenameFile(ctx context.Context, fileID, name string, now time.Time) error
	MoveFile(ctx context.Context, fileID string, parentID *string, now time.Time) error
	UpdateContentMeta(ctx context.Context, fileID, objectPath, etag string, size int64, now time.Time) error
	DeleteFile(ctx context.Context, fileID string) error
	InsertVersion(ctx context.Context, v *model.FileVersion) error
	GetVersion(ctx context.Context, versionID string) (*model.FileVersion, error)
	ListVersions(ctx context.Context, fileID string) ([]*model.FileVersion, error)
}

// BlobStore is durable object storage for file content.
type BlobStore interface {
	Put(ctx context.Context, path, content string, metadata map[string]string) (etag string, err error)
	Get(ctx context.Context, path string) (string, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

// ContentCache is the best-effort read-through cache for file content.
type ContentCache interface {
	GetFile(ctx context.Context, fileID string) (*dao.CachedFile, bool)
	SetFile(ctx context.Context, fileID string, cached *dao.CachedFile)
	DelFile(ctx context.Context, fileID string)
}

// Service is the protocol engine.
type Service struct {
	meta   MetadataStore
	blobs  BlobStore
	cache  ContentCache
	logger logSDK.Logger
	clock  Clock
	newID  func() string
}

// NewService create new sync Service
func NewService(meta MetadataStore, blobs BlobStore, cache ContentCache, logger logSDK.Logger) (*Service, error) {
	if meta == nil || blobs == nil || cache == nil {
		return nil, errors.Errorf("metadata, blob and cache stores are required")
	}
	if logger == nil {
		logger = log.Logger.Named("sync")
	}

	return &Service{
		meta:   meta,
		blobs:  blobs,
		cache:  cache,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}, nil
}

// warnOnError logs a swallowed best-effort failure.
func (s *Service) warnOnError(err error, msg string, fields ...zap.Field) {
	if err == nil || model.IsCode(err, model.ErrCodeNotFound) {
		return
	}
	s.logger.Warn(msg, append(fields, zap.Error(err))...)
}
