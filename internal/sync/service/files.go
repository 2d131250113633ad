package service

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/opendraw/opendraw-sync/internal/sync/dao"
	"github.com/opendraw/opendraw-sync/internal/sync/dto"
	"github.com/opendraw/opendraw-sync/internal/sync/model"
)

// Load returns a file's current content, read-through cached.
func (s *Service) Load(ctx context.Context, p dto.LoadPayload) (*dto.LoadResult, error) {
	if cached, ok := s.cache.GetFile(ctx, p.FileID); ok {
		s.logger.Debug("file loaded from cache", zap.String("file_id", p.FileID))
		return &dto.LoadResult{
			Content: cached.Content,
			Size:    cached.Size,
			Cached:  true,
		}, nil
	}

	file, err := s.meta.GetFile(ctx, p.FileID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if file.IsFolder() {
		return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, "Cannot load folder content"))
	}

	var content string
	switch {
	case file.Migrated && file.ObjectPath != nil:
		if content, err = s.blobs.Get(ctx, *file.ObjectPath); err != nil {
			return nil, errors.Wrap(err, "fetch live content")
		}
	case file.LegacyContent != nil:
		content = *file.LegacyContent
	default:
		content = ""
	}

	size := int64(len(content))
	s.cache.SetFile(ctx, p.FileID, &dao.CachedFile{Content: content, Size: size})

	s.logger.Debug("file loaded from store",
		zap.String("file_id", p.FileID), zap.Int64("size", size))

	return &dto.LoadResult{Content: content, Size: size, Cached: false}, nil
}

// Update overwrites a file's content, optionally snapshotting the prior
// content first. Content is written before metadata: a crash in between
// orphans a blob, never a metadata pointer at a missing blob.
func (s *Service) Update(ctx context.Context, actor model.Identity, p dto.UpdatePayload) (*dto.UpdateResult, error) {
	started := s.clock()

	file, err := s.meta.GetFile(ctx, p.FileID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if file.IsFolder() {
		return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, "Cannot update folder content"))
	}

	if p.BaseEtag != "" {
		if file.Etag == nil || *file.Etag != p.BaseEtag {
			return nil, errors.WithStack(model.NewError(model.ErrCodeConflict,
				"File changed since it was loaded"))
		}
	}

	objectPath := dao.LivePath(p.ProjectID, p.FileID)
	if file.ObjectPath != nil {
		objectPath = *file.ObjectPath
	}

	if p.CreateVersion && file.Migrated && file.ObjectPath != nil {
		if err = s.snapshot(ctx, actor, file, nil); err != nil {
			return nil, errors.Wrap(err, "snapshot before overwrite")
		}
	}

	content := *p.Content
	etag, err := s.blobs.Put(ctx, objectPath, content, map[string]string{
		"user-id":    actor.UserID,
		"file-name":  file.Name,
		"project-id": p.ProjectID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "write content")
	}

	size := int64(len(content))
	now := s.clock()
	if err = s.meta.UpdateContentMeta(ctx, p.FileID, objectPath, etag, size, now); err != nil {
		return nil, errors.Wrap(err, "update metadata")
	}

	s.cache.DelFile(ctx, p.FileID)

	duration := now.Sub(started).Milliseconds()
	s.logger.Info("file saved",
		zap.String("file_id", p.FileID),
		zap.String("user_id", actor.UserID),
		zap.Int64("size", size),
		zap.Int64("duration_ms", duration))

	return &dto.UpdateResult{
		FileID:    p.FileID,
		Size:      size,
		Etag:      etag,
		Timestamp: now.UnixMilli(),
		Duration:  duration,
	}, nil
}

// snapshot persists the file's current live content as an immutable
// version. A non-nil comment marks the snapshot as an auto-backup.
func (s *Service) snapshot(ctx context.Context, actor model.Identity, file *model.File, comment *string) error {
	existing, err := s.blobs.Get(ctx, *file.ObjectPath)
	if err != nil {
		return errors.Wrap(err, "fetch current content")
	}

	now := s.clock()
	versionPath := dao.VersionPath(file.ID, now)
	if comment != nil {
		versionPath = dao.BackupPath(file.ID, now)
	}

	if _, err = s.blobs.Put(ctx, versionPath, existing, nil); err != nil {
		return errors.Wrap(err, "write snapshot blob")
	}

	if err = s.meta.InsertVersion(ctx, &model.FileVersion{
		ID:         s.newID(),
		FileID:     file.ID,
		ObjectPath: versionPath,
		Size:       int64(len(existing)),
		CreatedBy:  actor.UserID,
		Comment:    comment,
		CreatedAt:  now,
	}); err != nil {
		return errors.Wrap(err, "insert version row")
	}

	return nil
}

// ListVersions returns the file's snapshot history, newest first. No
// content is fetched.
func (s *Service) ListVersions(ctx context.Context, p dto.VersionsPayload) (*dto.VersionsResult, error) {
	versions, err := s.meta.ListVersions(ctx, p.FileID)
	if err != nil {
		return nil, errors.Wrap(err, "list versions")
	}

	result := &dto.VersionsResult{Versions: make([]dto.VersionInfo, 0, len(versions))}
	for _, v := range versions {
		result.Versions = append(result.Versions, dto.VersionInfo{
			ID:         v.ID,
			ObjectPath: v.ObjectPath,
			Size:       v.Size,
			CreatedAt:  v.CreatedAt.UnixMilli(),
			Comment:    v.Comment,
		})
	}

	return result, nil
}

const backupComment = "Auto-backup before restore"

// Restore writes a historical snapshot back as the file's live content.
// The current content, when present, is auto-backed up first.
func (s *Service) Restore(ctx context.Context, actor model.Identity, p dto.RestorePayload) (*dto.RestoreResult, error) {
	version, err := s.meta.GetVersion(ctx, p.VersionID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	file, err := s.meta.GetFile(ctx, p.FileID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	content, err := s.blobs.Get(ctx, version.ObjectPath)
	if err != nil {
		return nil, errors.Wrap(err, "fetch version content")
	}

	objectPath := dao.LivePath(file.ProjectID, file.ID)
	if file.ObjectPath != nil {
		objectPath = *file.ObjectPath
	}

	if file.ObjectPath != nil {
		exists, err := s.blobs.Exists(ctx, *file.ObjectPath)
		if err != nil {
			return nil, errors.Wrap(err, "check live content")
		}
		if exists {
			comment := backupComment
			if err = s.snapshot(ctx, actor, file, &comment); err != nil {
				return nil, errors.Wrap(err, "backup before restore")
			}
		}
	}

	etag, err := s.blobs.Put(ctx, objectPath, content, map[string]string{
		"restored-from": p.VersionID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "write restored content")
	}

	size := int64(len(content))
	if err = s.meta.UpdateContentMeta(ctx, p.FileID, objectPath, etag, size, s.clock()); err != nil {
		return nil, errors.Wrap(err, "update metadata")
	}

	s.cache.DelFile(ctx, p.FileID)

	s.logger.Info("file version restored",
		zap.String("file_id", p.FileID),
		zap.String("version_id", p.VersionID),
		zap.String("user_id", actor.UserID))

	return &dto.RestoreResult{Content: content, Size: size, Etag: etag}, nil
}
