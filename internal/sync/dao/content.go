package dao

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/minio/minio-go/v7"

	"github.com/opendraw/opendraw-sync/internal/sync/model"
	"github.com/opendraw/opendraw-sync/library/log"
)

// ContentStore persists file blobs in the object store. Live content and
// version snapshots share one bucket under distinct path prefixes.
type ContentStore struct {
	cli         *minio.Client
	filesBucket string
	// exportsBucket holds rendered exports; provisioned here, written by
	// the out-of-scope export pipeline.
	exportsBucket string
}

// NewContentStore create new ContentStore
func NewContentStore(cli *minio.Client, filesBucket, exportsBucket string) *ContentStore {
	return &ContentStore{
		cli:           cli,
		filesBucket:   filesBucket,
		exportsBucket: exportsBucket,
	}
}

// Initialize creates the buckets when missing.
func (s *ContentStore) Initialize(ctx context.Context) error {
	for _, bucket := range []string{s.filesBucket, s.exportsBucket} {
		exists, err := s.cli.BucketExists(ctx, bucket)
		if err != nil {
			return errors.Wrapf(err, "check bucket %q", bucket)
		}
		if exists {
			continue
		}

		if err = s.cli.MakeBucket(ctx, bucket,
			minio.MakeBucketOptions{Region: "us-east-1"}); err != nil {
			return errors.Wrapf(err, "make bucket %q", bucket)
		}
		log.Logger.Info("created bucket", zap.String("bucket", bucket))
	}

	return nil
}

// LivePath is the canonical object path for a file's current content.
func LivePath(projectID, fileID string) string {
	return fmt.Sprintf("projects/%s/%s.mmd", projectID, fileID)
}

// VersionPath is the object path for a manual snapshot taken at ts.
func VersionPath(fileID string, ts time.Time) string {
	return fmt.Sprintf("versions/%s/%d.mmd", fileID, ts.UnixMilli())
}

// BackupPath is the object path for an auto-backup taken before a restore.
func BackupPath(fileID string, ts time.Time) string {
	return fmt.Sprintf("versions/%s/%d_before_restore.mmd", fileID, ts.UnixMilli())
}

// Put writes content and returns the store's fingerprint for it.
func (s *ContentStore) Put(ctx context.Context, path, content string, metadata map[string]string) (etag string, err error) {
	payload := []byte(content)
	info, err := s.cli.PutObject(ctx, s.filesBucket, path,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{
			ContentType:  "text/plain; charset=utf-8",
			UserMetadata: metadata,
		})
	if err != nil {
		return "", errors.WithStack(storeErr(err, "put object"))
	}

	return info.ETag, nil
}

// Get fetches a blob. Missing objects map to a typed NotFound error.
func (s *ContentStore) Get(ctx context.Context, path string) (string, error) {
	obj, err := s.cli.GetObject(ctx, s.filesBucket, path, minio.GetObjectOptions{})
	if err != nil {
		return "", errors.WithStack(storeErr(err, "get object"))
	}
	defer obj.Close() // nolint: errcheck

	payload, err := io.ReadAll(obj)
	if err != nil {
		return "", errors.WithStack(storeErr(err, "read object"))
	}

	return string(payload), nil
}

// Exists reports whether a blob is present.
func (s *ContentStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.cli.StatObject(ctx, s.filesBucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, errors.WithStack(storeErr(err, "stat object"))
	}

	return true, nil
}

// Delete removes a blob. An already-absent object is success; version
// cleanup routinely races with prior partial failures.
func (s *ContentStore) Delete(ctx context.Context, path string) error {
	err := s.cli.RemoveObject(ctx, s.filesBucket, path, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return errors.WithStack(storeErr(err, "remove object"))
	}

	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(errors.Cause(err))
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}

// storeErr maps object-store failures onto the sync error taxonomy.
func storeErr(err error, msg string) error {
	if isNoSuchKey(err) {
		return model.NewError(model.ErrCodeNotFound, "Object not found")
	}

	return &model.Error{
		Code:    model.ErrCodeStoreUnavailable,
		Message: "Object store unavailable",
		Cause:   errors.Wrap(err, msg),
	}
}
