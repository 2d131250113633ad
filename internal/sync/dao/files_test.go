package dao

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/opendraw/opendraw-sync/internal/sync/model"
	"github.com/opendraw/opendraw-sync/library/db/postgres"
)

func newMockMetadata(t *testing.T) (*Metadata, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return NewMetadata(&postgres.DB{DB: db}), mock
}

func fileRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "project_id", "parent_id", "name", "kind", "object_path",
		"etag", "size", "legacy_content", "migrated", "created_at", "updated_at",
	})
}

func TestMetadataGetFile(t *testing.T) {
	t.Parallel()
	d, mock := newMockMetadata(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM files WHERE id = \$1`).
		WithArgs("f1").
		WillReturnRows(fileRows().AddRow(
			"f1", "p1", nil, "flow.mmd", "file", "projects/p1/f1.mmd",
			"abc123", int64(42), nil, true, now, now,
		))

	f, err := d.GetFile(context.Background(), "f1")
	require.NoError(t, err)
	require.Equal(t, "f1", f.ID)
	require.Equal(t, "p1", f.ProjectID)
	require.Nil(t, f.ParentID)
	require.Equal(t, model.KindFile, f.Kind)
	require.NotNil(t, f.ObjectPath)
	require.Equal(t, "projects/p1/f1.mmd", *f.ObjectPath)
	require.NotNil(t, f.Etag)
	require.Equal(t, int64(42), f.Size)
	require.True(t, f.Migrated)
	require.Nil(t, f.LegacyContent)
}

func TestMetadataGetFileNotFound(t *testing.T) {
	t.Parallel()
	d, mock := newMockMetadata(t)

	mock.ExpectQuery(`SELECT .+ FROM files WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(fileRows())

	_, err := d.GetFile(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, model.IsCode(err, model.ErrCodeNotFound))
	require.EqualError(t, err, "File not found")
}

func TestMetadataListChildren(t *testing.T) {
	t.Parallel()
	d, mock := newMockMetadata(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	parent := "d1"
	mock.ExpectQuery(`SELECT .+ FROM files WHERE project_id = \$1 AND parent_id = \$2`).
		WithArgs("p1", "d1").
		WillReturnRows(fileRows().
			AddRow("f1", "p1", "d1", "a.mmd", "file", nil, nil, int64(0), "legacy", false, now, now).
			AddRow("d2", "p1", "d1", "sub", "folder", nil, nil, int64(0), nil, false, now, now))

	children, err := d.ListChildren(context.Background(), "p1", &parent)
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.NotNil(t, children[0].LegacyContent)
	require.Equal(t, "legacy", *children[0].LegacyContent)
	require.True(t, children[1].IsFolder())
}

func TestMetadataListChildrenAtRoot(t *testing.T) {
	t.Parallel()
	d, mock := newMockMetadata(t)

	mock.ExpectQuery(`SELECT .+ FROM files WHERE project_id = \$1 AND parent_id IS NULL`).
		WithArgs("p1").
		WillReturnRows(fileRows())

	children, err := d.ListChildren(context.Background(), "p1", nil)
	require.NoError(t, err)
	require.Empty(t, children)
}

func TestMetadataSiblingExists(t *testing.T) {
	t.Parallel()
	d, mock := newMockMetadata(t)

	mock.ExpectQuery(`SELECT count\(1\) FROM files WHERE project_id = \$1 AND parent_id IS NULL AND name = \$2 AND id <> \$3`).
		WithArgs("p1", "flow.mmd", "").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	taken, err := d.SiblingExists(context.Background(), "p1", nil, "flow.mmd", "")
	require.NoError(t, err)
	require.True(t, taken)

	parent := "d1"
	mock.ExpectQuery(`SELECT count\(1\) FROM files WHERE project_id = \$1 AND parent_id = \$2 AND name = \$3 AND id <> \$4`).
		WithArgs("p1", "d1", "flow.mmd", "f1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	taken, err = d.SiblingExists(context.Background(), "p1", &parent, "flow.mmd", "f1")
	require.NoError(t, err)
	require.False(t, taken)
}

func TestMetadataUpdateContentMeta(t *testing.T) {
	t.Parallel()
	d, mock := newMockMetadata(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE files SET object_path = \$1, etag = \$2, size = \$3, migrated = TRUE, legacy_content = NULL, updated_at = \$4 WHERE id = \$5`).
		WithArgs("projects/p1/f1.mmd", "abc123", int64(42), now, "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := d.UpdateContentMeta(context.Background(), "f1", "projects/p1/f1.mmd", "abc123", 42, now)
	require.NoError(t, err)
}

func TestMetadataInsertAndDeleteFile(t *testing.T) {
	t.Parallel()
	d, mock := newMockMetadata(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	f := &model.File{
		ID: "f1", ProjectID: "p1", Name: "flow.mmd", Kind: model.KindFile,
		CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectExec(`INSERT INTO files`).
		WithArgs(f.ID, f.ProjectID, nil, f.Name, string(f.Kind),
			nil, nil, f.Size, nil, f.Migrated, f.CreatedAt, f.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, d.InsertFile(context.Background(), f))

	mock.ExpectExec(`DELETE FROM files WHERE id = \$1`).
		WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, d.DeleteFile(context.Background(), "f1"))
}

func TestMetadataVersions(t *testing.T) {
	t.Parallel()
	d, mock := newMockMetadata(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	comment := "Auto-backup before restore"
	mock.ExpectExec(`INSERT INTO file_versions`).
		WithArgs("v1", "f1", "versions/f1/1234.mmd", int64(10), "u1", &comment, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, d.InsertVersion(context.Background(), &model.FileVersion{
		ID: "v1", FileID: "f1", ObjectPath: "versions/f1/1234.mmd",
		Size: 10, CreatedBy: "u1", Comment: &comment, CreatedAt: now,
	}))

	versionRows := sqlmock.NewRows([]string{
		"id", "file_id", "object_path", "size", "created_by", "comment", "created_at",
	})
	mock.ExpectQuery(`SELECT .+ FROM file_versions WHERE file_id = \$1 ORDER BY created_at DESC`).
		WithArgs("f1").
		WillReturnRows(versionRows.
			AddRow("v2", "f1", "versions/f1/5678.mmd", int64(20), "u1", nil, now.Add(time.Minute)).
			AddRow("v1", "f1", "versions/f1/1234.mmd", int64(10), "u1", comment, now))

	versions, err := d.ListVersions(context.Background(), "f1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Nil(t, versions[0].Comment)
	require.NotNil(t, versions[1].Comment)
	require.Equal(t, comment, *versions[1].Comment)

	mock.ExpectQuery(`SELECT .+ FROM file_versions WHERE id = \$1`).
		WithArgs("v9").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "file_id", "object_path", "size", "created_by", "comment", "created_at",
		}))

	_, err = d.GetVersion(context.Background(), "v9")
	require.Error(t, err)
	require.True(t, model.IsCode(err, model.ErrCodeNotFound))
}
