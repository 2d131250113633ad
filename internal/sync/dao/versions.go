package dao

import (
	"context"
	"database/sql"

	errors "github.com/Laisky/errors/v2"

	"github.com/opendraw/opendraw-sync/internal/sync/model"
)

const versionColumns = `id, file_id, object_path, size, created_by, comment, created_at`

// InsertVersion appends an immutable snapshot record.
func (d *Metadata) InsertVersion(ctx context.Context, v *model.FileVersion) error {
	_, err := d.db.DB.ExecContext(ctx,
		`INSERT INTO file_versions (id, file_id, object_path, size, created_by, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.FileID, v.ObjectPath, v.Size, v.CreatedBy, v.Comment, v.CreatedAt)

	return errors.Wrap(err, "insert file version")
}

// GetVersion loads one snapshot record by id.
func (d *Metadata) GetVersion(ctx context.Context, versionID string) (*model.FileVersion, error) {
	var (
		v       model.FileVersion
		comment sql.NullString
	)
	err := d.db.DB.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM file_versions WHERE id = $1`, versionID).
		Scan(&v.ID, &v.FileID, &v.ObjectPath, &v.Size, &v.CreatedBy, &comment, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.WithStack(model.NewError(model.ErrCodeNotFound, "Version not found"))
		}
		return nil, errors.Wrap(err, "query version")
	}

	if comment.Valid {
		v.Comment = &comment.String
	}

	return &v, nil
}

// ListVersions returns a file's snapshots, newest first.
func (d *Metadata) ListVersions(ctx context.Context, fileID string) (versions []*model.FileVersion, err error) {
	rows, err := d.db.DB.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM file_versions WHERE file_id = $1 ORDER BY created_at DESC`, fileID)
	if err != nil {
		return nil, errors.Wrap(err, "query versions")
	}
	defer rows.Close() // nolint: errcheck

	for rows.Next() {
		var (
			v       model.FileVersion
			comment sql.NullString
		)
		if err = rows.Scan(&v.ID, &v.FileID, &v.ObjectPath, &v.Size,
			&v.CreatedBy, &comment, &v.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan version")
		}
		if comment.Valid {
			v.Comment = &comment.String
		}
		versions = append(versions, &v)
	}

	return versions, errors.Wrap(rows.Err(), "iterate versions")
}
