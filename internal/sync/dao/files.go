package dao

import (
	"context"
	"database/sql"
	"time"

	errors "github.com/Laisky/errors/v2"

	"github.com/opendraw/opendraw-sync/internal/sync/model"
)

const fileColumns = `id, project_id, parent_id, name, kind, object_path, etag, size, legacy_content, migrated, created_at, updated_at`

func scanFile(row *sql.Row) (*model.File, error) {
	var (
		f             model.File
		parentID      sql.NullString
		objectPath    sql.NullString
		etag          sql.NullString
		legacyContent sql.NullString
	)
	err := row.Scan(&f.ID, &f.ProjectID, &parentID, &f.Name, &f.Kind,
		&objectPath, &etag, &f.Size, &legacyContent, &f.Migrated,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		f.ParentID = &parentID.String
	}
	if objectPath.Valid {
		f.ObjectPath = &objectPath.String
	}
	if etag.Valid {
		f.Etag = &etag.String
	}
	if legacyContent.Valid {
		f.LegacyContent = &legacyContent.String
	}

	return &f, nil
}

// GetFile loads one file row by id.
func (d *Metadata) GetFile(ctx context.Context, fileID string) (*model.File, error) {
	row := d.db.DB.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1`, fileID)

	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.WithStack(model.NewError(model.ErrCodeNotFound, "File not found"))
		}
		return nil, errors.Wrap(err, "query file")
	}

	return f, nil
}

// ListChildren returns the direct children of a node. A nil parentID
// selects the project's root nodes.
func (d *Metadata) ListChildren(ctx context.Context, projectID string, parentID *string) (files []*model.File, err error) {
	var rows *sql.Rows
	if parentID == nil {
		rows, err = d.db.DB.QueryContext(ctx,
			`SELECT `+fileColumns+` FROM files WHERE project_id = $1 AND parent_id IS NULL`, projectID)
	} else {
		rows, err = d.db.DB.QueryContext(ctx,
			`SELECT `+fileColumns+` FROM files WHERE project_id = $1 AND parent_id = $2`, projectID, *parentID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query children")
	}
	defer rows.Close() // nolint: errcheck

	for rows.Next() {
		var (
			f             model.File
			pid           sql.NullString
			objectPath    sql.NullString
			etag          sql.NullString
			legacyContent sql.NullString
		)
		if err = rows.Scan(&f.ID, &f.ProjectID, &pid, &f.Name, &f.Kind,
			&objectPath, &etag, &f.Size, &legacyContent, &f.Migrated,
			&f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan child")
		}
		if pid.Valid {
			f.ParentID = &pid.String
		}
		if objectPath.Valid {
			f.ObjectPath = &objectPath.String
		}
		if etag.Valid {
			f.Etag = &etag.String
		}
		if legacyContent.Valid {
			f.LegacyContent = &legacyContent.String
		}
		files = append(files, &f)
	}

	return files, errors.Wrap(rows.Err(), "iterate children")
}

// SiblingExists reports whether another node with the same name already
// sits under (projectID, parentID). excludeID skips the node itself on
// rename/move checks.
func (d *Metadata) SiblingExists(ctx context.Context, projectID string, parentID *string, name, excludeID string) (bool, error) {
	var (
		cnt int
		err error
	)
	if parentID == nil {
		err = d.db.DB.QueryRowContext(ctx,
			`SELECT count(1) FROM files WHERE project_id = $1 AND parent_id IS NULL AND name = $2 AND id <> $3`,
			projectID, name, excludeID).Scan(&cnt)
	} else {
		err = d.db.DB.QueryRowContext(ctx,
			`SELECT count(1) FROM files WHERE project_id = $1 AND parent_id = $2 AND name = $3 AND id <> $4`,
			projectID, *parentID, name, excludeID).Scan(&cnt)
	}
	if err != nil {
		return false, errors.Wrap(err, "count siblings")
	}

	return cnt > 0, nil
}

// InsertFile creates a new file or folder row.
func (d *Metadata) InsertFile(ctx context.Context, f *model.File) error {
	_, err := d.db.DB.ExecContext(ctx,
		`INSERT INTO files (id, project_id, parent_id, name, kind, object_path, etag, size, legacy_content, migrated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		f.ID, f.ProjectID, f.ParentID, f.Name, f.Kind,
		f.ObjectPath, f.Etag, f.Size, f.LegacyContent, f.Migrated,
		f.CreatedAt, f.UpdatedAt)

	return errors.Wrap(err, "insert file")
}

// RenameFile updates a node's name.
func (d *Metadata) RenameFile(ctx context.Context, fileID, name string, now time.Time) error {
	_, err := d.db.DB.ExecContext(ctx,
		`UPDATE files SET name = $1, updated_at = $2 WHERE id = $3`,
		name, now, fileID)

	return errors.Wrap(err, "rename file")
}

// MoveFile re-parents a node within its project.
func (d *Metadata) MoveFile(ctx context.Context, fileID string, parentID *string, now time.Time) error {
	_, err := d.db.DB.ExecContext(ctx,
		`UPDATE files SET parent_id = $1, updated_at = $2 WHERE id = $3`,
		parentID, now, fileID)

	return errors.Wrap(err, "move file")
}

// UpdateContentMeta points a file at its new live blob. Marks the row as
// migrated and clears the inline legacy content in the same statement, so
// a file never has two authoritative content sources.
func (d *Metadata) UpdateContentMeta(ctx context.Context, fileID, objectPath, etag string, size int64, now time.Time) error {
	_, err := d.db.DB.ExecContext(ctx,
		`UPDATE files SET object_path = $1, etag = $2, size = $3, migrated = TRUE, legacy_content = NULL, updated_at = $4 WHERE id = $5`,
		objectPath, etag, size, now, fileID)

	return errors.Wrap(err, "update file content meta")
}

// DeleteFile removes the metadata row; version rows cascade.
func (d *Metadata) DeleteFile(ctx context.Context, fileID string) error {
	_, err := d.db.DB.ExecContext(ctx,
		`DELETE FROM files WHERE id = $1`, fileID)

	return errors.Wrap(err, "delete file")
}
