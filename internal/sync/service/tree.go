package service

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opendraw/opendraw-sync/internal/sync/dto"
	"github.com/opendraw/opendraw-sync/internal/sync/model"
)

// Create adds a file or folder node, enforcing sibling-name uniqueness.
func (s *Service) Create(ctx context.Context, actor model.Identity, p dto.CreatePayload) (*dto.CreateResult, error) {
	if p.ParentID != nil {
		parent, err := s.meta.GetFile(ctx, *p.ParentID)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if !parent.IsFolder() {
			return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, "Parent is not a folder"))
		}
		if parent.ProjectID != p.ProjectID {
			return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, "Parent belongs to another project"))
		}
	}

	taken, err := s.meta.SiblingExists(ctx, p.ProjectID, p.ParentID, p.Name, "")
	if err != nil {
		return nil, errors.Wrap(err, "check siblings")
	}
	if taken {
		return nil, errors.WithStack(model.NewError(model.ErrCodeConflict,
			"A file with this name already exists here"))
	}

	now := s.clock()
	file := &model.File{
		ID:        s.newID(),
		ProjectID: p.ProjectID,
		ParentID:  p.ParentID,
		Name:      p.Name,
		Kind:      model.FileKind(p.Kind),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.meta.InsertFile(ctx, file); err != nil {
		return nil, errors.Wrap(err, "insert file")
	}

	s.logger.Info("file created",
		zap.String("file_id", file.ID),
		zap.String("project_id", p.ProjectID),
		zap.String("kind", p.Kind),
		zap.String("user_id", actor.UserID))

	return &dto.CreateResult{
		FileID:    file.ID,
		ProjectID: p.ProjectID,
		ParentID:  p.ParentID,
		Name:      p.Name,
		Kind:      p.Kind,
	}, nil
}

// Rename changes a node's name in place. On conflict both rows stay
// untouched.
func (s *Service) Rename(ctx context.Context, p dto.RenamePayload) (*dto.RenameResult, error) {
	file, err := s.meta.GetFile(ctx, p.FileID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	taken, err := s.meta.SiblingExists(ctx, file.ProjectID, file.ParentID, p.Name, file.ID)
	if err != nil {
		return nil, errors.Wrap(err, "check siblings")
	}
	if taken {
		return nil, errors.WithStack(model.NewError(model.ErrCodeConflict,
			"A file with this name already exists here"))
	}

	if err = s.meta.RenameFile(ctx, p.FileID, p.Name, s.clock()); err != nil {
		return nil, errors.Wrap(err, "rename file")
	}

	return &dto.RenameResult{FileID: p.FileID, Name: p.Name}, nil
}

// Move re-parents a node, keeping sibling-name uniqueness at the
// destination and refusing to fold a folder into its own subtree.
func (s *Service) Move(ctx context.Context, p dto.MovePayload) (*dto.MoveResult, error) {
	file, err := s.meta.GetFile(ctx, p.FileID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if p.ParentID != nil {
		parent, err := s.meta.GetFile(ctx, *p.ParentID)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if !parent.IsFolder() {
			return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, "Destination is not a folder"))
		}
		if parent.ProjectID != file.ProjectID {
			return nil, errors.WithStack(model.NewError(model.ErrCodeValidation, "Destination belongs to another project"))
		}

		// walk up from the destination; the moved node must not appear
		for cursor := parent; cursor.ParentID != nil; {
			if *cursor.ParentID == file.ID {
				return nil, errors.WithStack(model.NewError(model.ErrCodeValidation,
					"Cannot move a folder into its own subtree"))
			}
			if cursor, err = s.meta.GetFile(ctx, *cursor.ParentID); err != nil {
				return nil, errors.Wrap(err, "walk ancestors")
			}
		}
		if parent.ID == file.ID {
			return nil, errors.WithStack(model.NewError(model.ErrCodeValidation,
				"Cannot move a folder into itself"))
		}
	}

	taken, err := s.meta.SiblingExists(ctx, file.ProjectID, p.ParentID, file.Name, file.ID)
	if err != nil {
		return nil, errors.Wrap(err, "check siblings")
	}
	if taken {
		return nil, errors.WithStack(model.NewError(model.ErrCodeConflict,
			"A file with this name already exists at the destination"))
	}

	if err = s.meta.MoveFile(ctx, p.FileID, p.ParentID, s.clock()); err != nil {
		return nil, errors.Wrap(err, "move file")
	}

	return &dto.MoveResult{FileID: p.FileID, ParentID: p.ParentID}, nil
}

// Delete removes a node and, for folders, the whole subtree. Blob cleanup
// is best-effort; metadata deletion proceeds regardless, since leaking
// storage is a lesser problem than orphaned metadata.
func (s *Service) Delete(ctx context.Context, p dto.DeletePayload) (*dto.DeleteResult, error) {
	root, err := s.meta.GetFile(ctx, p.FileID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// depth-first over an explicit stack, collected pre-order so the
	// reversed slice deletes leaves before their parents
	var ordered []*model.File
	pending := []*model.File{root}
	for len(pending) > 0 {
		node := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		ordered = append(ordered, node)

		if !node.IsFolder() {
			continue
		}
		children, err := s.meta.ListChildren(ctx, node.ProjectID, &node.ID)
		if err != nil {
			return nil, errors.Wrap(err, "list children")
		}
		pending = append(pending, children...)
	}

	for i := len(ordered) - 1; i >= 0; i-- {
		if err = s.deleteNode(ctx, ordered[i]); err != nil {
			return nil, errors.Wrapf(err, "delete node %q", ordered[i].ID)
		}
	}

	s.logger.Info("file deleted",
		zap.String("file_id", p.FileID),
		zap.Int("removed", len(ordered)))

	return &dto.DeleteResult{FileID: p.FileID, Removed: len(ordered)}, nil
}

func (s *Service) deleteNode(ctx context.Context, file *model.File) error {
	if file.ObjectPath != nil {
		s.warnOnError(s.blobs.Delete(ctx, *file.ObjectPath),
			"delete live blob", zap.String("file_id", file.ID))
	}

	versions, err := s.meta.ListVersions(ctx, file.ID)
	if err != nil {
		return errors.Wrap(err, "list versions")
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(4)
	for _, version := range versions {
		path := version.ObjectPath
		grp.Go(func() error {
			s.warnOnError(s.blobs.Delete(gctx, path),
				"delete version blob", zap.String("path", path))
			return nil
		})
	}
	_ = grp.Wait() // nolint: errcheck // workers only warn

	if err = s.meta.DeleteFile(ctx, file.ID); err != nil {
		return errors.Wrap(err, "delete metadata")
	}

	s.cache.DelFile(ctx, file.ID)

	return nil
}
