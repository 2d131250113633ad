package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opendraw/opendraw-sync/internal/sync/dao"
	"github.com/opendraw/opendraw-sync/internal/sync/model"
)

type fakeMeta struct {
	mu       sync.Mutex
	files    map[string]*model.File
	versions map[string]*model.FileVersion
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{
		files:    make(map[string]*model.File),
		versions: make(map[string]*model.FileVersion),
	}
}

func (m *fakeMeta) GetFile(ctx context.Context, fileID string) (*model.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return nil, model.NewError(model.ErrCodeNotFound, "File not found")
	}
	cp := *f
	return &cp, nil
}

func (m *fakeMeta) ListChildren(ctx context.Context, projectID string, parentID *string) (children []*model.File, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.ProjectID != projectID || f.ParentID == nil || parentID == nil {
			continue
		}
		if *f.ParentID == *parentID {
			cp := *f
			children = append(children, &cp)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children, nil
}

func (m *fakeMeta) SiblingExists(ctx context.Context, projectID string, parentID *string, name, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.ProjectID != projectID || f.Name != name || f.ID == excludeID {
			continue
		}
		if (f.ParentID == nil) != (parentID == nil) {
			continue
		}
		if parentID == nil || *f.ParentID == *parentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *fakeMeta) InsertFile(ctx context.Context, f *model.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.files[f.ID] = &cp
	return nil
}

func (m *fakeMeta) RenameFile(ctx context.Context, fileID, name string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[fileID].Name = name
	m.files[fileID].UpdatedAt = now
	return nil
}

func (m *fakeMeta) MoveFile(ctx context.Context, fileID string, parentID *string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[fileID].ParentID = parentID
	m.files[fileID].UpdatedAt = now
	return nil
}

func (m *fakeMeta) UpdateContentMeta(ctx context.Context, fileID, objectPath, etag string, size int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return model.NewError(model.ErrCodeNotFound, "File not found")
	}
	f.ObjectPath = &objectPath
	f.Etag = &etag
	f.Size = size
	f.Migrated = true
	f.LegacyContent = nil
	f.UpdatedAt = now
	return nil
}

func (m *fakeMeta) DeleteFile(ctx context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, fileID)
	for id, v := range m.versions {
		if v.FileID == fileID {
			delete(m.versions, id)
		}
	}
	return nil
}

func (m *fakeMeta) InsertVersion(ctx context.Context, v *model.FileVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.versions[v.ID] = &cp
	return nil
}

func (m *fakeMeta) GetVersion(ctx context.Context, versionID string) (*model.FileVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[versionID]
	if !ok {
		return nil, model.NewError(model.ErrCodeNotFound, "Version not found")
	}
	cp := *v
	return &cp, nil
}

func (m *fakeMeta) ListVersions(ctx context.Context, fileID string) (versions []*model.FileVersion, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.FileID == fileID {
			cp := *v
			versions = append(versions, &cp)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].CreatedAt.After(versions[j].CreatedAt)
	})
	return versions, nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string]string
	seq     int
	deleted []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string]string)}
}

func (b *fakeBlobs) Put(ctx context.Context, path, content string, metadata map[string]string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = content
	b.seq++
	return fmt.Sprintf("etag-%d", b.seq), nil
}

func (b *fakeBlobs) Get(ctx context.Context, path string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	content, ok := b.objects[path]
	if !ok {
		return "", model.NewError(model.ErrCodeNotFound, "Object not found")
	}
	return content, nil
}

func (b *fakeBlobs) Exists(ctx context.Context, path string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[path]
	return ok, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, path)
	b.deleted = append(b.deleted, path)
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*dao.CachedFile
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*dao.CachedFile)}
}

func (c *fakeCache) GetFile(ctx context.Context, fileID string) (*dao.CachedFile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.entries[fileID]
	return cached, ok
}

func (c *fakeCache) SetFile(ctx context.Context, fileID string, cached *dao.CachedFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fileID] = cached
}

func (c *fakeCache) DelFile(ctx context.Context, fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fileID)
}
