// Package model holds the persistent records of the file-sync subsystem.
package model

import "time"

// FileKind distinguishes tree nodes.
type FileKind string

const (
	KindFile   FileKind = "file"
	KindFolder FileKind = "folder"
)

// File is a node in a per-project file tree.
//
// A file's authoritative content lives either in the object store
// (Migrated=true, ObjectPath set) or inline in LegacyContent
// (pre-migration rows); never both after a successful write.
type File struct {
	ID        string
	ProjectID string
	// ParentID is nil for tree roots.
	ParentID *string
	Name     string
	Kind     FileKind
	// ObjectPath points at the live content blob in the object store.
	ObjectPath *string
	// Etag is the content fingerprint from the last object-store write.
	Etag *string
	Size int64
	// LegacyContent is the inline content used before first migration.
	LegacyContent *string
	Migrated      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the database table name.
func (File) TableName() string {
	return "files"
}

// IsFolder reports whether the node is a folder.
func (f *File) IsFolder() bool {
	return f.Kind == KindFolder
}

// FileVersion is an immutable snapshot of a file's content.
type FileVersion struct {
	ID         string
	FileID     string
	ObjectPath string
	Size       int64
	CreatedBy  string
	// Comment is an optional human note; auto-backups carry a fixed one.
	Comment   *string
	CreatedAt time.Time
}

// TableName returns the database table name.
func (FileVersion) TableName() string {
	return "file_versions"
}

// Project is the ownership boundary for one file tree.
type Project struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

// TableName returns the database table name.
func (Project) TableName() string {
	return "projects"
}

// User is an account row; the sync server reads it only through signed
// session claims, never directly.
type User struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}

// Identity is the verified session identity attached to a connection.
// It is derived from a credential, never persisted here.
type Identity struct {
	UserID   string
	Username string
	Email    string
}
