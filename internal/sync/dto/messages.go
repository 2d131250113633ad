// Package dto defines the wire schema of the sync protocol: a closed set
// of tagged frames validated before any payload reaches business logic.
package dto

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Client→server event names.
const (
	EventFileUpdate   = "file:update"
	EventFileLoad     = "file:load"
	EventFileVersions = "file:versions"
	EventFileRestore  = "file:restore"
	EventFileDelete   = "file:delete"
	EventFileCreate   = "file:create"
	EventFileRename   = "file:rename"
	EventFileMove     = "file:move"
	EventSubscribe    = "project:subscribe"
	EventUnsubscribe  = "project:unsubscribe"
)

// Server→client event names.
const (
	EventConnected   = "connected"
	EventFileUpdated = "file:updated"
	EventUserJoined  = "user:joined"
	EventUserLeft    = "user:left"
	EventAck         = "ack"
)

// Frame is the envelope of every client→server message. Requests that
// expect an acknowledgment carry a non-zero ID; subscribe/unsubscribe
// frames may omit it.
type Frame struct {
	ID    uint64          `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Validate checks the envelope itself; payloads validate separately.
func (f Frame) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Event, validation.Required, validation.In(
			EventFileUpdate, EventFileLoad, EventFileVersions,
			EventFileRestore, EventFileDelete, EventFileCreate,
			EventFileRename, EventFileMove,
			EventSubscribe, EventUnsubscribe,
		)),
	)
}

// UpdatePayload carries a full-content save.
type UpdatePayload struct {
	FileID    string  `json:"fileId"`
	Content   *string `json:"content"`
	ProjectID string  `json:"projectId"`
	// CreateVersion snapshots the prior content before overwriting.
	CreateVersion bool `json:"createVersion,omitempty"`
	// BaseEtag, when set, must match the file's stored fingerprint or the
	// save fails with a conflict instead of silently overwriting.
	BaseEtag string `json:"baseEtag,omitempty"`
}

func (p UpdatePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FileID, validation.Required),
		validation.Field(&p.Content, validation.NotNil),
		validation.Field(&p.ProjectID, validation.Required),
	)
}

// LoadPayload requests a file's current content.
type LoadPayload struct {
	FileID string `json:"fileId"`
}

func (p LoadPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FileID, validation.Required),
	)
}

// VersionsPayload requests a file's snapshot history.
type VersionsPayload struct {
	FileID string `json:"fileId"`
}

func (p VersionsPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FileID, validation.Required),
	)
}

// RestorePayload restores a historical snapshot as live content.
type RestorePayload struct {
	FileID    string `json:"fileId"`
	VersionID string `json:"versionId"`
}

func (p RestorePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FileID, validation.Required),
		validation.Field(&p.VersionID, validation.Required),
	)
}

// DeletePayload removes a file or folder subtree.
type DeletePayload struct {
	FileID string `json:"fileId"`
}

func (p DeletePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FileID, validation.Required),
	)
}

// CreatePayload creates a file or folder node.
type CreatePayload struct {
	ProjectID string  `json:"projectId"`
	ParentID  *string `json:"parentId,omitempty"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
}

func (p CreatePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ProjectID, validation.Required),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.Kind, validation.Required, validation.In("file", "folder")),
	)
}

// RenamePayload renames a node in place.
type RenamePayload struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`
}

func (p RenamePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FileID, validation.Required),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 255)),
	)
}

// MovePayload re-parents a node; nil parent moves it to the tree root.
type MovePayload struct {
	FileID   string  `json:"fileId"`
	ParentID *string `json:"parentId,omitempty"`
}

func (p MovePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FileID, validation.Required),
	)
}

// RoomPayload carries project:subscribe / project:unsubscribe.
type RoomPayload struct {
	ProjectID string `json:"projectId"`
}

func (p RoomPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ProjectID, validation.Required),
	)
}
