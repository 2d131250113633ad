package dto

// Acknowledgment payloads, flattened into the ack frame the way the web
// client consumes them.

// AckBase is embedded by every acknowledgment.
type AckBase struct {
	ID      uint64 `json:"id"`
	Event   string `json:"event"`
	Success bool   `json:"success"`
}

// ErrorAck rejects one operation without tearing down the connection.
type ErrorAck struct {
	ID    uint64 `json:"id"`
	Event string `json:"event"`
	Error string `json:"error"`
	// RetryAfter is set for rate-limit rejections, in whole seconds.
	RetryAfter int `json:"retryAfter,omitempty"`
}

// UpdateResult acknowledges file:update.
type UpdateResult struct {
	FileID    string `json:"fileId"`
	Size      int64  `json:"size"`
	Etag      string `json:"etag"`
	Timestamp int64  `json:"timestamp"`
	// Duration is the server-side handling time in milliseconds.
	Duration int64 `json:"duration"`
}

// LoadResult acknowledges file:load.
type LoadResult struct {
	Content string `json:"content"`
	Size    int64  `json:"size"`
	Cached  bool   `json:"cached"`
}

// VersionInfo is one history entry; content is never included.
type VersionInfo struct {
	ID         string  `json:"id"`
	ObjectPath string  `json:"objectPath"`
	Size       int64   `json:"size"`
	CreatedAt  int64   `json:"createdAt"`
	Comment    *string `json:"comment"`
}

// VersionsResult acknowledges file:versions, newest first.
type VersionsResult struct {
	Versions []VersionInfo `json:"versions"`
}

// RestoreResult acknowledges file:restore with the restored content, which
// the client applies to its live editor buffer.
type RestoreResult struct {
	Content string `json:"content"`
	Size    int64  `json:"size"`
	Etag    string `json:"etag"`
}

// DeleteResult acknowledges file:delete.
type DeleteResult struct {
	FileID string `json:"fileId"`
	// Removed counts deleted tree nodes, including the root of the request.
	Removed int `json:"removed"`
}

// CreateResult acknowledges file:create.
type CreateResult struct {
	FileID    string  `json:"fileId"`
	ProjectID string  `json:"projectId"`
	ParentID  *string `json:"parentId"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
}

// RenameResult acknowledges file:rename.
type RenameResult struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`
}

// MoveResult acknowledges file:move.
type MoveResult struct {
	FileID   string  `json:"fileId"`
	ParentID *string `json:"parentId"`
}

// Broadcast events.

// ConnectedEvent greets a freshly authenticated connection.
type ConnectedEvent struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
	Timestamp    int64  `json:"timestamp"`
}

// FileUpdatedEvent tells other room members a file changed. The actor's
// own connection never receives it.
type FileUpdatedEvent struct {
	FileID    string `json:"fileId"`
	UserID    string `json:"userId"`
	Size      int64  `json:"size"`
	Timestamp int64  `json:"timestamp"`
}

// UserJoinedEvent announces a new room participant.
type UserJoinedEvent struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
}

// UserLeftEvent announces a departure.
type UserLeftEvent struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
}
