// Package dao is the data access layer of the file-sync subsystem:
// relational metadata, object-store content and the redis cache.
package dao

import (
	"github.com/opendraw/opendraw-sync/library/db/postgres"
)

// Metadata accesses file and version records in PostgreSQL.
type Metadata struct {
	db *postgres.DB
}

// NewMetadata create new Metadata dao
func NewMetadata(db *postgres.DB) *Metadata {
	return &Metadata{db: db}
}
