package session

import (
	"time"

	"github.com/hashicorp/go-memdb"
)

var tblSessions = "sessions"

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblSessions: {
			Name: tblSessions,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"type": {
					Name:         "type",
					AllowMissing: true,
					Indexer:      &memdb.StringFieldIndex{Field: "Type"},
				},
			},
		},
	},
}

// entry is the indexed view of a session. Entries are immutable once
// inserted; a change replaces the entry.
type entry struct {
	ID        string
	Type      string
	UpdatedAt time.Time
	session   *Session
}
