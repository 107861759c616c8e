package directory

import (
	"fmt"

	"github.com/kapu/parish-directory-go/internal/domain"
	"github.com/kapu/parish-directory-go/internal/service/contentstore"
)

type Status string

const (
	// StatusOK: the document was read and parsed.
	StatusOK Status = "ok"
	// StatusMissing: the store holds no document yet; the empty document is genuine.
	StatusMissing Status = "missing"
	// StatusUnavailable: the store could not be read or the document was malformed.
	// The empty document stands in and must not be shown as "no members".
	StatusUnavailable Status = "unavailable"
)

// Snapshot is a loaded document, the version it was read at and how the read went.
type Snapshot struct {
	Document *domain.Document
	Token    contentstore.Token
	Status   Status
	Err      error
	Cached   bool
}

func unavailable(err error) *Snapshot {
	return &Snapshot{Document: domain.NewDocument(), Status: StatusUnavailable, Err: err}
}

// Available is false when the document shown is a stand-in for an unreadable one.
func (s *Snapshot) Available() bool {
	return s.Status != StatusUnavailable
}

// Ref addresses a record by its position in the loaded document. ID, when set, must
// match the record at that position.
type Ref struct {
	Index int
	ID    string
}

func (r Ref) String(collection string) string {
	if r.ID == "" {
		return fmt.Sprintf("%s[%d]", collection, r.Index)
	}
	return fmt.Sprintf("%s[%d]#%s", collection, r.Index, r.ID)
}

// Stats summarizes a document for the admin settings view.
type Stats struct {
	Members       int    `json:"members"`
	Announcements int    `json:"announcements"`
	LastUpdate    string `json:"last_update"`
}

func StatsOf(doc *domain.Document) Stats {
	lastUpdate := doc.LastUpdate
	if lastUpdate == "" {
		lastUpdate = "Unknown"
	}
	return Stats{
		Members:       len(doc.Members),
		Announcements: len(doc.Messages),
		LastUpdate:    lastUpdate,
	}
}
