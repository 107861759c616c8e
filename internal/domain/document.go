package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Document is the whole persisted directory: data.json in the store.
type Document struct {
	Members    []Member       `json:"members"`
	Messages   []Announcement `json:"messages"`
	LastUpdate string         `json:"last_update"`
}

// NewDocument returns an empty document with non-nil sequences.
func NewDocument() *Document {
	return &Document{
		Members:  []Member{},
		Messages: []Announcement{},
	}
}

// Clone deep-copies the document so callers can mutate the copy freely.
func (d *Document) Clone() *Document {
	if d == nil {
		return NewDocument()
	}
	clone := &Document{
		Members:    make([]Member, len(d.Members)),
		Messages:   make([]Announcement, len(d.Messages)),
		LastUpdate: d.LastUpdate,
	}
	copy(clone.Members, d.Members)
	copy(clone.Messages, d.Messages)
	return clone
}

// Marshal serializes the document with four-space indentation.
func (d *Document) Marshal() ([]byte, error) {
	out := d.Clone()
	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal directory document: %w", err)
	}
	return append(data, '\n'), nil
}

// ParseDocument decodes data.json. Missing or null sequences become empty; a "members"
// object keyed by name (the layout of the first public page) is converted to a list
// ordered by name.
func ParseDocument(data []byte) (*Document, error) {
	var raw struct {
		Members    json.RawMessage `json:"members"`
		Messages   []Announcement  `json:"messages"`
		LastUpdate *string         `json:"last_update"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse directory document: %w", err)
	}

	doc := NewDocument()
	if raw.LastUpdate != nil {
		doc.LastUpdate = *raw.LastUpdate
	}
	if raw.Messages != nil {
		doc.Messages = raw.Messages
	}

	members, err := parseMembers(raw.Members)
	if err != nil {
		return nil, err
	}
	doc.Members = members

	return doc, nil
}

func parseMembers(raw json.RawMessage) ([]Member, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Member{}, nil
	}

	if trimmed[0] == '{' {
		var byName map[string]Member
		if err := json.Unmarshal(trimmed, &byName); err != nil {
			return nil, fmt.Errorf("failed to parse keyed members: %w", err)
		}
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, name)
		}
		sort.Strings(names)

		members := make([]Member, 0, len(names))
		for _, name := range names {
			m := byName[name]
			if m.Name == "" {
				m.Name = name
			}
			members = append(members, m)
		}
		return members, nil
	}

	var members []Member
	if err := json.Unmarshal(trimmed, &members); err != nil {
		return nil, fmt.Errorf("failed to parse members: %w", err)
	}
	if members == nil {
		members = []Member{}
	}
	return members, nil
}
