package contentstore

import "context"

// Token identifies one version of a stored file (the blob SHA on GitHub).
// The zero value means "no version": the write must create the file.
type Token string

// Content is a fetched file together with the version it was read at.
type Content struct {
	Path  string
	Data  []byte
	Token Token
}

// Store reads and conditionally writes files in the remote content host.
//
// Write with a non-empty token fails with a ConflictError when the stored version differs;
// with an empty token it fails with a ConflictError when the file already exists. Callers only
// ever see raw bytes.
type Store interface {
	Fetch(ctx context.Context, path string) (*Content, error)
	Write(ctx context.Context, path string, data []byte, token Token, message string) (Token, error)
}
