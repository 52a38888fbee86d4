package domain

import "time"

// File is a stored binary attachment with its metadata.
type File struct {
	ID        int64
	MessageID int64
	SessionID string
	Filename  string
	MediaType string
	Data      []byte
	Size      int64
	CreatedAt time.Time
}

// FileInfo is attachment metadata without the blob, suitable for listings.
type FileInfo struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
}
