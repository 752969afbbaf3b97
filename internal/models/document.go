package models

import "time"

// MaxDocumentBytes is the hard upload limit. Anything larger is rejected
// before any encoding or network work happens.
const MaxDocumentBytes = 20 * 1024 * 1024

// Document is the in-memory, transfer-ready form of one submitted file.
// It is created once by the ingestor and never mutated afterwards.
type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ByteSize     int64     `json:"byte_size"`
	MimeType     string    `json:"mime_type"`
	EncodedBytes string    `json:"encoded_bytes"`
	IngestedAt   time.Time `json:"ingested_at"`
}
