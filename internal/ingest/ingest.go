package ingest

import (
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"docsight/internal/models"
)

// Ingest reads a submitted file fully into memory and returns its
// transfer-ready Document. The size limit is enforced on the declared size
// before a single byte is read, so oversized uploads cost no encoding work.
// declaredSize may be -1 when unknown; the limit is then enforced while
// reading.
func Ingest(name, mimeType string, r io.Reader, declaredSize int64) (*models.Document, error) {
	if declaredSize > models.MaxDocumentBytes {
		return nil, models.ErrSizeExceeded
	}

	data, err := io.ReadAll(io.LimitReader(r, models.MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > models.MaxDocumentBytes {
		return nil, models.ErrSizeExceeded
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &models.Document{
		ID:           uuid.NewString(),
		Name:         name,
		ByteSize:     int64(len(data)),
		MimeType:     mimeType,
		EncodedBytes: base64.StdEncoding.EncodeToString(data),
		IngestedAt:   time.Now(),
	}, nil
}

// Decode recovers the raw bytes of an ingested document.
func Decode(doc *models.Document) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(doc.EncodedBytes)
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return data, nil
}
