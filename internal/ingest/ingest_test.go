package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"docsight/internal/models"
)

type countingReader struct {
	inner *bytes.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.inner.Read(p)
}

func TestIngestRejectsOversizedDeclaration(t *testing.T) {
	r := &countingReader{inner: bytes.NewReader([]byte("payload"))}
	_, err := Ingest("big.pdf", "application/pdf", r, 25*1024*1024)
	if !errors.Is(err, models.ErrSizeExceeded) {
		t.Fatalf("expected ErrSizeExceeded, got %v", err)
	}
	if r.reads != 0 {
		t.Fatalf("oversized upload should fail before reading, saw %d reads", r.reads)
	}
}

func TestIngestRejectsOversizedStream(t *testing.T) {
	// Declared size unknown, actual content one byte over the limit.
	payload := bytes.Repeat([]byte{'a'}, models.MaxDocumentBytes+1)
	_, err := Ingest("big.bin", "application/octet-stream", bytes.NewReader(payload), -1)
	if !errors.Is(err, models.ErrSizeExceeded) {
		t.Fatalf("expected ErrSizeExceeded, got %v", err)
	}
}

func TestIngestProducesDocument(t *testing.T) {
	doc, err := Ingest("notes.txt", "text/plain", strings.NewReader("hello world"), 11)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("document id missing")
	}
	if doc.Name != "notes.txt" || doc.MimeType != "text/plain" || doc.ByteSize != 11 {
		t.Fatalf("unexpected document metadata: %#v", doc)
	}
	if doc.IngestedAt.IsZero() {
		t.Fatalf("ingestion timestamp missing")
	}

	raw, err := Decode(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw) != "hello world" {
		t.Fatalf("round trip mismatch: %q", raw)
	}
}

func TestIngestDefaultsMimeType(t *testing.T) {
	doc, err := Ingest("blob", "", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if doc.MimeType != "application/octet-stream" {
		t.Fatalf("unexpected mime type: %s", doc.MimeType)
	}
}
