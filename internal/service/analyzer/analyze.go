package analyzer

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"docsight/internal/ingest"
	"docsight/internal/models"
	"docsight/internal/schema"
)

const analysisInstruction = `Analyze the attached document completely.

Convert its full content to markdown, preserving structure, headings, lists
and tables. Compute the document statistics, extract named entities with
mention counts, concrete action items with priorities, the most significant
key quotes, and a concise summary. Suggest a short descriptive filename
without extension. Fill every field of the response schema; use empty lists
when a category has no findings.`

// Analyze issues the single structured analysis request for a document and
// returns the raw response bytes for validation. One request per run, no
// streaming, no retries: failed runs are recovered by resubmission.
func (s *Service) Analyze(ctx context.Context, doc *models.Document) ([]byte, error) {
	data, err := ingest.Decode(doc)
	if err != nil {
		return nil, err
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(data, doc.MimeType),
		genai.NewPartFromText(analysisInstruction),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	started := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.Descriptor(),
	})
	if err != nil {
		s.log.Warnw("analysis request failed", "document", doc.ID, "err", err)
		return nil, fmt.Errorf("%w: %v", models.ErrServiceUnavailable, err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", models.ErrServiceUnavailable)
	}
	s.log.Infow("analysis response received",
		"document", doc.ID,
		"bytes", len(text),
		"elapsed", time.Since(started),
	)
	return []byte(text), nil
}
