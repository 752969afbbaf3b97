package session

import (
	"context"
	"errors"
	"io"

	"docsight/internal/ingest"
	"docsight/internal/models"
	"docsight/internal/pipeline"
	"docsight/internal/schema"
)

// Process drives one document through the whole pipeline: ingest, the single
// analysis request, validation, publication. At most one run is in flight;
// a second submission is rejected, never queued. The size limit is checked
// before any transition so an oversized upload leaves the phase untouched.
func (s *Session) Process(ctx context.Context, name, mimeType string, r io.Reader, declaredSize int64) (*models.AnalysisResult, error) {
	s.mu.Lock()
	switch s.machine.Phase() {
	case pipeline.PhaseIngesting, pipeline.PhaseAnalyzing:
		s.mu.Unlock()
		return nil, models.ErrAlreadyInFlight
	}
	if declaredSize > models.MaxDocumentBytes {
		s.mu.Unlock()
		return nil, models.ErrSizeExceeded
	}
	if err := s.machine.Reset(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	// A new ingestion discards the previous document and its transcript.
	// The previous result stays published until a new one supersedes it.
	s.doc = nil
	s.transcript = nil
	if err := s.machine.Advance(pipeline.PhaseIngesting); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	doc, err := ingest.Ingest(name, mimeType, r, declaredSize)
	if err != nil {
		s.failRun(err)
		return nil, err
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	if err := s.machine.Advance(pipeline.PhaseAnalyzing); err != nil {
		return nil, err
	}

	raw, err := s.analysis.Analyze(ctx, doc)
	if err != nil {
		s.failRun(err)
		return nil, err
	}

	result, err := schema.Validate(raw)
	if err != nil {
		s.failRun(err)
		return nil, err
	}

	s.mu.Lock()
	s.result = result
	s.mu.Unlock()
	if err := s.machine.Advance(pipeline.PhaseCompleted); err != nil {
		return nil, err
	}
	s.ledger.Record(ctx, doc.Name, result)
	s.log.Infow("analysis completed", "document", doc.ID, "file", doc.Name, "words", result.Stats.WordCount)
	return result, nil
}

func (s *Session) failRun(err error) {
	cause := failureCause(err)
	if ferr := s.machine.Fail(cause); ferr != nil {
		s.log.Errorw("failed transition rejected", "cause", cause, "err", ferr)
		return
	}
	s.log.Warnw("analysis run failed", "cause", cause, "err", err)
}

// failureCause maps pipeline errors to the short human-readable cause the
// Failed phase carries.
func failureCause(err error) string {
	switch {
	case errors.Is(err, models.ErrSizeExceeded):
		return "document exceeds the size limit"
	case errors.Is(err, models.ErrServiceUnavailable):
		return "analysis service unavailable"
	case errors.Is(err, models.ErrSchemaMismatch):
		return "analysis response failed validation"
	default:
		return err.Error()
	}
}
