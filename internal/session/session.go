package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"docsight/internal/history"
	"docsight/internal/models"
	"docsight/internal/pipeline"
)

// AnalysisCalling issues the single structured analysis request for a run.
type AnalysisCalling interface {
	Analyze(ctx context.Context, doc *models.Document) ([]byte, error)
}

// ChatCalling issues one grounded conversational request per turn.
type ChatCalling interface {
	Chat(ctx context.Context, grounding string, prior []*models.ChatTurn, question string) (string, error)
}

// Session is the explicit context object holding all mutable state of one
// analysis session: the active document, its result, the transcript and the
// pipeline state machine. Exactly one document/result pair is active at a
// time; the in-flight guards below make that invariant enforceable.
type Session struct {
	mu sync.Mutex

	machine  *pipeline.Machine
	analysis AnalysisCalling
	chat     ChatCalling
	ledger   *history.Ledger
	log      *zap.SugaredLogger

	doc        *models.Document
	result     *models.AnalysisResult
	transcript []*models.ChatTurn
	chatBusy   bool
}

func New(analysis AnalysisCalling, chat ChatCalling, ledger *history.Ledger, log *zap.SugaredLogger) *Session {
	return &Session{
		machine:  pipeline.NewMachine(),
		analysis: analysis,
		chat:     chat,
		ledger:   ledger,
		log:      log,
	}
}

// Machine exposes the state machine for observers and status queries.
func (s *Session) Machine() *pipeline.Machine {
	return s.machine
}

// Result returns the active analysis result, nil when none is published.
func (s *Session) Result() *models.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Document returns the active document record, nil outside a run.
func (s *Session) Document() *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Transcript returns the chat turns in conversational order.
func (s *Session) Transcript() []*models.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.ChatTurn(nil), s.transcript...)
}

// Reset clears the session back to Idle. It is rejected while a run is in
// flight; abandoning an in-flight request is not supported.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.machine.Reset(); err != nil {
		return err
	}
	s.doc = nil
	s.result = nil
	s.transcript = nil
	return nil
}
