package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"

	"docsight/internal/history"
	"docsight/internal/models"
	"docsight/internal/pipeline"
)

const minimalResponse = `{"stats":{"wordCount":500,"sentimentScore":70,"tone":"neutral"},"markdownContent":"# Doc","summary":"short"}`

type fakeAnalysis struct {
	raw     string
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func (f *fakeAnalysis) Analyze(ctx context.Context, doc *models.Document) ([]byte, error) {
	f.calls++
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.raw), nil
}

type fakeChat struct {
	errOnCall int // 1-based call index that fails, 0 for never
	calls     int
	started   chan struct{}
	release   chan struct{}
}

func (f *fakeChat) Chat(ctx context.Context, grounding string, prior []*models.ChatTurn, question string) (string, error) {
	f.calls++
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.errOnCall == f.calls {
		return "", fmt.Errorf("%w: connection refused", models.ErrServiceUnavailable)
	}
	return "answer to: " + question, nil
}

type memStore struct {
	entries []models.HistoryEntry
}

func (m *memStore) Load(context.Context) ([]models.HistoryEntry, error) { return m.entries, nil }
func (m *memStore) Save(_ context.Context, entries []models.HistoryEntry) error {
	m.entries = append([]models.HistoryEntry(nil), entries...)
	return nil
}
func (m *memStore) Clear(context.Context) error { m.entries = nil; return nil }

func newTestSession(analysis AnalysisCalling, chat ChatCalling) (*Session, *history.Ledger) {
	ledger := history.NewLedger(context.Background(), &memStore{}, zap.NewNop().Sugar())
	return New(analysis, chat, ledger, zap.NewNop().Sugar()), ledger
}

func process(t *testing.T, s *Session, name, content string) (*models.AnalysisResult, error) {
	t.Helper()
	return s.Process(context.Background(), name, "text/plain", strings.NewReader(content), int64(len(content)))
}

func TestProcessHappyPath(t *testing.T) {
	analysis := &fakeAnalysis{raw: minimalResponse}
	s, ledger := newTestSession(analysis, &fakeChat{})

	var visited []pipeline.Phase
	s.Machine().Observe(func(tr pipeline.Transition) {
		visited = append(visited, tr.To)
	})

	result, err := process(t, s, "report.pdf", "file content")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Stats.WordCount != 500 || result.Stats.Tone != "neutral" {
		t.Fatalf("unexpected result: %#v", result.Stats)
	}

	want := []pipeline.Phase{pipeline.PhaseIngesting, pipeline.PhaseAnalyzing, pipeline.PhaseCompleted}
	if len(visited) != len(want) {
		t.Fatalf("expected %v, visited %v", want, visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("phase %d: expected %s, got %s", i, want[i], visited[i])
		}
	}

	if s.Result() == nil {
		t.Fatalf("result not published")
	}
	entries := ledger.List()
	if len(entries) != 1 || entries[0].FileName != "report.pdf" {
		t.Fatalf("history entry missing: %#v", entries)
	}
	if entries[0].Stats.WordCount != 500 {
		t.Fatalf("history entry should carry stats: %#v", entries[0])
	}
}

func TestProcessRejectsOversizedUpload(t *testing.T) {
	analysis := &fakeAnalysis{raw: minimalResponse}
	s, ledger := newTestSession(analysis, &fakeChat{})

	_, err := s.Process(context.Background(), "big.pdf", "application/pdf",
		strings.NewReader("tiny"), 25*1024*1024)
	if !errors.Is(err, models.ErrSizeExceeded) {
		t.Fatalf("expected ErrSizeExceeded, got %v", err)
	}
	if got := s.Machine().Phase(); got != pipeline.PhaseIdle {
		t.Fatalf("phase should remain idle, got %s", got)
	}
	if analysis.calls != 0 {
		t.Fatalf("no network call should be attempted")
	}
	if len(ledger.List()) != 0 {
		t.Fatalf("no history entry on rejection")
	}
}

func TestProcessSchemaMismatchFailsRun(t *testing.T) {
	// Response missing wordCount.
	analysis := &fakeAnalysis{raw: `{"stats":{"sentimentScore":70,"tone":"neutral"}}`}
	s, ledger := newTestSession(analysis, &fakeChat{})

	_, err := process(t, s, "report.pdf", "content")
	if !errors.Is(err, models.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if got := s.Machine().Phase(); got != pipeline.PhaseFailed {
		t.Fatalf("expected failed phase, got %s", got)
	}
	if s.Machine().FailureCause() == "" {
		t.Fatalf("failed phase should carry a cause")
	}
	if s.Result() != nil {
		t.Fatalf("no result may be published on failure")
	}
	if len(ledger.List()) != 0 {
		t.Fatalf("no history entry on failure")
	}
}

func TestProcessServiceFailureKeepsPriorResult(t *testing.T) {
	analysis := &fakeAnalysis{raw: minimalResponse}
	s, _ := newTestSession(analysis, &fakeChat{})

	if _, err := process(t, s, "first.pdf", "content"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	prior := s.Result()

	analysis.err = fmt.Errorf("%w: timeout", models.ErrServiceUnavailable)
	_, err := process(t, s, "second.pdf", "content")
	if !errors.Is(err, models.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if got := s.Machine().Phase(); got != pipeline.PhaseFailed {
		t.Fatalf("expected failed phase, got %s", got)
	}
	if s.Result() != prior {
		t.Fatalf("failed run must leave the prior result untouched")
	}
}

func TestProcessRejectsConcurrentRun(t *testing.T) {
	analysis := &fakeAnalysis{
		raw:     minimalResponse,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, _ := newTestSession(analysis, &fakeChat{})

	done := make(chan error, 1)
	go func() {
		_, err := process(t, s, "slow.pdf", "content")
		done <- err
	}()
	<-analysis.started

	_, err := process(t, s, "eager.pdf", "content")
	if !errors.Is(err, models.ErrAlreadyInFlight) {
		t.Fatalf("expected ErrAlreadyInFlight, got %v", err)
	}

	close(analysis.release)
	if err := <-done; err != nil {
		t.Fatalf("first run should complete: %v", err)
	}
	if analysis.calls != 1 {
		t.Fatalf("second submission must not reach the service, saw %d calls", analysis.calls)
	}
}

func TestProcessClearsTranscriptOnNewIngestion(t *testing.T) {
	analysis := &fakeAnalysis{raw: minimalResponse}
	s, _ := newTestSession(analysis, &fakeChat{})

	if _, err := process(t, s, "first.pdf", "content"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := s.Ask(context.Background(), "what is this?"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(s.Transcript()) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(s.Transcript()))
	}

	if _, err := process(t, s, "second.pdf", "content"); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(s.Transcript()) != 0 {
		t.Fatalf("new ingestion must clear the transcript")
	}
}

func TestAskRequiresActiveResult(t *testing.T) {
	s, _ := newTestSession(&fakeAnalysis{raw: minimalResponse}, &fakeChat{})
	if _, err := s.Ask(context.Background(), "anything"); !errors.Is(err, models.ErrNoAnalysis) {
		t.Fatalf("expected ErrNoAnalysis, got %v", err)
	}
}

func TestAskTranscriptAcrossFailure(t *testing.T) {
	chat := &fakeChat{errOnCall: 2}
	s, _ := newTestSession(&fakeAnalysis{raw: minimalResponse}, chat)
	if _, err := process(t, s, "doc.pdf", "content"); err != nil {
		t.Fatalf("process: %v", err)
	}

	if _, err := s.Ask(context.Background(), "q1"); err != nil {
		t.Fatalf("first ask: %v", err)
	}
	if _, err := s.Ask(context.Background(), "q2"); !errors.Is(err, models.ErrServiceUnavailable) {
		t.Fatalf("second ask should fail with ErrServiceUnavailable, got %v", err)
	}
	if _, err := s.Ask(context.Background(), "q3"); err != nil {
		t.Fatalf("third ask: %v", err)
	}

	turns := s.Transcript()
	if len(turns) != 5 {
		t.Fatalf("expected 5 turns (3 user, 2 model), got %d", len(turns))
	}
	wantRoles := []models.Role{models.RoleUser, models.RoleModel, models.RoleUser, models.RoleUser, models.RoleModel}
	for i, want := range wantRoles {
		if turns[i].Role != want {
			t.Fatalf("turn %d: expected role %s, got %s", i, want, turns[i].Role)
		}
	}
	if turns[2].Text != "q2" {
		t.Fatalf("failed question must stay in the transcript: %q", turns[2].Text)
	}
}

func TestAskSerializesRequests(t *testing.T) {
	chat := &fakeChat{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, _ := newTestSession(&fakeAnalysis{raw: minimalResponse}, chat)
	if _, err := process(t, s, "doc.pdf", "content"); err != nil {
		t.Fatalf("process: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Ask(context.Background(), "slow question")
		done <- err
	}()
	<-chat.started

	if _, err := s.Ask(context.Background(), "eager question"); !errors.Is(err, models.ErrAlreadyInFlight) {
		t.Fatalf("expected ErrAlreadyInFlight, got %v", err)
	}

	close(chat.release)
	if err := <-done; err != nil {
		t.Fatalf("first ask should complete: %v", err)
	}
	if chat.calls != 1 {
		t.Fatalf("rejected ask must not reach the service, saw %d calls", chat.calls)
	}
	// The rejected ask must not leave a dangling user turn either.
	if got := len(s.Transcript()); got != 2 {
		t.Fatalf("expected 2 turns after one answered question, got %d", got)
	}
}

func TestAskDiscardsAnswerSupersededByNewRun(t *testing.T) {
	chat := &fakeChat{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, _ := newTestSession(&fakeAnalysis{raw: minimalResponse}, chat)
	if _, err := process(t, s, "first.pdf", "first content"); err != nil {
		t.Fatalf("first run: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Ask(context.Background(), "about the first document")
		done <- err
	}()
	<-chat.started

	// A full second run completes while the chat request is still out.
	if _, err := process(t, s, "second.pdf", "second content"); err != nil {
		t.Fatalf("second run: %v", err)
	}

	close(chat.release)
	if err := <-done; !errors.Is(err, models.ErrNoAnalysis) {
		t.Fatalf("superseded answer should be discarded, got %v", err)
	}
	// The new document's transcript must not open with a model turn about
	// the old one.
	if turns := s.Transcript(); len(turns) != 0 {
		t.Fatalf("stale turn leaked into the new transcript: %#v", turns)
	}
}

func TestAskGroundingIsTruncated(t *testing.T) {
	long := strings.Repeat("x", groundingLimit+100)
	prompt := groundingPrompt(long)
	if strings.Count(prompt, "x") != groundingLimit {
		t.Fatalf("grounding prefix not truncated to limit")
	}
}

func TestAskGroundingTruncatesOnRuneBoundary(t *testing.T) {
	// The limit lands inside the first multi-byte rune after the x prefix.
	long := strings.Repeat("x", groundingLimit-1) + strings.Repeat("語", 40)
	prompt := groundingPrompt(long)
	if !utf8.ValidString(prompt) {
		t.Fatalf("grounding prompt contains invalid UTF-8")
	}
	if strings.Count(prompt, "x") != groundingLimit-1 || strings.Contains(prompt, "語") {
		t.Fatalf("truncation should stop before the split rune")
	}
}

func TestResetClearsSession(t *testing.T) {
	s, _ := newTestSession(&fakeAnalysis{raw: minimalResponse}, &fakeChat{})
	if _, err := process(t, s, "doc.pdf", "content"); err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, err := s.Ask(context.Background(), "q"); err != nil {
		t.Fatalf("ask: %v", err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Machine().Phase() != pipeline.PhaseIdle {
		t.Fatalf("reset should return to idle")
	}
	if s.Result() != nil || s.Document() != nil || len(s.Transcript()) != 0 {
		t.Fatalf("reset should clear document, result and transcript")
	}
}

func TestResetRejectedMidRun(t *testing.T) {
	analysis := &fakeAnalysis{
		raw:     minimalResponse,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, _ := newTestSession(analysis, &fakeChat{})

	done := make(chan error, 1)
	go func() {
		_, err := process(t, s, "doc.pdf", "content")
		done <- err
	}()
	<-analysis.started

	if err := s.Reset(); err == nil {
		t.Fatalf("reset must be rejected while a run is in flight")
	}

	close(analysis.release)
	if err := <-done; err != nil {
		t.Fatalf("run should complete: %v", err)
	}
}
