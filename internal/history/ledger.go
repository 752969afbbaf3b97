package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docsight/internal/models"
)

// MaxEntries bounds the ledger; the oldest entries fall off the end.
const MaxEntries = 10

// Store is the local persistence provider behind the ledger: a single named
// record holding the serialized entry list. Load must report a missing
// record as (nil, nil).
type Store interface {
	Load(ctx context.Context) ([]models.HistoryEntry, error)
	Save(ctx context.Context, entries []models.HistoryEntry) error
	Clear(ctx context.Context) error
}

// Ledger keeps the bounded, most-recent-first record of past analyses.
// Every mutation is written through to the store immediately; writes are
// infrequent (one per completed analysis) so there is no batching. The
// mutex is held across the store call so the persisted record always
// reflects the latest in-memory mutation.
type Ledger struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
	store   Store
	log     *zap.SugaredLogger
}

// NewLedger loads the persisted history once. A missing or corrupt record
// is treated as an empty list, never as a fatal error.
func NewLedger(ctx context.Context, store Store, log *zap.SugaredLogger) *Ledger {
	l := &Ledger{store: store, log: log}
	entries, err := store.Load(ctx)
	if err != nil {
		log.Warnw("history record unreadable, starting empty", "err", err)
		entries = nil
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	l.entries = entries
	return l
}

// Record derives a history entry from a completed analysis and inserts it
// at the front. A re-processed document (same file name) replaces its prior
// entry instead of duplicating it.
func (l *Ledger) Record(ctx context.Context, fileName string, result *models.AnalysisResult) {
	entry := models.HistoryEntry{
		ID:         uuid.NewString(),
		FileName:   fileName,
		RecordedAt: time.Now(),
		Summary:    result.Summary,
		Stats:      result.Stats,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	kept := make([]models.HistoryEntry, 0, len(l.entries)+1)
	kept = append(kept, entry)
	for _, e := range l.entries {
		if e.FileName == entry.FileName {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) > MaxEntries {
		kept = kept[:MaxEntries]
	}
	l.entries = kept

	if err := l.store.Save(ctx, append([]models.HistoryEntry(nil), kept...)); err != nil {
		l.log.Warnw("history write-through failed", "err", err)
	}
}

// List returns the entries most-recent-first.
func (l *Ledger) List() []models.HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.HistoryEntry(nil), l.entries...)
}

// Clear empties both the in-memory list and the persisted record.
func (l *Ledger) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil

	if err := l.store.Clear(ctx); err != nil {
		l.log.Warnw("history clear failed", "err", err)
	}
}
