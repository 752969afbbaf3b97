package models

import "time"

// HistoryEntry is the lossy projection of an AnalysisResult kept for recall.
// It outlives the result itself: clearing the active session does not touch
// the ledger.
type HistoryEntry struct {
	ID         string        `json:"id"`
	FileName   string        `json:"file_name"`
	RecordedAt time.Time     `json:"recorded_at"`
	Summary    string        `json:"summary"`
	Stats      DocumentStats `json:"stats"`
}
