package models

// Field names below follow the analysis service contract exactly; the
// validator rejects responses that deviate from them.

type EntityKind string

const (
	EntityPerson       EntityKind = "Person"
	EntityOrganization EntityKind = "Organization"
	EntityLocation     EntityKind = "Location"
	EntityDate         EntityKind = "Date"
	EntityConcept      EntityKind = "Concept"
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// DocumentStats holds the numeric profile the service computes for a
// document. Only wordCount, sentimentScore and tone are guaranteed present.
type DocumentStats struct {
	PageCount          int     `json:"pageCount"`
	WordCount          int     `json:"wordCount"`
	ParagraphCount     int     `json:"paragraphCount"`
	ImageCount         int     `json:"imageCount"`
	SentimentScore     float64 `json:"sentimentScore"`
	ComplexityScore    float64 `json:"complexityScore"`
	ReadingTimeMinutes int     `json:"readingTimeMinutes"`
	Language           string  `json:"language"`
	Category           string  `json:"category"`
	Tone               string  `json:"tone"`
}

type Entity struct {
	Name         string     `json:"name"`
	Kind         EntityKind `json:"kind"`
	MentionCount int        `json:"mentionCount"`
}

type ActionItem struct {
	Task     string   `json:"task"`
	Priority Priority `json:"priority"`
}

// AnalysisResult is the validated output of one pipeline run. A new run
// supersedes the previous result; it is never mutated in place.
type AnalysisResult struct {
	MarkdownContent   string        `json:"markdownContent"`
	Stats             DocumentStats `json:"stats"`
	Summary           string        `json:"summary"`
	SuggestedFilename string        `json:"suggestedFilename"`
	Keywords          []string      `json:"keywords"`
	Entities          []Entity      `json:"entities"`
	ActionItems       []ActionItem  `json:"actionItems"`
	KeyQuotes         []string      `json:"keyQuotes"`
}
