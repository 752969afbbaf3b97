package schema

import (
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"docsight/internal/models"
)

// rawResult mirrors models.AnalysisResult with pointer fields so that an
// absent field can be told apart from a zero value. Only the validator
// should ever see this shape.
type rawResult struct {
	MarkdownContent   *string             `json:"markdownContent"`
	Stats             *rawStats           `json:"stats"`
	Summary           *string             `json:"summary"`
	SuggestedFilename *string             `json:"suggestedFilename"`
	Keywords          []string            `json:"keywords"`
	Entities          []models.Entity     `json:"entities"`
	ActionItems       []models.ActionItem `json:"actionItems"`
	KeyQuotes         []string            `json:"keyQuotes"`
}

type rawStats struct {
	PageCount          *int     `json:"pageCount"`
	WordCount          *int     `json:"wordCount"`
	ParagraphCount     *int     `json:"paragraphCount"`
	ImageCount         *int     `json:"imageCount"`
	SentimentScore     *float64 `json:"sentimentScore"`
	ComplexityScore    *float64 `json:"complexityScore"`
	ReadingTimeMinutes *int     `json:"readingTimeMinutes"`
	Language           *string  `json:"language"`
	Category           *string  `json:"category"`
	Tone               *string  `json:"tone"`
}

// Validate checks a raw service response against the result schema and
// returns the typed result. It is pure: no I/O, no side effects. Responses
// missing required fields, carrying wrong types, or carrying out-of-range
// scores are rejected rather than coerced; silent clamping would mask a
// service-contract regression.
func Validate(raw []byte) (*models.AnalysisResult, error) {
	var r rawResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSchemaMismatch, err)
	}

	if r.Stats == nil {
		return nil, fmt.Errorf("%w: stats object missing", models.ErrSchemaMismatch)
	}
	if r.Stats.WordCount == nil {
		return nil, fmt.Errorf("%w: stats.wordCount missing", models.ErrSchemaMismatch)
	}
	if r.Stats.SentimentScore == nil {
		return nil, fmt.Errorf("%w: stats.sentimentScore missing", models.ErrSchemaMismatch)
	}
	if r.Stats.Tone == nil {
		return nil, fmt.Errorf("%w: stats.tone missing", models.ErrSchemaMismatch)
	}
	if *r.Stats.SentimentScore < 0 || *r.Stats.SentimentScore > 100 {
		return nil, fmt.Errorf("%w: sentimentScore %v outside [0,100]", models.ErrSchemaMismatch, *r.Stats.SentimentScore)
	}
	if r.Stats.ComplexityScore != nil && (*r.Stats.ComplexityScore < 0 || *r.Stats.ComplexityScore > 100) {
		return nil, fmt.Errorf("%w: complexityScore %v outside [0,100]", models.ErrSchemaMismatch, *r.Stats.ComplexityScore)
	}

	for _, e := range r.Entities {
		switch e.Kind {
		case models.EntityPerson, models.EntityOrganization, models.EntityLocation, models.EntityDate, models.EntityConcept:
		default:
			return nil, fmt.Errorf("%w: unknown entity kind %q", models.ErrSchemaMismatch, e.Kind)
		}
		if e.MentionCount < 0 {
			return nil, fmt.Errorf("%w: negative mention count for %q", models.ErrSchemaMismatch, e.Name)
		}
	}
	for _, a := range r.ActionItems {
		switch a.Priority {
		case models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
		default:
			return nil, fmt.Errorf("%w: unknown action item priority %q", models.ErrSchemaMismatch, a.Priority)
		}
	}

	result := &models.AnalysisResult{
		Stats: models.DocumentStats{
			WordCount:      *r.Stats.WordCount,
			SentimentScore: *r.Stats.SentimentScore,
			Tone:           *r.Stats.Tone,
		},
		Keywords:    r.Keywords,
		Entities:    r.Entities,
		ActionItems: r.ActionItems,
		KeyQuotes:   r.KeyQuotes,
	}
	if r.MarkdownContent != nil {
		result.MarkdownContent = *r.MarkdownContent
	}
	if r.Summary != nil {
		result.Summary = *r.Summary
	}
	if r.SuggestedFilename != nil {
		result.SuggestedFilename = *r.SuggestedFilename
	}
	if r.Stats.PageCount != nil {
		result.Stats.PageCount = *r.Stats.PageCount
	}
	if r.Stats.ParagraphCount != nil {
		result.Stats.ParagraphCount = *r.Stats.ParagraphCount
	}
	if r.Stats.ImageCount != nil {
		result.Stats.ImageCount = *r.Stats.ImageCount
	}
	if r.Stats.ComplexityScore != nil {
		result.Stats.ComplexityScore = *r.Stats.ComplexityScore
	}
	if r.Stats.ReadingTimeMinutes != nil {
		result.Stats.ReadingTimeMinutes = *r.Stats.ReadingTimeMinutes
	}
	if r.Stats.Language != nil {
		result.Stats.Language = *r.Stats.Language
	}
	if r.Stats.Category != nil {
		result.Stats.Category = *r.Stats.Category
	}
	if result.Keywords == nil {
		result.Keywords = []string{}
	}
	if result.Entities == nil {
		result.Entities = []models.Entity{}
	}
	if result.ActionItems == nil {
		result.ActionItems = []models.ActionItem{}
	}
	if result.KeyQuotes == nil {
		result.KeyQuotes = []string{}
	}
	return result, nil
}

// Descriptor returns the output schema sent with every analysis request.
// It fixes the field names and types the validator enforces on the way back.
func Descriptor() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"markdownContent":   {Type: genai.TypeString, Description: "full converted document text as markdown"},
			"summary":           {Type: genai.TypeString},
			"suggestedFilename": {Type: genai.TypeString},
			"keywords":          {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"keyQuotes":         {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"entities": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {Type: genai.TypeString},
						"kind": {
							Type: genai.TypeString,
							Enum: []string{"Person", "Organization", "Location", "Date", "Concept"},
						},
						"mentionCount": {Type: genai.TypeInteger},
					},
					Required: []string{"name", "kind", "mentionCount"},
				},
			},
			"actionItems": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"task": {Type: genai.TypeString},
						"priority": {
							Type: genai.TypeString,
							Enum: []string{"High", "Medium", "Low"},
						},
					},
					Required: []string{"task", "priority"},
				},
			},
			"stats": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"pageCount":          {Type: genai.TypeInteger},
					"wordCount":          {Type: genai.TypeInteger},
					"paragraphCount":     {Type: genai.TypeInteger},
					"imageCount":         {Type: genai.TypeInteger},
					"sentimentScore":     {Type: genai.TypeNumber, Description: "0 to 100"},
					"complexityScore":    {Type: genai.TypeNumber, Description: "0 to 100"},
					"readingTimeMinutes": {Type: genai.TypeInteger},
					"language":           {Type: genai.TypeString},
					"category":           {Type: genai.TypeString},
					"tone":               {Type: genai.TypeString},
				},
				Required: []string{"wordCount", "sentimentScore", "tone"},
			},
		},
		Required: []string{"markdownContent", "stats", "summary"},
	}
}
