package session

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"docsight/internal/models"
	"docsight/internal/pipeline"
)

// groundingLimit bounds the document prefix embedded in the grounding
// prompt so a huge conversion cannot blow up request size.
const groundingLimit = 500_000

// Ask runs one grounded chat turn. The user's turn is appended before the
// request goes out so the transcript reflects the question even when the
// call fails; only a successful call appends the model turn. Calls are
// serialized: a second Ask while one is in flight is rejected, because
// transcript order is the grounding contract.
func (s *Session) Ask(ctx context.Context, question string) (*models.ChatTurn, error) {
	s.mu.Lock()
	if s.result == nil {
		s.mu.Unlock()
		return nil, models.ErrNoAnalysis
	}
	switch s.machine.Phase() {
	case pipeline.PhaseIngesting, pipeline.PhaseAnalyzing:
		// A new run is superseding the grounding context right now.
		s.mu.Unlock()
		return nil, models.ErrAlreadyInFlight
	}
	if s.chatBusy {
		s.mu.Unlock()
		return nil, models.ErrAlreadyInFlight
	}
	s.chatBusy = true

	userTurn := &models.ChatTurn{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Text:      question,
		CreatedAt: time.Now(),
	}
	prior := append([]*models.ChatTurn(nil), s.transcript...)
	s.transcript = append(s.transcript, userTurn)
	grounded := s.result
	grounding := groundingPrompt(grounded.MarkdownContent)
	s.mu.Unlock()

	answer, err := s.chat.Chat(ctx, grounding, prior, question)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatBusy = false
	if err != nil {
		return nil, err
	}
	if s.result != grounded {
		// The session was reset or a new analysis superseded the grounding
		// context while the request was in flight; an answer about the old
		// document must not land in the new transcript, so it is discarded.
		return nil, models.ErrNoAnalysis
	}
	modelTurn := &models.ChatTurn{
		ID:        uuid.NewString(),
		Role:      models.RoleModel,
		Text:      answer,
		CreatedAt: time.Now(),
	}
	s.transcript = append(s.transcript, modelTurn)
	return modelTurn, nil
}

// groundingPrompt embeds the analyzed document into a fixed instruction
// template that restricts answers to that content alone.
func groundingPrompt(markdown string) string {
	if len(markdown) > groundingLimit {
		// Back the cut off to a rune boundary so the prompt stays valid UTF-8.
		cut := groundingLimit
		for cut > 0 && !utf8.RuneStart(markdown[cut]) {
			cut--
		}
		markdown = markdown[:cut]
	}

	var b strings.Builder
	b.WriteString("You are answering questions about a single analyzed document.\n\n")
	b.WriteString("<document>\n")
	b.WriteString(markdown)
	b.WriteString("\n</document>\n\n")
	b.WriteString("Answer strictly from the document above. Quote it where helpful.\n")
	b.WriteString("If the document does not contain the answer, say so plainly instead of guessing.\n")
	b.WriteString("Do not use outside knowledge and do not invent content.")
	return b.String()
}
