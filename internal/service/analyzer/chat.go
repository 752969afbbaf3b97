package analyzer

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"docsight/internal/models"
)

// Chat sends one conversational request: the grounding system text, the
// prior transcript in order, then the new question. The response is plain
// text.
func (s *Service) Chat(ctx context.Context, grounding string, prior []*models.ChatTurn, question string) (string, error) {
	messages := make([]*schema.Message, 0, len(prior)+2)
	messages = append(messages, &schema.Message{
		Role:    schema.System,
		Content: grounding,
	})
	for _, turn := range prior {
		role := schema.User
		if turn.Role == models.RoleModel {
			role = schema.Assistant
		}
		messages = append(messages, &schema.Message{
			Role:    role,
			Content: turn.Text,
		})
	}
	messages = append(messages, &schema.Message{
		Role:    schema.User,
		Content: question,
	})

	out, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		s.log.Warnw("chat request failed", "err", err)
		return "", fmt.Errorf("%w: %v", models.ErrServiceUnavailable, err)
	}
	return out.Content, nil
}
