package analyzer

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"docsight/internal/config"
)

// Service talks to the external generative endpoints: one structured
// document-analysis call per pipeline run and one conversational call per
// chat turn. It holds no session state; serialization is the caller's job.
type Service struct {
	client    *genai.Client
	chatModel model.ToolCallingChatModel
	model     string
	log       *zap.SugaredLogger
}

// NewService builds the analysis client (always Gemini, the only provider
// with the structured-output contract we need) and the chat model for the
// configured chat provider.
func NewService(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Service, error) {
	provCfg, ok := cfg.Providers["gemini"]
	if !ok {
		return nil, fmt.Errorf("provider gemini not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  provCfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	chatProvider := cfg.BasicConfig.ChatProvider
	if chatProvider == "" {
		chatProvider = "gemini"
	}
	chatModel, err := newChatModel(ctx, chatProvider, cfg, client)
	if err != nil {
		return nil, err
	}

	return &Service{
		client:    client,
		chatModel: chatModel,
		model:     provCfg.Model,
		log:       log,
	}, nil
}

func newChatModel(ctx context.Context, provider string, cfg *config.Config, client *genai.Client) (model.ToolCallingChatModel, error) {
	provCfg, ok := cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("chat provider %s not configured", provider)
	}

	switch provider {
	case "gemini":
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
		})
	case "openai":
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid chat provider: %s", provider)
	}
}
