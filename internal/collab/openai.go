package collab

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultSystemPrompt frames the reasoning engine as the coordinator of a
// sequential thinking process. Deployments override it via config.
const DefaultSystemPrompt = `You coordinate a sequential thinking process. For each submitted thought,
analyze it in the context provided, synthesize concrete guidance, and when
useful recommend revising an earlier thought or branching to explore an
alternative path. Be specific and actionable.`

// OpenAIConfig configures the OpenAI-compatible collaborator. BaseURL
// selects the provider endpoint; an empty value means the public OpenAI API.
type OpenAIConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

// OpenAICollaborator implements Collaborator against any OpenAI-compatible
// chat completion endpoint (DeepSeek, Groq, OpenRouter, Ollama, GitHub
// Models, or OpenAI itself).
type OpenAICollaborator struct {
	client  *openai.Client
	model   string
	system  string
	timeout time.Duration
	log     *zap.Logger
}

// NewOpenAI creates a collaborator for the given endpoint.
func NewOpenAI(cfg OpenAIConfig, log *zap.Logger) *OpenAICollaborator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	system := cfg.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}

	return &OpenAICollaborator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		system:  system,
		timeout: cfg.Timeout,
		log:     log,
	}
}

// Reason sends the rendered prompt to the chat completion endpoint and
// returns the synthesized text. An empty completion is an error: the
// coordinator must be able to distinguish "no guidance" from "failed call".
func (o *OpenAICollaborator) Reason(ctx context.Context, req Request) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	o.log.Debug("invoking reasoning collaborator",
		zap.String("model", o.model),
		zap.Int("index", req.Record.Index),
		zap.String("branch", req.Record.BranchID))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.system},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("chat completion returned no content")
	}

	return resp.Choices[0].Message.Content, nil
}
