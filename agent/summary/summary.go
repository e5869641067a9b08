// Package summary implements the summarization agent on top of the
// OpenAI chat completion API.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/scipunch/feedpipe/config"
)

const (
	agentName     = "summary"
	defaultModel  = "gpt-4o-mini"
	defaultPrompt = "Summarize the following article in 2-3 sentences, keeping the key facts:"
)

// Agent summarizes item content via OpenAI
type Agent struct {
	client  *openai.Client
	model   string
	prompt  string
	enabled bool
	mu      sync.Mutex
}

// New creates a summary agent. With an empty API key the agent is
// disabled and passes content through unchanged.
func New(creds config.OpenAICredentials) *Agent {
	model := creds.Model
	if model == "" {
		model = defaultModel
	}

	a := &Agent{
		client:  openai.NewClient(creds.APIKey),
		model:   model,
		prompt:  defaultPrompt,
		enabled: creds.IsValid(),
	}

	slog.Info("summary agent initialized", "enabled", a.enabled, "model", model)
	return a
}

// Name returns the agent identifier
func (a *Agent) Name() string { return agentName }

// Process returns a short summary of content
func (a *Agent) Process(ctx context.Context, content string) (string, error) {
	// The client is shared between refresh workers.
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.enabled {
		return content, nil
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: a.prompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: content,
			},
		},
		MaxTokens:   256,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("summary completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary completion returned no choices")
	}

	return trimIncompleteSentence(strings.TrimSpace(resp.Choices[0].Message.Content)), nil
}

// trimIncompleteSentence drops a trailing sentence fragment that the
// token limit cut off mid-way.
func trimIncompleteSentence(s string) string {
	if s == "" || strings.HasSuffix(s, ".") {
		return s
	}
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return s
	}
	return s[:idx+1]
}
