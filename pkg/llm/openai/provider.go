// Package openai implements llm.Transport over the OpenAI chat completions
// API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ai-libre/docintel/pkg/llm"
)

// Config configures a Transport.
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	Temperature    float32
	MaxTokens      int
	TimeoutSeconds int
}

// Transport implements llm.Transport over the OpenAI API.
type Transport struct {
	client *openai.Client
	model  string
	config Config
}

// New creates a Transport. apiKey and model are required.
func New(apiKey, model string, config Config) (*Transport, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if model == "" {
		return nil, errors.New("openai: model name is required")
	}

	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = 60
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2048
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Transport{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		config: config,
	}, nil
}

// Chat implements llm.Transport.
func (t *Transport) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return llm.ChatResponse{}, errors.New("openai: messages cannot be empty")
	}

	if t.config.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.config.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Messages:    messages,
		Temperature: t.config.Temperature,
		MaxTokens:   t.config.MaxTokens,
	})
	if err != nil {
		return llm.ChatResponse{Success: false, Error: fmt.Sprintf("openai: %s", err)}, nil
	}
	if len(resp.Choices) == 0 {
		return llm.ChatResponse{Success: false, Error: "openai: no choices returned"}, nil
	}

	return llm.ChatResponse{
		Success: true,
		Content: resp.Choices[0].Message.Content,
	}, nil
}
