// Package genai provides the GenAI-backed chat responder using the OpenAI API.
//
// It answers the free-form messages the journey state machine does not handle,
// keeping TitiNauta conversational between assessment questions.
package genai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultSystemPrompt keeps the fallback responder on-topic and in Portuguese.
const DefaultSystemPrompt = "Você é a TitiNauta, assistente virtual do Educare+ que acompanha famílias " +
	"na jornada do desenvolvimento infantil pelo WhatsApp. Responda em português brasileiro, " +
	"em no máximo duas frases, com tom acolhedor. Se a mensagem fugir do tema, " +
	"lembre a família gentilmente de enviar \"oi\" para continuar a jornada de perguntas."

// chatService defines the minimal interface for chat completions.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client wraps the OpenAI chat completion service for chat-intent replies.
type Client struct {
	chat         chatService
	model        openai.ChatModel
	systemPrompt string
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey       string
	Model        string
	SystemPrompt string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Opts) { o.SystemPrompt = prompt }
}

// NewClient initializes a new GenAI client.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("GenAI client created", "model", cfg.Model)
	return &Client{chat: &cli.Chat.Completions, model: openai.ChatModel(cfg.Model), systemPrompt: cfg.SystemPrompt}, nil
}

// Reply generates a short conversational answer to a free-form message.
func (c *Client) Reply(ctx context.Context, userText string) (string, error) {
	slog.Debug("GenAI Reply invoked", "text_length", len(userText))
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage(userText),
		},
	})
	if err != nil {
		slog.Error("GenAI Reply failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
