// internal/llmclient/anthropic_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
)

// MessagesClient is the subset of the Anthropic SDK the client calls.
// *sdk.MessageService satisfies it.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// jsonOnlyInstruction is appended to the system prompt when JSON output is
// forced; the Messages API has no response MIME type switch.
const jsonOnlyInstruction = "Respond with a single JSON object and nothing else."

// AnthropicClient implements Client on top of the Claude Messages API.
type AnthropicClient struct {
	msg    MessagesClient
	config config.LLMModelConfig
	logger *zap.Logger
}

var _ Client = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client backed by the default Anthropic HTTP client.
func NewAnthropicClient(cfg config.LLMModelConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Anthropic API Key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.APITimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.APITimeout))
	}
	ac := sdk.NewClient(opts...)
	return newAnthropicClient(&ac.Messages, cfg, logger), nil
}

func newAnthropicClient(msg MessagesClient, cfg config.LLMModelConfig, logger *zap.Logger) *AnthropicClient {
	return &AnthropicClient{
		msg:    msg,
		config: cfg,
		logger: logger.Named("llm_client.anthropic"),
	}
}

// Generate issues a single non-streaming Messages.New call and joins the
// text blocks of the reply.
func (c *AnthropicClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	start := time.Now()
	msg, err := c.msg.New(ctx, c.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}
	if msg == nil {
		return "", fmt.Errorf("anthropic API returned no message: %w", ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if text == "" {
		return "", fmt.Errorf("anthropic API returned empty content (reason: %s): %w", msg.StopReason, ErrEmptyResponse)
	}

	c.logger.Debug("LLM generation complete (Anthropic)",
		zap.Duration("duration", time.Since(start)),
		zap.Int64("prompt_tokens", msg.Usage.InputTokens),
		zap.Int64("completion_tokens", msg.Usage.OutputTokens),
		zap.String("stop_reason", string(msg.StopReason)))
	return text, nil
}

func (c *AnthropicClient) buildParams(req GenerationRequest) sdk.MessageNewParams {
	maxTokens := req.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}
	temperature := req.Options.Temperature
	if temperature == 0 {
		temperature = c.config.Temperature
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.config.Model),
		MaxTokens: int64(maxTokens),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.UserPrompt))},
	}
	if temperature > 0 {
		params.Temperature = sdk.Float(float64(temperature))
	}

	system := req.SystemPrompt
	if req.Options.ForceJSONFormat {
		if system != "" {
			system += "\n\n"
		}
		system += jsonOnlyInstruction
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	return params
}
