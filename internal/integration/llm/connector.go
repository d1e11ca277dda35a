package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/futig/nelson-backend/internal/config"
	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/integration/common"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Connector calls an OpenAI-compatible chat completions API.
type Connector struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewConnector(cfg config.LLMConfig, logger *zap.Logger) *Connector {
	oaiCfg := openai.DefaultConfig(cfg.APIKey)
	oaiCfg.BaseURL = cfg.BaseURL
	oaiCfg.HTTPClient = common.NewSDKClient(cfg.RequestTimeout)

	return &Connector{
		client: openai.NewClientWithConfig(oaiCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

// Complete performs a blocking completion.
func (c *Connector) Complete(ctx context.Context, req *entity.CompletionRequest) (*entity.Completion, error) {
	ctxzap.Debug(ctx, "sending chat completion", zap.String("model", c.model), zap.Int("messages", len(req.Messages)))

	resp, err := c.client.CreateChatCompletion(ctx, c.toRequest(req, false))
	if err != nil {
		return nil, toGenerationError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, &entity.GenerationError{Err: entity.ErrEmptyCompletion}
	}

	ctxzap.Info(ctx, "chat completion received",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return &entity.Completion{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}, nil
}

// Stream reads the SSE token stream until the [DONE] sentinel. Frames that
// fail to decode are skipped. The underlying connection is always closed,
// including when ctx is cancelled or onDelta fails.
func (c *Connector) Stream(ctx context.Context, req *entity.CompletionRequest, onDelta func(string) error) (*entity.Completion, error) {
	ctxzap.Debug(ctx, "opening chat completion stream", zap.String("model", c.model), zap.Int("messages", len(req.Messages)))

	stream, err := c.client.CreateChatCompletionStream(ctx, c.toRequest(req, true))
	if err != nil {
		return nil, toGenerationError(err)
	}
	defer stream.Close()

	var (
		content strings.Builder
		model   = c.model
		skipped int
	)
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isMalformedFrame(err) {
				skipped++
				continue
			}
			return nil, toGenerationError(err)
		}

		if resp.Model != "" {
			model = resp.Model
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}

		delta := resp.Choices[0].Delta.Content
		content.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return nil, &entity.GenerationError{Err: err}
			}
		}
	}

	if skipped > 0 {
		ctxzap.Warn(ctx, "skipped malformed stream frames", zap.Int("count", skipped))
	}
	if content.Len() == 0 {
		return nil, &entity.GenerationError{Err: entity.ErrEmptyCompletion}
	}

	return &entity.Completion{Content: content.String(), Model: model}, nil
}

func (c *Connector) toRequest(req *entity.CompletionRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

func isMalformedFrame(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func toGenerationError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &entity.GenerationError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &entity.GenerationError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &entity.GenerationError{Err: err}
}
