package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
	"github.com/simplomaticindia/they-might-say-platform/internal/infrastructure/resilience"
)

const (
	defaultChatModel = "gpt-4o-mini"
	defaultTimeout   = 120 * time.Second
)

type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbedDimension int
	Temperature    float64
	MaxTokens      int
	Timeout        time.Duration
	Executor       *resilience.Executor
}

// Client talks to the OpenAI API for chat completion and embeddings.
type Client struct {
	api         openai.Client
	chatModel   string
	dimension   int
	temperature float64
	maxTokens   int
	timeout     time.Duration
	executor    *resilience.Executor
}

func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Executor == nil {
		cfg.Executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		api:         openai.NewClient(opts...),
		chatModel:   cfg.ChatModel,
		dimension:   cfg.EmbedDimension,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		executor:    cfg.Executor,
	}
}

// EmbedBatch generates one vector per input text via the embeddings API.
func (c *Client) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(model),
	}
	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfString: openai.String(texts[0])}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts}
	}
	if c.dimension > 0 {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	var resp *openai.CreateEmbeddingResponse
	err := c.executor.Execute(ctx, "openai.embeddings", func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.api.Embeddings.New(ctx, params)
		return callErr
	}, classifyAPIError)
	if err != nil {
		return nil, classify("embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: %w: got %d vectors for %d inputs", domain.ErrUpstream, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vector[j] = float32(v)
		}
		out[i] = vector
	}
	return out, nil
}

// Complete runs one batch chat completion and returns the full text plus
// the total token usage reported by the API.
func (c *Client) Complete(ctx context.Context, messages []domain.Message) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var completion *openai.ChatCompletion
	err := c.executor.Execute(ctx, "openai.chat", func(ctx context.Context) error {
		var callErr error
		completion, callErr = c.api.Chat.Completions.New(ctx, c.chatParams(messages))
		return callErr
	}, classifyAPIError)
	if err != nil {
		return "", 0, classify("chat completion", err)
	}
	if len(completion.Choices) == 0 {
		return "", 0, fmt.Errorf("chat completion: %w: no choices returned", domain.ErrUpstream)
	}
	return completion.Choices[0].Message.Content, int(completion.Usage.TotalTokens), nil
}

// Stream runs a streaming chat completion. The returned channel carries
// text deltas and is closed after exactly one terminal done or error
// event. All stream state is per call; cancelling ctx releases the
// underlying connection.
func (c *Client) Stream(ctx context.Context, messages []domain.Message) (<-chan domain.StreamEvent, error) {
	stream := c.api.Chat.Completions.NewStreaming(ctx, c.chatParams(messages))

	events := make(chan domain.StreamEvent, 1)
	go func() {
		defer close(events)
		defer stream.Close()

		// send drops the event when the consumer has cancelled; the
		// channel close is the end-of-stream signal in that case.
		send := func(ev domain.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !send(domain.StreamEvent{Type: domain.StreamDelta, Content: delta}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(domain.StreamEvent{Type: domain.StreamError, Err: classify("chat stream", err)})
			return
		}
		send(domain.StreamEvent{Type: domain.StreamDone})
	}()
	return events, nil
}

func (c *Client) chatParams(messages []domain.Message) openai.ChatCompletionNewParams {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.chatModel),
		Messages:    converted,
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}
	return params
}
