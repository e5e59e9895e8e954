package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	errx "github.com/nova-assistant/server/internal/core/error"
	logx "github.com/nova-assistant/server/pkg/logger"
)

// GroqChatModel is an eino chat model backed by Groq's OpenAI-compatible
// chat completions API. A request failure triggers one catalog-driven
// failover to an alternative model before giving up.
type GroqChatModel struct {
	name     string
	baseURL  string
	apiKey   string
	client   *http.Client
	resolver *Resolver

	// model is the currently selected id. It is only mutated on failover;
	// the pipeline processes one request at a time, so no lock is held.
	model       string
	temperature float32
	maxTokens   int
	topP        float32
}

// GroqModelConfig configures one GroqChatModel instance.
type GroqModelConfig struct {
	// Name tags log lines ("classifier", "response").
	Name        string
	BaseURL     string
	APIKey      string
	Client      *http.Client
	Resolver    *Resolver
	Model       string
	Temperature float32
	MaxTokens   int
	TopP        float32
}

func NewGroqChatModel(cfg GroqModelConfig) *GroqChatModel {
	return &GroqChatModel{
		name:        cfg.Name,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		client:      cfg.Client,
		resolver:    cfg.Resolver,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		topP:        cfg.TopP,
	}
}

var _ einomodel.BaseChatModel = (*GroqChatModel)(nil)

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float32       `json:"top_p,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatChoice struct {
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage"`
}

type streamDelta struct {
	Content string `json:"content"`
}

type streamChoice struct {
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type streamChunk struct {
	Choices []streamChoice `json:"choices"`
}

// Generate issues one chat completion. On a request failure it asks the
// resolver for an alternative model and retries exactly once.
func (c *GroqChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	params := c.requestParams(input, false, opts...)

	out, err := c.complete(ctx, params)
	if err == nil {
		return out, nil
	}
	logx.Warn().Err(err).Str("model", params.Model).Str("client", c.name).Msg("completion failed, attempting failover")

	next, ferr := c.resolver.Failover(ctx, params.Model)
	if ferr != nil {
		return nil, errx.WrapCompletion(ferr)
	}
	c.model = next
	params.Model = next

	out, err = c.complete(ctx, params)
	if err != nil {
		return nil, errx.WrapCompletion(err)
	}
	return out, nil
}

// Stream issues a streaming chat completion; chunks carry incremental
// assistant content. The same single-failover policy applies to the initial
// request (a failure mid-stream surfaces on the reader).
func (c *GroqChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	params := c.requestParams(input, true, opts...)

	body, err := c.send(ctx, params)
	if err != nil {
		logx.Warn().Err(err).Str("model", params.Model).Str("client", c.name).Msg("stream request failed, attempting failover")
		next, ferr := c.resolver.Failover(ctx, params.Model)
		if ferr != nil {
			return nil, errx.WrapCompletion(ferr)
		}
		c.model = next
		params.Model = next
		if body, err = c.send(ctx, params); err != nil {
			return nil, errx.WrapCompletion(err)
		}
	}

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer body.Close()
		defer sw.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				continue
			}
			if payload == "[DONE]" {
				return
			}
			var chunk streamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			msg := &schema.Message{Role: schema.Assistant, Content: chunk.Choices[0].Delta.Content}
			if closed := sw.Send(msg, nil); closed {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			sw.Send(nil, fmt.Errorf("read stream: %w", err))
		}
	}()

	return sr, nil
}

// Model returns the currently selected model id.
func (c *GroqChatModel) Model() string {
	return c.model
}

func (c *GroqChatModel) requestParams(input []*schema.Message, stream bool, opts ...einomodel.Option) chatRequest {
	o := einomodel.GetCommonOptions(&einomodel.Options{}, opts...)

	req := chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		TopP:        c.topP,
		Stream:      stream,
	}
	if o.Model != nil && *o.Model != "" {
		req.Model = *o.Model
	}
	if o.Temperature != nil {
		req.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		req.MaxTokens = *o.MaxTokens
	}
	if o.TopP != nil {
		req.TopP = *o.TopP
	}

	req.Messages = make([]wireMessage, 0, len(input))
	for _, m := range input {
		if m == nil {
			continue
		}
		req.Messages = append(req.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	return req
}

func (c *GroqChatModel) complete(ctx context.Context, params chatRequest) (*schema.Message, error) {
	body, err := c.send(ctx, params)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	out := &schema.Message{
		Role:    schema.Assistant,
		Content: parsed.Choices[0].Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: parsed.Choices[0].FinishReason,
		},
	}
	if parsed.Usage != nil {
		out.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return out, nil
}

func (c *GroqChatModel) send(ctx context.Context, params chatRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("chat request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return resp.Body, nil
}
