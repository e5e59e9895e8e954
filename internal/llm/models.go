package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	amodel "github.com/nova-assistant/server/internal/assistant/model"
	logx "github.com/nova-assistant/server/pkg/logger"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"

	defaultGeminiModel = "gemini-2.5-flash"
)

// Config selects and configures the completion provider. Groq is the default
// and the only provider with catalog-based failover; Gemini exposes no model
// listing, so its failover is the static default model.
type Config struct {
	Provider       string `envconfig:"LLM_PROVIDER" default:"groq"`
	APIKey         string `envconfig:"GROQ_API_KEY"`
	BaseURL        string `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	TimeoutSeconds int    `envconfig:"GROQ_TIMEOUT_SECONDS" default:"60"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`

	// AllowDegraded starts without a completion backend when no API key is
	// configured; realtime queries are then answered with raw evidence.
	AllowDegraded bool `envconfig:"LLM_ALLOW_DEGRADED" default:"true"`
}

// ChatModels holds the classifier and response chat models plus the
// availability verdict probed at startup.
type ChatModels struct {
	Classifier einomodel.BaseChatModel
	Response   einomodel.BaseChatModel

	ClassifierModelName string
	ResponseModelName   string

	Availability amodel.Availability
}

// NewChatModels builds both chat models for the configured provider. A
// missing API key yields degraded mode when allowed, otherwise a startup
// error.
func NewChatModels(ctx context.Context, cfg Config, clsCfg amodel.ClassifierModelConfig, respCfg amodel.ResponseModelConfig) (*ChatModels, error) {
	switch cfg.Provider {
	case ProviderGroq:
		return newGroqModels(ctx, cfg, clsCfg, respCfg)
	case ProviderGemini:
		return newGeminiModels(ctx, cfg, clsCfg, respCfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

func newGroqModels(ctx context.Context, cfg Config, clsCfg amodel.ClassifierModelConfig, respCfg amodel.ResponseModelConfig) (*ChatModels, error) {
	if cfg.APIKey == "" {
		if cfg.AllowDegraded {
			logx.Warn().Msg("GROQ_API_KEY not set, starting in degraded mode")
			return &ChatModels{Availability: amodel.AvailabilityDegraded}, nil
		}
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}

	client := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	resolver := NewResolver(cfg.BaseURL, cfg.APIKey, client)
	selected := resolver.Select(ctx)
	logx.Info().Str("model", selected).Msg("selected completion model")

	clsModel := selected
	if clsCfg.Model != "" {
		clsModel = clsCfg.Model
	}
	respModel := selected
	if respCfg.Model != "" {
		respModel = respCfg.Model
	}

	classifier := NewGroqChatModel(GroqModelConfig{
		Name:        "classifier",
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Client:      client,
		Resolver:    resolver,
		Model:       clsModel,
		Temperature: clsCfg.Temperature,
		MaxTokens:   clsCfg.MaxTokens,
	})
	var response einomodel.BaseChatModel = NewGroqChatModel(GroqModelConfig{
		Name:        "response",
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Client:      client,
		Resolver:    resolver,
		Model:       respModel,
		Temperature: respCfg.Temperature,
		MaxTokens:   respCfg.MaxTokens,
		TopP:        respCfg.TopP,
	})
	if respCfg.Stream {
		response = streamCollectingModel{inner: response}
	}

	return &ChatModels{
		Classifier:          classifier,
		Response:            response,
		ClassifierModelName: clsModel,
		ResponseModelName:   respModel,
		Availability:        amodel.AvailabilityReady,
	}, nil
}

func newGeminiModels(ctx context.Context, cfg Config, clsCfg amodel.ClassifierModelConfig, respCfg amodel.ResponseModelConfig) (*ChatModels, error) {
	if cfg.GeminiAPIKey == "" {
		if cfg.AllowDegraded {
			logx.Warn().Msg("GEMINI_API_KEY not set, starting in degraded mode")
			return &ChatModels{Availability: amodel.AvailabilityDegraded}, nil
		}
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	clsModel := clsCfg.Model
	if clsModel == "" {
		clsModel = defaultGeminiModel
	}
	respModel := respCfg.Model
	if respModel == "" {
		respModel = defaultGeminiModel
	}

	classifier, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       clsModel,
		Temperature: &clsCfg.Temperature,
		MaxTokens:   &clsCfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini classifier model: %w", err)
	}

	var response einomodel.BaseChatModel
	response, err = gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       respModel,
		Temperature: &respCfg.Temperature,
		MaxTokens:   &respCfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini response model: %w", err)
	}
	if respCfg.Stream {
		response = streamCollectingModel{inner: response}
	}

	return &ChatModels{
		Classifier:          classifier,
		Response:            response,
		ClassifierModelName: clsModel,
		ResponseModelName:   respModel,
		Availability:        amodel.AvailabilityReady,
	}, nil
}
