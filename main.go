package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/nova-assistant/server/internal/assistant/model"
	"github.com/nova-assistant/server/internal/assistant/pipeline"
	"github.com/nova-assistant/server/internal/assistant/repo"
	"github.com/nova-assistant/server/internal/core"
	"github.com/nova-assistant/server/internal/llm"
	logx "github.com/nova-assistant/server/pkg/logger"
	pkgredis "github.com/nova-assistant/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the assistant, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis   pkgredis.Config
	History model.HistoryConfig

	// LLM provider
	LLM llm.Config

	// Assistant configs
	Classifier   model.ClassifierModelConfig
	Response     model.ResponseModelConfig
	Persona      model.PersonaConfig
	Conversation model.ConversationConfig
	Search       model.SearchConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	conversationRepo, cleanup, err := newConversationRepo(envCfg)
	if err != nil {
		log.Fatalf("Failed to initialise conversation repository: %v", err)
	}
	defer cleanup()

	models, err := llm.NewChatModels(ctx, envCfg.LLM, envCfg.Classifier, envCfg.Response)
	if err != nil {
		log.Fatalf("Failed to initialise chat models: %v", err)
	}

	runner, err := pipeline.BuildResponsePipeline(ctx, pipeline.Config{
		Models:           models,
		ConversationRepo: conversationRepo,
		Conversation:     envCfg.Conversation,
		Classifier:       envCfg.Classifier,
		Persona:          envCfg.Persona,
		Search:           envCfg.Search,
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	sessionID := uuid.NewString()
	fmt.Printf("%s ready (session %s). Type 'exit' to quit.\n", envCfg.Persona.AssistantName, sessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s> ", envCfg.Persona.Username)
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.EqualFold(query, "exit") || strings.EqualFold(query, "quit") {
			break
		}

		response, err := runner.Invoke(ctx, model.QueryInput{
			SessionID: sessionID,
			Query:     query,
		})
		if err != nil {
			log.Printf("turn failed: %v", err)
			continue
		}
		fmt.Printf("%s: %s\n", envCfg.Persona.AssistantName, response)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("stdin read error: %v", err)
	}
	fmt.Println("Bye.")
}

// newConversationRepo selects the turn-log backend: a local JSON file by
// default, Redis when HISTORY_BACKEND=redis.
func newConversationRepo(cfg AppConfig) (model.ConversationRepository, func(), error) {
	switch strings.ToLower(cfg.History.Backend) {
	case "file":
		return repo.NewFileConversationRepository(cfg.History.FilePath, cfg.Conversation.PersistLimit), func() {}, nil
	case "redis":
		ttl, err := time.ParseDuration(cfg.Conversation.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", cfg.Conversation.TTL, err)
		}
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, nil, fmt.Errorf("initialise redis client: %w", err)
		}
		return repo.NewRedisConversationRepository(rdb, ttl, cfg.Conversation.PersistLimit), func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported history backend: %s", cfg.History.Backend)
	}
}
