package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/nova-assistant/server/internal/assistant/conversations"
	"github.com/nova-assistant/server/internal/assistant/model"
	"github.com/nova-assistant/server/internal/assistant/observers"
	"github.com/nova-assistant/server/internal/assistant/prompts"
	"github.com/nova-assistant/server/internal/assistant/search"
	"github.com/nova-assistant/server/internal/llm"
	errx "github.com/nova-assistant/server/internal/core/error"
	logx "github.com/nova-assistant/server/pkg/logger"
)

// Runner executes one user turn through the compiled graph.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (string, error)
}

// Config holds everything needed to compose the full response pipeline
// end-to-end.
type Config struct {
	Models           *llm.ChatModels
	ConversationRepo model.ConversationRepository
	Conversation     model.ConversationConfig
	Classifier       model.ClassifierModelConfig
	Persona          model.PersonaConfig
	Search           model.SearchConfig
}

// PipelineConfig holds the already-constructed collaborators the graph wires
// together.
type PipelineConfig struct {
	ChatModels      *llm.ChatModels
	MessagesManager *conversations.Manager
	SearchEngine    *search.Engine
	Persona         model.PersonaConfig
	MaxRetries      int
	Now             func() time.Time
}

// GraphBuilder handles the construction of the assistant conversation graph.
type GraphBuilder struct {
	config           *PipelineConfig
	graph            *compose.Graph[model.QueryInput, *schema.Message]
	classifierPrompt string
	personaPrompt    string
	classifier       einomodel.BaseChatModel
	response         einomodel.BaseChatModel
}

type pipelineRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
	manager  *conversations.Manager
}

// Invoke runs a turn. On terminal pipeline errors it resets the session's
// history and returns an apology: a stale half-written turn log is worse than
// an empty one.
func (r *pipelineRunner) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	out, err := r.runnable.Invoke(ctx, model.QueryInput{
		SessionID: in.SessionID,
		Query:     in.Query,
	}, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		logx.Error().Str("session_id", in.SessionID).Err(err).Msg("pipeline invocation failed")

		if rerr := r.manager.Reset(ctx, in.SessionID); rerr != nil {
			logx.Error().Str("session_id", in.SessionID).Err(rerr).Msg("failed to reset session history")
		}

		if errors.Is(err, errx.ErrNoModelAvailable) {
			return apologyNoModel, nil
		}
		return apologyFailure, nil
	}
	if out == nil {
		return "", nil
	}
	return out.Content, nil
}

// BuildResponsePipeline composes the search engine and messages manager,
// builds the graph, and returns a Runner.
func BuildResponsePipeline(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.Models == nil {
		return nil, fmt.Errorf("chat models are nil")
	}

	mm := conversations.NewManager(cfg.ConversationRepo, cfg.Conversation)
	engine := search.NewEngine(cfg.Search)

	runnable, mgr, err := BuildGraph(ctx, &PipelineConfig{
		ChatModels:      cfg.Models,
		MessagesManager: mm,
		SearchEngine:    engine,
		Persona:         cfg.Persona,
		MaxRetries:      cfg.Classifier.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("availability", cfg.Models.Availability.String()).
		Msg("Response pipeline built successfully")
	return &pipelineRunner{runnable: runnable, manager: mgr}, nil
}

// BuildGraph constructs and compiles the assistant graph.
func BuildGraph(ctx context.Context, config *PipelineConfig) (compose.Runnable[model.QueryInput, *schema.Message], *conversations.Manager, error) {
	if config == nil {
		return nil, nil, fmt.Errorf("pipeline config is nil")
	}
	if config.ChatModels == nil {
		return nil, nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, nil, fmt.Errorf("messages manager is nil")
	}
	if config.SearchEngine == nil {
		return nil, nil, fmt.Errorf("search engine is nil")
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	availability := config.ChatModels.Availability

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{Availability: availability}
			}),
		),
	}

	if err := builder.setupPrompts(ctx, config.Persona); err != nil {
		return nil, nil, err
	}
	builder.setupModels(availability)

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, nil, err
	}

	runnable, err := builder.compile(ctx)
	if err != nil {
		return nil, nil, err
	}
	return runnable, config.MessagesManager, nil
}

// setupPrompts renders the classifier and persona system prompts once.
func (b *GraphBuilder) setupPrompts(ctx context.Context, persona model.PersonaConfig) error {
	classifierPrompt, err := prompts.RenderClassifierSystem(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to render classifier prompt")
		return fmt.Errorf("failed to render classifier prompt: %w", err)
	}
	personaPrompt, err := prompts.RenderPersonaSystem(ctx, persona)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to render persona prompt")
		return fmt.Errorf("failed to render persona prompt: %w", err)
	}
	b.classifierPrompt = classifierPrompt
	b.personaPrompt = personaPrompt
	return nil
}

// setupModels chooses the concrete models for the two chat-model slots.
// Degraded mode swaps in the heuristic classifier so realtime lookups still
// work without any completion backend.
func (b *GraphBuilder) setupModels(availability model.Availability) {
	if availability == model.AvailabilityDegraded {
		b.classifier = degradedClassifier{}
		b.response = unavailableChatModel{}
		return
	}
	b.classifier = resilientChatModel{inner: b.config.ChatModels.Classifier}
	b.response = b.config.ChatModels.Response
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(NodeInputConverter,
		NewInputConverterNode(b.classifierPrompt),
		compose.WithStatePreHandler(NewInputConverterPreHandler()),
	)

	b.graph.AddChatModelNode(NodeClassifierChatModel,
		b.classifier,
		compose.WithStatePostHandler(NewClassifierPostHandler(b.config.ChatModels.ClassifierModelName)),
	)

	b.graph.AddLambdaNode(NodeActionParser,
		NewActionParserNode(),
		compose.WithStatePostHandler(NewActionParserPostHandler(b.config.MaxRetries)),
	)

	b.graph.AddLambdaNode(NodeClassifierRetry,
		NewClassifierRetryNode(b.classifierPrompt),
	)

	b.graph.AddLambdaNode(NodeCommandDispatch,
		NewCommandDispatchNode(),
	)

	b.graph.AddLambdaNode(NodeEvidenceCollector,
		NewEvidenceCollectorNode(b.config.SearchEngine),
	)

	b.graph.AddLambdaNode(NodeResponseAssembler,
		NewResponseAssemblerNode(b.config.MessagesManager, b.personaPrompt, b.config.Now),
	)

	b.graph.AddLambdaNode(NodeDegradedResponder,
		NewDegradedResponderNode(b.config.MessagesManager),
	)

	b.graph.AddChatModelNode(NodeResponseChatModel,
		b.response,
		compose.WithStatePostHandler(NewResponseChatModelPostHandler(b.config.MessagesManager, b.config.ChatModels.ResponseModelName)),
	)
}

// addEdges creates the main flow connections between nodes.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, NodeInputConverter},
		{NodeInputConverter, NodeClassifierChatModel},
		{NodeClassifierChatModel, NodeActionParser},
		{NodeClassifierRetry, NodeClassifierChatModel},
		{NodeCommandDispatch, compose.END},
		{NodeEvidenceCollector, NodeResponseAssembler},
		{NodeDegradedResponder, compose.END},
		{NodeResponseChatModel, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates conditional routing branches.
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		NewRouteCondition(),
		map[string]bool{
			NodeClassifierRetry:   true,
			NodeCommandDispatch:   true,
			NodeEvidenceCollector: true,
			NodeResponseAssembler: true,
		},
	)
	if err := b.graph.AddBranch(NodeActionParser, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}

	availabilityBranch := compose.NewGraphBranch(
		NewAvailabilityCondition(),
		map[string]bool{
			NodeDegradedResponder: true,
			NodeResponseChatModel: true,
		},
	)
	if err := b.graph.AddBranch(NodeResponseAssembler, availabilityBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding availability branch")
		return fmt.Errorf("error adding availability branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// The classifier retry loop revisits three nodes per round; cap run steps
	// accordingly.
	maxSteps := 10 + b.config.MaxRetries*3
	if maxSteps < 16 {
		maxSteps = 16
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
