package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	errx "github.com/nova-assistant/server/internal/core/error"
	logx "github.com/nova-assistant/server/pkg/logger"
)

// DefaultModel is the hardcoded fallback when the catalog is unreachable or
// lists nothing usable.
const DefaultModel = "groq/compound"

// preferredModels is the fastest-first preference list walked at startup.
var preferredModels = []string{
	"llama-3.1-8b-instant",
	"groq/compound-mini",
	"groq/compound",
}

var (
	chatKeywords     = []string{"llama", "gpt", "compound"}
	excludedKeywords = []string{"whisper", "tts", "embed"}
)

// Resolver selects a completion model from the backend's catalog and fails
// over to an alternative when a request with the current model fails.
type Resolver struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu      sync.Mutex
	current string
}

func NewResolver(baseURL, apiKey string, client *http.Client) *Resolver {
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type catalogEntry struct {
	ID string `json:"id"`
}

type catalogResponse struct {
	Data []catalogEntry `json:"data"`
}

// ListModels queries the backend's model catalog (OpenAI wire format).
func (r *Resolver) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog request: unexpected status %d", resp.StatusCode)
	}

	var cat catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	ids := make([]string, 0, len(cat.Data))
	for _, m := range cat.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

// Select walks the preference list against the catalog and returns the first
// available id. When no preferred model is listed it falls back to any id
// that looks conversational, and finally to DefaultModel. Select never fails:
// a catalog error degrades to the hardcoded default.
func (r *Resolver) Select(ctx context.Context) string {
	ids, err := r.ListModels(ctx)
	if err != nil {
		logx.Warn().Err(err).Str("fallback", DefaultModel).Msg("model catalog unavailable, using default")
		return r.setCurrent(DefaultModel)
	}

	available := make(map[string]bool, len(ids))
	for _, id := range ids {
		available[id] = true
	}
	for _, id := range preferredModels {
		if available[id] {
			return r.setCurrent(id)
		}
	}

	for _, id := range ids {
		if isChatModel(id) {
			return r.setCurrent(id)
		}
	}

	logx.Warn().Str("fallback", DefaultModel).Msg("no preferred or chat-like model listed, using default")
	return r.setCurrent(DefaultModel)
}

// Failover re-queries the catalog and returns the first listed id different
// from the failed one, skipping non-completion modalities (whisper, tts,
// embeddings). It returns errx.ErrNoModelAvailable when the catalog holds no
// alternative or cannot be listed; the caller must stop retrying.
func (r *Resolver) Failover(ctx context.Context, failed string) (string, error) {
	ids, err := r.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errx.ErrNoModelAvailable, err)
	}
	for _, id := range ids {
		if id != failed && !isExcludedModel(id) {
			logx.Warn().Str("failed_model", failed).Str("next_model", id).Msg("switching completion model")
			return r.setCurrent(id), nil
		}
	}
	return "", errx.ErrNoModelAvailable
}

// Current returns the most recently selected model id.
func (r *Resolver) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == "" {
		return DefaultModel
	}
	return r.current
}

func (r *Resolver) setCurrent(id string) string {
	r.mu.Lock()
	r.current = id
	r.mu.Unlock()
	return id
}

func isExcludedModel(id string) bool {
	lower := strings.ToLower(id)
	for _, ex := range excludedKeywords {
		if strings.Contains(lower, ex) {
			return true
		}
	}
	return false
}

func isChatModel(id string) bool {
	if isExcludedModel(id) {
		return false
	}
	lower := strings.ToLower(id)
	for _, kw := range chatKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
