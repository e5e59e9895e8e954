package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/nova-assistant/server/internal/core/error"
)

func catalogServer(t *testing.T, ids []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		entries := make([]catalogEntry, 0, len(ids))
		for _, id := range ids {
			entries = append(entries, catalogEntry{ID: id})
		}
		json.NewEncoder(w).Encode(catalogResponse{Data: entries})
	}))
}

func TestListModels(t *testing.T) {
	srv := catalogServer(t, []string{"llama-3.1-8b-instant", "whisper-large-v3"})
	defer srv.Close()

	r := NewResolver(srv.URL, "test-key", srv.Client())
	ids, err := r.ListModels(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"llama-3.1-8b-instant", "whisper-large-v3"}, ids)
}

func TestSelectPrefersPreferenceList(t *testing.T) {
	srv := catalogServer(t, []string{"whisper-large-v3", "groq/compound", "llama-3.1-8b-instant"})
	defer srv.Close()

	r := NewResolver(srv.URL, "test-key", srv.Client())

	assert.Equal(t, "llama-3.1-8b-instant", r.Select(context.Background()))
	assert.Equal(t, "llama-3.1-8b-instant", r.Current())
}

func TestSelectFallsBackToChatLikeModel(t *testing.T) {
	srv := catalogServer(t, []string{"whisper-large-v3", "llama-guard-4-12b"})
	defer srv.Close()

	r := NewResolver(srv.URL, "test-key", srv.Client())

	assert.Equal(t, "llama-guard-4-12b", r.Select(context.Background()))
}

func TestSelectNoCandidatesUsesDefault(t *testing.T) {
	srv := catalogServer(t, []string{"whisper-large-v3", "playai-tts"})
	defer srv.Close()

	r := NewResolver(srv.URL, "test-key", srv.Client())

	assert.Equal(t, DefaultModel, r.Select(context.Background()))
}

func TestSelectCatalogUnavailableUsesDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, "test-key", srv.Client())

	assert.Equal(t, DefaultModel, r.Select(context.Background()))
	assert.Equal(t, DefaultModel, r.Current())
}

func TestFailoverSwitchesToAlternative(t *testing.T) {
	srv := catalogServer(t, []string{"llama-3.1-8b-instant", "whisper-large-v3", "llama-3.3-70b-versatile"})
	defer srv.Close()

	r := NewResolver(srv.URL, "test-key", srv.Client())
	next, err := r.Failover(context.Background(), "llama-3.1-8b-instant")

	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b-versatile", next)
	assert.Equal(t, next, r.Current())
}

func TestFailoverAcceptsAnyCompletionModel(t *testing.T) {
	// Alternatives without a recognized chat keyword are still valid failover
	// targets; only non-completion modalities are skipped.
	srv := catalogServer(t, []string{"llama-3.1-8b-instant", "mixtral-8x7b"})
	defer srv.Close()

	r := NewResolver(srv.URL, "test-key", srv.Client())
	next, err := r.Failover(context.Background(), "llama-3.1-8b-instant")

	require.NoError(t, err)
	assert.Equal(t, "mixtral-8x7b", next)
	assert.Equal(t, "mixtral-8x7b", r.Current())
}

func TestFailoverNoAlternative(t *testing.T) {
	srv := catalogServer(t, []string{"llama-3.1-8b-instant", "whisper-large-v3"})
	defer srv.Close()

	r := NewResolver(srv.URL, "test-key", srv.Client())
	_, err := r.Failover(context.Background(), "llama-3.1-8b-instant")

	assert.ErrorIs(t, err, errx.ErrNoModelAvailable)
}

func TestFailoverCatalogUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, "test-key", srv.Client())
	_, err := r.Failover(context.Background(), "anything")

	assert.ErrorIs(t, err, errx.ErrNoModelAvailable)
}

func TestIsChatModel(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"llama-3.1-8b-instant", true},
		{"groq/compound", true},
		{"openai/gpt-oss-120b", true},
		{"whisper-large-v3", false},
		{"playai-tts", false},
		{"text-embed-3", false},
		{"mixtral-8x7b", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, isChatModel(tc.id), "id=%q", tc.id)
	}
}
