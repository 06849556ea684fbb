package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/aida/model"
)

// testProvider answers {"content": "..."} bodies verbatim.
type testProvider struct{}

func (testProvider) Name() string                { return "test" }
func (testProvider) BuildURL(baseURL string) string { return baseURL }
func (testProvider) SetHeaders(_ *http.Request)  {}

func (testProvider) BuildRequestBody(modelName string, messages []Message, temperature *float64, maxTokens int) ([]byte, error) {
	return json.Marshal(map[string]any{"model": modelName, "messages": messages})
}

func (testProvider) ParseResponse(body []byte, modelName string) (*Response, error) {
	var parsed struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, NewFatalError(err)
	}
	return &Response{Content: parsed.Content, Model: modelName, FinishReason: "stop"}, nil
}

func init() {
	RegisterProvider(testProvider{})
}

// fastRetry keeps test retries near-instant.
func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Millisecond,
	}
}

func testRegistry(primaryURL, backupURL string) *model.Registry {
	return model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityDrafting: {
				Preferred: []string{"primary"},
				Fallback:  []string{"backup"},
			},
		},
		map[string]*model.EndpointConfig{
			"primary": {Provider: "test", URL: primaryURL, Model: "primary-model"},
			"backup":  {Provider: "test", URL: backupURL, Model: "backup-model"},
		},
		"primary",
	)
}

func jsonHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"content": content})
	}
}

func TestCompleteSuccess(t *testing.T) {
	server := httptest.NewServer(jsonHandler("hello"))
	defer server.Close()

	client := NewClient(testRegistry(server.URL, server.URL), WithRetryConfig(fastRetry(1)))

	resp, err := client.Complete(context.Background(), Request{
		Capability: "drafting",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "primary-model", resp.Model)
	assert.NotEmpty(t, resp.RequestID)
}

func TestCompleteValidatesRequest(t *testing.T) {
	client := NewClient(testRegistry("http://unused", "http://unused"))

	_, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	assert.Error(t, err)

	_, err = client.Complete(context.Background(), Request{Capability: "drafting"})
	assert.Error(t, err)
}

func TestCompleteRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		jsonHandler("recovered")(w, r)
	}))
	defer server.Close()

	client := NewClient(testRegistry(server.URL, server.URL), WithRetryConfig(fastRetry(3)))

	resp, err := client.Complete(context.Background(), Request{
		Capability: "drafting",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, int64(3), calls.Load())
}

func TestCompleteFallsBackToNextEndpoint(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	backup := httptest.NewServer(jsonHandler("from backup"))
	defer backup.Close()

	registry := testRegistry(primary.URL, backup.URL)
	client := NewClient(registry, WithRetryConfig(fastRetry(1)))

	resp, err := client.Complete(context.Background(), Request{
		Capability: "drafting",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "from backup", resp.Content)
	assert.Equal(t, "backup-model", resp.Model)

	health := registry.GetEndpointHealth("primary")
	require.NotNil(t, health)
	assert.GreaterOrEqual(t, health.FailureCount, 1)
}

func TestCompleteFatalErrorSkipsFallback(t *testing.T) {
	var backupCalls atomic.Int64
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer primary.Close()

	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupCalls.Add(1)
		jsonHandler("unreachable")(w, r)
	}))
	defer backup.Close()

	client := NewClient(testRegistry(primary.URL, backup.URL), WithRetryConfig(fastRetry(3)))

	_, err := client.Complete(context.Background(), Request{
		Capability: "drafting",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, int64(0), backupCalls.Load(), "fatal errors must not hit fallbacks")
}

func TestCompleteUnknownCapabilityDefaultsToDrafting(t *testing.T) {
	server := httptest.NewServer(jsonHandler("defaulted"))
	defer server.Close()

	client := NewClient(testRegistry(server.URL, server.URL), WithRetryConfig(fastRetry(1)))

	resp, err := client.Complete(context.Background(), Request{
		Capability: "not-a-capability",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "defaulted", resp.Content)
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status        int
		wantTransient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusBadRequest, false},
		{http.StatusTeapot, false},
	}

	for _, tt := range tests {
		err := classifyHTTPError(tt.status, []byte("body"))
		if tt.wantTransient {
			assert.True(t, IsTransient(err), "status %d should be transient", tt.status)
		} else {
			assert.True(t, IsFatal(err), "status %d should be fatal", tt.status)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	client := NewClient(nil, WithRetryConfig(RetryConfig{
		MaxAttempts:       5,
		BackoffBase:       100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        time.Second,
	}))

	// Jitter is +/- 25%, so bound each attempt accordingly.
	b1 := client.calculateBackoff(1)
	assert.GreaterOrEqual(t, b1, 75*time.Millisecond)
	assert.LessOrEqual(t, b1, 125*time.Millisecond)

	b3 := client.calculateBackoff(3)
	assert.GreaterOrEqual(t, b3, 300*time.Millisecond)
	assert.LessOrEqual(t, b3, 500*time.Millisecond)

	// Attempt 5 would be 1.6s uncapped; it is capped at 1s before jitter.
	b5 := client.calculateBackoff(5)
	assert.LessOrEqual(t, b5, 1250*time.Millisecond)
	assert.GreaterOrEqual(t, b5, 750*time.Millisecond)
}
