package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	t.Parallel()

	e := NewHashEmbedder(64)
	a, err := e.Embed(context.Background(), []string{"Quarterly revenue report", "Quarterly revenue report"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(a) != 2 || len(a[0]) != 64 {
		t.Fatalf("unexpected shape: %d x %d", len(a), len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != a[1][i] {
			t.Fatalf("identical texts embedded differently at %d", i)
		}
	}
	if e.Model() != "hash-v1-64" {
		t.Errorf("unexpected model tag %q", e.Model())
	}
}

func TestHashEmbedder_Normalised(t *testing.T) {
	t.Parallel()

	v, _ := NewHashEmbedder(0).Embed(context.Background(), []string{"deploy the service to staging"})
	var sum float64
	for _, x := range v[0] {
		sum += float64(x) * float64(x)
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("expected unit norm, got %f", sum)
	}
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	t.Parallel()

	v, err := NewHashEmbedder(8).Embed(context.Background(), []string{"  ...  "})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for _, x := range v[0] {
		if x != 0 {
			t.Fatal("expected zero vector for text with no tokens")
		}
	}
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "all-minilm" || len(req.Input) != 2 {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"all-minilm","data":[` +
			`{"object":"embedding","index":1,"embedding":[3,4]},` +
			`{"object":"embedding","index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL + "/", Model: "all-minilm"})
	got, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 1 || got[1][1] != 4 {
		t.Errorf("unexpected embeddings %v", got)
	}
	if e.Model() != "ollama/all-minilm" {
		t.Errorf("unexpected model tag %q", e.Model())
	}
}

func TestOllamaEmbedder_Error(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"model \"nope\" not found","type":"api_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nope"}).Embed(context.Background(), []string{"a"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected upstream error message, got %v", err)
	}
}

// openaiResponse mirrors the OpenAI embeddings response body.
type openaiResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func TestOpenAIEmbedder_OutOfOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		resp := openaiResponse{Object: "list", Model: "m"}
		resp.Data = append(resp.Data,
			struct {
				Object    string    `json:"object"`
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Object: "embedding", Embedding: []float32{9}, Index: 1},
			struct {
				Object    string    `json:"object"`
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Object: "embedding", Embedding: []float32{7}, Index: 0},
		)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "test-key", Model: "m", Dimensions: 1})
	got, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 7 || got[1][0] != 9 {
		t.Errorf("expected embeddings placed by index, got %v", got)
	}
	if e.Model() != "openai/m@1" {
		t.Errorf("unexpected model tag %q", e.Model())
	}
}

func TestOpenAIEmbedder_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	_, err := e.Embed(context.Background(), []string{"x"})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected API error with status, got %v", err)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "hash")
	t.Setenv("EMBEDDING_DIMENSIONS", "32")

	e, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if e.Model() != "hash-v1-32" {
		t.Errorf("unexpected model %q", e.Model())
	}

	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewFromEnv(); err == nil {
		t.Error("expected error for openai without a key")
	}

	t.Setenv("EMBEDDING_PROVIDER", "bogus")
	if _, err := NewFromEnv(); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()

	if !looksLikeChatModel("mistralai/mistral-7b-instruct") {
		t.Error("expected mistral to look like a chat model")
	}
	if looksLikeChatModel("all-minilm") {
		t.Error("expected all-minilm to look like an embedding model")
	}
}
