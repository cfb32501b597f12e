package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/hybridsearch/internal/config"
)

// vocab gives the fake provider a tiny bag-of-words embedding space. The
// trailing constant component keeps every vector non-zero.
var vocab = []string{"test", "vector", "energy", "solar", "web", "load", "cach", "similar"}

const testDim = 9

func fakeVector(text string) []float32 {
	text = strings.ToLower(text)
	v := make([]float32, testDim)
	for i, w := range vocab {
		v[i] = float32(strings.Count(text, w))
	}
	v[testDim-1] = 1
	return v
}

type fakeProvider struct {
	*httptest.Server
	requests atomic.Int64
	inputs   atomic.Int64
}

// newFakeProvider serves the OpenAI-compatible /embeddings and /models routes.
func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/models":
			_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
		case "/embeddings":
			var req struct {
				Input []string `json:"input"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			p.requests.Add(1)
			p.inputs.Add(int64(len(req.Input)))

			data := make([]map[string]any, len(req.Input))
			for i, in := range req.Input {
				data[i] = map[string]any{"object": "embedding", "index": i, "embedding": fakeVector(in)}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"model":  "test-model",
				"data":   data,
				"usage":  map[string]int{"prompt_tokens": 3 * len(req.Input), "total_tokens": 3 * len(req.Input)},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(p.Close)
	return p
}

func corpusPath(t *testing.T) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("..", "..", "config", "corpus.yaml"))
	require.NoError(t, err)
	return p
}

// testConfig returns an in-memory embedded configuration using the fake provider.
func testConfig(t *testing.T, provider *fakeProvider) config.Config {
	t.Helper()
	cfg := config.Config{HTTP: config.HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	cfg.Embedding.BaseURL = provider.URL
	cfg.Embedding.APIKey = "test-key"
	cfg.Embedding.Model = "test-model"
	cfg.Embedding.Dimensions = testDim
	cfg.Embedding.CacheSize = 64
	cfg.Corpus.Path = corpusPath(t)
	require.NoError(t, cfg.Validate())
	return cfg
}
