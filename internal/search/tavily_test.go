package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iWorld-y/verity/internal/contracts"
)

func TestTavily_Search(t *testing.T) {
	var gotAuth string
	var gotBody tavilyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{
			"query": "golang scheduler",
			"results": [
				{"title": "A", "url": "https://a.com", "content": "snippet a", "score": 0.9, "published_date": "2025-01-01"},
				{"title": "B", "url": "https://b.com", "content": "snippet b"}
			]
		}`))
	}))
	defer server.Close()

	c := NewTavily("test-key", 5)
	c.baseURL = server.URL

	results, err := c.Search(context.Background(), &Request{
		Query:          "golang scheduler",
		MaxResults:     6,
		IncludeDomains: []string{"go.dev"},
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody.SearchDepth != "advanced" || gotBody.MaxResults != 6 {
		t.Errorf("request body = %+v", gotBody)
	}
	if len(gotBody.IncludeDomains) != 1 || gotBody.IncludeDomains[0] != "go.dev" {
		t.Errorf("include domains = %v", gotBody.IncludeDomains)
	}

	if len(results) != 2 {
		t.Fatalf("len = %d, want 2", len(results))
	}
	want := contracts.RawResult{URL: "https://a.com", Title: "A", Snippet: "snippet a", Score: 0.9, Published: "2025-01-01"}
	if results[0] != want {
		t.Errorf("results[0] = %+v, want %+v", results[0], want)
	}
	if results[1].Score != defaultScore {
		t.Errorf("zero provider score must fall back to %v, got %v", defaultScore, results[1].Score)
	}
}

func TestTavily_MissingKey(t *testing.T) {
	c := NewTavily("", 5)
	if _, err := c.Search(context.Background(), &Request{Query: "q"}); err == nil {
		t.Fatal("missing api key must fail fast without network I/O")
	}
}

func TestTavily_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewTavily("test-key", 5)
	c.baseURL = server.URL
	if _, err := c.Search(context.Background(), &Request{Query: "q"}); err == nil {
		t.Fatal("non-200 status must surface as an error")
	}
}

func TestSearXNG_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("format = %q", r.URL.Query().Get("format"))
		}
		if r.URL.Query().Get("language") != "en" {
			t.Errorf("language = %q", r.URL.Query().Get("language"))
		}
		w.Write([]byte(`{"query": "q", "results": [{"title": "A", "url": "https://a.com", "content": "c", "score": 0.4}]}`))
	}))
	defer server.Close()

	c := NewSearXNG(server.URL, 5)
	results, err := c.Search(context.Background(), &Request{Query: "q", Locale: "en"})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if len(results) != 1 || results[0].Score != 0.4 {
		t.Fatalf("results = %+v", results)
	}
}

func TestSearXNG_MissingBaseURL(t *testing.T) {
	c := NewSearXNG("", 5)
	if _, err := c.Search(context.Background(), &Request{Query: "q"}); err == nil {
		t.Fatal("missing base url must fail fast")
	}
}

func TestSearXNG_DefaultTimeout(t *testing.T) {
	c := NewSearXNG("http://localhost:8888", 0)
	if c.client.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s default", c.client.Timeout)
	}
}
