package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/iWorld-y/verity/internal/cache"
	"github.com/iWorld-y/verity/internal/config"
	"github.com/iWorld-y/verity/internal/contracts"
	"github.com/iWorld-y/verity/internal/extract"
	"github.com/iWorld-y/verity/internal/hashing"
	"github.com/iWorld-y/verity/internal/llm"
	"github.com/iWorld-y/verity/internal/salvage"
	"github.com/iWorld-y/verity/internal/search"
	"github.com/iWorld-y/verity/internal/synth"
)

// fakeSearcher 模拟搜索提供商。
type fakeSearcher struct {
	name    string
	results []contracts.RawResult
	err     error
	calls   int
}

func (s *fakeSearcher) Name() string { return s.name }

func (s *fakeSearcher) Search(ctx context.Context, req *search.Request) ([]contracts.RawResult, error) {
	s.calls++
	return s.results, s.err
}

// fakeExtractor 模拟正文抽取，failURLs 中的 URL 返回错误。
type fakeExtractor struct {
	name     string
	failURLs map[string]bool
}

func (e *fakeExtractor) Name() string { return e.name }

func (e *fakeExtractor) Extract(ctx context.Context, url string) (*contracts.Document, error) {
	if e.failURLs[url] {
		return nil, errors.New("fetch failed")
	}
	return &contracts.Document{URL: url, Title: "doc " + url, Text: "content of " + url}, nil
}

// fakeGenerator 模拟生成器，chat 按系统提示区分重写、生成与修复调用。
type fakeGenerator struct {
	name  string
	chat  func(system, user string) (string, error)
	calls int
}

func (g *fakeGenerator) Name() string  { return g.name }
func (g *fakeGenerator) Model() string { return g.name + "-model" }

func (g *fakeGenerator) Chat(ctx context.Context, system, user string, opts *llm.Options) (string, error) {
	g.calls++
	return g.chat(system, user)
}

// answerOnly 生成器脚本：重写调用失败（回退原始查询），其余调用返回 reply。
func answerOnly(reply string) func(system, user string) (string, error) {
	return func(system, user string) (string, error) {
		if system == synth.QueryNormalizerSystem {
			return "", errors.New("rewrite unavailable")
		}
		return reply, nil
	}
}

func newTestPipeline(store cache.Store, searchers []search.Provider, extractors []extract.Provider, generators []llm.Generator) *Pipeline {
	cfg := &config.Config{}
	cfg.LLM.Timeout = 30
	cfg.Pipeline.StructuredMaxTokens = 2000
	cfg.Cache.ResponseTTL = 3600
	cfg.Cache.DocumentTTL = 3600
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		searchers:  searchers,
		fanout:     extract.NewFanout(extractors, store, 3, time.Second, time.Hour),
		generators: generators,
		salvager:   salvage.New(generators),
	}
}

func fiveResults() []contracts.RawResult {
	results := make([]contracts.RawResult, 5)
	for i := range results {
		results[i] = contracts.RawResult{
			URL:     fmt.Sprintf("https://site%d.com/article", i),
			Title:   fmt.Sprintf("Article %d", i),
			Snippet: "snippet",
			Score:   0.5,
		}
	}
	return results
}

const validAnswer = `{"answer": "Raft elects a leader per term.", "bullets": ["terms", "quorum"], "sources": [{"title": "Article 0", "url": "https://site0.com/article", "snippet": "s", "relevance": 0.5}]}`

func TestRun_EndToEnd(t *testing.T) {
	store := cache.NewMemoryStore()
	searchers := []search.Provider{
		&fakeSearcher{name: "first", err: errors.New("quota exceeded")},
		&fakeSearcher{name: "second", err: errors.New("timeout")},
		&fakeSearcher{name: "third", results: fiveResults()},
	}
	extractors := []extract.Provider{
		&fakeExtractor{name: "fake", failURLs: map[string]bool{"https://site2.com/article": true}},
	}
	gen := &fakeGenerator{name: "openrouter", chat: answerOnly(validAnswer)}

	p := newTestPipeline(store, searchers, extractors, []llm.Generator{gen})
	resp, err := p.Run(context.Background(), &contracts.Request{Query: "how does raft elect a leader"})
	if err != nil {
		t.Fatalf("err = %v", err)
	}

	if resp.Answer != "Raft elects a leader per term." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Bullets) != 2 || len(resp.Sources) != 1 {
		t.Errorf("bullets = %v, sources = %v", resp.Bullets, resp.Sources)
	}
	if resp.Diagnostics.Cached {
		t.Error("first run must not be marked cached")
	}
	if resp.Diagnostics.SearchProvider != "third" {
		t.Errorf("searchProvider = %q, want the provider that succeeded", resp.Diagnostics.SearchProvider)
	}
	if resp.Diagnostics.LLM != "openrouter-model" {
		t.Errorf("llm = %q", resp.Diagnostics.LLM)
	}
	if resp.Diagnostics.LatencyMs < 0 {
		t.Errorf("latency = %d", resp.Diagnostics.LatencyMs)
	}
}

func TestRun_CacheHitOnSecondRequest(t *testing.T) {
	store := cache.NewMemoryStore()
	searcher := &fakeSearcher{name: "only", results: fiveResults()}
	gen := &fakeGenerator{name: "openrouter", chat: answerOnly(validAnswer)}
	p := newTestPipeline(store, []search.Provider{searcher}, []extract.Provider{&fakeExtractor{name: "fake"}}, []llm.Generator{gen})

	req := &contracts.Request{Query: "how does raft elect a leader"}
	first, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	// 回写是异步的，等它落盘
	key := hashing.QueryKey(req)
	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := store.Get(context.Background(), key); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("response never written back to cache")
		}
		time.Sleep(5 * time.Millisecond)
	}

	searchCallsBefore := searcher.calls
	genCallsBefore := gen.calls
	second, err := p.Run(context.Background(), &contracts.Request{Query: "how does raft elect a leader"})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !second.Diagnostics.Cached {
		t.Fatal("second identical request must be served from cache")
	}
	if searcher.calls != searchCallsBefore || gen.calls != genCallsBefore {
		t.Error("cache hit must not reach search or generation providers")
	}
	if second.Answer != first.Answer || second.Diagnostics.SearchProvider != first.Diagnostics.SearchProvider {
		t.Error("cached response must preserve all fields except latency and cached flag")
	}
}

func TestRun_SearchExhaustionDegradesGracefully(t *testing.T) {
	searchers := []search.Provider{
		&fakeSearcher{name: "a", err: errors.New("down")},
		&fakeSearcher{name: "b", err: errors.New("down too")},
	}
	gen := &fakeGenerator{name: "openrouter", chat: answerOnly(`{"answer": "I could not find sources.", "bullets": [], "sources": []}`)}
	p := newTestPipeline(cache.NewMemoryStore(), searchers, []extract.Provider{&fakeExtractor{name: "fake"}}, []llm.Generator{gen})

	resp, err := p.Run(context.Background(), &contracts.Request{Query: "anything"})
	if err != nil {
		t.Fatalf("search exhaustion must not fail the request: %v", err)
	}
	if resp.Diagnostics.SearchProvider != "" {
		t.Errorf("searchProvider = %q, want empty", resp.Diagnostics.SearchProvider)
	}
	if !strings.Contains(resp.Diagnostics.Notes, "all search providers failed") {
		t.Errorf("notes = %q, want the degradation recorded", resp.Diagnostics.Notes)
	}
}

func TestRun_GenerationExhaustion(t *testing.T) {
	gen := &fakeGenerator{name: "openrouter", chat: func(system, user string) (string, error) {
		return "", errors.New("model offline")
	}}
	p := newTestPipeline(cache.NewMemoryStore(),
		[]search.Provider{&fakeSearcher{name: "only", results: fiveResults()}},
		[]extract.Provider{&fakeExtractor{name: "fake"}},
		[]llm.Generator{gen})

	_, err := p.Run(context.Background(), &contracts.Request{Query: "anything"})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
}

func TestRun_MalformedOutputBecomesErrorPayload(t *testing.T) {
	// 生成与修复都只会产出无法解析的文本
	gen := &fakeGenerator{name: "openrouter", chat: func(system, user string) (string, error) {
		if system == synth.QueryNormalizerSystem {
			return "", errors.New("rewrite unavailable")
		}
		return "I am sorry, I cannot produce JSON today.", nil
	}}
	p := newTestPipeline(cache.NewMemoryStore(),
		[]search.Provider{&fakeSearcher{name: "only", results: fiveResults()}},
		[]extract.Provider{&fakeExtractor{name: "fake"}},
		[]llm.Generator{gen})

	resp, err := p.Run(context.Background(), &contracts.Request{Query: "anything"})
	if err != nil {
		t.Fatalf("malformed output must degrade, not fail: %v", err)
	}
	if resp.Answer != "Error processing response" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.Bullets == nil || resp.Sources == nil {
		t.Error("fallback payload must keep empty slices, not nulls")
	}
	if !strings.Contains(resp.Diagnostics.Notes, "Failed to parse LLM response") {
		t.Errorf("notes = %q", resp.Diagnostics.Notes)
	}
}

func TestRun_InvalidOutputType(t *testing.T) {
	p := newTestPipeline(cache.NewMemoryStore(), nil, []extract.Provider{&fakeExtractor{name: "fake"}}, nil)
	_, err := p.Run(context.Background(), &contracts.Request{Query: "q", OutputType: "poem"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestRun_StructuredOutput(t *testing.T) {
	faqReply := `{"type": "faq", "version": "1.0", "items": [{"q": "What is Raft?", "a_md": "A consensus algorithm."}]}`
	gen := &fakeGenerator{name: "openrouter", chat: answerOnly(faqReply)}
	p := newTestPipeline(cache.NewMemoryStore(),
		[]search.Provider{&fakeSearcher{name: "only", results: fiveResults()}},
		[]extract.Provider{&fakeExtractor{name: "fake"}},
		[]llm.Generator{gen})

	resp, err := p.Run(context.Background(), &contracts.Request{Query: "raft overview", OutputType: contracts.OutputFAQ})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if resp.Structured == nil || resp.Structured.Type != contracts.OutputFAQ {
		t.Fatalf("structured = %+v", resp.Structured)
	}
	if len(resp.Structured.Items) != 1 {
		t.Errorf("items = %v", resp.Structured.Items)
	}
	if resp.Answer != "" {
		t.Errorf("structured responses carry no plain answer, got %q", resp.Answer)
	}
	if len(resp.Sources) != 5 {
		t.Errorf("sources = %d, want the ranked results", len(resp.Sources))
	}
}

func TestRun_StructuredValidationFailure(t *testing.T) {
	// 合法 JSON，但缺少 faq 必填字段
	gen := &fakeGenerator{name: "openrouter", chat: answerOnly(`{"type": "faq", "version": "1.0", "items": []}`)}
	p := newTestPipeline(cache.NewMemoryStore(),
		[]search.Provider{&fakeSearcher{name: "only", results: fiveResults()}},
		[]extract.Provider{&fakeExtractor{name: "fake"}},
		[]llm.Generator{gen})

	resp, err := p.Run(context.Background(), &contracts.Request{Query: "raft", OutputType: contracts.OutputFAQ})
	if err != nil {
		t.Fatalf("validation failure must degrade, not fail: %v", err)
	}
	if resp.Answer != "Error processing response" {
		t.Errorf("answer = %q, want the fallback payload", resp.Answer)
	}
}

func TestRun_ForceLocalPrefersOllama(t *testing.T) {
	remote := &fakeGenerator{name: "openrouter", chat: answerOnly(validAnswer)}
	local := &fakeGenerator{name: "ollama", chat: answerOnly(validAnswer)}
	p := newTestPipeline(cache.NewMemoryStore(),
		[]search.Provider{&fakeSearcher{name: "only", results: fiveResults()}},
		[]extract.Provider{&fakeExtractor{name: "fake"}},
		[]llm.Generator{remote, local})

	resp, err := p.Run(context.Background(), &contracts.Request{Query: "raft", ForceLocal: true})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if resp.Diagnostics.LLM != "ollama-model" {
		t.Errorf("llm = %q, want the local model to win under forceLocal", resp.Diagnostics.LLM)
	}
}

func TestRun_SensitiveQueryGetsDisclaimer(t *testing.T) {
	gen := &fakeGenerator{name: "openrouter", chat: answerOnly(`{"answer": "Spread purchases over time.", "bullets": [], "sources": []}`)}
	p := newTestPipeline(cache.NewMemoryStore(),
		[]search.Provider{&fakeSearcher{name: "only", results: fiveResults()}},
		[]extract.Provider{&fakeExtractor{name: "fake"}},
		[]llm.Generator{gen})

	resp, err := p.Run(context.Background(), &contracts.Request{Query: "best investment strategy"})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if !strings.HasSuffix(resp.Answer, "Note: This is not professional advice.") {
		t.Errorf("answer = %q, want the disclaimer appended", resp.Answer)
	}
}

func TestRunRaw(t *testing.T) {
	gen := &fakeGenerator{name: "openrouter", chat: answerOnly(validAnswer)}
	p := newTestPipeline(cache.NewMemoryStore(),
		[]search.Provider{&fakeSearcher{name: "only", results: fiveResults()}},
		[]extract.Provider{&fakeExtractor{name: "fake"}},
		[]llm.Generator{gen})

	raw, err := p.RunRaw(context.Background(), &contracts.Request{Query: "raft"})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if raw["answer"] != "Raft elects a leader per term." {
		t.Errorf("answer = %v", raw["answer"])
	}
	if _, ok := raw["diagnostics"].(map[string]any); !ok {
		t.Error("diagnostics missing from raw form")
	}
}
