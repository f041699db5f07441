// Package pipeline 把缓存、检索、排序、抽取、生成、抢救与安全检查
// 编排成端到端的问答流程。
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/verity/internal/cache"
	"github.com/iWorld-y/verity/internal/chain"
	"github.com/iWorld-y/verity/internal/config"
	"github.com/iWorld-y/verity/internal/contracts"
	"github.com/iWorld-y/verity/internal/extract"
	"github.com/iWorld-y/verity/internal/hashing"
	"github.com/iWorld-y/verity/internal/llm"
	"github.com/iWorld-y/verity/internal/logger"
	"github.com/iWorld-y/verity/internal/rank"
	"github.com/iWorld-y/verity/internal/safety"
	"github.com/iWorld-y/verity/internal/salvage"
	"github.com/iWorld-y/verity/internal/search"
	"github.com/iWorld-y/verity/internal/structured"
	"github.com/iWorld-y/verity/internal/synth"
)

// ErrGenerationFailed 生成链上所有提供商都已耗尽，请求无法产出回答。
var ErrGenerationFailed = errors.New("all generation providers failed")

// ErrInvalidRequest 请求字段非法（如未知的 outputType）。
var ErrInvalidRequest = errors.New("invalid request")

// Pipeline 问答管线。除缓存后端外不跨请求共享可变状态。
type Pipeline struct {
	cfg        *config.Config
	store      cache.Store
	searchers  []search.Provider
	fanout     *extract.Fanout
	generators []llm.Generator
	salvager   *salvage.Salvager
}

// New 从配置构建整条管线。
func New(ctx context.Context, cfg *config.Config, store cache.Store) (*Pipeline, error) {
	searchers, err := search.NewProviders(cfg)
	if err != nil {
		return nil, fmt.Errorf("搜索提供商初始化失败: %w", err)
	}
	extractors, err := extract.NewProviders(cfg)
	if err != nil {
		return nil, fmt.Errorf("抽取提供商初始化失败: %w", err)
	}
	generators := llm.NewProviders(ctx, cfg)

	fanout := extract.NewFanout(extractors, store,
		cfg.Extract.MaxConcurrency,
		time.Duration(cfg.Extract.Timeout)*time.Second,
		cfg.Cache.DocumentTTLDuration(),
	)

	return &Pipeline{
		cfg:        cfg,
		store:      store,
		searchers:  searchers,
		fanout:     fanout,
		generators: generators,
		salvager:   salvage.New(generators),
	}, nil
}

// Run 执行一次完整请求。只有生成链彻底失败才返回错误，
// 其余阶段的失败都退化为空集或兜底结构。
func (p *Pipeline) Run(ctx context.Context, req *contracts.Request) (*contracts.Response, error) {
	start := time.Now()
	reqID := uuid.NewString()

	req.Normalize()
	if !req.ValidOutputType() {
		return nil, fmt.Errorf("%w: unknown output type %q", ErrInvalidRequest, req.OutputType)
	}
	logger.Log.Infof("开始处理请求 [%s]: %q (type=%s)", reqID, req.Query, req.OutputType)

	// 1. 响应缓存
	cacheKey := hashing.QueryKey(req)
	if data, ok := p.store.Get(ctx, cacheKey); ok {
		var resp contracts.Response
		if err := json.Unmarshal(data, &resp); err == nil {
			// 命中后只允许改写这两个字段
			resp.Diagnostics.LatencyMs = time.Since(start).Milliseconds()
			resp.Diagnostics.Cached = true
			logger.Log.Infof("缓存命中 [%s]", reqID)
			return &resp, nil
		}
		logger.Log.Warnf("缓存内容损坏，按未命中处理 [%s]", reqID)
	}

	generators := p.orderedGenerators(req)
	var notes []string

	// 2. 查询重写（尽力而为，失败回退原始查询）
	query := p.maybeNormalize(ctx, req, generators)

	// 3. 搜索
	results, searchProvider := p.search(ctx, query, req)
	if searchProvider == "" {
		notes = append(notes, "all search providers failed")
	}

	// 4. 排序去重
	ranked := rank.Rank(results, req.IncludeDomains, req.ExcludeDomains, req.MaxResults)
	logger.Log.Infof("检索 %d 条，排序后保留 %d 条 [%s]", len(results), len(ranked), reqID)

	// 5. 正文抽取
	urls := make([]string, 0, len(ranked))
	for _, r := range ranked {
		urls = append(urls, r.URL)
	}
	docs := p.fanout.ExtractMany(ctx, urls)
	logger.Log.Infof("抽取成功 %d/%d [%s]", len(docs), len(urls), reqID)

	// 6. 组装提示并生成
	rawOut, genProvider, genModel, err := p.generate(ctx, req, query, docs, generators)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	// 7. 抢救与校验
	resp := p.salvageResponse(ctx, req, ranked, rawOut, &notes)

	// 8. 安全检查
	resp = safety.Apply(resp, req.Query)

	// 9. 诊断信息
	logger.Log.Debugf("生成完成 via %s/%s [%s]", genProvider, genModel, reqID)
	resp.Diagnostics.SearchProvider = searchProvider
	resp.Diagnostics.LLM = genModel
	resp.Diagnostics.Cached = false
	if len(notes) > 0 {
		if resp.Diagnostics.Notes != "" {
			notes = append([]string{resp.Diagnostics.Notes}, notes...)
		}
		resp.Diagnostics.Notes = joinNotes(notes)
	}
	resp.Diagnostics.LatencyMs = time.Since(start).Milliseconds()

	// 10. 缓存回写（尽力而为，结果丢弃）
	p.writeBack(cacheKey, resp)

	logger.Log.Infof("请求完成 [%s]，耗时 %dms", reqID, resp.Diagnostics.LatencyMs)
	return resp, nil
}

// RunRaw 以无类型 JSON 结构返回响应，供调试接口使用。
func (p *Pipeline) RunRaw(ctx context.Context, req *contracts.Request) (map[string]any, error) {
	resp, err := p.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// orderedGenerators 应用请求级的提供商选择：显式 provider 优先，forceLocal 把 ollama 提前。
func (p *Pipeline) orderedGenerators(req *contracts.Request) []llm.Generator {
	preferred := req.Provider
	if preferred == "" && req.ForceLocal {
		preferred = "ollama"
	}
	return llm.Order(p.generators, preferred)
}

// maybeNormalize 让模型重写查询。任何失败都回退到原始查询。
func (p *Pipeline) maybeNormalize(ctx context.Context, req *contracts.Request, generators []llm.Generator) string {
	system, user := synth.ComposeNormalization(req)
	out, provider, err := chain.Run(ctx, generators, "normalize", func(ctx context.Context, g llm.Generator) (string, error) {
		return g.Chat(ctx, system, user, &llm.Options{Temperature: 0.2, Model: req.Model})
	})
	if err != nil {
		logger.Log.Warnf("查询重写失败，使用原始查询: %v", err)
		return req.Query
	}
	cleaned := synth.CleanQueryResponse(out)
	if cleaned == "" {
		return req.Query
	}
	logger.Log.Debugf("查询重写 via %s: %q -> %q", provider, req.Query, cleaned)
	return cleaned
}

// search 执行搜索链。全部失败时返回空集而非错误。
func (p *Pipeline) search(ctx context.Context, query string, req *contracts.Request) ([]contracts.RawResult, string) {
	searchReq := &search.Request{
		Query:          query,
		MaxResults:     req.MaxResults,
		Locale:         req.Locale,
		TimeRange:      req.TimeRange,
		IncludeDomains: req.IncludeDomains,
		ExcludeDomains: req.ExcludeDomains,
	}
	results, provider, err := chain.Run(ctx, p.searchers, "search", func(ctx context.Context, s search.Provider) ([]contracts.RawResult, error) {
		return s.Search(ctx, searchReq)
	})
	if err != nil {
		logger.Log.Warnf("所有搜索提供商均失败: %v", err)
		return nil, ""
	}
	return results, provider
}

// generate 组装提示并执行生成链。返回原始文本、胜出提供商与模型标识。
func (p *Pipeline) generate(ctx context.Context, req *contracts.Request, query string, docs []*contracts.Document, generators []llm.Generator) (string, string, string, error) {
	var system, user string
	opts := &llm.Options{
		Temperature:    0.2,
		TopP:           0.9,
		Model:          req.Model,
		ResponseFormat: "json",
	}

	if req.OutputType != "" {
		var err error
		system, user, err = synth.ComposeStructured(req.OutputType, query, docs)
		if err != nil {
			return "", "", "", err
		}
		opts.MaxTokens = p.cfg.Pipeline.StructuredMaxTokens
	} else {
		system, user = synth.ComposeSynthesis(query, docs)
	}

	genCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.LLM.Timeout)*time.Second)
	defer cancel()

	var model string
	out, provider, err := chain.Run(genCtx, generators, "generate", func(ctx context.Context, g llm.Generator) (string, error) {
		text, err := g.Chat(ctx, system, user, opts)
		if err == nil {
			model = g.Model()
			if req.Model != "" {
				model = req.Model
			}
		}
		return text, err
	})
	if err != nil {
		return "", "", "", err
	}
	return out, provider, model, nil
}

// synthesized 普通回答的生成目标结构
type synthesized struct {
	Answer  string             `json:"answer"`
	Bullets []string           `json:"bullets"`
	Sources []contracts.Source `json:"sources"`
}

// salvageResponse 把生成文本抢救成模式合法的响应；彻底失败时返回固定兜底结构。
func (p *Pipeline) salvageResponse(ctx context.Context, req *contracts.Request, ranked []contracts.RawResult, rawOut string, notes *[]string) *contracts.Response {
	obj, err := p.salvager.Object(ctx, rawOut)
	if err != nil {
		logger.Log.Errorf("生成输出无法抢救: %v", err)
		return contracts.ErrorPayload(err.Error())
	}

	if req.OutputType != "" {
		var payload structured.Payload
		if err := json.Unmarshal(obj, &payload); err != nil {
			return contracts.ErrorPayload(err.Error())
		}
		if err := payload.Validate(); err != nil {
			logger.Log.Errorf("结构化产物校验失败: %v", err)
			return contracts.ErrorPayload(err.Error())
		}
		return &contracts.Response{
			Answer:     "",
			Bullets:    []string{},
			Sources:    sourcesFromRanked(ranked),
			Structured: &payload,
		}
	}

	var syn synthesized
	if err := json.Unmarshal(obj, &syn); err != nil {
		return contracts.ErrorPayload(err.Error())
	}
	if syn.Bullets == nil {
		syn.Bullets = []string{}
	}
	if syn.Sources == nil {
		syn.Sources = []contracts.Source{}
	}
	return &contracts.Response{
		Answer:  syn.Answer,
		Bullets: syn.Bullets,
		Sources: syn.Sources,
	}
}

// sourcesFromRanked 结构化请求没有模型生成的引用列表，用排序结果充当来源。
func sourcesFromRanked(ranked []contracts.RawResult) []contracts.Source {
	sources := make([]contracts.Source, 0, len(ranked))
	for _, r := range ranked {
		sources = append(sources, contracts.Source{
			Title:     r.Title,
			URL:       r.URL,
			Snippet:   r.Snippet,
			Relevance: r.Score,
			Published: r.Published,
		})
	}
	return sources
}

// writeBack 尽力而为的响应缓存回写，失败不影响已返回的响应。
func (p *Pipeline) writeBack(key string, resp *contracts.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Debugf("响应序列化失败，跳过缓存: %v", err)
		return
	}
	ttl := p.cfg.Cache.ResponseTTLDuration()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if !p.store.Set(ctx, key, data, ttl) {
			logger.Log.Debugf("响应缓存回写失败")
		}
	}()
}

func joinNotes(notes []string) string {
	out := notes[0]
	for _, n := range notes[1:] {
		out += "; " + n
	}
	return out
}
