package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/verity/internal/config"
)

// einoGenerator 基于 eino OpenAI 兼容 ChatModel 的生成器。
// OpenRouter 与 Ollama 都暴露 OpenAI 兼容端点，共用这一实现。
type einoGenerator struct {
	name    string
	modelID string
	cm      model.BaseChatModel
	initErr error
	limiter *rate.Limiter
}

var _ Generator = (*einoGenerator)(nil)

// NewOpenRouter 创建 OpenRouter 生成器。凭据缺失时返回只会快速失败的实例。
func NewOpenRouter(ctx context.Context, cfg config.OpenRouterConfig, limiter *rate.Limiter) Generator {
	g := &einoGenerator{name: "openrouter", modelID: cfg.Model, limiter: limiter}
	if cfg.APIKey == "" {
		g.initErr = fmt.Errorf("%w: openrouter api key is missing", ErrNotConfigured)
		return g
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		g.initErr = fmt.Errorf("openrouter 初始化失败: %w", err)
		return g
	}
	g.cm = cm
	return g
}

// NewOllama 创建 Ollama 生成器，走其 OpenAI 兼容端点。
func NewOllama(ctx context.Context, cfg config.OllamaConfig, limiter *rate.Limiter) Generator {
	g := &einoGenerator{name: "ollama", modelID: cfg.Model, limiter: limiter}
	if cfg.Model == "" {
		g.initErr = fmt.Errorf("%w: ollama model is missing", ErrNotConfigured)
		return g
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: strings.TrimSuffix(cfg.Host, "/") + "/v1",
		Model:   cfg.Model,
	})
	if err != nil {
		g.initErr = fmt.Errorf("ollama 初始化失败: %w", err)
		return g
	}
	g.cm = cm
	return g
}

func (g *einoGenerator) Name() string  { return g.name }
func (g *einoGenerator) Model() string { return g.modelID }

// Chat 发送一轮对话并返回纯文本输出。
func (g *einoGenerator) Chat(ctx context.Context, systemPrompt, userPrompt string, opts *Options) (string, error) {
	if g.initErr != nil {
		return "", g.initErr
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if opts == nil {
		opts = &Options{}
	}
	if opts.ResponseFormat == "json" {
		systemPrompt += "\n\nReturn only valid JSON."
	}

	var modelOpts []model.Option
	if opts.Temperature != 0 {
		modelOpts = append(modelOpts, model.WithTemperature(opts.Temperature))
	}
	if opts.TopP != 0 {
		modelOpts = append(modelOpts, model.WithTopP(opts.TopP))
	}
	if opts.MaxTokens != 0 {
		modelOpts = append(modelOpts, model.WithMaxTokens(opts.MaxTokens))
	}
	if opts.Model != "" {
		modelOpts = append(modelOpts, model.WithModel(opts.Model))
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: userPrompt},
	}

	resp, err := g.cm.Generate(ctx, messages, modelOpts...)
	if err != nil {
		return "", fmt.Errorf("%s generate failed: %w", g.name, err)
	}
	return resp.Content, nil
}

// newLimiter RPM 决定平均速率，QPS 决定突发额度。
func newLimiter(cfg config.ConcurrencyConfig) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60.0), cfg.QPS)
}
