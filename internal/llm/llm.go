// Package llm 定义文本生成能力及基于 eino 的提供商适配器。
package llm

import (
	"context"
	"errors"

	"github.com/iWorld-y/verity/internal/config"
)

// ErrNotConfigured 提供商缺少必要凭据，调用时直接失败，不发起网络请求。
var ErrNotConfigured = errors.New("llm provider not configured")

// Options 单次生成调用的参数。零值字段不生效。
type Options struct {
	Temperature    float32
	TopP           float32
	MaxTokens      int
	Model          string // 覆盖提供商默认模型
	ResponseFormat string // "json" 时强调只输出 JSON
}

// Generator 定义通用的文本生成接口
type Generator interface {
	Name() string
	// Model 返回将要使用的模型标识，用于诊断信息。
	Model() string
	Chat(ctx context.Context, systemPrompt, userPrompt string, opts *Options) (string, error)
}

// NewProviders 构建生成提供商列表：OpenRouter 在前，Ollama 兜底。
// 两者共享同一个限流器。
func NewProviders(ctx context.Context, cfg *config.Config) []Generator {
	limiter := newLimiter(cfg.LLM.Concurrency)
	return []Generator{
		NewOpenRouter(ctx, cfg.LLM.OpenRouter, limiter),
		NewOllama(ctx, cfg.LLM.Ollama, limiter),
	}
}

// Order 返回把 preferred 提供商排到首位的副本；preferred 为空或不存在时原样返回。
func Order(providers []Generator, preferred string) []Generator {
	if preferred == "" {
		return providers
	}
	ordered := make([]Generator, 0, len(providers))
	for _, p := range providers {
		if p.Name() == preferred {
			ordered = append(ordered, p)
		}
	}
	if len(ordered) == 0 {
		return providers
	}
	for _, p := range providers {
		if p.Name() != preferred {
			ordered = append(ordered, p)
		}
	}
	return ordered
}
