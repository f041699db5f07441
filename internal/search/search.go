// Package search 定义通用搜索能力及各提供商适配器。
package search

import (
	"context"
	"fmt"

	"github.com/iWorld-y/verity/internal/config"
	"github.com/iWorld-y/verity/internal/contracts"
)

// Provider 定义通用的搜索接口
type Provider interface {
	Name() string
	Search(ctx context.Context, req *Request) ([]contracts.RawResult, error)
}

// Request 通用搜索请求
type Request struct {
	Query          string
	MaxResults     int
	Locale         string
	TimeRange      string
	IncludeDomains []string
	ExcludeDomains []string
}

// defaultScore 提供商未给出相关度时的默认分。
const defaultScore = 0.5

// NewProviders 根据配置的顺序构建搜索提供商列表。
// 凭据缺失的提供商同样入链：调用时直接快速失败，参与正常回退计数。
func NewProviders(cfg *config.Config) ([]Provider, error) {
	names := cfg.Search.Providers
	if len(names) == 0 {
		names = []string{"brave", "tavily", "searchapi"}
	}

	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		switch name {
		case "tavily":
			providers = append(providers, NewTavily(cfg.Search.Tavily.APIKey, cfg.Search.Timeout))
		case "brave":
			providers = append(providers, NewBrave(cfg.Search.Brave.APIKey, cfg.Search.Timeout))
		case "searchapi":
			providers = append(providers, NewSearchAPI(cfg.Search.SearchAPI.APIKey, cfg.Search.Timeout))
		case "searxng":
			providers = append(providers, NewSearXNG(cfg.Search.SearXNG.BaseURL, cfg.Search.SearXNG.Timeout))
		default:
			return nil, fmt.Errorf("unknown search provider: %s", name)
		}
	}
	return providers, nil
}
