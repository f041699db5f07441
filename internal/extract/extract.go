// Package extract 定义正文抽取能力、各提供商适配器与受限并发的批量抽取。
package extract

import (
	"context"
	"fmt"

	"github.com/iWorld-y/verity/internal/config"
	"github.com/iWorld-y/verity/internal/contracts"
)

// Provider 定义通用的正文抽取接口
type Provider interface {
	Name() string
	Extract(ctx context.Context, url string) (*contracts.Document, error)
}

// NewProviders 根据配置的顺序构建抽取提供商列表。
func NewProviders(cfg *config.Config) ([]Provider, error) {
	names := cfg.Extract.Providers
	if len(names) == 0 {
		names = []string{"firecrawl", "readability"}
	}

	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		switch name {
		case "firecrawl":
			providers = append(providers, NewFirecrawl(cfg.Extract.Firecrawl.APIKey, cfg.Extract.Timeout))
		case "readability":
			providers = append(providers, NewReadability(cfg.Extract.Timeout))
		default:
			return nil, fmt.Errorf("unknown extract provider: %s", name)
		}
	}
	return providers, nil
}
