package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/verity/internal/contracts"
	"github.com/iWorld-y/verity/internal/synth"
)

// Readability 本地正文抽取，无外部 API 依赖的兜底提供商。
type Readability struct {
	timeout time.Duration
}

var _ Provider = (*Readability)(nil)

// NewReadability 创建本地抽取器
func NewReadability(timeout int) *Readability {
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	return &Readability{timeout: t}
}

func (r *Readability) Name() string { return "readability" }

// Extract implements Provider
func (r *Readability) Extract(ctx context.Context, url string) (*contracts.Document, error) {
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remain := time.Until(deadline); remain < timeout {
			timeout = remain
		}
	}

	article, err := readability.FromURL(url, timeout)
	if err != nil {
		return nil, fmt.Errorf("readability extract failed: %w", err)
	}

	return &contracts.Document{
		URL:   url,
		Title: article.Title,
		Text:  synth.CleanText(article.TextContent),
	}, nil
}
