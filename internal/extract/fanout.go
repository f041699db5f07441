package extract

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/verity/internal/cache"
	"github.com/iWorld-y/verity/internal/chain"
	"github.com/iWorld-y/verity/internal/contracts"
	"github.com/iWorld-y/verity/internal/hashing"
	"github.com/iWorld-y/verity/internal/logger"
)

// Fanout 受限并发的批量抽取器。命中文档缓存的 URL 直接返回，
// 其余走抽取链并回写缓存；单个 URL 失败只会缺席结果，不中断批次。
type Fanout struct {
	providers      []Provider
	store          cache.Store
	maxConcurrency int
	perURLTimeout  time.Duration
	docTTL         time.Duration
}

// NewFanout 创建批量抽取器。
func NewFanout(providers []Provider, store cache.Store, maxConcurrency int, perURLTimeout, docTTL time.Duration) *Fanout {
	if maxConcurrency <= 0 {
		maxConcurrency = 3
	}
	return &Fanout{
		providers:      providers,
		store:          store,
		maxConcurrency: maxConcurrency,
		perURLTimeout:  perURLTimeout,
		docTTL:         docTTL,
	}
}

// ExtractMany 抽取一批 URL 的正文。返回顺序不保证与输入一致。
func (f *Fanout) ExtractMany(ctx context.Context, urls []string) []*contracts.Document {
	docs := make([]*contracts.Document, 0, len(urls))

	// 先查文档缓存，命中者完全跳过抽取
	uncached := make([]string, 0, len(urls))
	for _, u := range urls {
		if doc, ok := f.store.GetDocument(ctx, hashing.URLKey(u)); ok {
			logger.Log.Debugf("文档缓存命中 [%s]", u)
			docs = append(docs, doc)
			continue
		}
		uncached = append(uncached, u)
	}
	if len(uncached) == 0 {
		return docs
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxConcurrency)

	for _, u := range uncached {
		g.Go(func() error {
			// 每个 URL 独立超时，互不取消
			urlCtx, cancel := context.WithTimeout(gctx, f.perURLTimeout)
			defer cancel()

			doc, provider, err := chain.Run(urlCtx, f.providers, "extract", func(ctx context.Context, p Provider) (*contracts.Document, error) {
				return p.Extract(ctx, u)
			})
			if err != nil {
				logger.Log.Warnf("正文抽取失败，跳过 [%s]: %v", u, err)
				return nil
			}
			logger.Log.Debugf("正文抽取成功 [%s] via %s", u, provider)

			mu.Lock()
			docs = append(docs, doc)
			mu.Unlock()

			f.writeBack(doc)
			return nil
		})
	}
	_ = g.Wait()

	return docs
}

// writeBack 尽力而为的缓存回写：结果被丢弃，失败不影响抽取。
func (f *Fanout) writeBack(doc *contracts.Document) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if !f.store.SetDocument(ctx, hashing.URLKey(doc.URL), doc, f.docTTL) {
			logger.Log.Debugf("文档缓存回写失败 [%s]", doc.URL)
		}
	}()
}
