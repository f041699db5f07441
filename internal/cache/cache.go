// Package cache 提供带 TTL 的两段式缓存：请求级响应缓存与 URL 级文档缓存。
// 所有操作都是 fail-soft 的：后端故障一律表现为未命中/未写入，绝不让请求失败。
package cache

import (
	"context"
	"time"

	"github.com/iWorld-y/verity/internal/contracts"
)

// 命名空间前缀，响应与文档两条生命周期互不干扰。
const (
	NamespaceQuery    = "q"
	NamespaceDocument = "u"
)

// Store 缓存后端契约。实现必须吞掉后端错误，只返回命中与否。
type Store interface {
	// Get 读取响应缓存，未命中或后端故障返回 (nil, false)。
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set 写入响应缓存，整体覆盖旧值，失败返回 false。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	// GetDocument 读取文档缓存。
	GetDocument(ctx context.Context, key string) (*contracts.Document, bool)
	// SetDocument 写入文档缓存。
	SetDocument(ctx context.Context, key string, doc *contracts.Document, ttl time.Duration) bool
	// Close 释放后端连接。
	Close() error
}
