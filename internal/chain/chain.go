// Package chain 提供同能力提供商的有序回退执行器。
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/iWorld-y/verity/internal/logger"
)

// ErrExhausted 链上所有提供商都失败。
var ErrExhausted = errors.New("all providers failed")

// Named 提供商最小契约：有可用于日志与诊断的名字。
type Named interface {
	Name() string
}

// Run 按配置顺序逐个调用提供商，第一个成功者胜出，返回其结果与名字。
// 中间失败只记录日志，不向上抛；全部失败时返回包装了最后一个错误的 ErrExhausted。
func Run[P Named, T any](ctx context.Context, providers []P, capability string, call func(context.Context, P) (T, error)) (T, string, error) {
	var zero T
	var lastErr error

	for _, p := range providers {
		result, err := call(ctx, p)
		if err != nil {
			lastErr = err
			logger.Log.Warnf("提供商回退 [%s/%s]: %v", capability, p.Name(), err)
			continue
		}
		return result, p.Name(), nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured for %s", capability)
	}
	return zero, "", fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}
