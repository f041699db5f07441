// Package salvage 从不可靠的生成输出里抢救出合法 JSON 对象。
// 策略逐级升级：直接解析、栅栏块、花括号切片加语法修补、配平扫描、模型修复。
package salvage

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/iWorld-y/verity/internal/chain"
	"github.com/iWorld-y/verity/internal/llm"
	"github.com/iWorld-y/verity/internal/logger"
	"github.com/iWorld-y/verity/internal/synth"
)

// 栅栏块：```json … ``` 或 ``` … ``` 或 ~~~ … ~~~
var fenceRe = regexp.MustCompile("(?s)(?:```|~~~)(?:json)?\\s*(\\{.*?\\})\\s*(?:```|~~~)")

// 收尾括号前的多余逗号
var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// Salvager 多策略 JSON 抢救器。generators 为空时跳过模型修复这一级。
type Salvager struct {
	generators []llm.Generator
}

// New 创建抢救器。
func New(generators []llm.Generator) *Salvager {
	return &Salvager{generators: generators}
}

// Object 从 raw 中恢复一个 JSON 对象。本地策略全部失败后，
// 把原文交给生成链按「只返回合法 JSON」的指令修复一次。
func (s *Salvager) Object(ctx context.Context, raw string) (json.RawMessage, error) {
	if obj, ok := parseLocal(raw); ok {
		return obj, nil
	}

	if len(s.generators) > 0 {
		repaired, provider, err := chain.Run(ctx, s.generators, "repair", func(ctx context.Context, g llm.Generator) (string, error) {
			out, err := g.Chat(ctx, synth.RepairSystem, fmt.Sprintf(synth.RepairUser, raw), &llm.Options{ResponseFormat: "json"})
			if err != nil {
				return "", err
			}
			if _, ok := parseLocal(out); !ok {
				return "", fmt.Errorf("repair output is still invalid")
			}
			return out, nil
		})
		if err == nil {
			logger.Log.Debugf("JSON 修复成功 via %s", provider)
			obj, _ := parseLocal(repaired)
			return obj, nil
		}
		logger.Log.Warnf("模型修复 JSON 失败: %v", err)
	}

	return nil, fmt.Errorf("no recoverable JSON object in output")
}

// parseLocal 依次执行不经过模型的四级策略。
func parseLocal(raw string) (json.RawMessage, bool) {
	// 1. 直接解析
	if obj, ok := asObject(raw); ok {
		return obj, true
	}

	// 2. 第一个栅栏代码块
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		if obj, ok := asObject(m[1]); ok {
			return obj, true
		}
	}

	// 3. 首个 { 到末尾 } 的切片；失败后剥掉尾逗号重试
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		slice := raw[start : end+1]
		if obj, ok := asObject(slice); ok {
			return obj, true
		}
		if obj, ok := asObject(trailingCommaRe.ReplaceAllString(slice, "$1")); ok {
			return obj, true
		}
	}

	// 4. 括号深度配平扫描，取第一个完整的 {...} 片段
	if span := balancedSpan(raw); span != "" {
		if obj, ok := asObject(span); ok {
			return obj, true
		}
		if obj, ok := asObject(trailingCommaRe.ReplaceAllString(span, "$1")); ok {
			return obj, true
		}
	}

	return nil, false
}

// asObject 校验文本是一个 JSON 对象（而非数组或标量）。
func asObject(text string) (json.RawMessage, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}
	return json.RawMessage(text), true
}

// balancedSpan 扫描第一个配平的花括号片段。跳过字符串字面量内部的括号。
func balancedSpan(raw string) string {
	start := strings.Index(raw, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1]
				}
			}
		}
	}
	return ""
}
