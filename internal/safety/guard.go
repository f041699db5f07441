// Package safety 对最终回答做敏感话题检查，命中时追加免责声明。
package safety

import (
	"strings"

	"github.com/iWorld-y/verity/internal/contracts"
)

// Disclaimer 追加到回答末尾的免责声明。
const Disclaimer = " Note: This is not professional advice."

// 敏感话题关键词，大小写不敏感的子串匹配
var sensitiveTopics = []string{
	"medical", "legal", "financial", "health", "law",
	"finance", "medicine", "doctor", "lawyer", "investment",
}

// Apply 扫描原始查询、回答正文与结构化产物里的全部文本，
// 命中关键词时只在 answer 追加免责声明；结构化内容本身不修改。
// 已含免责声明的回答不会重复追加。纯函数式修改，无 I/O。
func Apply(resp *contracts.Response, query string) *contracts.Response {
	if resp == nil {
		return nil
	}

	haystack := strings.ToLower(query + " " + resp.Answer + " " + resp.Structured.FlattenText())
	for _, topic := range sensitiveTopics {
		if strings.Contains(haystack, topic) {
			if !strings.Contains(resp.Answer, Disclaimer) {
				resp.Answer += Disclaimer
			}
			break
		}
	}
	return resp
}
