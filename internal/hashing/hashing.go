// Package hashing 负责缓存键的推导：对请求中影响结果的字段做规范化序列化后取摘要。
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/iWorld-y/verity/internal/contracts"
)

// queryKeyFields 只包含会影响检索结果的字段；UI 展示类字段不参与，
// 两个仅展示方式不同的请求必须命中同一个键。
type queryKeyFields struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"maxResults"`
	Locale         string   `json:"locale"`
	TimeRange      string   `json:"timeRange"`
	IncludeDomains []string `json:"includeDomains"`
	ExcludeDomains []string `json:"excludeDomains"`
	OutputType     string   `json:"outputType"`
}

// QueryKey 生成请求级缓存键。域名列表先排序，保证序列化与顺序无关。
func QueryKey(req *contracts.Request) string {
	fields := queryKeyFields{
		Query:          req.Query,
		MaxResults:     req.MaxResults,
		Locale:         req.Locale,
		TimeRange:      req.TimeRange,
		IncludeDomains: sortedCopy(req.IncludeDomains),
		ExcludeDomains: sortedCopy(req.ExcludeDomains),
		OutputType:     req.OutputType,
	}
	// struct 字段顺序固定，json.Marshal 的输出即规范化序列化
	data, _ := json.Marshal(fields)
	return digest(data)
}

// URLKey 生成单个 URL 的文档缓存键。
func URLKey(url string) string {
	return digest([]byte(url))
}

func sortedCopy(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	sort.Strings(out)
	return out
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
