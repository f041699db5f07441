// Package rank 对搜索结果做过滤、去重、打分与截断。纯函数，无副作用。
package rank

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/iWorld-y/verity/internal/contracts"
)

const (
	includeBoost  = 0.25
	recencyWeight = 0.2
	recencyWindow = 365.0 // 天
)

// Host 提取 URL 的主机名：小写并去掉 www. 前缀。解析失败返回空串。
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Rank 排序流程依次执行：排除域过滤、包含域加分、(host, path) 去重、
// 时效加分、稳定降序排序、截断。解析失败的 URL 不会被去重或过滤掉。
func Rank(results []contracts.RawResult, includeDomains, excludeDomains []string, limit int) []contracts.RawResult {
	return rankAt(results, includeDomains, excludeDomains, limit, time.Now())
}

func rankAt(results []contracts.RawResult, includeDomains, excludeDomains []string, limit int, now time.Time) []contracts.RawResult {
	includeSet := toSet(includeDomains)
	excludeSet := toSet(excludeDomains)

	// 1. 过滤排除域
	filtered := make([]contracts.RawResult, 0, len(results))
	for _, r := range results {
		if host := Host(r.URL); host != "" && excludeSet[host] {
			continue
		}
		filtered = append(filtered, r)
	}

	// 2. 包含域加分
	for i := range filtered {
		if host := Host(filtered[i].URL); host != "" && includeSet[host] {
			filtered[i].Score += includeBoost
		}
	}

	// 3. 按 (host, path) 去重，保留首次出现；URL 解析失败则无条件保留
	seen := make(map[string]bool, len(filtered))
	deduped := filtered[:0]
	for _, r := range filtered {
		u, err := url.Parse(r.URL)
		if err != nil || u.Hostname() == "" {
			deduped = append(deduped, r)
			continue
		}
		key := Host(r.URL) + "|" + u.Path
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, r)
	}

	// 4. 时效加分：日期无法解析时不加分也不扣分
	for i := range deduped {
		if deduped[i].Published == "" {
			continue
		}
		pub, err := dateparse.ParseAny(deduped[i].Published)
		if err != nil {
			continue
		}
		ageDays := now.Sub(pub).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		if ageDays > recencyWindow {
			ageDays = recencyWindow
		}
		deduped[i].Score += (1 - ageDays/recencyWindow) * recencyWeight
	}

	// 5. 稳定降序排序，分数相同保持输入顺序
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})

	// 6. 截断
	if limit >= 0 && len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped
}

func toSet(domains []string) map[string]bool {
	set := make(map[string]bool, len(domains))
	for _, d := range domains {
		set[strings.ToLower(d)] = true
	}
	return set
}
