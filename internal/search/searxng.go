package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iWorld-y/verity/internal/contracts"
)

// SearXNG 自托管 SearXNG 实例客户端
type SearXNG struct {
	baseURL string
	client  *http.Client
}

var _ Provider = (*SearXNG)(nil)

// NewSearXNG 创建一个新的 SearXNG 客户端
func NewSearXNG(baseURL string, timeout int) *SearXNG {
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	return &SearXNG{
		baseURL: baseURL,
		client:  &http.Client{Timeout: t},
	}
}

func (c *SearXNG) Name() string { return "searxng" }

// searxngResponse SearXNG 响应结构
type searxngResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		PublishedDate string  `json:"publishedDate"` // 字段名可能因版本而异
		Score         float64 `json:"score"`
	} `json:"results"`
}

// Search implements Provider
func (c *SearXNG) Search(ctx context.Context, req *Request) ([]contracts.RawResult, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("searxng base url is missing")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = "/search"

	q := u.Query()
	q.Set("q", req.Query)
	q.Set("format", "json")
	q.Set("categories", "general")
	if req.Locale != "" {
		q.Set("language", req.Locale)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	// 添加 User-Agent 避免被简单的反爬虫策略拦截
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("searxng api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp searxngResponse
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	results := make([]contracts.RawResult, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		score := r.Score
		if score == 0 {
			score = defaultScore
		}
		results = append(results, contracts.RawResult{
			URL:       r.URL,
			Title:     r.Title,
			Snippet:   r.Content,
			Score:     score,
			Published: r.PublishedDate,
		})
	}
	return results, nil
}
