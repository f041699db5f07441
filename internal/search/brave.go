package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iWorld-y/verity/internal/contracts"
)

const braveBaseURL = "https://api.search.brave.com/res/v1/web/search"

// braveMaxCount Brave 单次请求结果数上限。
const braveMaxCount = 20

// Brave Brave Search API 客户端
type Brave struct {
	apiKey string
	client *http.Client
}

var _ Provider = (*Brave)(nil)

// NewBrave 创建一个新的 Brave 客户端
func NewBrave(apiKey string, timeout int) *Brave {
	return &Brave{
		apiKey: apiKey,
		client: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

func (c *Brave) Name() string { return "brave" }

// braveResponse Brave 搜索响应（只取 web.results）
type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			PageAge     string `json:"page_age"`
		} `json:"results"`
	} `json:"web"`
}

// Search implements Provider
func (c *Brave) Search(ctx context.Context, req *Request) ([]contracts.RawResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("brave api key is missing")
	}

	count := req.MaxResults
	if count > braveMaxCount {
		count = braveMaxCount
	}
	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("count", strconv.Itoa(count))
	if req.Locale != "" {
		q.Set("search_lang", req.Locale)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, braveBaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", c.apiKey)

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("brave api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp braveResponse
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	results := make([]contracts.RawResult, 0, len(searchResp.Web.Results))
	for _, r := range searchResp.Web.Results {
		results = append(results, contracts.RawResult{
			URL:       r.URL,
			Title:     r.Title,
			Snippet:   r.Description,
			Score:     defaultScore, // Brave 不返回相关度
			Published: r.PageAge,
		})
	}
	return results, nil
}
