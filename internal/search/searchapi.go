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

const searchAPIBaseURL = "https://www.searchapi.io/api/v1/search"

// SearchAPI SearchAPI.io（Google 引擎）客户端
type SearchAPI struct {
	apiKey string
	client *http.Client
}

var _ Provider = (*SearchAPI)(nil)

// NewSearchAPI 创建一个新的 SearchAPI.io 客户端
func NewSearchAPI(apiKey string, timeout int) *SearchAPI {
	return &SearchAPI{
		apiKey: apiKey,
		client: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

func (c *SearchAPI) Name() string { return "searchapi" }

// searchAPIResponse SearchAPI.io 响应（只取 organic_results）
type searchAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	} `json:"organic_results"`
}

// Search implements Provider
func (c *SearchAPI) Search(ctx context.Context, req *Request) ([]contracts.RawResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("searchapi api key is missing")
	}

	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", req.Query)
	q.Set("api_key", c.apiKey)
	if req.Locale != "" {
		q.Set("hl", req.Locale)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, searchAPIBaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("searchapi error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp searchAPIResponse
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	results := make([]contracts.RawResult, 0, req.MaxResults)
	for _, r := range searchResp.OrganicResults {
		if len(results) >= req.MaxResults {
			break
		}
		results = append(results, contracts.RawResult{
			URL:       r.Link,
			Title:     r.Title,
			Snippet:   r.Snippet,
			Score:     defaultScore, // SearchAPI 不返回相关度
			Published: r.Date,
		})
	}
	return results, nil
}
