package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iWorld-y/verity/internal/contracts"
)

const tavilyBaseURL = "https://api.tavily.com/search"

// Tavily Tavily API 客户端
type Tavily struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ Provider = (*Tavily)(nil)

// NewTavily 创建一个新的 Tavily 客户端
func NewTavily(apiKey string, timeout int) *Tavily {
	return &Tavily{
		apiKey:  apiKey,
		baseURL: tavilyBaseURL,
		client:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

func (c *Tavily) Name() string { return "tavily" }

// tavilyRequest Tavily 搜索请求参数
type tavilyRequest struct {
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth,omitempty"` // basic or advanced
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeAnswer  bool     `json:"include_answer"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

// tavilyResponse Tavily 搜索响应
type tavilyResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search implements Provider
func (c *Tavily) Search(ctx context.Context, req *Request) ([]contracts.RawResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("tavily api key is missing")
	}

	payload, err := json.Marshal(tavilyRequest{
		Query:          req.Query,
		SearchDepth:    "advanced",
		MaxResults:     req.MaxResults,
		IncludeDomains: req.IncludeDomains,
		ExcludeDomains: req.ExcludeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Add("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Add("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp tavilyResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
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
