package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iWorld-y/verity/internal/contracts"
	"github.com/iWorld-y/verity/internal/synth"
)

const firecrawlBaseURL = "https://api.firecrawl.dev/v1"

// Firecrawl Firecrawl 抓取 API 客户端
type Firecrawl struct {
	apiKey string
	client *http.Client
}

var _ Provider = (*Firecrawl)(nil)

// NewFirecrawl 创建一个新的 Firecrawl 客户端
func NewFirecrawl(apiKey string, timeout int) *Firecrawl {
	return &Firecrawl{
		apiKey: apiKey,
		client: &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
}

func (c *Firecrawl) Name() string { return "firecrawl" }

// firecrawlResponse /v1/scrape 响应
type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		Text     string `json:"text"`
		Metadata struct {
			Title     string `json:"title"`
			Published string `json:"published"`
		} `json:"metadata"`
	} `json:"data"`
}

// Extract implements Provider
func (c *Firecrawl) Extract(ctx context.Context, url string) (*contracts.Document, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("firecrawl api key is missing")
	}

	payload, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, firecrawlBaseURL+"/scrape", bytes.NewReader(payload))
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
		return nil, fmt.Errorf("firecrawl api error (status %d): %s", res.StatusCode, string(body))
	}

	var scrapeResp firecrawlResponse
	if err := json.Unmarshal(body, &scrapeResp); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}
	if !scrapeResp.Success {
		return nil, fmt.Errorf("firecrawl scrape failed: %s", scrapeResp.Error)
	}

	text := scrapeResp.Data.Text
	if text == "" {
		text = scrapeResp.Data.Markdown
	}
	return &contracts.Document{
		URL:       url,
		Title:     scrapeResp.Data.Metadata.Title,
		Text:      synth.CleanText(text),
		Markdown:  synth.CleanText(scrapeResp.Data.Markdown),
		Published: scrapeResp.Data.Metadata.Published,
	}, nil
}
