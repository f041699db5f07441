package contracts

import "github.com/iWorld-y/verity/internal/structured"

// Output types a request may ask for instead of a plain cited answer.
const (
	// OutputAnswer 空串表示普通带引用回答。
	OutputAnswer     = ""
	OutputFAQ        = "faq"
	OutputStudyGuide = "study_guide"
	OutputBriefing   = "briefing_doc"
	OutputTimeline   = "timeline"
	OutputMindMap    = "mind_map"
)

// Request 是一次问答请求。Normalize 之后不再修改。
type Request struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"maxResults"`
	Locale         string   `json:"locale"`
	TimeRange      string   `json:"timeRange"`
	Strict         bool     `json:"strict"`
	ForceLocal     bool     `json:"forceLocal"`
	IncludeDomains []string `json:"includeDomains,omitempty"`
	ExcludeDomains []string `json:"excludeDomains,omitempty"`
	Provider       string   `json:"provider,omitempty"`
	Model          string   `json:"model,omitempty"`
	OutputType     string   `json:"outputType,omitempty"`
}

// Normalize 填充默认值并将 maxResults 收敛到 [3, 12]。
func (r *Request) Normalize() {
	if r.MaxResults == 0 {
		r.MaxResults = 6
	}
	if r.MaxResults < 3 {
		r.MaxResults = 3
	}
	if r.MaxResults > 12 {
		r.MaxResults = 12
	}
	if r.Locale == "" {
		r.Locale = "en"
	}
	if r.TimeRange == "" {
		r.TimeRange = "30d"
	}
}

// ValidOutputType 检查 outputType 是否是支持的结构化类型（空串表示普通回答）。
func (r *Request) ValidOutputType() bool {
	switch r.OutputType {
	case "", OutputFAQ, OutputStudyGuide, OutputBriefing, OutputTimeline, OutputMindMap:
		return true
	}
	return false
}

// RawResult 搜索提供商返回的单条结果。
type RawResult struct {
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score"`
	Published string  `json:"published,omitempty"`
}

// Document 正文抽取结果，也是文档缓存里的记录。身份即 URL，原样比较。
type Document struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Markdown  string `json:"markdown,omitempty"`
	Published string `json:"published,omitempty"`
}

// Source 最终回答里的引用来源。
type Source struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
	Published string  `json:"published,omitempty"`
}

// Diagnostics 响应诊断信息。缓存命中后只允许改写 LatencyMs 和 Cached。
type Diagnostics struct {
	SearchProvider string         `json:"searchProvider,omitempty"`
	LLM            string         `json:"llm,omitempty"`
	LatencyMs      int64          `json:"latencyMs"`
	Cached         bool           `json:"cached"`
	Tokens         map[string]int `json:"tokens,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}

// Response 最终响应。
type Response struct {
	Answer      string              `json:"answer"`
	Bullets     []string            `json:"bullets"`
	Sources     []Source            `json:"sources"`
	Diagnostics Diagnostics         `json:"diagnostics"`
	Structured  *structured.Payload `json:"structured,omitempty"`
}

const errorPayloadNoteLimit = 200

// ErrorPayload 构造一个模式完整的兜底响应：生成输出彻底无法修复时返回，
// 下游无需区分成功与失败。
func ErrorPayload(reason string) *Response {
	if len(reason) > errorPayloadNoteLimit {
		reason = reason[:errorPayloadNoteLimit]
	}
	return &Response{
		Answer:  "Error processing response",
		Bullets: []string{},
		Sources: []Source{},
		Diagnostics: Diagnostics{
			Notes: "Failed to parse LLM response: " + reason,
		},
	}
}
