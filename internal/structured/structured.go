// Package structured 定义结构化产物（FAQ、学习指南、简报、时间线、思维导图）
// 的固定模式，既是生成目标也是修复后的校验契约。
package structured

import (
	"fmt"
	"strings"
)

// Version 是当前所有结构化模式的版本号。
const Version = "1.0"

// MaxMindMapNodes 思维导图生成上限，遍历时同样以此为界，防御恶意嵌套。
const MaxMindMapNodes = 30

// Payload 结构化产物的标签联合体。Type 决定哪一组字段有效。
type Payload struct {
	Type    string `json:"type"`
	Version string `json:"version"`

	// faq
	Items []FAQItem `json:"items,omitempty"`
	// study_guide
	Modules []Module `json:"modules,omitempty"`
	// briefing_doc
	Sections []Section `json:"sections,omitempty"`
	// timeline
	Events []Event `json:"events,omitempty"`
	// mind_map
	Nodes []Node `json:"nodes,omitempty"`
}

// FAQItem 单条问答。
type FAQItem struct {
	Q   string `json:"q"`
	AMd string `json:"a_md"`
}

// Module 学习指南模块。
type Module struct {
	Title    string         `json:"title"`
	NotesMd  string         `json:"notes_md"`
	Quiz     []QuizItem     `json:"quiz"`
	Glossary []GlossaryItem `json:"glossary"`
}

// QuizItem 测验题。
type QuizItem struct {
	Question string `json:"question"`
	AnswerMd string `json:"answer_md"`
}

// GlossaryItem 术语表条目。
type GlossaryItem struct {
	Term  string `json:"term"`
	DefMd string `json:"def_md"`
}

// Section 简报章节。ContentMd 与 Items 至少一个存在。
type Section struct {
	Heading   string   `json:"heading"`
	ContentMd string   `json:"content_md,omitempty"`
	Items     []string `json:"items,omitempty"`
}

// Event 时间线事件。
type Event struct {
	Date       string   `json:"date"`
	Title      string   `json:"title"`
	SummaryMd  string   `json:"summary_md"`
	SourceURLs []string `json:"source_urls"`
}

// Node 思维导图节点，子节点为有序列表，构成一棵树。
type Node struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Children []Node `json:"children"`
}

// Validate 校验 Payload 是否满足其类型的必填字段模式。
func (p *Payload) Validate() error {
	if p.Version == "" {
		return fmt.Errorf("structured payload missing version")
	}
	switch p.Type {
	case "faq":
		if len(p.Items) == 0 {
			return fmt.Errorf("faq payload has no items")
		}
		for i, it := range p.Items {
			if it.Q == "" || it.AMd == "" {
				return fmt.Errorf("faq item %d missing q or a_md", i)
			}
		}
	case "study_guide":
		if len(p.Modules) == 0 {
			return fmt.Errorf("study_guide payload has no modules")
		}
		for i, m := range p.Modules {
			if m.Title == "" || m.NotesMd == "" {
				return fmt.Errorf("study_guide module %d missing title or notes_md", i)
			}
		}
	case "briefing_doc":
		if len(p.Sections) == 0 {
			return fmt.Errorf("briefing_doc payload has no sections")
		}
		for i, s := range p.Sections {
			if s.Heading == "" {
				return fmt.Errorf("briefing_doc section %d missing heading", i)
			}
		}
	case "timeline":
		if len(p.Events) == 0 {
			return fmt.Errorf("timeline payload has no events")
		}
		for i, e := range p.Events {
			if e.Date == "" || e.Title == "" {
				return fmt.Errorf("timeline event %d missing date or title", i)
			}
		}
	case "mind_map":
		if len(p.Nodes) == 0 {
			return fmt.Errorf("mind_map payload has no nodes")
		}
	default:
		return fmt.Errorf("unknown structured type: %q", p.Type)
	}
	return nil
}

// FlattenText 拼接 Payload 中所有文本字段，供安全检查做关键词扫描。
func (p *Payload) FlattenText() string {
	if p == nil {
		return ""
	}
	var sb strings.Builder
	join := func(parts ...string) {
		for _, s := range parts {
			if s == "" {
				continue
			}
			sb.WriteString(s)
			sb.WriteByte(' ')
		}
	}
	switch p.Type {
	case "faq":
		for _, it := range p.Items {
			join(it.Q, it.AMd)
		}
	case "study_guide":
		for _, m := range p.Modules {
			join(m.Title, m.NotesMd)
			for _, q := range m.Quiz {
				join(q.Question, q.AnswerMd)
			}
			for _, g := range m.Glossary {
				join(g.Term, g.DefMd)
			}
		}
	case "briefing_doc":
		for _, s := range p.Sections {
			join(s.Heading, s.ContentMd)
			join(s.Items...)
		}
	case "timeline":
		for _, e := range p.Events {
			join(e.Title, e.SummaryMd)
		}
	case "mind_map":
		// 显式栈遍历，节点数封顶，避免对抗性深度嵌套
		stack := make([]*Node, 0, len(p.Nodes))
		for i := range p.Nodes {
			stack = append(stack, &p.Nodes[i])
		}
		visited := 0
		for len(stack) > 0 && visited < MaxMindMapNodes {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			join(n.Label)
			visited++
			for i := range n.Children {
				stack = append(stack, &n.Children[i])
			}
		}
	}
	return sb.String()
}
