package synth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iWorld-y/verity/internal/contracts"
)

// excerptLimit 单篇文档进入提示词的摘录上限（字符）。
const excerptLimit = 2000

// promptDoc 进入提示词的文档形态
type promptDoc struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// DocsJSON 把抽取文档整理成提示词用的 JSON：优先 markdown，摘录截断，
// 正文为空的文档直接丢弃。
func DocsJSON(docs []*contracts.Document) string {
	promptDocs := make([]promptDoc, 0, len(docs))
	for _, doc := range docs {
		excerpt := doc.Markdown
		if excerpt == "" {
			excerpt = doc.Text
		}
		if excerpt == "" {
			continue
		}
		promptDocs = append(promptDocs, promptDoc{
			URL:     doc.URL,
			Title:   doc.Title,
			Excerpt: TruncateText(excerpt, excerptLimit),
		})
	}
	data, _ := json.Marshal(promptDocs)
	return string(data)
}

// ComposeSynthesis 组装普通回答的系统/用户提示。
func ComposeSynthesis(query string, docs []*contracts.Document) (system, user string) {
	return SynthesisSystem, fmt.Sprintf(SynthesisUser, query, DocsJSON(docs))
}

// ComposeStructured 组装结构化产物的系统/用户提示。
func ComposeStructured(outputType, query string, docs []*contracts.Document) (system, user string, err error) {
	system, userTpl, err := StructuredPrompts(outputType)
	if err != nil {
		return "", "", err
	}
	return system, fmt.Sprintf(userTpl, query, DocsJSON(docs)), nil
}

// ComposeNormalization 组装查询重写的用户提示。
func ComposeNormalization(req *contracts.Request) (system, user string) {
	user = fmt.Sprintf(QueryNormalizerUser,
		req.Query,
		req.Locale,
		req.TimeRange,
		strings.Join(req.IncludeDomains, ", "),
		strings.Join(req.ExcludeDomains, ", "),
	)
	return QueryNormalizerSystem, user
}
