package synth

import "fmt"

// 结构化产物的系统提示统一骨架，只有产物名不同
const structuredSystemTpl = `You are a meticulous research assistant. Synthesize the provided web extracts into a
structured %s with explicit citations. Only use retrieved context; if missing, say so.
Return STRICT JSON matching the provided JSON Schema. No markdown, no prose.`

const faqUser = `Schema:
{
  "type": "object",
  "required": ["type", "version", "items"],
  "properties": {
    "type": {"type": "string", "const": "faq"},
    "version": {"type": "string", "const": "1.0"},
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["q", "a_md"],
        "properties": {
          "q": {"type": "string"},
          "a_md": {"type": "string"}
        }
      }
    }
  }
}

User query:
"%s"

Documents (each has url, title, excerpt):
%s

Instructions:
- Create 5-10 Q/A pairs
- Questions should be user-facing and relevant
- Answers should be concise but comprehensive
- Use markdown in answers when helpful
- Cite sources by index like [1] when referencing specific content
- Only use information from the provided documents
- Output strict JSON only`

const studyGuideUser = `Schema:
{
  "type": "object",
  "required": ["type", "version", "modules"],
  "properties": {
    "type": {"type": "string", "const": "study_guide"},
    "version": {"type": "string", "const": "1.0"},
    "modules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "notes_md", "quiz", "glossary"],
        "properties": {
          "title": {"type": "string"},
          "notes_md": {"type": "string"},
          "quiz": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["question", "answer_md"],
              "properties": {
                "question": {"type": "string"},
                "answer_md": {"type": "string"}
              }
            }
          },
          "glossary": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["term", "def_md"],
              "properties": {
                "term": {"type": "string"},
                "def_md": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}

User query:
"%s"

Documents (each has url, title, excerpt):
%s

Instructions:
- Create 2-3 modules with comprehensive notes
- Include 4-6 quiz questions per module
- Include 6-10 glossary terms per module
- Use markdown in notes when helpful
- Cite sources by index like [1] when referencing specific content
- Only use information from the provided documents
- Output strict JSON only`

const briefingUser = `Schema:
{
  "type": "object",
  "required": ["type", "version", "sections"],
  "properties": {
    "type": {"type": "string", "const": "briefing_doc"},
    "version": {"type": "string", "const": "1.0"},
    "sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["heading"],
        "properties": {
          "heading": {"type": "string"},
          "content_md": {"type": "string"},
          "items": {
            "type": "array",
            "items": {"type": "string"}
          }
        }
      }
    }
  }
}

User query:
"%s"

Documents (each has url, title, excerpt):
%s

Instructions:
- Include an Executive Summary section (150 words or fewer)
- Include Key Developments section with bullet items
- Include Risks & Open Questions section with bullet items
- Include Recommended Actions section with concrete actions
- Use markdown in content when helpful
- Cite sources by index like [1] when referencing specific content
- Only use information from the provided documents
- Output strict JSON only`

const timelineUser = `Schema:
{
  "type": "object",
  "required": ["type", "version", "events"],
  "properties": {
    "type": {"type": "string", "const": "timeline"},
    "version": {"type": "string", "const": "1.0"},
    "events": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["date", "title", "summary_md", "source_urls"],
        "properties": {
          "date": {"type": "string", "format": "date"},
          "title": {"type": "string"},
          "summary_md": {"type": "string"},
          "source_urls": {
            "type": "array",
            "items": {"type": "string"}
          }
        }
      }
    }
  }
}

User query:
"%s"

Documents (each has url, title, excerpt):
%s

Instructions:
- Include 6-12 chronological events
- Use ISO date format (YYYY-MM-DD)
- Each event should cite at least one source URL
- Use markdown in summaries when helpful
- Only use information from the provided documents
- Output strict JSON only`

const mindMapUser = `Schema:
{
  "type": "object",
  "required": ["type", "version", "nodes"],
  "properties": {
    "type": {"type": "string", "const": "mind_map"},
    "version": {"type": "string", "const": "1.0"},
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "label", "children"],
        "properties": {
          "id": {"type": "string"},
          "label": {"type": "string"},
          "children": {
            "type": "array",
            "items": {
              "$ref": "#"
            }
          }
        }
      }
    }
  }
}

User query:
"%s"

Documents (each has url, title, excerpt):
%s

Instructions:
- Create a hierarchical mind map structure with 30 nodes or fewer
- Prioritize breadth over depth
- Children arrays may be empty for leaf nodes
- Only use information from the provided documents
- Output strict JSON only`

// structuredTemplates 按产物类型索引的 (产物名, 用户模板)
var structuredTemplates = map[string]struct {
	label   string
	userTpl string
}{
	"faq":          {"FAQ", faqUser},
	"study_guide":  {"study guide", studyGuideUser},
	"briefing_doc": {"briefing document", briefingUser},
	"timeline":     {"timeline", timelineUser},
	"mind_map":     {"mind map", mindMapUser},
}

// StructuredPrompts 返回指定结构化类型的系统与用户提示模板。
func StructuredPrompts(outputType string) (system, userTpl string, err error) {
	tpl, ok := structuredTemplates[outputType]
	if !ok {
		return "", "", fmt.Errorf("unsupported output type: %s", outputType)
	}
	return fmt.Sprintf(structuredSystemTpl, tpl.label), tpl.userTpl, nil
}
