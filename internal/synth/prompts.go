// Package synth 持有提示词模板与提示组装逻辑。
package synth

// QueryNormalizerSystem 查询重写提示
const QueryNormalizerSystem = `You are a Search Query Expert. Rewrite the user query into a precise web search string
using operators, site: filters when helpful, locale hints, and time constraints.
Return ONLY the query string. No explanations.`

// QueryNormalizerUser 查询重写用户消息模板（fmt 填充）
const QueryNormalizerUser = `User query: "%s"
Locale: %s
Time range hint: %s
Include domains: %s
Exclude domains: %s`

// SynthesisSystem 综合回答提示
const SynthesisSystem = `You are a meticulous research assistant. Synthesize the provided web extracts into a
concise, accurate answer with explicit citations. Do not speculate. If uncertain, say so.
Return STRICT JSON matching the provided JSON Schema. No markdown, no prose.`

// SynthesisUser 综合回答用户消息模板，内嵌目标 JSON Schema（fmt 填充 query 与 docs_json）
const SynthesisUser = `Schema:
{
  "type": "object",
  "required": ["answer", "bullets", "sources"],
  "properties": {
    "answer": {"type":"string"},
    "bullets": {"type":"array", "items":{"type":"string"}},
    "sources": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title","url","snippet","relevance"],
        "properties": {
          "title": {"type":"string"},
          "url": {"type":"string"},
          "snippet": {"type":"string"},
          "relevance": {"type":"number"},
          "published": {"type":"string"}
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
- Cite only from provided docs.
- Prefer most recent and authoritative.
- If conflicting, explain briefly in bullets.
- Keep "answer" concise, 120 words or fewer.
- Never invent URLs or titles.
- Output strict JSON only.`

// RepairSystem JSON 修复提示
const RepairSystem = `You are a JSON repair expert. The user will provide broken JSON. Return the same content as valid JSON only. No explanations.`

// RepairUser JSON 修复用户消息模板
const RepairUser = "Repair this JSON:\n\n%s"
