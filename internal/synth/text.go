package synth

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText 合并多余空白并去掉首尾空格。
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// 模型在查询重写输出里常见的前缀，需要剥掉
var queryPrefixes = []string{
	"query:", "search:", "rewritten:", "normalized:", "result:",
	"answer:", "response:", "output:",
}

// CleanQueryResponse 从查询重写输出里提取纯查询串：
// 跳过解释性行与代码栅栏，剥掉常见前缀，取第一个像样的行。
func CleanQueryResponse(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, prefix := range queryPrefixes {
			if strings.HasPrefix(lower, prefix) {
				line = strings.TrimSpace(line[len(prefix):])
				lower = strings.ToLower(line)
				break
			}
		}
		if line == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "*") ||
			strings.HasPrefix(line, "-") ||
			strings.HasPrefix(line, "```") ||
			strings.HasPrefix(lower, "here") ||
			strings.HasPrefix(lower, "the ") ||
			strings.HasPrefix(lower, "note:") ||
			strings.HasPrefix(lower, "explanation:") ||
			len(line) <= 3 {
			continue
		}
		return CleanText(line)
	}

	return CleanText(lines[0])
}

// TruncateText 按字符数截断，超长时追加省略号。
func TruncateText(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + "..."
}
