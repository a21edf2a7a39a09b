package knowledge

import (
	"strings"
	"unicode"
)

// Normalize 清洗提取后的文本
// 丢弃空行和纯空白行，其余行用单个换行符重连。
// 若前一行以句末标点结尾且后一行以大写字母开头，插入一个空行标记推断的段落边界。
// 这是启发式规则，误判是预期内的，阈值保持不变以保证行为一致。
func Normalize(text string) string {
	lines := strings.Split(text, "\n")

	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cleaned = append(cleaned, line)
	}

	var result []string
	for i, line := range cleaned {
		result = append(result, line)
		if i < len(cleaned)-1 && isParagraphBreak(line, cleaned[i+1]) {
			result = append(result, "")
		}
	}

	return strings.Join(result, "\n")
}

// isParagraphBreak 句末标点+下一行大写开头，推断为段落边界
func isParagraphBreak(line, next string) bool {
	if line == "" || next == "" {
		return false
	}

	last := rune(0)
	for _, r := range line {
		last = r
	}
	if last != '.' && last != '!' && last != '?' {
		return false
	}

	first := []rune(next)[0]
	return unicode.IsUpper(first)
}
