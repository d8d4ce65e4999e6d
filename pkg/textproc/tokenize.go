package textproc

import (
	"regexp"
	"strings"
)

// tokenRe 与 sklearn 默认 token_pattern 对齐：两个及以上的字母/数字/下划线。
var tokenRe = regexp.MustCompile(`\b\w\w+\b`)

// Tokenize 切分文本为小写词元，过滤停用词。
func Tokenize(text string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if stopWords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
