package index

import (
	"sort"
	"strings"
	"unicode"
)

// MatchPolicy 抽取文本中的技能词，并计算简历技能对职位技能的覆盖率。
// 默认实现为启发式词表；可替换为基于知识库的实现。
type MatchPolicy interface {
	// ExtractSkills 从自由文本中抽取去重后的技能词（小写）。
	ExtractSkills(text string) []string

	// Score 返回覆盖率 |matched| / |jobSkills| 与命中的技能词。
	// jobSkills 为空时覆盖率为 0。
	Score(resumeSkills, jobSkills []string) (float64, []string)
}

// skillPrefixes 是常见技术技能的前缀表：token 以其中之一开头即视为技能词。
var skillPrefixes = []string{
	"python", "java", "c++", "javascript", "react", "angular", "vue",
	"node", "sql", "nosql", "aws", "azure", "docker", "kubernetes",
}

// HeuristicPolicy 是默认的技能识别策略：
//   - token 以已知技术前缀开头（如 javascript、nodejs）
//   - 或原文为全大写缩写（如 SQL、AWS、HTML）
type HeuristicPolicy struct{}

func NewHeuristicPolicy() *HeuristicPolicy { return &HeuristicPolicy{} }

func (p *HeuristicPolicy) ExtractSkills(text string) []string {
	seen := make(map[string]bool)
	var skills []string
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ",.;:()[]{}\"'")
		if tok == "" {
			continue
		}
		lower := strings.ToLower(tok)
		if !p.isSkill(tok, lower) {
			continue
		}
		if seen[lower] {
			continue
		}
		seen[lower] = true
		skills = append(skills, lower)
	}
	sort.Strings(skills)
	return skills
}

func (p *HeuristicPolicy) isSkill(raw, lower string) bool {
	for _, prefix := range skillPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return isAllUpper(raw)
}

// isAllUpper 判断 token 是否为全大写缩写（至少 2 个字母，无小写字符）。
func isAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters >= 2
}

func (p *HeuristicPolicy) Score(resumeSkills, jobSkills []string) (float64, []string) {
	if len(jobSkills) == 0 {
		return 0, nil
	}
	resumeSet := make(map[string]bool, len(resumeSkills))
	for _, s := range resumeSkills {
		resumeSet[s] = true
	}
	var matched []string
	for _, s := range jobSkills {
		if resumeSet[s] {
			matched = append(matched, s)
		}
	}
	return float64(len(matched)) / float64(len(jobSkills)), matched
}

var _ MatchPolicy = (*HeuristicPolicy)(nil)
