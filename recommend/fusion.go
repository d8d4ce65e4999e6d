package recommend

import (
	"sort"

	"github.com/rushteam/matchkit/core"
)

// fuse 把各召回源的打分按配置权重加权求和。
//
// 权重规则：
//   - vector / interaction 使用配置的融合权重（读取路径已归一）
//   - 其他来源（如 fixture）权重 1.0
//   - 按实际参与的来源重新归一：交互模型缺席时向量权重提升为 1.0
//
// 同一候选出现在多个来源时分数累加，算法标签全部保留；向量来源的
// 解释字段（相似度、技能）原样带出。
func fuse(bySource map[string][]*core.Item, cfg *core.TuningConfig) []*core.Item {
	if len(bySource) == 0 {
		return nil
	}
	vw, iw := cfg.NormalizedWeights()
	base := func(name string) float64 {
		switch name {
		case core.AlgorithmVector:
			return vw
		case core.AlgorithmInteraction:
			return iw
		}
		return 1.0
	}

	names := make([]string, 0, len(bySource))
	total := 0.0
	for name := range bySource {
		names = append(names, name)
		total += base(name)
	}
	sort.Strings(names)
	if total <= 0 {
		total = 1.0
	}

	merged := make(map[int64]*core.Item)
	var order []int64
	for _, name := range names {
		w := base(name) / total
		for _, it := range bySource[name] {
			dst, ok := merged[it.ID]
			if !ok {
				dst = core.NewItem(it.Kind, it.ID)
				merged[it.ID] = dst
				order = append(order, it.ID)
			}
			dst.MatchScore += w * it.MatchScore
			for _, a := range it.Algorithms {
				dst.AddAlgorithm(a)
			}
			if it.Similarity > 0 {
				dst.Similarity = it.Similarity
				dst.SkillScore = it.SkillScore
				dst.MatchedSkills = it.MatchedSkills
			}
		}
	}

	out := make([]*core.Item, 0, len(order))
	for _, id := range order {
		out = append(out, merged[id])
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].MatchScore != out[b].MatchScore {
			return out[a].MatchScore > out[b].MatchScore
		}
		return out[a].ID < out[b].ID
	})
	return out
}
