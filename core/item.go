package core

// Kind 标识推荐主体/候选的类型：简历或职位。
type Kind string

const (
	KindResume Kind = "resume"
	KindJob    Kind = "job"
)

// Opposite 返回对侧集合的类型：为简历推荐职位，为职位推荐简历。
func (k Kind) Opposite() Kind {
	if k == KindResume {
		return KindJob
	}
	return KindResume
}

// 推荐来源算法标签。
const (
	AlgorithmVector      = "vector"      // 文本向量相似度
	AlgorithmInteraction = "interaction" // 协同过滤（交互模型）
	AlgorithmFixture     = "fixture"     // 固定数据源（仅开发/测试）
)

// Item 是推荐链路中的统一承载结构：展示字段、分数、算法来源标签。
// MatchScore 用于最终排序决策；Algorithms 记录贡献过分数的来源，
// 用于解释与反馈归因。
type Item struct {
	ID    int64  `json:"id"`
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`

	// 展示字段：职位侧填 Company/Location，简历侧填 User/UserEmail。
	Company   string `json:"company,omitempty"`
	Location  string `json:"location,omitempty"`
	User      string `json:"user,omitempty"`
	UserEmail string `json:"user_email,omitempty"`

	MatchScore float64 `json:"match_score"`

	// 向量来源的解释信息：余弦相似度、技能重合度与重合技能列表。
	Similarity    float64  `json:"similarity,omitempty"`
	SkillScore    float64  `json:"skill_score,omitempty"`
	MatchedSkills []string `json:"matched_skills,omitempty"`

	Algorithms         []string `json:"algorithms"`
	AdjustedByFeedback bool     `json:"adjusted_by_feedback,omitempty"`
}

func NewItem(kind Kind, id int64) *Item {
	return &Item{ID: id, Kind: kind}
}

// AddAlgorithm 追加来源算法标签；重复标签只记一次。
func (it *Item) AddAlgorithm(name string) {
	for _, a := range it.Algorithms {
		if a == name {
			return
		}
	}
	it.Algorithms = append(it.Algorithms, name)
}

// HasAlgorithm 判断该候选是否由指定算法贡献过分数。
func (it *Item) HasAlgorithm(name string) bool {
	for _, a := range it.Algorithms {
		if a == name {
			return true
		}
	}
	return false
}

// Clone 返回该候选的深拷贝，反馈重排等就地调整分数的场景使用，
// 避免污染缓存里的原始列表。
func (it *Item) Clone() *Item {
	cp := *it
	if it.MatchedSkills != nil {
		cp.MatchedSkills = append([]string(nil), it.MatchedSkills...)
	}
	if it.Algorithms != nil {
		cp.Algorithms = append([]string(nil), it.Algorithms...)
	}
	return &cp
}

// CloneItems 深拷贝整个候选列表。
func CloneItems(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		out = append(out, it.Clone())
	}
	return out
}
