package core

import (
	"context"
	"strings"
	"time"
)

// 本文件定义推荐引擎消费的外部协作方接口：文档存储、交互事件、
// 配置存储与反馈存储。接口定义在领域层，具体落地（关系库、内存
// 实现等）由外层提供；store 包内置内存实现供开发与测试使用。

// ResumeRecord 是简历在推荐引擎视角下的投影：文本抽取字段 + 展示字段。
type ResumeRecord struct {
	ID         int64
	Title      string
	Summary    string
	Skills     string
	Experience string

	// 展示字段（简历作为候选返回时使用）
	UserName  string
	UserEmail string

	UpdatedAt time.Time
}

// Corpus 返回用于向量化的拼接文本：标题 + 概要 + 技能 + 经历。
func (r *ResumeRecord) Corpus() string {
	return strings.TrimSpace(strings.Join([]string{r.Title, r.Summary, r.Skills, r.Experience}, " "))
}

// JobRecord 是职位在推荐引擎视角下的投影。
// Active 为 false 的职位不会作为推荐主体，但在显式移除前仍留在索引中。
type JobRecord struct {
	ID           int64
	Title        string
	Company      string
	Location     string
	Description  string
	Requirements string
	Active       bool

	UpdatedAt time.Time
}

// Corpus 返回用于向量化的拼接文本：标题 + 描述 + 要求。
func (j *JobRecord) Corpus() string {
	return strings.TrimSpace(strings.Join([]string{j.Title, j.Description, j.Requirements}, " "))
}

// Interaction 是一条 (简历, 职位, 强度) 交互三元组，来源于"已申请"事件。
// Strength 缺省为 1.0，仅在训练时使用。
type Interaction struct {
	ResumeID int64
	JobID    int64
	Strength float64
}

// DocumentStore 提供简历/职位的读取访问。
// 记录不存在时返回 NOT_FOUND 领域错误，而不是 nil, nil。
type DocumentStore interface {
	GetResume(ctx context.Context, id int64) (*ResumeRecord, error)
	GetJob(ctx context.Context, id int64) (*JobRecord, error)
	ListResumes(ctx context.Context) ([]*ResumeRecord, error)
	// ListJobs 列出职位；activeOnly 为 true 时仅返回活跃职位。
	ListJobs(ctx context.Context, activeOnly bool) ([]*JobRecord, error)
}

// InteractionStore 提供训练用的申请事件读取。
type InteractionStore interface {
	ListApplications(ctx context.Context) ([]Interaction, error)
}

// ConfigStore 提供推荐配置的存取。
// SetActive 必须在同一事务内取消其他配置的激活状态（系统级不变量：
// 任意时刻至多一个激活配置）。
type ConfigStore interface {
	Get(ctx context.Context, id int64) (*TuningConfig, error)
	List(ctx context.Context) ([]*TuningConfig, error)
	Create(ctx context.Context, cfg *TuningConfig) (*TuningConfig, error)
	Update(ctx context.Context, cfg *TuningConfig) error
	Delete(ctx context.Context, id int64) error

	// GetActive 返回当前激活配置；没有激活配置时返回 NOT_FOUND。
	GetActive(ctx context.Context) (*TuningConfig, error)

	// SetActive 激活指定配置并取消其他配置的激活状态。
	SetActive(ctx context.Context, id int64) (*TuningConfig, error)

	// GetOrCreateDefault 返回激活配置；一个配置都不存在时创建并激活
	// 默认配置，存在但均未激活时激活第一个。
	GetOrCreateDefault(ctx context.Context) (*TuningConfig, error)
}

// FeedbackRecord 是一条用户对推荐结果的反馈，JobID/ResumeID 至少一个
// 非零。写入后不可变，只参与聚合。
type FeedbackRecord struct {
	ID        int64
	UserID    int64
	JobID     int64 // 0 表示未设置
	ResumeID  int64 // 0 表示未设置
	Kind      string
	Rating    float64 // 仅显式评分反馈有意义（1-5）
	Comment   string
	Algorithm string
	CreatedAt time.Time
}

// FeedbackFilter 是反馈查询条件；零值字段不参与过滤。
type FeedbackFilter struct {
	UserID    int64
	Kind      string
	Algorithm string
	Since     time.Time
}

// FeedbackMetric 是一条派生指标事实：按日期/算法/指标名追加，定期
// 从反馈记录重新计算，从不更新。
type FeedbackMetric struct {
	ID        int64
	Date      time.Time
	Algorithm string
	Metric    string
	Value     float64
	ConfigID  int64
	Details   string
}

// FeedbackStore 提供反馈记录的追加与过滤读取，以及指标行的追加。
type FeedbackStore interface {
	Insert(ctx context.Context, rec *FeedbackRecord) (*FeedbackRecord, error)
	List(ctx context.Context, filter FeedbackFilter) ([]*FeedbackRecord, error)
	// Algorithms 返回窗口内出现过的去重算法标签（空标签除外）。
	Algorithms(ctx context.Context, since time.Time) ([]string, error)
	InsertMetric(ctx context.Context, m *FeedbackMetric) error
}
