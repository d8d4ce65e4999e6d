package core

import "time"

// 损失函数族：成对排序 / 成对分类 / 逐点逻辑回归。
const (
	LossWARP     = "warp"
	LossBPR      = "bpr"
	LossLogistic = "logistic"
)

// WeightTolerance 是融合权重之和偏离 1.0 的容忍度，写入时校验。
const WeightTolerance = 1e-3

// TuningConfig 是一份命名、带版本的推荐参数包：融合权重、训练超参、
// 训练计划与结果数上限。系统级不变量：任意时刻至多一个配置处于激活
// 状态，激活某配置会在同一事务内取消其他配置的激活。
type TuningConfig struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// 交互模型训练超参
	LearningRate float64 `yaml:"learning_rate"`
	Loss         string  `yaml:"loss"` // warp / bpr / logistic
	EmbeddingDim int     `yaml:"embedding_dim"`
	UserAlpha    float64 `yaml:"user_alpha"` // 简历侧 L2 正则
	ItemAlpha    float64 `yaml:"item_alpha"` // 职位侧 L2 正则
	Epochs       int     `yaml:"epochs"`
	Threads      int     `yaml:"threads"`

	// 融合权重，写入时要求 VectorWeight + InteractionWeight == 1.0（容差 1e-3）
	VectorWeight      float64 `yaml:"vector_weight"`
	InteractionWeight float64 `yaml:"interaction_weight"`

	// 训练计划
	TrainSchedule  string    `yaml:"train_schedule"` // 五段式 cron 表达式
	TrainOnStartup bool      `yaml:"train_on_startup"`
	LastTrained    time.Time `yaml:"-"`

	MaxRecommendations int `yaml:"max_recommendations"`

	// FilterRule 是可选的 CEL 结果过滤规则（如 item.match_score > 0.05），
	// 为空表示不过滤。
	FilterRule string `yaml:"filter_rule"`

	Active    bool      `yaml:"active"`
	CreatedAt time.Time `yaml:"-"`
	UpdatedAt time.Time `yaml:"-"`
}

// DefaultTuningConfig 返回硬编码的引导默认配置：没有任何配置可用时
// 推荐请求与训练使用这份参数。
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		Name:               "默认配置",
		Description:        "系统默认配置",
		LearningRate:       0.05,
		Loss:               LossWARP,
		EmbeddingDim:       64,
		UserAlpha:          1e-6,
		ItemAlpha:          1e-6,
		Epochs:             30,
		Threads:            4,
		VectorWeight:       0.6,
		InteractionWeight:  0.4,
		TrainSchedule:      "0 2 * * *",
		TrainOnStartup:     true,
		MaxRecommendations: 10,
		Active:             true,
	}
}

// ValidateWeights 校验融合权重之和是否在容差内等于 1.0（写入路径使用）。
func (c *TuningConfig) ValidateWeights() error {
	sum := c.VectorWeight + c.InteractionWeight
	if sum > 1.0+WeightTolerance || sum < 1.0-WeightTolerance {
		return NewDomainError(ModuleConfig, ErrorCodeInvalidInput, "config: vector_weight + interaction_weight must equal 1.0")
	}
	return nil
}

// NormalizedWeights 返回读取路径可直接使用的权重：权重和偏离 1.0 时
// 按比例归一；和为非正数时退回默认 0.6/0.4。
func (c *TuningConfig) NormalizedWeights() (vector, interaction float64) {
	sum := c.VectorWeight + c.InteractionWeight
	if sum <= 0 {
		return 0.6, 0.4
	}
	if sum > 1.0+WeightTolerance || sum < 1.0-WeightTolerance {
		return c.VectorWeight / sum, c.InteractionWeight / sum
	}
	return c.VectorWeight, c.InteractionWeight
}
