// Package matchkit 是一个简历↔职位双向推荐工具包（Match Kit）。
//
// 设计要点：
// - 双通道召回：TF-IDF 文本相似（index）+ 申请行为交互模型（model），
//   由编排层（recommend）按配置权重融合
// - 配置驱动：融合权重、训练计划、过滤规则都挂在运行期配置
//   （core.TuningConfig）上，激活配置切换即刻生效并令缓存失效
// - 反馈闭环：feedback 引擎采集用户反馈，实时调整排序并周期产出
//   按算法聚合的效果指标
// - 后台自治：scheduler 负责启动初始化、cron 定时训练、缓存清理，
//   带任务互斥与失败熔断
package matchkit

import "github.com/rushteam/matchkit/core"

// 轻量 facade：便于用户直接 import "matchkit" 使用核心类型。
type Item = core.Item
type Kind = core.Kind
type TuningConfig = core.TuningConfig

const (
	KindResume = core.KindResume
	KindJob    = core.KindJob
)
