// Package recall 定义推荐候选的召回源抽象与内置实现。
// 每个 Source 是一个可并发 fan-out 的策略单元，由编排层合并打分。
package recall

import (
	"context"

	"github.com/rushteam/matchkit/core"
)

// Request 描述一次召回：主体类型、主体 id 与候选数上限。
// Kind 是主体的类型；召回产出的是对侧类型的候选。
type Request struct {
	Kind      core.Kind
	SubjectID int64
	Limit     int
}

// Source 表示一个可复用的召回源（文本相似 / 交互模型 / 固定清单）。
type Source interface {
	Name() string

	// Ready 返回召回源当前是否可用；不可用的源会被编排层跳过。
	Ready() bool

	Recall(ctx context.Context, req Request) ([]*core.Item, error)
}
