package recall

import (
	"context"

	"github.com/rushteam/matchkit/core"
)

// FixtureSource 返回固定候选清单，用于开发环境与编排层测试。
// Items 按 Kind 给出主体类型对应的候选（即对侧实体）。
type FixtureSource struct {
	Items map[core.Kind][]*core.Item
	Err   error
}

func (s *FixtureSource) Name() string { return core.AlgorithmFixture }

func (s *FixtureSource) Ready() bool { return true }

func (s *FixtureSource) Recall(ctx context.Context, req Request) ([]*core.Item, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	items := core.CloneItems(s.Items[req.Kind])
	for _, it := range items {
		it.AddAlgorithm(core.AlgorithmFixture)
	}
	if req.Limit > 0 && len(items) > req.Limit {
		items = items[:req.Limit]
	}
	return items, nil
}

var _ Source = (*FixtureSource)(nil)
