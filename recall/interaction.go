package recall

import (
	"context"

	"github.com/rushteam/matchkit/core"
	"github.com/rushteam/matchkit/model"
)

// InteractionSource 基于交互模型召回：申请行为训练出的协同信号。
// 模型未训练时 Ready 为 false；冷启动主体返回空结果。
type InteractionSource struct {
	Model *model.Recommender
}

func NewInteractionSource(m *model.Recommender) *InteractionSource {
	return &InteractionSource{Model: m}
}

func (s *InteractionSource) Name() string { return core.AlgorithmInteraction }

func (s *InteractionSource) Ready() bool { return s.Model.Ready() }

func (s *InteractionSource) Recall(ctx context.Context, req Request) ([]*core.Item, error) {
	switch req.Kind {
	case core.KindResume:
		return s.Model.ScoreJobsForResume(ctx, req.SubjectID, req.Limit)
	case core.KindJob:
		return s.Model.ScoreResumesForJob(ctx, req.SubjectID, req.Limit)
	}
	return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInvalidInput, "recall: unknown kind "+string(req.Kind))
}

var _ Source = (*InteractionSource)(nil)
