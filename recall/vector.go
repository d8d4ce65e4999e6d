package recall

import (
	"context"

	"github.com/rushteam/matchkit/core"
	"github.com/rushteam/matchkit/index"
)

// VectorSource 基于文本向量索引召回：余弦相似 + 技能覆盖融合分。
type VectorSource struct {
	Index *index.VectorIndex
}

func NewVectorSource(ix *index.VectorIndex) *VectorSource {
	return &VectorSource{Index: ix}
}

func (s *VectorSource) Name() string { return core.AlgorithmVector }

func (s *VectorSource) Ready() bool { return s.Index.Ready() }

func (s *VectorSource) Recall(ctx context.Context, req Request) ([]*core.Item, error) {
	switch req.Kind {
	case core.KindResume:
		return s.Index.SimilarJobsForResume(ctx, req.SubjectID, req.Limit)
	case core.KindJob:
		return s.Index.SimilarResumesForJob(ctx, req.SubjectID, req.Limit)
	}
	return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInvalidInput, "recall: unknown kind "+string(req.Kind))
}

var _ Source = (*VectorSource)(nil)
