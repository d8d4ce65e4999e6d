package recommend

import (
	"context"

	"github.com/rushteam/matchkit/core"
)

// MatchDetail 返回指定 简历↔职位 配对的打分明细：融合分、相似度、
// 技能重合与贡献算法。配对双方必须存在；没有任何来源给出分数时返回
// 零分明细。
func (s *Service) MatchDetail(ctx context.Context, resumeID, jobID int64) (*core.Item, error) {
	if _, err := s.docs.GetResume(ctx, resumeID); err != nil {
		return nil, err
	}
	job, err := s.docs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.configs.GetOrCreateDefault(ctx)
	if err != nil {
		return nil, err
	}

	// 全量候选里找目标职位：fetch 用职位总数上界
	bySource := s.fanout(ctx, core.KindResume, resumeID, 0)
	fused := fuse(bySource, cfg)

	var detail *core.Item
	for _, it := range fused {
		if it.ID == jobID {
			detail = it
			break
		}
	}
	if detail == nil {
		detail = core.NewItem(core.KindJob, jobID)
	}
	detail.Title = job.Title
	detail.Company = job.Company
	detail.Location = job.Location
	return detail, nil
}

// CleanCache 清扫推荐结果缓存，返回删除条数。未启用缓存时为空操作。
func (s *Service) CleanCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	active, err := s.configs.GetActive(ctx)
	if err != nil {
		if !core.IsNotFound(err) {
			return 0, err
		}
		active = nil
	}
	return s.cache.Sweep(ctx, active)
}

// SourceStates 返回各召回源的就绪状态（运行状态接口使用）。
func (s *Service) SourceStates() map[string]bool {
	states := make(map[string]bool, len(s.sources))
	for _, src := range s.sources {
		states[src.Name()] = src.Ready()
	}
	return states
}
