package model

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/matchkit/core"
	"github.com/rushteam/matchkit/feature"
)

// snapshot 是可原子替换的服务状态：数据集映射 + 因子矩阵。
type snapshot struct {
	ds      *Dataset
	factors *Factors
}

// Recommender 封装交互模型的训练与打分。
// Train 成功后原子切换快照，打分请求始终看到一致的模型。
type Recommender struct {
	docs     core.DocumentStore
	inters   core.InteractionStore
	provider feature.Provider

	dir  string
	seed int64
	log  *zap.Logger

	mu          sync.RWMutex
	snap        *snapshot
	lastTrained time.Time
}

// RecommenderOption 配置 Recommender。
type RecommenderOption func(*Recommender)

// WithArtifactDir 启用工件持久化（空表示不持久化）。
func WithArtifactDir(dir string) RecommenderOption {
	return func(r *Recommender) { r.dir = dir }
}

// WithSeed 覆盖训练随机种子。
func WithSeed(seed int64) RecommenderOption {
	return func(r *Recommender) { r.seed = seed }
}

// WithLogger 覆盖日志器（默认 Nop）。
func WithLogger(log *zap.Logger) RecommenderOption {
	return func(r *Recommender) { r.log = log }
}

func NewRecommender(docs core.DocumentStore, inters core.InteractionStore, provider feature.Provider, opts ...RecommenderOption) *Recommender {
	r := &Recommender{
		docs:     docs,
		inters:   inters,
		provider: provider,
		seed:     42,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ready 返回是否有可用的已训练模型。
func (r *Recommender) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap != nil
}

// LastTrained 返回最近一次训练完成时间（零值表示从未训练）。
func (r *Recommender) LastTrained() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastTrained
}

// Train 构建数据集、训练并切换快照；配置了工件目录时落盘。
func (r *Recommender) Train(ctx context.Context, cfg *core.TuningConfig) error {
	ds, err := BuildDataset(ctx, r.docs, r.inters, r.provider)
	if err != nil {
		return err
	}
	start := time.Now()
	factors := trainFactors(ds, cfg, r.seed)
	r.log.Info("interaction model trained",
		zap.Int("resumes", len(ds.ResumeIDs)),
		zap.Int("jobs", len(ds.JobIDs)),
		zap.Int("interactions", len(ds.Interactions)),
		zap.String("loss", cfg.Loss),
		zap.Duration("elapsed", time.Since(start)),
	)

	if r.dir != "" {
		tp, _ := r.provider.(*feature.TextProvider)
		if err := saveArtifacts(r.dir, ds, factors, tp); err != nil {
			r.log.Warn("persist model artifacts failed", zap.Error(err))
		}
	}

	r.mu.Lock()
	r.snap = &snapshot{ds: ds, factors: factors}
	r.lastTrained = time.Now()
	r.mu.Unlock()
	return nil
}

// Load 从工件目录恢复模型。工件缺失返回 NOT_FOUND；损坏或不一致的
// 工件会被整套清除。
func (r *Recommender) Load(ctx context.Context) error {
	if r.dir == "" {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeNotFound, "model: no artifact dir configured")
	}
	ds, factors, tp, err := loadArtifacts(r.dir)
	if err != nil {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeNotFound, "model: artifacts unavailable: "+err.Error())
	}
	// 空词表占位说明训练时使用了外部特征源，保留原 provider。
	if tp != nil && tp.ResumeVec != nil && tp.JobVec != nil {
		r.provider = tp
	}
	r.mu.Lock()
	r.snap = &snapshot{ds: ds, factors: factors}
	r.mu.Unlock()
	r.log.Info("interaction model loaded",
		zap.Int("resumes", len(ds.ResumeIDs)),
		zap.Int("jobs", len(ds.JobIDs)),
	)
	return nil
}

// ScoreJobsForResume 返回简历的职位打分，按分值降序。
// 简历不在训练映射中（冷启动）时返回空结果。
func (r *Recommender) ScoreJobsForResume(ctx context.Context, resumeID int64, limit int) ([]*core.Item, error) {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()
	if snap == nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeUnavailable, "model: not trained yet")
	}
	ri, ok := snap.ds.ResumeRow(resumeID)
	if !ok {
		r.log.Debug("cold-start resume, retrain to cover it", zap.Int64("resume_id", resumeID))
		return nil, nil
	}

	items := make([]*core.Item, 0, len(snap.ds.JobIDs))
	for ji, jobID := range snap.ds.JobIDs {
		// 训练后可能已删除的记录不出现在结果中
		if _, err := r.docs.GetJob(ctx, jobID); err != nil {
			if core.IsNotFound(err) {
				r.log.Warn("scoring skipped deleted job", zap.Int64("job_id", jobID))
				continue
			}
			return nil, err
		}
		it := core.NewItem(core.KindJob, jobID)
		it.MatchScore = sigmoid(snap.factors.Score(ri, ji))
		it.AddAlgorithm(core.AlgorithmInteraction)
		items = append(items, it)
	}
	return topN(items, limit), nil
}

// ScoreResumesForJob 返回职位的简历打分，按分值降序。
// 职位不在训练映射中（冷启动）时返回空结果。
func (r *Recommender) ScoreResumesForJob(ctx context.Context, jobID int64, limit int) ([]*core.Item, error) {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()
	if snap == nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeUnavailable, "model: not trained yet")
	}
	ji, ok := snap.ds.JobRow(jobID)
	if !ok {
		r.log.Debug("cold-start job, retrain to cover it", zap.Int64("job_id", jobID))
		return nil, nil
	}

	items := make([]*core.Item, 0, len(snap.ds.ResumeIDs))
	for ri, resumeID := range snap.ds.ResumeIDs {
		if _, err := r.docs.GetResume(ctx, resumeID); err != nil {
			if core.IsNotFound(err) {
				r.log.Warn("scoring skipped deleted resume", zap.Int64("resume_id", resumeID))
				continue
			}
			return nil, err
		}
		it := core.NewItem(core.KindResume, resumeID)
		it.MatchScore = sigmoid(snap.factors.Score(ri, ji))
		it.AddAlgorithm(core.AlgorithmInteraction)
		items = append(items, it)
	}
	return topN(items, limit), nil
}

// Stats 返回模型快照规模（未训练时全零）。
func (r *Recommender) Stats() (resumes, jobs, interactions int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snap == nil {
		return 0, 0, 0
	}
	return len(r.snap.ds.ResumeIDs), len(r.snap.ds.JobIDs), len(r.snap.ds.Interactions)
}

func topN(items []*core.Item, limit int) []*core.Item {
	sort.Slice(items, func(a, b int) bool {
		if items[a].MatchScore != items[b].MatchScore {
			return items[a].MatchScore > items[b].MatchScore
		}
		return items[a].ID < items[b].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
