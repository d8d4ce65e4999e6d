// Package feedback 实现推荐反馈引擎：反馈采集、近期反馈对排序的
// 实时调整，以及按算法聚合的效果指标。
package feedback

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/matchkit/core"
)

// 反馈类型与权重：正向抬分，负向压分。
const (
	KindRelevant    = "relevant"
	KindNotRelevant = "not_relevant"
	KindBookmark    = "bookmark"
	KindApplied     = "applied"
	KindSkipped     = "skipped"
	KindViewed      = "viewed"
	KindExplicit    = "explicit" // 显式评分（1-5）
)

var kindWeights = map[string]float64{
	KindRelevant:    1.0,
	KindBookmark:    0.8,
	KindApplied:     1.0,
	KindNotRelevant: -1.0,
	KindSkipped:     -0.5,
	KindViewed:      0.1,
	KindExplicit:    1.0,
}

// 仅正/负两类反馈参与排序调整与指标的正负分类；
// viewed 与显式评分单独统计，不改变排序。
var (
	positiveKinds = map[string]bool{
		KindRelevant: true,
		KindBookmark: true,
		KindApplied:  true,
	}
	negativeKinds = map[string]bool{
		KindNotRelevant: true,
		KindSkipped:     true,
	}
)

const (
	// adjustStep 是单位反馈权重对分数的调整幅度。
	adjustStep = 0.1

	// signalTTL 是近期反馈参与排序调整的时限。
	signalTTL = 7 * 24 * time.Hour
)

// signal 是内存中的一条近期反馈信号。
type signal struct {
	weight float64
	at     time.Time
}

// Engine 负责反馈的采集、排序调整与指标计算。
type Engine struct {
	store   core.FeedbackStore
	configs core.ConfigStore
	log     *zap.Logger
	now     func() time.Time

	mu sync.Mutex
	// cache: 主体 id → 候选键（kind:id）→ 近期信号
	cache map[int64]map[string][]signal
}

// EngineOption 配置 Engine。
type EngineOption func(*Engine)

// WithLogger 覆盖日志器（默认 Nop）。
func WithLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// withClock 供测试替换时钟。
func withClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store core.FeedbackStore, configs core.ConfigStore, opts ...EngineOption) *Engine {
	e := &Engine{
		store:   store,
		configs: configs,
		log:     zap.NewNop(),
		now:     time.Now,
		cache:   make(map[int64]map[string][]signal),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Record 校验并持久化一条反馈，同时写入近期信号缓存。
func (e *Engine) Record(ctx context.Context, rec *core.FeedbackRecord) (*core.FeedbackRecord, error) {
	if _, ok := kindWeights[rec.Kind]; !ok {
		return nil, core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: unknown kind "+rec.Kind)
	}
	if rec.JobID == 0 && rec.ResumeID == 0 {
		return nil, core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: job_id or resume_id required")
	}
	if rec.Kind == KindExplicit && (rec.Rating < 1 || rec.Rating > 5) {
		return nil, core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: rating must be in [1, 5]")
	}

	saved, err := e.store.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}
	e.remember(saved)
	e.log.Debug("feedback recorded",
		zap.Int64("user_id", saved.UserID),
		zap.String("kind", saved.Kind),
	)
	return saved, nil
}

func (e *Engine) remember(rec *core.FeedbackRecord) {
	if !positiveKinds[rec.Kind] && !negativeKinds[rec.Kind] {
		return
	}
	sig := signal{weight: kindWeights[rec.Kind], at: rec.CreatedAt}
	if sig.at.IsZero() {
		sig.at = e.now()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	byItem, ok := e.cache[rec.UserID]
	if !ok {
		byItem = make(map[string][]signal)
		e.cache[rec.UserID] = byItem
	}
	if rec.JobID != 0 {
		key := itemKey(core.KindJob, rec.JobID)
		byItem[key] = append(byItem[key], sig)
	}
	if rec.ResumeID != 0 {
		key := itemKey(core.KindResume, rec.ResumeID)
		byItem[key] = append(byItem[key], sig)
	}
}

func itemKey(kind core.Kind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// ApplyToRecommendations 按主体的近期反馈调整候选分数并重排。
// 每单位反馈权重调整 ±0.1，结果截断到 [0, 1]；没有相关信号时原样返回。
func (e *Engine) ApplyToRecommendations(ctx context.Context, subjectID int64, items []*core.Item) ([]*core.Item, error) {
	e.mu.Lock()
	byItem := e.cache[subjectID]
	cutoff := e.now().Add(-signalTTL)
	adjusted := false
	for _, it := range items {
		sigs := byItem[itemKey(it.Kind, it.ID)]
		if len(sigs) == 0 {
			continue
		}
		delta := 0.0
		for _, s := range sigs {
			if s.at.Before(cutoff) {
				continue
			}
			delta += s.weight * adjustStep
		}
		if delta == 0 {
			continue
		}
		it.MatchScore += delta
		if it.MatchScore > 1 {
			it.MatchScore = 1
		}
		if it.MatchScore < 0 {
			it.MatchScore = 0
		}
		it.AdjustedByFeedback = true
		adjusted = true
	}
	e.mu.Unlock()

	if adjusted {
		sort.SliceStable(items, func(a, b int) bool {
			if items[a].MatchScore != items[b].MatchScore {
				return items[a].MatchScore > items[b].MatchScore
			}
			return items[a].ID < items[b].ID
		})
	}
	return items, nil
}

// CleanCache 清理过期信号，返回删除的信号条数。
func (e *Engine) CleanCache(ctx context.Context) int {
	cutoff := e.now().Add(-signalTTL)
	removed := 0

	e.mu.Lock()
	defer e.mu.Unlock()
	for userID, byItem := range e.cache {
		for key, sigs := range byItem {
			kept := sigs[:0]
			for _, s := range sigs {
				if s.at.Before(cutoff) {
					removed++
					continue
				}
				kept = append(kept, s)
			}
			if len(kept) == 0 {
				delete(byItem, key)
			} else {
				byItem[key] = kept
			}
		}
		if len(byItem) == 0 {
			delete(e.cache, userID)
		}
	}
	return removed
}
